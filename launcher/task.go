package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"mclauncher/console"
	"mclauncher/env"
	"mclauncher/metrics"
	"mclauncher/profile"
	"mclauncher/settings"
	"mclauncher/task"
	"mclauncher/update"
)

// Options are the switches of one launch, usually read from settings.
type Options struct {
	ForceUpdate  bool
	AllowOffline bool
	ShowConsole  bool
	SkipUpdate   bool
	ConsoleKills bool
	Reopen       bool
}

// OptionsFrom reads launch switches from a settings list.
func OptionsFrom(s *settings.List) Options {
	return Options{
		ForceUpdate:  s.Bool(settings.GameUpdate),
		AllowOffline: s.Bool(settings.AllowOfflineName),
		ShowConsole:  s.Bool(settings.LaunchConsole),
		ConsoleKills: s.Bool(settings.ConsoleKills),
		Reopen:       s.Bool(settings.Reopen),
	}
}

// Deps are the collaborators a LaunchTask uses.
type Deps struct {
	Env     *env.Environment
	Updater *update.Client
	Auth    Authenticator
	Starter Starter
	Log     *zap.SugaredLogger
}

// LaunchTask updates and starts the game for one profile, then waits for it
// to exit.
type LaunchTask struct {
	deps Deps

	Profile     *profile.Configuration
	Username    string
	Password    string
	AutoConnect string
	Jar         string // "" selects the profile's last jar or the default
	Options     Options

	// Console receives the game's output.  Nil discards it.
	Console *console.Hub

	mu  sync.Mutex
	pid int
	// readers copying the game's output into the console
	readers sync.WaitGroup
}

// NewLaunchTask builds a task for c.
func NewLaunchTask(deps Deps, c *profile.Configuration, username, password string) *LaunchTask {
	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}
	if deps.Starter == nil {
		deps.Starter = ExecStarter{}
	}
	return &LaunchTask{deps: deps, Profile: c, Username: username, Password: password}
}

func (t *LaunchTask) Name() string { return "launch " + t.Profile.ID() }

// PID of the running game, 0 before launch.
func (t *LaunchTask) PID() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pid
}

// Validate checks the inputs without touching disk or network.
func (t *LaunchTask) Validate() error {
	if strings.TrimSpace(t.Username) == "" {
		return ErrMissingUsername
	}
	if strings.TrimSpace(t.Password) == "" && !t.Options.AllowOffline {
		return ErrMissingPassword
	}
	if t.AutoConnect != "" {
		if _, _, err := profile.SplitAddress(t.AutoConnect); err != nil {
			return err
		}
	}
	return nil
}

type resolved struct {
	baseDir   string
	gameDir   string
	jar       string
	updateURL string
}

func (t *LaunchTask) Run(ctx context.Context, emit task.Emit) error {
	log := t.deps.Log.With("profile", t.Profile.ID())

	if err := t.Validate(); err != nil {
		return stageErr(StageValidate, err)
	}

	emit(task.Progress(0.05, "Resolving installation..."))
	r, err := t.resolve()
	if err != nil {
		return stageErr(StageResolve, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	session, err := t.login(ctx, emit)
	if err != nil {
		return stageErr(StageLogin, err)
	}

	if t.Options.SkipUpdate || (session.Offline && !t.Options.ForceUpdate) {
		emit(task.Log("Skipping update check"))
	} else if err := t.update(ctx, r, emit); err != nil {
		return stageErr(StageUpdate, err)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	emit(task.Progress(0.95, "Launching..."))
	proc, err := t.launch(ctx, r, session)
	if err != nil {
		metrics.GameLaunches.WithLabelValues("error").Inc()
		return stageErr(StageLaunch, err)
	}
	metrics.GameLaunches.WithLabelValues("ok").Inc()
	log.Infow("game started", "pid", proc.PID(), "jar", r.jar, "offline", session.Offline)

	t.mu.Lock()
	t.pid = proc.PID()
	t.mu.Unlock()
	emit(task.Event{Kind: task.EventLaunched, Progress: 1, Message: "Game running", PID: proc.PID()})

	return t.wait(ctx, proc, emit)
}

func (t *LaunchTask) resolve() (resolved, error) {
	base, err := t.Profile.BaseDir()
	if err != nil {
		return resolved{}, err
	}
	game, err := t.Profile.MinecraftDir()
	if err != nil {
		return resolved{}, err
	}
	jar := t.Jar
	if jar == "" {
		jar = t.Profile.SelectedJar()
	}
	if jar != filepath.Base(jar) || !strings.HasSuffix(strings.ToLower(jar), ".jar") {
		return resolved{}, fmt.Errorf("%w: %q", ErrNoJar, jar)
	}
	src := t.Profile.UpdateURL()
	if src == "" {
		src = t.deps.Env.Config().Update.DefaultURL
	}
	return resolved{baseDir: base, gameDir: game, jar: jar, updateURL: src}, nil
}

func (t *LaunchTask) login(ctx context.Context, emit task.Emit) (Session, error) {
	if strings.TrimSpace(t.Password) == "" {
		emit(task.Log("Playing offline as %s", t.Username))
		return OfflineSession(t.Username), nil
	}
	if t.deps.Auth == nil {
		return Session{}, errors.New("no login service configured")
	}
	emit(task.Progress(0.1, "Logging in..."))
	return t.deps.Auth.Login(ctx, t.Username, t.Password)
}

func (t *LaunchTask) update(ctx context.Context, r resolved, emit task.Emit) error {
	if t.deps.Updater == nil {
		return errors.New("no update client configured")
	}
	cfg := t.deps.Env.Config().Update

	emit(task.Progress(0.2, "Checking for updates..."))
	plan, err := t.deps.Updater.Check(ctx, r.gameDir, r.updateURL, update.CheckOptions{
		Force:    t.Options.ForceUpdate,
		Interval: cfg.CheckInterval,
	})
	if err != nil {
		return err
	}
	if plan.Skipped {
		emit(task.Log("Update checked recently, skipping"))
		return nil
	}
	if plan.Empty() {
		emit(task.Log("Game is up to date (%s)", plan.Manifest.Version))
		return update.MarkChecked(r.gameDir, plan, time.Now())
	}

	emit(task.Log("Updating to %s (%d files)", plan.Manifest.Version, len(plan.Files)))
	return t.deps.Updater.Apply(ctx, r.gameDir, plan, cfg.Workers, func(p update.Progress) {
		frac := p.Fraction()
		if frac >= 0 {
			frac = 0.2 + 0.7*frac
		}
		emit(task.Progress(frac, p.String()))
	})
}

// Command builds the java command line for the resolved installation.
func (t *LaunchTask) command(r resolved, s Session) (Command, error) {
	bin := filepath.Join(r.gameDir, "bin")
	if _, err := os.Stat(filepath.Join(bin, r.jar)); err != nil {
		return Command{}, fmt.Errorf("%w: %s", ErrNoJar, filepath.Join(bin, r.jar))
	}

	cp := []string{filepath.Join(bin, r.jar)}
	if entries, err := os.ReadDir(bin); err == nil {
		for _, e := range entries {
			n := e.Name()
			if !e.IsDir() && n != r.jar && isLibraryJar(n) {
				cp = append(cp, filepath.Join(bin, n))
			}
		}
	}

	lc := t.deps.Env.Config().Launch
	st := t.Profile.Settings()
	args := []string{
		"-Xmx" + strconv.Itoa(st.Int(settings.MaxMemory)) + "M",
		"-Xms" + strconv.Itoa(st.Int(settings.MinMemory)) + "M",
	}
	args = append(args, lc.JVMArgs...)
	args = append(args, strings.Fields(st.String(settings.JVMArgs))...)
	args = append(args,
		"-Djava.library.path="+filepath.Join(bin, "natives"),
		"-Duser.home="+r.baseDir,
		"-cp", strings.Join(cp, string(os.PathListSeparator)),
		lc.MainClass,
		s.Username, s.SessionID,
	)
	if t.AutoConnect != "" {
		host, port, err := profile.SplitAddress(t.AutoConnect)
		if err != nil {
			return Command{}, err
		}
		args = append(args, "--server", host, "--port", strconv.Itoa(port))
	}

	java := lc.Java
	if !filepath.IsAbs(java) {
		if p, err := exec.LookPath(java); err == nil {
			java = p
		}
	}
	return Command{
		Path: java,
		Args: args,
		Dir:  r.gameDir,
		Env:  []string{"APPDATA=" + r.baseDir},
	}, nil
}

// library jars that ship next to the game jar
func isLibraryJar(name string) bool {
	for _, lib := range []string{"lwjgl.jar", "lwjgl_util.jar", "jinput.jar"} {
		if name == lib {
			return true
		}
	}
	return false
}

func (t *LaunchTask) launch(ctx context.Context, r resolved, s Session) (Process, error) {
	cmd, err := t.command(r, s)
	if err != nil {
		return nil, err
	}
	proc, err := t.deps.Starter.Start(ctx, cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}

	hub := t.Console
	if hub == nil {
		hub = console.NewHub(nil)
	}
	// Closing the console only kills a game whose console was shown.
	hub.SetKiller(proc.Kill, t.Options.ShowConsole && t.Options.ConsoleKills)
	hub.Append(console.Launcher, fmt.Sprintf("Started %s (pid %d)", r.jar, proc.PID()))
	t.readers.Add(2)
	go t.attach(hub, proc.Stdout(), console.Stdout)
	go t.attach(hub, proc.Stderr(), console.Stderr)
	return proc, nil
}

func (t *LaunchTask) attach(hub *console.Hub, r io.Reader, stream console.Stream) {
	defer t.readers.Done()
	hub.Attach(r, stream)
}

// wait blocks until the game exits.  Cancelling stops waiting but leaves the
// game running.
func (t *LaunchTask) wait(ctx context.Context, proc Process, emit task.Emit) error {
	exited := make(chan error, 1)
	go func() {
		// the pipes must be drained before Wait closes them
		t.readers.Wait()
		exited <- proc.Wait()
	}()

	select {
	case err := <-exited:
		code := 0
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else if err != nil {
			t.deps.Log.Warnw("waiting for game failed", "profile", t.Profile.ID(), "err", err)
		}
		msg := fmt.Sprintf("Game exited with code %d", code)
		if t.Console != nil {
			t.Console.Append(console.Launcher, msg)
		}
		emit(task.Log("%s", msg))
		if t.Options.Reopen {
			emit(task.Event{Kind: task.EventReopen, Progress: 1, Message: "Game closed"})
		}
		return nil
	case <-ctx.Done():
		emit(task.Log("Stopped waiting for the game"))
		return ctx.Err()
	}
}
