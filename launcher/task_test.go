package launcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mclauncher/console"
	"mclauncher/env"
	"mclauncher/profile"
	"mclauncher/task"
	"mclauncher/update"
)

// backend fakes both the login service and the update source and counts
// every request it receives.
type backend struct {
	requests atomic.Int32
	jar      string
	sum      string
	srv      *httptest.Server
}

func newBackend(t *testing.T) *backend {
	b := &backend{jar: "new jar"}
	mux := http.NewServeMux()
	mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		b.requests.Add(1)
		require.NoError(t, r.ParseForm())
		if r.FormValue("password") != "secret" {
			fmt.Fprint(w, "Bad login")
			return
		}
		fmt.Fprintf(w, "1343825972000:deprecated:%s:abc123\n", r.FormValue("user"))
	})
	mux.HandleFunc("/manifest.yml", func(w http.ResponseWriter, r *http.Request) {
		b.requests.Add(1)
		sum := b.sum
		if sum == "" {
			h := sha256.Sum256([]byte(b.jar))
			sum = hex.EncodeToString(h[:])
		}
		fmt.Fprintf(w, "version: 1.2.5\nfiles:\n  - path: bin/minecraft.jar\n    url: files/minecraft.jar\n    sha256: %s\n", sum)
	})
	mux.HandleFunc("/files/minecraft.jar", func(w http.ResponseWriter, r *http.Request) {
		b.requests.Add(1)
		fmt.Fprint(w, b.jar)
	})
	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

type fixture struct {
	env     *env.Environment
	backend *backend
	starter *fakeStarter
	profile *profile.Configuration
	deps    Deps
	gameDir string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	e := env.NewForTest(t.TempDir())
	b := newBackend(t)
	e.SetUpdateURL(b.srv.URL + "/manifest.yml")
	e.SetAuthURL(b.srv.URL + "/login")

	c, err := profile.NewWithCustomPath(e, "pack", "Pack", t.TempDir(), "")
	require.NoError(t, err)
	gameDir, err := c.MinecraftDir()
	require.NoError(t, err)

	s := newFakeStarter()
	return &fixture{
		env:     e,
		backend: b,
		starter: s,
		profile: c,
		gameDir: gameDir,
		deps: Deps{
			Env:     e,
			Updater: update.NewClient(5*time.Second, nil),
			Auth:    NewHTTPAuthenticator(e.Config().Auth.URL, 5*time.Second),
			Starter: s,
		},
	}
}

func (f *fixture) installJar(t *testing.T, content string) {
	t.Helper()
	bin := filepath.Join(f.gameDir, "bin")
	require.NoError(t, os.MkdirAll(bin, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bin, "minecraft.jar"), []byte(content), 0o644))
}

type events struct {
	mu  sync.Mutex
	all []task.Event
}

func (e *events) emit(ev task.Event) {
	e.mu.Lock()
	e.all = append(e.all, ev)
	e.mu.Unlock()
}

func (e *events) has(kind task.EventKind) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range e.all {
		if ev.Kind == kind {
			return true
		}
	}
	return false
}

func (e *events) launchedPID() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, ev := range e.all {
		if ev.Kind == task.EventLaunched {
			return ev.PID
		}
	}
	return 0
}

// runAsync runs t and exits the game as soon as it starts.
func runAsync(t *testing.T, f *fixture, lt *LaunchTask, ev *events) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- lt.Run(context.Background(), ev.emit) }()
	for {
		select {
		case err := <-done:
			return err
		case p := <-f.starter.started:
			p.Exit(nil)
		case <-time.After(10 * time.Second):
			t.Fatal("launch did not finish")
		}
	}
}

func TestEmptyPasswordRejectedBeforeNetwork(t *testing.T) {
	f := newFixture(t)
	f.installJar(t, "old jar")

	lt := NewLaunchTask(f.deps, f.profile, "Notch", "")
	lt.Options.AllowOffline = false
	lt.Options.ForceUpdate = true

	err := lt.Run(context.Background(), func(task.Event) {})
	require.ErrorIs(t, err, ErrMissingPassword)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageValidate, se.Stage)
	assert.Equal(t, int32(0), f.backend.requests.Load(), "no network activity before validation")
	assert.Equal(t, 0, f.starter.calls())
}

func TestEmptyUsernameRejected(t *testing.T) {
	f := newFixture(t)
	lt := NewLaunchTask(f.deps, f.profile, "  ", "secret")
	assert.ErrorIs(t, lt.Run(context.Background(), func(task.Event) {}), ErrMissingUsername)
	assert.Equal(t, int32(0), f.backend.requests.Load())
}

func TestOfflineAllowedProceeds(t *testing.T) {
	f := newFixture(t)
	f.installJar(t, "old jar")

	lt := NewLaunchTask(f.deps, f.profile, "Notch", "")
	lt.Options.AllowOffline = true
	ev := &events{}
	require.NoError(t, runAsync(t, f, lt, ev))

	require.Equal(t, 1, f.starter.calls())
	cmd := f.starter.lastCommand()
	assert.Contains(t, cmd.Args, "Notch")
	assert.Contains(t, cmd.Args, "-")
	assert.Equal(t, f.gameDir, cmd.Dir)
	assert.Equal(t, int32(0), f.backend.requests.Load(), "offline play skips login and update")
}

func TestOnlineLaunchUpdatesAndConnects(t *testing.T) {
	f := newFixture(t)
	f.installJar(t, "old jar")

	lt := NewLaunchTask(f.deps, f.profile, "Notch", "secret")
	lt.AutoConnect = "1.2.3.4"
	lt.Options.Reopen = true
	ev := &events{}
	require.NoError(t, runAsync(t, f, lt, ev))

	data, err := os.ReadFile(filepath.Join(f.gameDir, "bin", "minecraft.jar"))
	require.NoError(t, err)
	assert.Equal(t, "new jar", string(data))
	assert.Equal(t, "1.2.5", update.ReadState(f.gameDir).Version)

	args := f.starter.lastCommand().Args
	assert.Contains(t, args, "abc123")
	assert.Subset(t, args, []string{"--server", "1.2.3.4", "--port", "25565"})
	assert.Contains(t, args, "-Xmx1024M")
	assert.Equal(t, 4001, ev.launchedPID())
	assert.True(t, ev.has(task.EventReopen))
}

func TestBadLoginFails(t *testing.T) {
	f := newFixture(t)
	f.installJar(t, "old jar")

	lt := NewLaunchTask(f.deps, f.profile, "Notch", "wrong")
	err := lt.Run(context.Background(), func(task.Event) {})
	require.ErrorIs(t, err, ErrLoginFailed)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageLogin, se.Stage)
	assert.Equal(t, 0, f.starter.calls())
}

func TestFailedUpdateDoesNotLaunch(t *testing.T) {
	f := newFixture(t)
	f.installJar(t, "old jar")
	f.backend.sum = "deadbeef"

	lt := NewLaunchTask(f.deps, f.profile, "Notch", "secret")
	err := lt.Run(context.Background(), func(task.Event) {})
	require.ErrorIs(t, err, update.ErrChecksumMismatch)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageUpdate, se.Stage)
	assert.Equal(t, 0, f.starter.calls())

	data, err := os.ReadFile(filepath.Join(f.gameDir, "bin", "minecraft.jar"))
	require.NoError(t, err)
	assert.Equal(t, "old jar", string(data))
}

func TestMissingJar(t *testing.T) {
	f := newFixture(t)
	lt := NewLaunchTask(f.deps, f.profile, "Notch", "")
	lt.Options.AllowOffline = true
	err := lt.Run(context.Background(), func(task.Event) {})
	require.ErrorIs(t, err, ErrNoJar)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageLaunch, se.Stage)
}

func TestSpawnFailure(t *testing.T) {
	f := newFixture(t)
	f.installJar(t, "old jar")
	f.starter.err = errSpawn

	lt := NewLaunchTask(f.deps, f.profile, "Notch", "")
	lt.Options.AllowOffline = true
	lt.Jar = "minecraft.jar"
	err := lt.Run(context.Background(), func(task.Event) {})
	require.ErrorIs(t, err, errSpawn)
	assert.Equal(t, "", f.profile.LastActiveJar(), "jar is remembered only after a successful start")
}

func TestSkipUpdateLaunchesInstalledJar(t *testing.T) {
	f := newFixture(t)
	f.installJar(t, "old jar")

	lt := NewLaunchTask(f.deps, f.profile, "Notch", "secret")
	lt.Options.SkipUpdate = true
	lt.Options.ForceUpdate = true
	require.NoError(t, runAsync(t, f, lt, &events{}))

	assert.Equal(t, int32(1), f.backend.requests.Load(), "only the login request")
	data, err := os.ReadFile(filepath.Join(f.gameDir, "bin", "minecraft.jar"))
	require.NoError(t, err)
	assert.Equal(t, "old jar", string(data))
	assert.Equal(t, 1, f.starter.calls())
}

func TestExitReportedAfterOutput(t *testing.T) {
	f := newFixture(t)
	f.installJar(t, "old jar")
	out, w := io.Pipe()
	f.starter.stdout = out

	hub := console.NewHub(nil)
	lt := NewLaunchTask(f.deps, f.profile, "Notch", "")
	lt.Options.AllowOffline = true
	lt.Console = hub

	done := make(chan error, 1)
	go func() { done <- lt.Run(context.Background(), func(task.Event) {}) }()
	p := <-f.starter.started
	p.Exit(nil)
	_, err := io.WriteString(w, "Saving chunks\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return")
	}
	lines := hub.Lines()
	require.NotEmpty(t, lines)
	assert.Equal(t, "Game exited with code 0", lines[len(lines)-1].Text)
	var texts []string
	for _, l := range lines {
		texts = append(texts, l.Text)
	}
	assert.Contains(t, texts, "Saving chunks")
}

func TestInvalidAutoConnectRejected(t *testing.T) {
	f := newFixture(t)
	lt := NewLaunchTask(f.deps, f.profile, "Notch", "")
	lt.Options.AllowOffline = true
	lt.AutoConnect = "bad host:99999"
	err := lt.Run(context.Background(), func(task.Event) {})
	assert.ErrorIs(t, err, profile.ErrInvalidAddress)
}

func TestCancelWhileWaitingLeavesGameRunning(t *testing.T) {
	f := newFixture(t)
	f.installJar(t, "old jar")
	lt := NewLaunchTask(f.deps, f.profile, "Notch", "")
	lt.Options.AllowOffline = true

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lt.Run(ctx, func(task.Event) {}) }()
	p := <-f.starter.started
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return")
	}
	assert.False(t, p.killed.Load())
	p.Exit(nil)
}
