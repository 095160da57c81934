// Package launcher starts the game for a profile.
//
// A LaunchTask is the pipeline: validate the credentials, resolve the
// installation, log in, update, start the game and wait for it.  A Launcher
// is the owner presentation layers talk to: it tracks the selected profile,
// holds the single worker that runs launches, and records what was used
// once a launch gets the game running.
package launcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"mclauncher/console"
	"mclauncher/options"
	"mclauncher/profile"
	"mclauncher/settings"
	"mclauncher/task"
	"mclauncher/watch"
)

const eventQueueSize = 256

// Request is one launch request from a presentation layer.
type Request struct {
	Username string
	// Password may be empty to use the one saved for Username, if any.
	Password string
	// Remember saves the password for Username; otherwise it is forgotten.
	Remember bool
	// AutoConnect is an address, or a hot list server name.  Empty falls back
	// to the profile's remembered auto-connect address.
	AutoConnect string
	Jar         string
	// SkipUpdate launches the installed game without checking for updates.
	SkipUpdate bool
}

// Launcher owns the selected profile and the launch worker.
type Launcher struct {
	opts *options.Options
	deps Deps
	log  *zap.SugaredLogger

	worker *task.Worker
	events chan task.Event

	mu       sync.RWMutex
	selected *profile.Configuration
	current  *LaunchTask
	taskID   string
	request  Request
	hub      *console.Hub
	subs     []chan task.Event
	watcher  *watch.ServerListWatcher
}

// New returns a Launcher with the startup profile selected.  Events are
// delivered on Events() in order.  When the queue is full, progress and log
// events are dropped and the others displace the oldest queued event.
func New(o *options.Options, deps Deps) *Launcher {
	if deps.Log == nil {
		deps.Log = zap.NewNop().Sugar()
	}
	if deps.Env == nil {
		deps.Env = o.Environment()
	}
	l := &Launcher{
		opts:   o,
		deps:   deps,
		log:    deps.Log,
		events: make(chan task.Event, eventQueueSize),
		hub:    console.NewHub(deps.Log),
	}
	l.worker = task.NewWorker(l.deliver, deps.Log)
	if _, err := l.Select(o.StartupConfiguration().ID()); err != nil && !errors.Is(err, ErrConfigurationBroken) {
		l.log.Warnw("startup profile unavailable", "err", err)
	}
	return l
}

func (l *Launcher) deliver(ev task.Event) {
	if ev.Kind == task.EventLaunched {
		l.applyLaunched(ev)
	}
	important := ev.Kind != task.EventProgress && ev.Kind != task.EventLog
	for sent := false; !sent; {
		select {
		case l.events <- ev:
			sent = true
		default:
			if !important {
				sent = true
				continue
			}
			// make room by dropping the oldest queued event
			select {
			case <-l.events:
			default:
			}
		}
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, ch := range l.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Events is the owner's queue of task events.
func (l *Launcher) Events() <-chan task.Event { return l.events }

// Subscribe returns an extra best-effort event feed, for socket clients.
func (l *Launcher) Subscribe() (<-chan task.Event, func()) {
	ch := make(chan task.Event, 64)
	l.mu.Lock()
	l.subs = append(l.subs, ch)
	l.mu.Unlock()
	return ch, func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, s := range l.subs {
			if s == ch {
				l.subs = append(l.subs[:i], l.subs[i+1:]...)
				close(ch)
				break
			}
		}
	}
}

// Options returns the persisted launcher state.
func (l *Launcher) Options() *options.Options { return l.opts }

// Select makes profile id current and imports its servers.dat into the hot
// list.  When the profile's base directory cannot be used the default is
// selected and the returned error wraps ErrConfigurationBroken; the
// selection has still succeeded.
func (l *Launcher) Select(id string) (*profile.Configuration, error) {
	c, err := l.opts.Registry().Get(id)
	if err != nil {
		return nil, err
	}
	var notice error
	if !usable(c) {
		l.log.Warnw("selected profile is broken, switching to default", "profile", id)
		notice = fmt.Errorf("%w: %s", ErrConfigurationBroken, id)
		c = l.opts.Registry().Default()
	}

	l.mu.Lock()
	l.selected = c
	w := l.watcher
	l.mu.Unlock()

	l.importServers(c)
	if w != nil {
		l.watchServers(w, c)
	}
	return c, notice
}

// importServers registers the profile's saved servers in the hot list
// without overwriting existing names.
func (l *Launcher) importServers(c *profile.Configuration) int {
	servers, err := c.MPServers()
	if err != nil {
		l.log.Warnw("failed to read server list", "profile", c.ID(), "err", err)
	}
	n := l.opts.HotList().Import(servers, false)
	if n > 0 {
		l.log.Infow("servers imported into hot list", "profile", c.ID(), "count", n)
	}
	return n
}

// Follow re-imports the selected profile's servers.dat whenever the game
// saves it.  The watcher is retargeted on every Select.
func (l *Launcher) Follow(w *watch.ServerListWatcher) error {
	l.mu.Lock()
	l.watcher = w
	c := l.selected
	l.mu.Unlock()
	if c == nil {
		return nil
	}
	return l.watchServers(w, c)
}

func (l *Launcher) watchServers(w *watch.ServerListWatcher, c *profile.Configuration) error {
	path, err := c.ServersPath()
	if err != nil {
		l.log.Warnw("cannot watch server list", "profile", c.ID(), "err", err)
		return err
	}
	if err := w.Watch(path, func() { l.importServers(c) }); err != nil {
		l.log.Warnw("cannot watch server list", "profile", c.ID(), "err", err)
		return err
	}
	return nil
}

func usable(c *profile.Configuration) bool {
	return c.Available() == nil
}

// Workspace returns the selected profile, falling back to the default when
// it has become unusable.
func (l *Launcher) Workspace() *profile.Configuration {
	l.mu.RLock()
	c := l.selected
	l.mu.RUnlock()
	if c != nil && usable(c) {
		return c
	}
	def := l.opts.Registry().Default()
	if _, err := l.Select(def.ID()); err != nil {
		l.log.Warnw("default profile unusable", "err", err)
	}
	return def
}

// Console is the hub receiving the output of the current game.
func (l *Launcher) Console() *console.Hub {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.hub
}

// IsAlive reports whether a launch is in progress or the game is running.
func (l *Launcher) IsAlive() bool { return l.worker.IsAlive() }

// State of the launch worker.
func (l *Launcher) State() task.State { return l.worker.State() }

// Worker exposes the launch worker for waiting on completion.
func (l *Launcher) Worker() *task.Worker { return l.worker }

// PID of the running game, or 0.
func (l *Launcher) PID() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.current == nil || !l.worker.IsAlive() {
		return 0
	}
	return l.current.PID()
}

// Cancel asks the running launch to stop.
func (l *Launcher) Cancel() { l.worker.Cancel() }

// Launch starts the selected profile.  It returns false when a launch is
// already running; the request is dropped.  ctx bounds the whole launch,
// including the wait for the game, so it should not be a request context.
func (l *Launcher) Launch(ctx context.Context, req Request) (string, bool) {
	if l.worker.IsAlive() {
		return "", false
	}
	c := l.Workspace()
	st := c.Settings()

	if req.Password == "" && req.Username != "" {
		if pw, err := l.opts.Identities().Password(req.Username); err == nil {
			req.Password, req.Remember = pw, true
		}
	}

	t := NewLaunchTask(l.deps, c, req.Username, req.Password)
	t.Jar = req.Jar
	t.Options = OptionsFrom(st)
	t.Options.SkipUpdate = req.SkipUpdate
	t.AutoConnect = l.resolveAutoConnect(req.AutoConnect, st)

	hub := console.NewHub(l.log)
	t.Console = hub

	// Held across Start so the launched event sees this task as current.
	l.mu.Lock()
	id, ok := l.worker.Start(ctx, t)
	if !ok {
		l.mu.Unlock()
		return "", false
	}
	old := l.hub
	l.hub = hub
	l.current = t
	l.taskID = id
	l.request = req
	l.mu.Unlock()

	if old != nil {
		// A game left running by a cancelled launch keeps running.
		old.SetKiller(nil, false)
		old.Close()
	}
	return id, true
}

// LaunchOptions are the switches of the current or last launch.
func (l *Launcher) LaunchOptions() Options {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.current == nil {
		return Options{}
	}
	return l.current.Options
}

// applyLaunched records what the current launch used once its game has
// started.
func (l *Launcher) applyLaunched(ev task.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.current == nil || l.taskID != ev.TaskID {
		return
	}
	t := l.current
	if t.Jar != "" {
		t.Profile.SetLastActiveJar(t.Jar)
	}
	l.recordLaunch(t.Profile, l.request)
}

func (l *Launcher) resolveAutoConnect(requested string, st *settings.List) string {
	if requested == "" {
		return st.String(settings.AutoConnect)
	}
	if addr, ok := l.opts.HotList().Get(requested); ok {
		return addr
	}
	return requested
}

// recordLaunch persists the last used profile, username and identity.  It
// runs only once the game process has started.
func (l *Launcher) recordLaunch(c *profile.Configuration, req Request) {
	o := l.opts
	o.SetLastConfigName(c.ID())
	o.SetLastUsername(req.Username)
	if req.Remember && req.Password != "" {
		if err := o.Identities().Remember(req.Username, req.Password); err != nil {
			l.log.Warnw("failed to remember identity", "err", err)
		}
	} else if err := o.Identities().Remember(req.Username, ""); err != nil {
		l.log.Warnw("failed to save username", "err", err)
	}
	if err := o.Save(); err != nil {
		l.log.Errorw("failed to save options", "err", err)
	}
}
