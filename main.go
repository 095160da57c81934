package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/table"
	"github.com/jedib0t/go-pretty/text"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"mclauncher/console"
	"mclauncher/env"
	"mclauncher/handlers"
	"mclauncher/launcher"
	"mclauncher/logger"
	"mclauncher/options"
	"mclauncher/settings"
	"mclauncher/task"
	"mclauncher/update"
	"mclauncher/watch"
)

// app bundles what every command needs.
type app struct {
	env  *env.Environment
	log  *zap.SugaredLogger
	opts *options.Options
}

func setup(c *cli.Context) (*app, error) {
	cfg, err := env.Load(c.String("root"))
	if err != nil {
		return nil, err
	}
	if u := c.String("update-url"); u != "" {
		cfg.Update.DefaultURL = u
	}
	e, err := env.New(*cfg)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(e.LauncherDir(), cfg.Log.Tee && logger.RunningInTTY())
	if err != nil {
		return nil, fmt.Errorf("failed to set up logging: %w", err)
	}
	o, err := options.Load(e, log)
	if err != nil {
		return nil, err
	}
	return &app{env: e, log: log, opts: o}, nil
}

func (a *app) launcher() *launcher.Launcher {
	cfg := a.env.Config()
	return launcher.New(a.opts, launcher.Deps{
		Env:     a.env,
		Updater: update.NewClient(cfg.Update.Timeout, a.log),
		Auth:    launcher.NewHTTPAuthenticator(cfg.Auth.URL, 30*time.Second),
		Starter: launcher.ExecStarter{},
		Log:     a.log,
	})
}

func main() {
	app := &cli.App{
		Name:  "mclauncher",
		Usage: "Launch and update Minecraft installations, one profile at a time",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "root", Value: ".", Usage: "directory holding launcher.yaml and .env"},
			&cli.StringFlag{Name: "update-url", Usage: "override the default update source"},
		},
		Commands: []*cli.Command{
			serveCommand(),
			profilesCommand(),
			serversCommand(),
			settingsCommand(),
			launchCommand(),
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the local HTTP API",
		Action: func(c *cli.Context) error {
			a, err := setup(c)
			if err != nil {
				return err
			}
			defer a.log.Sync()
			l := a.launcher()

			w, err := watch.New(a.log, watch.DefaultDelay)
			if err != nil {
				return err
			}
			defer w.Close()
			if err := l.Follow(w); err != nil {
				a.log.Warnw("server list will not be followed", "err", err)
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go logEvents(ctx, a.log, l)

			srv := &http.Server{
				Addr:              a.env.Config().HTTP.ListenAddr,
				Handler:           handlers.NewRouter(l, a.log),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() { errCh <- srv.ListenAndServe() }()
			a.log.Infow("api listening", "addr", srv.Addr, "data", a.env.LauncherDir())

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				a.log.Warnw("api shutdown", "err", err)
			}
			if err := a.opts.Save(); err != nil {
				a.log.Errorw("failed to save options", "err", err)
			}
			return nil
		},
	}
}

func logEvents(ctx context.Context, log *zap.SugaredLogger, l *launcher.Launcher) {
	for {
		select {
		case ev := <-l.Events():
			switch ev.Kind {
			case task.EventFinished:
				log.Infow("task finished", "task", ev.TaskID, "state", ev.State, "err", ev.Error)
			case task.EventLaunched:
				log.Infow("game running", "task", ev.TaskID, "pid", ev.PID)
			case task.EventLog:
				log.Infow(ev.Message, "task", ev.TaskID)
			}
		case <-ctx.Done():
			return
		}
	}
}

func profilesCommand() *cli.Command {
	return &cli.Command{
		Name:  "profiles",
		Usage: "List and manage profiles",
		Action: func(c *cli.Context) error {
			a, err := setup(c)
			if err != nil {
				return err
			}
			reg := a.opts.Registry()
			startup := a.opts.StartupConfiguration()

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"", "ID", "NAME", "LOCATION", "UPDATE SOURCE"})
			for _, p := range reg.List() {
				mark := ""
				if p == startup {
					mark = "*"
				}
				loc := p.CustomBasePath()
				if loc == "" && p.AppDir() != "" {
					loc = "app:" + p.AppDir()
				}
				if loc == "" {
					loc = "(default)"
				}
				src := p.UpdateURL()
				if src == "" {
					src = "(default)"
				}
				t.AppendRow(table.Row{mark, p.ID(), p.Name(), loc, src})
			}
			t.Render()
			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Create a profile",
				ArgsUsage: "NAME",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "app-dir", Usage: "data directory name under the platform app data dir"},
					&cli.StringFlag{Name: "path", Usage: "absolute base directory"},
					&cli.StringFlag{Name: "update-source", Usage: "update manifest URL"},
				},
				Action: func(c *cli.Context) error {
					a, err := setup(c)
					if err != nil {
						return err
					}
					p, err := a.opts.NewProfile(c.Args().First(), c.String("app-dir"), c.String("path"), c.String("update-source"))
					if err != nil {
						return err
					}
					if err := a.opts.Save(); err != nil {
						return err
					}
					fmt.Println("Created " + text.Bold.Sprint(p.Name()) + " (" + p.ID() + ")")
					return nil
				},
			},
			{
				Name:      "rm",
				Aliases:   []string{"remove"},
				Usage:     "Remove a profile, leaving its game files on disk",
				ArgsUsage: "ID",
				Action: func(c *cli.Context) error {
					a, err := setup(c)
					if err != nil {
						return err
					}
					if err := a.opts.RemoveProfile(c.Args().First()); err != nil {
						return err
					}
					fmt.Println("Removed " + c.Args().First())
					return a.opts.Save()
				},
			},
			{
				Name:      "rename",
				Usage:     "Rename a profile",
				ArgsUsage: "ID NAME",
				Action: func(c *cli.Context) error {
					a, err := setup(c)
					if err != nil {
						return err
					}
					p, err := a.opts.Registry().Get(c.Args().Get(0))
					if err != nil {
						return err
					}
					if err := p.SetName(c.Args().Get(1)); err != nil {
						return err
					}
					return a.opts.Save()
				},
			},
		},
	}
}

func serversCommand() *cli.Command {
	return &cli.Command{
		Name:  "servers",
		Usage: "List remembered multiplayer servers",
		Action: func(c *cli.Context) error {
			a, err := setup(c)
			if err != nil {
				return err
			}
			// selecting imports the startup profile's servers.dat
			a.launcher()
			entries := a.opts.HotList().Entries()
			names := make([]string, 0, len(entries))
			width := len("NAME:")
			for name := range entries {
				names = append(names, name)
				if len(name) > width {
					width = len(name)
				}
			}
			sort.Strings(names)

			fmt.Println(text.AlignDefault.Apply("NAME:", width+2) + "ADDRESS:")
			for _, name := range names {
				fmt.Println(text.AlignDefault.Apply(name, width+2) + entries[name])
			}
			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:      "add",
				Usage:     "Remember a server",
				ArgsUsage: "NAME ADDRESS",
				Flags:     []cli.Flag{&cli.BoolFlag{Name: "overwrite"}},
				Action: func(c *cli.Context) error {
					a, err := setup(c)
					if err != nil {
						return err
					}
					if !a.opts.HotList().Register(c.Args().Get(0), c.Args().Get(1), c.Bool("overwrite")) {
						fmt.Println(c.Args().Get(0) + " is already known")
						return nil
					}
					return a.opts.Save()
				},
			},
		},
	}
}

func settingsCommand() *cli.Command {
	profileFlag := &cli.StringFlag{Name: "profile", Usage: "profile id; global settings when empty"}
	list := func(a *app, id string) (*settings.List, func() error, error) {
		if id == "" {
			return a.opts.Settings(), a.opts.Save, nil
		}
		p, err := a.opts.Registry().Get(id)
		if err != nil {
			return nil, nil, err
		}
		return p.Settings(), func() error { return a.opts.SaveProfileSettings(p) }, nil
	}
	return &cli.Command{
		Name:  "settings",
		Usage: "Show effective settings",
		Flags: []cli.Flag{profileFlag},
		Action: func(c *cli.Context) error {
			a, err := setup(c)
			if err != nil {
				return err
			}
			l, _, err := list(a, c.String("profile"))
			if err != nil {
				return err
			}
			eff := l.Effective()
			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.AppendHeader(table.Row{"KEY", "VALUE", "SET HERE"})
			for _, d := range settings.Defs() {
				here := ""
				if l.IsSet(d.Name) {
					here = "yes"
				}
				t.AppendRow(table.Row{d.Name, eff[d.Name], here})
			}
			t.Render()
			return nil
		},
		Subcommands: []*cli.Command{
			{
				Name:      "set",
				ArgsUsage: "KEY VALUE",
				Flags:     []cli.Flag{profileFlag},
				Action: func(c *cli.Context) error {
					a, err := setup(c)
					if err != nil {
						return err
					}
					l, save, err := list(a, c.String("profile"))
					if err != nil {
						return err
					}
					if err := l.Parse(c.Args().Get(0), c.Args().Get(1)); err != nil {
						return err
					}
					return save()
				},
			},
			{
				Name:      "unset",
				ArgsUsage: "KEY",
				Flags:     []cli.Flag{profileFlag},
				Action: func(c *cli.Context) error {
					a, err := setup(c)
					if err != nil {
						return err
					}
					l, save, err := list(a, c.String("profile"))
					if err != nil {
						return err
					}
					l.Unset(c.Args().First())
					return save()
				},
			},
		},
	}
}

func launchCommand() *cli.Command {
	return &cli.Command{
		Name:  "launch",
		Usage: "Update and start the game",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "profile", Usage: "profile id; the last used profile when empty"},
			&cli.StringFlag{Name: "user", Usage: "username; the last used one when empty"},
			&cli.StringFlag{Name: "password", Usage: "password; empty plays offline unless one is saved", EnvVars: []string{"MCLAUNCHER_PASSWORD"}},
			&cli.BoolFlag{Name: "remember", Usage: "save the password"},
			&cli.StringFlag{Name: "server", Usage: "address or hot list name to connect to"},
			&cli.StringFlag{Name: "jar", Usage: "jar in the profile's bin directory"},
			&cli.BoolFlag{Name: "skip-update", Usage: "launch the installed game without checking for updates"},
		},
		Action: func(c *cli.Context) error {
			a, err := setup(c)
			if err != nil {
				return err
			}
			defer a.log.Sync()
			l := a.launcher()

			if id := c.String("profile"); id != "" {
				p, err := l.Select(id)
				if errors.Is(err, launcher.ErrConfigurationBroken) {
					fmt.Fprintf(os.Stderr, "profile %s is unusable, using %s\n", id, p.Name())
				} else if err != nil {
					return err
				}
			}
			user := c.String("user")
			if user == "" {
				user = a.opts.LastUsername()
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if _, ok := l.Launch(ctx, launcher.Request{
				Username:    user,
				Password:    c.String("password"),
				Remember:    c.Bool("remember"),
				AutoConnect: c.String("server"),
				Jar:         c.String("jar"),
				SkipUpdate:  c.Bool("skip-update"),
			}); !ok {
				return errors.New("a launch is already running")
			}

			if l.LaunchOptions().ShowConsole {
				colored := l.Workspace().Settings().Bool(settings.ColoredConsole)
				lines, unsubscribe := l.Console().Subscribe()
				defer unsubscribe()
				go func() {
					for line := range lines {
						fmt.Println(console.Render(line, colored))
					}
				}()
			}

			for ev := range l.Events() {
				switch ev.Kind {
				case task.EventProgress, task.EventLaunched:
					fmt.Println(progressLine(ev))
				case task.EventLog:
					fmt.Println(ev.Message)
				case task.EventReopen:
					fmt.Println("Game closed.")
				case task.EventFinished:
					if ev.State == task.Failed {
						return ev.Err
					}
					return nil
				}
			}
			return nil
		},
	}
}

// progressLine renders a progress event for the terminal.  Unknown progress
// has no percentage.
func progressLine(ev task.Event) string {
	if ev.Progress < 0 {
		return ev.Message
	}
	return fmt.Sprintf("[%3.0f%%] %s", ev.Progress*100, ev.Message)
}
