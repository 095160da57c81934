// Package env builds the launcher environment: the typed configuration tree
// read from launcher.yaml and MCLAUNCHER_ variables, plus the platform
// directory rules every profile resolves its paths against.
//
// Layers, lowest precedence first:
//
//  1. Defaults()                      – compiled-in values,
//  2. optional `<root>/.env`          – dotenv values exported to the process,
//  3. optional `<root>/launcher.yaml` – primary static file,
//  4. `MCLAUNCHER_` variables         – `__` maps to “.”.
//
// Struct tags use `koanf:"…"`; validation runs right after unmarshal.
package env

import "time"

// Paths holds directory overrides.  Empty values mean "use the platform
// default".
type Paths struct {
	DataDir string `koanf:"data_dir"`
	Home    string `koanf:"home"`
}

// Update tunes the update stage of a launch.
type Update struct {
	DefaultURL    string        `koanf:"default_url"    validate:"required,url"`
	CheckInterval time.Duration `koanf:"check_interval" validate:"gte=0"`
	Workers       int           `koanf:"workers"        validate:"min=1,max=16"`
	Timeout       time.Duration `koanf:"timeout"        validate:"gt=0"`
}

// Auth points at the login service used for online play.
type Auth struct {
	URL string `koanf:"url" validate:"required,url"`
}

// Launch describes how the game process is spawned.
type Launch struct {
	Java      string   `koanf:"java"       validate:"required"`
	MainClass string   `koanf:"main_class" validate:"required"`
	JVMArgs   []string `koanf:"jvm_args"`
}

// HTTP holds the local API listener settings.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
}

// Log controls the logger sinks.
type Log struct {
	Tee bool `koanf:"tee"`
}

// Config is the aggregate returned by Load.
type Config struct {
	AppName string `koanf:"app_name" validate:"required,alphanum"`
	Paths   Paths  `koanf:"paths"`
	Update  Update `koanf:"update"`
	Auth    Auth   `koanf:"auth"`
	Launch  Launch `koanf:"launch"`
	HTTP    HTTP   `koanf:"http"`
	Log     Log    `koanf:"log"`
}

// Defaults returns the compiled-in configuration.
func Defaults() Config {
	return Config{
		AppName: "mclauncher",
		Update: Update{
			DefaultURL:    "https://update.mclauncher.net/minecraft/manifest.yml",
			CheckInterval: time.Hour,
			Workers:       4,
			Timeout:       10 * time.Minute,
		},
		Auth: Auth{
			URL: "https://login.mclauncher.net/session",
		},
		Launch: Launch{
			Java:      "java",
			MainClass: "net.minecraft.client.Minecraft",
			JVMArgs:   []string{"-Dsun.java2d.noddraw=true"},
		},
		HTTP: HTTP{
			ListenAddr: "127.0.0.1:4020",
		},
	}
}
