package settings

// Kind is the value type a key holds.
type Kind string

const (
	KindBool   Kind = "bool"
	KindInt    Kind = "int"
	KindString Kind = "string"
)

// BoolKey names a boolean setting and its default.
type BoolKey struct {
	Name    string
	Default bool
}

// IntKey names an integer setting and its default.
type IntKey struct {
	Name    string
	Default int
}

// StringKey names a string setting and its default.
type StringKey struct {
	Name    string
	Default string
}

// Recognized keys.
var (
	Reopen           = BoolKey{"launcher.reopen", false}
	GameUpdate       = BoolKey{"launcher.gameupdate", false}
	AllowOfflineName = BoolKey{"launcher.allow-offline-name", false}
	LaunchConsole    = BoolKey{"launcher.launch-console", false}
	ColoredConsole   = BoolKey{"console.colored", false}
	ConsoleKills     = BoolKey{"console.kills-process", false}

	MaxMemory = IntKey{"minecraft.max-memory", 1024}
	MinMemory = IntKey{"minecraft.min-memory", 512}

	JVMArgs     = StringKey{"minecraft.jvm-args", ""}
	AutoConnect = StringKey{"minecraft.auto-connect", ""}
)

// Def describes one recognized key.
type Def struct {
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	Default any    `json:"default"`
}

var defs = []Def{
	{Reopen.Name, KindBool, Reopen.Default},
	{GameUpdate.Name, KindBool, GameUpdate.Default},
	{AllowOfflineName.Name, KindBool, AllowOfflineName.Default},
	{LaunchConsole.Name, KindBool, LaunchConsole.Default},
	{ColoredConsole.Name, KindBool, ColoredConsole.Default},
	{ConsoleKills.Name, KindBool, ConsoleKills.Default},
	{MaxMemory.Name, KindInt, MaxMemory.Default},
	{MinMemory.Name, KindInt, MinMemory.Default},
	{JVMArgs.Name, KindString, JVMArgs.Default},
	{AutoConnect.Name, KindString, AutoConnect.Default},
}

// Defs lists every recognized key in display order.
func Defs() []Def {
	out := make([]Def, len(defs))
	copy(out, defs)
	return out
}

// Lookup returns the definition for name.
func Lookup(name string) (Def, bool) {
	for _, d := range defs {
		if d.Name == name {
			return d, true
		}
	}
	return Def{}, false
}
