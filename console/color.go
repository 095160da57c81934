package console

import (
	"regexp"
	"strings"

	"github.com/gookit/color"
)

var (
	ansiPattern    = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)
	mcColorPattern = regexp.MustCompile(`§[0-9a-fk-or]`)
)

// Plain strips terminal escapes and in-game color codes.
func Plain(text string) string {
	text = ansiPattern.ReplaceAllString(text, "")
	return mcColorPattern.ReplaceAllString(text, "")
}

// Render formats a line for display.  With colored set, severity is shown
// through terminal colors.
func Render(l Line, colored bool) string {
	text := Plain(l.Text)
	if !colored {
		return text
	}
	switch {
	case l.Stream == Launcher:
		return color.Cyan.Sprint(text)
	case strings.Contains(text, "SEVERE") || strings.Contains(text, "ERROR") ||
		strings.Contains(text, "Exception"):
		return color.Red.Sprint(text)
	case strings.Contains(text, "WARNING") || strings.Contains(text, "WARN"):
		return color.Yellow.Sprint(text)
	case l.Stream == Stderr:
		return color.Magenta.Sprint(text)
	default:
		return text
	}
}
