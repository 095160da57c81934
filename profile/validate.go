package profile

import (
	"path/filepath"
	"regexp"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var (
	idPattern     = regexp.MustCompile(`^[A-Za-z0-9-]{1,64}$`)
	appDirPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,32}$`)

	v = validator.New()
)

const maxNameLen = 32

func validateID(id string) error {
	if !idPattern.MatchString(id) {
		return &ValidationError{Field: "id", Value: id, Err: ErrInvalidIdentifier}
	}
	return nil
}

// Names are counted in characters, not bytes.  Line breaks are rejected.
func validateName(name string) error {
	n := utf8.RuneCountInString(name)
	if n < 1 || n > maxNameLen || !utf8.ValidString(name) || containsNewline(name) {
		return &ValidationError{Field: "name", Value: name, Err: ErrInvalidName}
	}
	return nil
}

func validateAppDir(dir string) error {
	if dir != "" && !appDirPattern.MatchString(dir) {
		return &ValidationError{Field: "appDir", Value: dir, Err: ErrInvalidAppDir}
	}
	return nil
}

func validatePath(p string) error {
	if p != "" && !filepath.IsAbs(p) {
		return &ValidationError{Field: "customBasePath", Value: p, Err: ErrInvalidPath}
	}
	return nil
}

func validateUpdateURL(u string) error {
	if u == "" {
		return nil
	}
	if err := v.Var(u, "url,startswith=http"); err != nil {
		return &ValidationError{Field: "updateUrl", Value: u, Err: ErrInvalidUpdateURL}
	}
	return nil
}

func containsNewline(s string) bool {
	for _, r := range s {
		if r == '\n' || r == '\r' {
			return true
		}
	}
	return false
}
