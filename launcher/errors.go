package launcher

import (
	"errors"
	"fmt"
)

var (
	// ErrConfigurationBroken is a notice: the requested profile cannot be
	// used and the default was selected instead.
	ErrConfigurationBroken = errors.New("selected configuration is broken")

	ErrMissingUsername = errors.New("a username must be entered")
	ErrMissingPassword = errors.New("a password must be entered")
	ErrLoginFailed     = errors.New("login failed")
	ErrNoJar           = errors.New("game jar not found")
)

// Stage names a step of the launch pipeline.
type Stage string

const (
	StageValidate Stage = "validate"
	StageResolve  Stage = "resolve"
	StageLogin    Stage = "login"
	StageUpdate   Stage = "update"
	StageLaunch   Stage = "launch"
)

// StageError reports the pipeline step that failed.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

func stageErr(s Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: s, Err: err}
}
