package launcher

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"

	"github.com/shirou/gopsutil/v4/process"
)

// Command describes the game process to start.
type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// Process is a started game.
type Process interface {
	PID() int
	Stdout() io.Reader
	Stderr() io.Reader
	Wait() error
	Kill() error
}

// Starter spawns processes.
type Starter interface {
	Start(ctx context.Context, cmd Command) (Process, error)
}

// ExecStarter starts real processes.
type ExecStarter struct{}

func (ExecStarter) Start(_ context.Context, c Command) (Process, error) {
	// The game outlives the launch context; cancelling a launch does not
	// kill a running game.
	cmd := exec.Command(c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.Env = append(os.Environ(), c.Env...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return &execProcess{cmd: cmd, stdout: stdout, stderr: stderr}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	stdout io.Reader
	stderr io.Reader
}

func (p *execProcess) PID() int          { return p.cmd.Process.Pid }
func (p *execProcess) Stdout() io.Reader { return p.stdout }
func (p *execProcess) Stderr() io.Reader { return p.stderr }
func (p *execProcess) Wait() error       { return p.cmd.Wait() }

func (p *execProcess) Kill() error {
	return killTree(p.cmd.Process.Pid)
}

// killTree kills pid and every descendant, children first.
func killTree(pid int) error {
	proc, err := process.NewProcess(int32(pid))
	if err != nil {
		if errors.Is(err, process.ErrorProcessNotRunning) {
			return nil
		}
		return err
	}
	var errs []error
	if children, err := proc.Children(); err == nil {
		for _, c := range children {
			if err := killTree(int(c.Pid)); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := proc.Kill(); err != nil {
		if running, rerr := proc.IsRunning(); rerr != nil || running {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
