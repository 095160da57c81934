package launcher

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
)

type fakeProcess struct {
	pid    int
	stdout io.Reader
	exit   chan error
	killed atomic.Bool
	once   sync.Once
}

func newFakeProcess(pid int) *fakeProcess {
	return &fakeProcess{pid: pid, exit: make(chan error, 1)}
}

func (p *fakeProcess) PID() int          { return p.pid }
func (p *fakeProcess) Stdout() io.Reader {
	if p.stdout != nil {
		return p.stdout
	}
	return strings.NewReader("Loading game\n")
}
func (p *fakeProcess) Stderr() io.Reader { return strings.NewReader("") }
func (p *fakeProcess) Wait() error       { return <-p.exit }

func (p *fakeProcess) Kill() error {
	p.killed.Store(true)
	p.Exit(nil)
	return nil
}

func (p *fakeProcess) Exit(err error) {
	p.once.Do(func() { p.exit <- err })
}

type fakeStarter struct {
	mu      sync.Mutex
	cmds    []Command
	procs   []*fakeProcess
	err     error
	started chan *fakeProcess
	// stdout, when set, is the output of the next process
	stdout io.Reader
}

func newFakeStarter() *fakeStarter {
	return &fakeStarter{started: make(chan *fakeProcess, 8)}
}

func (s *fakeStarter) Start(_ context.Context, c Command) (Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	s.cmds = append(s.cmds, c)
	p := newFakeProcess(4000 + len(s.cmds))
	p.stdout, s.stdout = s.stdout, nil
	s.procs = append(s.procs, p)
	s.started <- p
	return p, nil
}

func (s *fakeStarter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cmds)
}

func (s *fakeStarter) lastCommand() Command {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmds[len(s.cmds)-1]
}

var errSpawn = errors.New("exec: java not found")
