package console

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/gookit/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(ch <-chan Line) []string {
	var out []string
	for {
		select {
		case l, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, l.Text)
		default:
			return out
		}
	}
}

func TestAttachAndSubscribe(t *testing.T) {
	h := NewHub(nil)
	h.Append(Launcher, "starting")

	ch, unsubscribe := h.Subscribe()
	h.Attach(strings.NewReader("line one\r\nline two  \n"), Stdout)
	assert.Equal(t, []string{"starting", "line one", "line two"}, drain(ch))

	unsubscribe()
	h.Append(Stdout, "after")
	_, ok := <-ch
	assert.False(t, ok, "unsubscribed channel is closed")
	assert.Len(t, h.Lines(), 4)
}

func TestBufferTrimmed(t *testing.T) {
	h := NewHub(nil)
	for i := 0; i <= maxLineBuffer; i++ {
		h.Append(Stdout, fmt.Sprint(i))
	}
	lines := h.Lines()
	assert.Len(t, lines, maxLineBuffer+1-lineTrimSize)
	assert.Equal(t, fmt.Sprint(lineTrimSize), lines[0].Text)
}

func TestCloseKillsWhenConfigured(t *testing.T) {
	killed := 0
	kill := func() error { killed++; return nil }

	h := NewHub(nil)
	h.SetKiller(kill, false)
	require.NoError(t, h.Close())
	assert.Equal(t, 0, killed)

	h = NewHub(nil)
	h.SetKiller(kill, true)
	ch, _ := h.Subscribe()
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())
	assert.Equal(t, 1, killed)
	assert.True(t, h.Closed())
	_, ok := <-ch
	assert.False(t, ok)

	h.Append(Stdout, "dropped")
	assert.Empty(t, h.Lines())

	boom := errors.New("no such process")
	h = NewHub(nil)
	h.SetKiller(func() error { return boom }, true)
	assert.ErrorIs(t, h.Close(), boom)
}

func TestSubscribeAfterCloseReplays(t *testing.T) {
	h := NewHub(nil)
	h.Append(Stdout, "a")
	require.NoError(t, h.Close())
	ch, unsubscribe := h.Subscribe()
	defer unsubscribe()
	assert.Equal(t, []string{"a"}, drain(ch))
}

func TestRender(t *testing.T) {
	l := Line{Stream: Stdout, Text: "\x1b[31m§cSEVERE: broken"}
	assert.Equal(t, "SEVERE: broken", Render(l, false))

	assert.Contains(t, Render(l, true), "SEVERE: broken")
	assert.Equal(t, color.Cyan.Sprint("ready"), Render(Line{Stream: Launcher, Text: "ready"}, true))
}

func TestSampleSelf(t *testing.T) {
	s, err := Sample(os.Getpid())
	require.NoError(t, err)
	assert.Equal(t, os.Getpid(), s.PID)
	assert.Greater(t, s.RAM, 0.0)
}
