package settings

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsWhenUnset(t *testing.T) {
	l := New(nil)
	assert.False(t, l.Bool(AllowOfflineName))
	assert.Equal(t, 1024, l.Int(MaxMemory))
	assert.Equal(t, "", l.String(JVMArgs))
}

func TestParentFallback(t *testing.T) {
	global := New(nil)
	profile := New(global)

	global.SetBool(LaunchConsole, true)
	assert.True(t, profile.Bool(LaunchConsole))

	profile.SetBool(LaunchConsole, false)
	assert.False(t, profile.Bool(LaunchConsole))
	assert.True(t, global.Bool(LaunchConsole))

	profile.Unset(LaunchConsole.Name)
	assert.True(t, profile.Bool(LaunchConsole))
}

func TestParse(t *testing.T) {
	l := New(nil)
	require.NoError(t, l.Parse("launcher.reopen", "true"))
	require.NoError(t, l.Parse("minecraft.max-memory", "2048"))
	assert.True(t, l.Bool(Reopen))
	assert.Equal(t, 2048, l.Int(MaxMemory))

	assert.ErrorIs(t, l.Parse("nope", "1"), ErrUnknownKey)
	assert.ErrorIs(t, l.Parse("minecraft.max-memory", "lots"), ErrBadValue)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles", "abc.yml")

	l := New(nil)
	l.SetBool(GameUpdate, true)
	l.SetInt(MaxMemory, 3072)
	l.SetString(AutoConnect, "mc.example.com")
	require.NoError(t, l.Save(path))

	loaded, err := Load(path, nil)
	require.NoError(t, err)
	assert.True(t, loaded.Bool(GameUpdate))
	assert.Equal(t, 3072, loaded.Int(MaxMemory))
	assert.Equal(t, "mc.example.com", loaded.String(AutoConnect))
	assert.Equal(t, l.Overrides(), loaded.Overrides())
}

func TestLoadDegradesToDefaults(t *testing.T) {
	dir := t.TempDir()

	l, err := Load(filepath.Join(dir, "missing.yml"), nil)
	require.NoError(t, err)
	assert.Empty(t, l.Overrides())

	bad := filepath.Join(dir, "bad.yml")
	require.NoError(t, os.WriteFile(bad, []byte("{{{"), 0o644))
	l, err = Load(bad, nil)
	assert.Error(t, err)
	require.NotNil(t, l)
	assert.Equal(t, 512, l.Int(MinMemory))
}

func TestLoadSkipsMistypedKnownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yml")
	require.NoError(t, os.WriteFile(path, []byte("launcher.reopen: maybe\nminecraft.max-memory: 4096\n"), 0o644))

	l, err := Load(path, nil)
	require.NoError(t, err)
	assert.False(t, l.Bool(Reopen))
	assert.Equal(t, 4096, l.Int(MaxMemory))
}

func TestSaveSurfacesErrors(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	l := New(nil)
	l.SetBool(Reopen, true)
	assert.Error(t, l.Save(filepath.Join(blocker, "settings.yml")))
}

func TestReparentWhileReading(t *testing.T) {
	a, b := New(nil), New(nil)
	a.SetInt(MaxMemory, 2048)
	b.SetInt(MaxMemory, 4096)
	l := New(a)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			if i%2 == 0 {
				l.SetParent(b)
			} else {
				l.SetParent(a)
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			assert.Contains(t, []int{2048, 4096}, l.Int(MaxMemory))
			assert.NotNil(t, l.Parent())
		}
	}()
	wg.Wait()
	assert.Same(t, a, l.Parent())
}
