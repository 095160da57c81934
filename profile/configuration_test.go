package profile

import (
	"archive/zip"
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"mclauncher/env"
)

func testEnv(t *testing.T) *env.Environment {
	t.Helper()
	return env.NewForTest(t.TempDir())
}

func TestIDValidation(t *testing.T) {
	e := testEnv(t)
	valid := []string{"a", "abc-123", "A-Z", strings.Repeat("x", 64), "0"}
	invalid := []string{"", strings.Repeat("x", 65), "has space", "under_score", "dot.ted", "ümlaut", "slash/"}

	for _, id := range valid {
		t.Run("valid "+id, func(t *testing.T) {
			_, err := NewWithAppDir(e, id, "Name", "", "")
			assert.NoError(t, err)
		})
	}
	for _, id := range invalid {
		t.Run("invalid "+id, func(t *testing.T) {
			_, err := NewWithAppDir(e, id, "Name", "", "")
			require.ErrorIs(t, err, ErrInvalidIdentifier)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "id", ve.Field)

			_, err = NewWithCustomPath(e, id, "Name", t.TempDir(), "")
			assert.ErrorIs(t, err, ErrInvalidIdentifier)
		})
	}
}

func TestNameValidation(t *testing.T) {
	e := testEnv(t)
	c, err := NewWithAppDir(e, "p1", "Start", "", "")
	require.NoError(t, err)

	for _, n := range []string{"a", strings.Repeat("n", 32), "Alice's pack", strings.Repeat("é", 32)} {
		assert.NoError(t, c.SetName(n), n)
		assert.Equal(t, n, c.Name())
	}

	require.NoError(t, c.SetName("Keep"))
	for _, n := range []string{"", strings.Repeat("n", 33), "two\nlines"} {
		err := c.SetName(n)
		assert.ErrorIs(t, err, ErrInvalidName, n)
		assert.Equal(t, "Keep", c.Name(), "rejected name must not be applied")
	}

	_, err = NewWithAppDir(e, "p2", "", "", "")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestAppDirAndURLValidation(t *testing.T) {
	e := testEnv(t)
	_, err := NewWithAppDir(e, "p", "P", "bad dir", "")
	assert.ErrorIs(t, err, ErrInvalidAppDir)

	_, err = NewWithAppDir(e, "p", "P", "good_dir-1", "")
	assert.NoError(t, err)

	_, err = NewWithAppDir(e, "p", "P", "", "not a url")
	assert.ErrorIs(t, err, ErrInvalidUpdateURL)

	_, err = NewWithCustomPath(e, "p", "P", "relative/path", "")
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestBaseDirIdempotent(t *testing.T) {
	e := testEnv(t)
	cases := map[string]*Configuration{}

	var err error
	cases["default"] = NewDefault(e)
	cases["appdir"], err = NewWithAppDir(e, "p", "P", "mypack", "")
	require.NoError(t, err)
	cases["custom"], err = NewWithCustomPath(e, "q", "Q", filepath.Join(t.TempDir(), "not", "yet"), "")
	require.NoError(t, err)

	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			first, err := c.BaseDir()
			require.NoError(t, err)
			second, err := c.BaseDir()
			require.NoError(t, err)
			assert.Equal(t, first, second)
			assert.DirExists(t, first)
		})
	}
}

func TestDirectoryResolution(t *testing.T) {
	e := testEnv(t)

	def := NewDefault(e)
	assert.True(t, def.IsUsingDefaultPath())
	base, err := def.BaseDir()
	require.NoError(t, err)
	assert.Equal(t, e.LauncherDir(), base)
	mc, err := def.MinecraftDir()
	require.NoError(t, err)
	assert.Equal(t, e.OfficialDataDir(), mc)

	named, err := NewWithAppDir(e, "p", "P", "mypack", "")
	require.NoError(t, err)
	mc, err = named.MinecraftDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(e.AppDataDir("mypack"), "minecraft"), mc)
}

func TestCustomPathWinsOverAppDir(t *testing.T) {
	e := testEnv(t)
	custom := t.TempDir()

	c, err := NewWithCustomPath(e, "p", "P", custom, "")
	require.NoError(t, err)
	require.NoError(t, c.SetAppDir("ignored"))
	assert.False(t, c.IsUsingDefaultPath())

	base, err := c.BaseDir()
	require.NoError(t, err)
	assert.Equal(t, custom, base)

	mc, err := c.MinecraftDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(custom, "minecraft"), mc)
	assert.NoDirExists(t, e.AppDataDir("ignored"))
}

func TestMPServersRoundTrip(t *testing.T) {
	c, err := NewWithCustomPath(testEnv(t), "p", "P", t.TempDir(), "")
	require.NoError(t, err)

	want := map[string]string{
		"Alice's server": "1.2.3.4:25565",
		"Bob":            "mc.example.com",
	}
	require.NoError(t, c.WriteServers(want))

	got, err := c.MPServers()
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("servers mismatch (-want +got):\n%s", diff)
	}
}

func TestMPServersMissingFile(t *testing.T) {
	c, err := NewWithCustomPath(testEnv(t), "p", "P", t.TempDir(), "")
	require.NoError(t, err)

	got, err := c.MPServers()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMPServersBadShape(t *testing.T) {
	c, err := NewWithCustomPath(testEnv(t), "p", "P", t.TempDir(), "")
	require.NoError(t, err)
	path, err := c.ServersPath()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte{10, 0, 0, 8, 0, 7, 's', 'e', 'r', 'v', 'e', 'r', 's', 0, 1, 'x', 0}, 0o644))

	got, err := c.MPServers()
	assert.Error(t, err)
	assert.Empty(t, got)
}

func writePNG(t *testing.T, path string, size int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestIconPolicy(t *testing.T) {
	e := testEnv(t)
	newProfile := func(t *testing.T) (*Configuration, string) {
		c, err := NewWithCustomPath(e, "p", "P", t.TempDir(), "")
		require.NoError(t, err)
		mc, err := c.MinecraftDir()
		require.NoError(t, err)
		return c, filepath.Join(mc, iconFile)
	}

	t.Run("16x16 rejected", func(t *testing.T) {
		c, path := newProfile(t)
		writePNG(t, path, 16)
		assert.Nil(t, c.Icon())
	})
	t.Run("32x32 accepted", func(t *testing.T) {
		c, path := newProfile(t)
		writePNG(t, path, 32)
		icon := c.Icon()
		require.NotNil(t, icon)
		assert.Equal(t, 32, icon.Bounds().Dx())
	})
	t.Run("missing", func(t *testing.T) {
		c, _ := newProfile(t)
		assert.Nil(t, c.Icon())
	})
	t.Run("garbage", func(t *testing.T) {
		c, path := newProfile(t)
		require.NoError(t, os.WriteFile(path, []byte("not a png"), 0o644))
		assert.Nil(t, c.Icon())
	})
	t.Run("read once", func(t *testing.T) {
		c, path := newProfile(t)
		assert.Nil(t, c.Icon())
		writePNG(t, path, 32)
		assert.Nil(t, c.Icon(), "a miss is cached for the lifetime of the profile")
	})
}

func TestCorruptIconLoggedToProfileLogger(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	c, err := NewWithCustomPath(testEnv(t), "p", "P", t.TempDir(), "")
	require.NoError(t, err)
	c.SetLogger(zap.New(core).Sugar())
	mc, err := c.MinecraftDir()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(mc, iconFile), []byte("not a png"), 0o644))

	assert.Nil(t, c.Icon())
	entries := logs.FilterMessage("failed to load icon").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "p", entries[0].ContextMap()["profile"])
}

func TestAvailableDoesNotRecreateCustomPath(t *testing.T) {
	e := testEnv(t)
	dir := filepath.Join(t.TempDir(), "pack")
	c, err := NewWithCustomPath(e, "p", "P", dir, "")
	require.NoError(t, err)

	require.Error(t, c.Available())
	assert.NoDirExists(t, dir)

	require.NoError(t, os.MkdirAll(dir, 0o755))
	assert.NoError(t, c.Available())

	named, err := NewWithAppDir(e, "q", "Q", "mypack", "")
	require.NoError(t, err)
	require.NoError(t, named.Available())
	assert.DirExists(t, e.AppDataDir("mypack"))
}

func TestLoadIconFrom(t *testing.T) {
	e := testEnv(t)
	var bundled bytes.Buffer
	require.NoError(t, png.Encode(&bundled, image.NewRGBA(image.Rect(0, 0, 64, 64))))

	c, err := NewWithCustomPath(e, "p", "P", t.TempDir(), "")
	require.NoError(t, err)
	c.LoadIconFrom(bytes.NewReader(bundled.Bytes()))
	require.NotNil(t, c.Icon())
	assert.Equal(t, 64, c.Icon().Bounds().Dx())

	own, err := NewWithCustomPath(e, "q", "Q", t.TempDir(), "")
	require.NoError(t, err)
	mc, err := own.MinecraftDir()
	require.NoError(t, err)
	writePNG(t, filepath.Join(mc, iconFile), 32)
	own.LoadIconFrom(bytes.NewReader(bundled.Bytes()))
	require.NotNil(t, own.Icon())
	assert.Equal(t, 32, own.Icon().Bounds().Dx())
}

func TestJars(t *testing.T) {
	c, err := NewWithCustomPath(testEnv(t), "p", "P", t.TempDir(), "")
	require.NoError(t, err)

	jars, err := c.Jars()
	require.NoError(t, err)
	assert.Empty(t, jars)
	assert.Equal(t, DefaultJar, c.SelectedJar())

	bin, err := c.BinDir()
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(bin, 0o755))

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("version.json")
	require.NoError(t, err)
	_, err = w.Write([]byte(`{"id":"1.2.5"}`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(filepath.Join(bin, "minecraft.jar"), buf.Bytes(), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(bin, "beta.jar"), []byte("junk"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(bin, "lwjgl.dll"), nil, 0o644))

	jars, err = c.Jars()
	require.NoError(t, err)
	require.Len(t, jars, 2)
	assert.Equal(t, "beta.jar", jars[0].Name)
	assert.Equal(t, "", jars[0].Version)
	assert.Equal(t, "minecraft.jar", jars[1].Name)
	assert.Equal(t, "1.2.5", jars[1].Version)

	c.SetLastActiveJar("beta.jar")
	assert.Equal(t, "beta.jar", c.SelectedJar())
}

func TestRecordRoundTrip(t *testing.T) {
	e := testEnv(t)
	c, err := NewWithAppDir(e, "p", "Pack", "pack", "https://example.com/update.yml")
	require.NoError(t, err)
	c.SetLastActiveJar("beta.jar")

	back, err := FromRecord(e, c.Record())
	require.NoError(t, err)
	assert.Equal(t, c.Record(), back.Record())

	_, err = FromRecord(e, Record{ID: "bad id", Name: "x"})
	assert.ErrorIs(t, err, ErrInvalidIdentifier)
}
