package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesJSONLog(t *testing.T) {
	dir := t.TempDir()

	log, err := New(dir, false)
	require.NoError(t, err)
	log.Infow("profile selected", "profile", "vanilla")
	require.NoError(t, log.Sync())

	data, err := os.ReadFile(filepath.Join(dir, "logs", "launcher.log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"profile selected"`)
	assert.Contains(t, string(data), `"profile":"vanilla"`)
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
}
