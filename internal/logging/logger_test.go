package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Initialize is a once-per-process setup, so every assertion about it
// lives in one test.
func TestInitialize_CreatesLogsDirAndWritesCategoryFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, Initialize(dir, true))
	defer CloseAll()

	Engine("engine started")
	EngineDebug("debug detail %d", 1)
	Controller("worker ready")

	logsDir := filepath.Join(dir, ".handsfree", "logs")
	_, err := os.Stat(logsDir)
	assert.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(logsDir, string(CategoryEngine)+".log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "engine started")
	assert.Contains(t, string(data), "debug detail 1")
}

func TestGet_ReturnsSameLoggerForSameCategory(t *testing.T) {
	a := Get(CategoryCache)
	b := Get(CategoryCache)
	assert.Same(t, a, b)
}
