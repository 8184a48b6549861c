package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesBothSinks(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	dir := filepath.Join(t.TempDir(), "nested", "logs")
	var console bytes.Buffer

	logger, err := New(Options{Verbose: true, Dir: dir, Console: &console})
	require.NoError(t, err)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	logger.Debug().Str("analysis_id", "a1").Msg("Loaded analysis")

	assert.Contains(t, console.String(), "Loaded analysis")
	assert.Contains(t, console.String(), "analysis_id=a1")

	data, err := os.ReadFile(filepath.Join(dir, logFileName))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"analysis_id":"a1"`)
	assert.NoFileExists(t, filepath.Join(dir, ".write-test"))
}

func TestNew_InfoLevelByDefault(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var console bytes.Buffer
	logger, err := New(Options{Dir: t.TempDir(), Console: &console})
	require.NoError(t, err)

	logger.Debug().Msg("hidden")
	logger.Info().Msg("shown")
	assert.NotContains(t, console.String(), "hidden")
	assert.Contains(t, console.String(), "shown")
}

func TestNew_UnwritableDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	_, err := New(Options{Dir: filepath.Join(file, "logs")})
	assert.Error(t, err)
}
