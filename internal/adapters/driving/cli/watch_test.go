package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCmd_RunsWatcher(t *testing.T) {
	cleanup := setupTestServices(&mockQAService{}, newMockSettingsService())
	defer cleanup()

	runner := &mockRunner{}
	services.Watcher = func(context.Context) (Runner, error) { return runner, nil }

	out, err := executeCommand(t, "", "watch")

	require.NoError(t, err)
	assert.True(t, runner.ran)
	assert.Contains(t, out, "Watching for document changes")
}

func TestWatchCmd_RunError(t *testing.T) {
	cleanup := setupTestServices(&mockQAService{}, newMockSettingsService())
	defer cleanup()

	runner := &mockRunner{err: errors.New("directory removed")}
	services.Watcher = func(context.Context) (Runner, error) { return runner, nil }

	_, err := executeCommand(t, "", "watch")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "watch failed")
}

func TestWatchCmd_BuildError(t *testing.T) {
	cleanup := setupTestServices(&mockQAService{}, newMockSettingsService())
	defer cleanup()

	services.Watcher = func(context.Context) (Runner, error) { return nil, errors.New("bad schedule") }

	_, err := executeCommand(t, "", "watch")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting watcher")
}

func TestWatchCmd_NotConfigured(t *testing.T) {
	cleanup := setupTestServices(&mockQAService{}, newMockSettingsService())
	defer cleanup()

	_, err := executeCommand(t, "", "watch")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "watcher not configured")
}
