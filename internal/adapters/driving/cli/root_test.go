package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "docqa", rootCmd.Use)
}

func TestRootCmd_RegistersCommands(t *testing.T) {
	want := []string{"ask", "chat", "documents", "index", "mcp", "settings", "version", "watch"}

	var got []string
	for _, cmd := range rootCmd.Commands() {
		got = append(got, cmd.Name())
	}

	for _, name := range want {
		assert.Contains(t, got, name)
	}
}

func TestRootCmd_GlobalFlags(t *testing.T) {
	for _, name := range []string{"verbose", "config-dir", "documents-dir"} {
		assert.NotNil(t, rootCmd.PersistentFlags().Lookup(name), name)
	}
}

func TestOpenServices_UsesFactoryWithFlags(t *testing.T) {
	previous := services
	services = nil
	defer func() {
		services = previous
		serviceFactory = nil
		logger.SetVerbose(false)
	}()

	qa := &mockQAService{}
	closed := false
	var got Options
	SetServiceFactory(func(opts Options) (*Services, error) {
		got = opts
		return &Services{
			QA: func(context.Context) (driving.QAService, error) { return qa, nil },
			Close: func() error {
				closed = true
				return nil
			},
		}, nil
	})

	_, err := executeCommand(t, "", "--config-dir", "/tmp/cfg", "--documents-dir", "/tmp/docs", "-v", "documents")

	require.NoError(t, err)
	assert.Equal(t, Options{ConfigDir: "/tmp/cfg", DocumentsDir: "/tmp/docs"}, got)
	assert.True(t, closed)
	assert.Nil(t, services)
}

func TestOpenServices_FactoryError(t *testing.T) {
	previous := services
	services = nil
	defer func() {
		services = previous
		serviceFactory = nil
	}()

	SetServiceFactory(func(Options) (*Services, error) {
		return nil, errors.New("bad config")
	})

	_, err := executeCommand(t, "", "documents")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialising")
	assert.Contains(t, err.Error(), "bad config")
}

func TestOpenServices_SkippedForVersion(t *testing.T) {
	previous := services
	services = nil
	defer func() {
		services = previous
		serviceFactory = nil
	}()

	called := false
	SetServiceFactory(func(Options) (*Services, error) {
		called = true
		return &Services{}, nil
	})

	_, err := executeCommand(t, "", "version")

	require.NoError(t, err)
	assert.False(t, called)
}

func TestQAService_NotConfigured(t *testing.T) {
	previous := services
	services = nil
	defer func() { services = previous }()

	_, err := qaService(context.Background())
	assert.Error(t, err)

	_, err = settingsService()
	assert.Error(t, err)
}
