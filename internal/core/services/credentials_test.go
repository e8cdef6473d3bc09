package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

func TestCredentialChain_Order(t *testing.T) {
	config := &mockCredentialProvider{name: "config", values: map[string]string{}}
	secrets := &mockCredentialProvider{name: "secrets", values: map[string]string{"OPENAI_API_KEY": "from-secrets"}}
	env := &mockCredentialProvider{name: "env", values: map[string]string{"OPENAI_API_KEY": "from-env"}}

	chain := NewCredentialChain(config, secrets, env)

	got, err := chain.Resolve("OPENAI_API_KEY")
	require.NoError(t, err)
	assert.Equal(t, "from-secrets", got)
	assert.Equal(t, 0, env.calls)
	assert.Equal(t, []string{"config", "secrets", "env"}, chain.Providers())
}

func TestCredentialChain_SkipsEmptyValues(t *testing.T) {
	first := &mockCredentialProvider{name: "config", values: map[string]string{"KEY": ""}}
	second := &mockCredentialProvider{name: "env", values: map[string]string{"KEY": "value"}}

	got, err := NewCredentialChain(first, nil, second).Resolve("KEY")
	require.NoError(t, err)
	assert.Equal(t, "value", got)
}

func TestCredentialChain_Missing(t *testing.T) {
	chain := NewCredentialChain(
		&mockCredentialProvider{name: "config"},
		&mockCredentialProvider{name: "env"},
	)

	_, err := chain.Resolve("OPENAI_API_KEY")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMissingCredential)
	assert.Contains(t, err.Error(), "config, env")

	_, err = NewCredentialChain().Resolve("OPENAI_API_KEY")
	assert.ErrorIs(t, err, domain.ErrMissingCredential)
	assert.Contains(t, err.Error(), "no providers")
}

func TestCredentialChain_ProviderError(t *testing.T) {
	broken := &mockCredentialProvider{name: "secrets", err: errors.New("bad toml")}
	env := &mockCredentialProvider{name: "env", values: map[string]string{"KEY": "value"}}

	_, err := NewCredentialChain(broken, env).Resolve("KEY")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "secrets")
	assert.Equal(t, 0, env.calls)
}
