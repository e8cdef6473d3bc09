package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// CredentialChain resolves a credential from an ordered list of providers.
// The first provider holding a non-empty value wins.
type CredentialChain struct {
	providers []driven.CredentialProvider
}

// NewCredentialChain creates a chain consulting providers in order.
// Nil providers are skipped.
func NewCredentialChain(providers ...driven.CredentialProvider) *CredentialChain {
	c := &CredentialChain{}
	for _, p := range providers {
		if p != nil {
			c.providers = append(c.providers, p)
		}
	}
	return c
}

// Resolve returns the first non-empty value for key.
// A provider failure stops the chain. Absence from every provider returns
// domain.ErrMissingCredential.
func (c *CredentialChain) Resolve(key string) (string, error) {
	for _, p := range c.providers {
		value, ok, err := p.Lookup(key)
		if err != nil {
			return "", fmt.Errorf("credential %s from %s: %w", key, p.Name(), err)
		}
		if ok && value != "" {
			logger.Debug("Credential %s resolved from %s", key, p.Name())
			return value, nil
		}
	}
	return "", fmt.Errorf("%w: %s not found in %s", domain.ErrMissingCredential, key, c.describe())
}

// Providers returns the provider names in lookup order.
func (c *CredentialChain) Providers() []string {
	names := make([]string, len(c.providers))
	for i, p := range c.providers {
		names[i] = p.Name()
	}
	return names
}

func (c *CredentialChain) describe() string {
	if len(c.providers) == 0 {
		return "no providers"
	}
	return strings.Join(c.Providers(), ", ")
}
