package credentials

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/docqa/internal/core/ports/driven"
	"github.com/custodia-labs/docqa/internal/logger"
)

// Ensure providers implement the interface.
var (
	_ driven.CredentialProvider = (*ConfigProvider)(nil)
	_ driven.CredentialProvider = (*SecretsFile)(nil)
	_ driven.CredentialProvider = (*EnvProvider)(nil)
)

// SecretsFileName is the secrets file inside the config directory.
const SecretsFileName = "secrets.toml"

// configTable is the config.toml table holding credentials.
const configTable = "credentials"

// ConfigProvider reads credentials from the config store. OPENAI_API_KEY is
// looked up as credentials.openai_api_key.
type ConfigProvider struct {
	store driven.ConfigStore
}

// NewConfigProvider creates a provider backed by store.
func NewConfigProvider(store driven.ConfigStore) *ConfigProvider {
	return &ConfigProvider{store: store}
}

// Name identifies the provider in error messages.
func (p *ConfigProvider) Name() string {
	return "config"
}

// Lookup returns the configured value for key.
func (p *ConfigProvider) Lookup(key string) (string, bool, error) {
	if p.store == nil {
		return "", false, nil
	}
	value := p.store.GetString(configTable + "." + strings.ToLower(key))
	return value, value != "", nil
}

// SecretsFile reads credentials from a flat TOML file of KEY = "value"
// pairs. The file is parsed once, on first lookup.
type SecretsFile struct {
	path string

	once    sync.Once
	secrets map[string]string
	err     error
}

// NewSecretsFile creates a provider for the file at path.
// A missing file yields no credentials.
func NewSecretsFile(path string) *SecretsFile {
	return &SecretsFile{path: path}
}

// Name identifies the provider in error messages.
func (f *SecretsFile) Name() string {
	return f.path
}

// Lookup returns the value for key. Keys match case-insensitively.
func (f *SecretsFile) Lookup(key string) (string, bool, error) {
	f.once.Do(f.load)
	if f.err != nil {
		return "", false, f.err
	}
	value, ok := f.secrets[strings.ToUpper(key)]
	return value, ok && value != "", nil
}

func (f *SecretsFile) load() {
	f.secrets = make(map[string]string)

	data, err := os.ReadFile(f.path)
	if err != nil {
		if !os.IsNotExist(err) {
			f.err = fmt.Errorf("read secrets: %w", err)
		}
		return
	}

	if info, statErr := os.Stat(f.path); statErr == nil && info.Mode().Perm()&0o077 != 0 {
		logger.Warn("%s is readable by other users (mode %o); chmod 600 it", f.path, info.Mode().Perm())
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		f.err = fmt.Errorf("parse secrets %s: %w", f.path, err)
		return
	}

	for k, v := range raw {
		s, ok := v.(string)
		if !ok {
			logger.Warn("Ignoring non-string secret %s in %s", k, f.path)
			continue
		}
		f.secrets[strings.ToUpper(k)] = s
	}
}

// EnvProvider reads credentials from the process environment.
type EnvProvider struct {
	lookup func(string) (string, bool)
}

// NewEnvProvider creates a provider over os.LookupEnv.
func NewEnvProvider() *EnvProvider {
	return &EnvProvider{lookup: os.LookupEnv}
}

// Name identifies the provider in error messages.
func (p *EnvProvider) Name() string {
	return "environment"
}

// Lookup returns the environment variable named key.
func (p *EnvProvider) Lookup(key string) (string, bool, error) {
	value, ok := p.lookup(key)
	return value, ok && value != "", nil
}
