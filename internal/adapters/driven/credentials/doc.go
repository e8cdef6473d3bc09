// Package credentials provides the credential providers consulted, in order,
// by services.CredentialChain:
//
//   - ConfigProvider: the [credentials] table of config.toml
//   - SecretsFile: a secrets.toml file in the config directory
//   - EnvProvider: process environment, after .env loading
//
// Keys are environment variable style names such as OPENAI_API_KEY.
package credentials
