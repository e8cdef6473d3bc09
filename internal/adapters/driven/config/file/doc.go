// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the docqa config directory (~/.docqa).
//
// Adapters:
//   - ConfigStore: TOML configuration at config.toml with dotted keys
//   - PromptStore: user-editable prompt templates under prompts/
package file
