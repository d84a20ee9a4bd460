// Package file provides file-based implementations of driven port interfaces.
// These adapters persist data to the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML-based configuration storage
//   - PromptStore: editable deck generation prompt templates
//   - LoadDotEnv: .env files feeding provider API keys into the environment
package file
