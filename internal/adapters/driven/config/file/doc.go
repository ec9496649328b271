// Package file keeps lexgraph's user-editable state under ~/.lexgraph:
// config.toml, read through ConfigStore with LEXGRAPH_* environment
// overrides, and the prompts/ directory served by PromptStore.
package file
