// Package file provides file-based configuration storage.
// Settings live in a TOML file under the notelink config directory and are
// exposed through dot-notation keys (e.g. "engine.similarity_threshold").
package file
