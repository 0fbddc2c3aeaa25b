// Package file provides file-based persistence for the master index and
// per-document embedding vectors. Index saves are atomic (write a temp file
// in the same directory, then rename over the target) so a crash mid-save
// never leaves a corrupted index. Vectors are sharded one file per document
// so a single vector can be replaced without touching the rest.
package file
