// Package memory provides in-memory implementations of the driven storage
// and vault ports. They back unit tests and make the engine runnable
// without touching the filesystem.
package memory
