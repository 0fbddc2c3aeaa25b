// Package sqlite provides the durable failure log backed by SQLite.
// The schema is managed through embedded migrations applied on open.
package sqlite
