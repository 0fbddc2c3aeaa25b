// Package filesystem implements the vault store over a directory of
// markdown notes. It owns all note syntax: YAML front matter (where the
// stable note id lives), the managed-region boundary marker, and the
// exclusion rules for hidden directories. The engine above it only ever
// sees the already-split note regions.
package filesystem
