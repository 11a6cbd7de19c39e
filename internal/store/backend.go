// Package store persists each collection as one JSON array and serializes
// read-modify-write cycles over collections with per-collection locks.
package store

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
)

// ErrMissing is returned by a Backend when a collection has never been written
var ErrMissing = errors.New("store: collection does not exist")

// Backend is durable storage for whole collection bodies. Commit must make
// every body in writes visible together or not at all.
type Backend interface {
	Read(ctx context.Context, name string) ([]byte, error)
	Commit(ctx context.Context, writes map[string][]byte) error
	Close() error
}

func validName(name string) bool {
	return name != "" && name != "." && name != ".." && filepath.Base(name) == name
}

func sortedNames(writes map[string][]byte) []string {
	names := make([]string, 0, len(writes))
	for name := range writes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
