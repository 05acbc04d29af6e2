//go:build !cgo

package main

import "errors"

type SQLiteStore struct{}

func (s *SQLiteStore) Initialize(path string) error {
	return errors.New("SQLite backend is not available in non-CGO builds. Please use -backend json or rebuild with CGO_ENABLED=1")
}

func (s *SQLiteStore) Close() error { return nil }

func (s *SQLiteStore) Load() ([]Song, error) { return nil, ErrNoDocument }

func (s *SQLiteStore) Save(songs []Song) error { return nil }
