// Package backend selects and opens a storage backend from Config.
package backend

import (
	"github.com/yinkun-ui/yinkun/internal/sqlite"
	"github.com/yinkun-ui/yinkun/internal/storage"
	"github.com/yinkun-ui/yinkun/internal/storage/file"
	"github.com/yinkun-ui/yinkun/pkg/types"
)

// Open returns a types.Storage for key using the backend named in cfg.
func Open(cfg types.Config, key string, version int, opts ...storage.Option) (types.Storage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		st  types.Storage
		err error
	)
	switch cfg.Backend {
	case types.BackendSQLite:
		st, err = openSQLite(cfg.DataDir, key, version, opts...)
	default:
		st, err = openFile(cfg.DataDir, key, version, opts...)
	}
	if err != nil {
		return nil, err
	}
	return st, nil
}

// The helpers keep a failed open from returning a typed nil pointer inside
// a non-nil interface.

func openSQLite(dataDir, key string, version int, opts ...storage.Option) (types.Storage, error) {
	b, err := sqlite.Open(dataDir, key, version, opts...)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func openFile(dataDir, key string, version int, opts ...storage.Option) (types.Storage, error) {
	s, err := file.New(dataDir, key, version, opts...)
	if err != nil {
		return nil, err
	}
	return s, nil
}
