// Package sqlite exposes the SQLite storage backend to programs outside this
// module, such as migration or export tools that read the same data
// directory as the yinkun service.
package sqlite

import (
	"github.com/yinkun-ui/yinkun/internal/sqlite"
	"github.com/yinkun-ui/yinkun/internal/storage"
	"github.com/yinkun-ui/yinkun/pkg/types"
)

// DBFileName is the database file created inside the data directory.
const DBFileName = sqlite.DBFileName

// Open opens the record stored under key in <dataDir>/yinkun.db. The
// returned storage also implements types.Historian.
//
// Example:
//
//	st, err := sqlite.Open(".yinkun-data", types.CardConfigStoreKey, types.CardConfigStoreVersion, nil)
//	if err != nil {
//	    return err
//	}
//	defer st.Close()
func Open(dataDir, key string, version int, migrate types.MigrateFunc) (types.Storage, error) {
	var opts []storage.Option
	if migrate != nil {
		opts = append(opts, storage.WithMigrate(migrate))
	}
	b, err := sqlite.Open(dataDir, key, version, opts...)
	if err != nil {
		return nil, err
	}
	return b, nil
}
