// Package storage selects a block storage implementation by name.
package storage

import (
	"fmt"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/bolt"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/disk"
	"github.com/ardanlabs/ledger/foundation/blockchain/storage/memory"
)

// Set of supported storage kinds.
const (
	KindMemory = "memory"
	KindBolt   = "bolt"
	KindDisk   = "disk"
)

// Open constructs the storage of the specified kind. The path is a file for
// bolt and a directory for disk. It is ignored for memory.
func Open(kind string, path string) (database.Storage, error) {
	switch kind {
	case KindMemory:
		return memory.New(), nil

	case KindBolt:
		b, err := bolt.New(path)
		if err != nil {
			return nil, err
		}
		return b, nil

	case KindDisk:
		d, err := disk.New(path)
		if err != nil {
			return nil, err
		}
		return d, nil
	}

	return nil, fmt.Errorf("unknown storage kind %q", kind)
}
