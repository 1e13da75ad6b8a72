/*
Package dataset opens the record store described by the [store] config section.

The postgres driver connects to a database; the file driver detects the format of the
configured path (.csv, .xlsx or a leveldb directory) and opens the matching store.
*/
package dataset

import (
	"context"
	"fmt"

	"github.com/bastiangx/addrserve/pkg/config"
	"github.com/bastiangx/addrserve/pkg/store"
	"github.com/bastiangx/addrserve/pkg/store/csvfile"
	"github.com/bastiangx/addrserve/pkg/store/leveldb"
	"github.com/bastiangx/addrserve/pkg/store/postgres"
	"github.com/bastiangx/addrserve/pkg/store/xlsx"
	"github.com/charmbracelet/log"
)

// Open returns the store for cfg. Records without a locality get locality.
func Open(ctx context.Context, cfg config.StoreConfig, locality string) (store.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, postgres.Options{
			DSN:      cfg.DSN,
			MaxConns: cfg.MaxConns,
			Migrate:  cfg.Migrate,
		}, locality)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.DriverFile, "":
		return OpenFile(cfg.Path, locality)
	default:
		return nil, fmt.Errorf("dataset: unknown store driver %q", cfg.Driver)
	}
}

// OpenFile opens the file store at path. A path with a leveldb extension is
// created when missing; every other format must already exist.
func OpenFile(path, locality string) (store.Store, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, err
	}
	log.Debugf("Opening %s at %s", format, path)

	var s store.Store
	switch format {
	case FormatCSV:
		s, err = csvfile.Open(path, locality)
	case FormatXLSX:
		s, err = xlsx.Open(path, locality)
	case FormatLevelDB:
		s, err = leveldb.Open(path, locality, true)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}
