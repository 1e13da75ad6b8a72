// Package xlsx is a read-only record store over the first sheet of an Excel workbook
// laid out with the columnar header (store.Columns).
package xlsx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/bastiangx/addrserve/pkg/index"
	"github.com/bastiangx/addrserve/pkg/store"
	"github.com/charmbracelet/log"
	"github.com/xuri/excelize/v2"
)

// Store reads address rows from a workbook.
type Store struct {
	path     string
	locality string
}

var _ store.Store = (*Store)(nil)

// Open checks that path exists. The workbook itself is read on every Records call.
func Open(path, locality string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, path)
		}
		return nil, fmt.Errorf("xlsx: stat %s: %w", path, err)
	}
	return &Store{path: path, locality: locality}, nil
}

// Records implements store.Reader.
func (s *Store) Records(ctx context.Context) ([]index.Record, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("xlsx: open %s: %w", s.path, err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("%w: %s has no sheets", store.ErrInvalidRecord, s.path)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("xlsx: read %s: %w", sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	header, err := store.ParseHeader(rows[0])
	if err != nil {
		return nil, fmt.Errorf("xlsx: %s: %w", s.path, err)
	}

	records := make([]index.Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if isEmptyRow(row) {
			continue
		}
		rec, err := header.Record(row, int64(len(records)+1))
		if err != nil {
			return nil, fmt.Errorf("xlsx: %s row %d: %w", sheet, i+2, err)
		}
		if rec.Locality == "" {
			rec.Locality = s.locality
		}
		records = append(records, rec)
	}
	log.Debugf("Read %d records from %s", len(records), s.path)
	return records, nil
}

// Create implements store.Writer; workbooks are never written.
func (s *Store) Create(context.Context, store.NewAddress) (index.Record, error) {
	return index.Record{}, fmt.Errorf("%w: %s", store.ErrReadOnly, s.path)
}

// Close implements store.Store.
func (s *Store) Close() error {
	return nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
