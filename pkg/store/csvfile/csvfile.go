/*
Package csvfile is a record store over a semicolon-separated file.

Two layouts are understood. The gazetteer dump has a full_address column holding
"<locality>, <street>, <house>" plus OSM node id and coordinates:

	full_address;@id;@lat;@lon
	Москва, улица Дурова, 4;2417733412;55.7797;37.6216

The columnar layout spells every field out (see store.Columns) and is the only one Create
can append to. The file is re-read on every Records call so appended rows are picked up by
the next index build.
*/
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/bastiangx/addrserve/pkg/index"
	"github.com/bastiangx/addrserve/pkg/store"
	"github.com/charmbracelet/log"
)

// Separator is the field delimiter of both layouts.
const Separator = ';'

// Layout identifies the header format of a file.
type Layout int

const (
	LayoutUnknown Layout = iota
	LayoutGazetteer
	LayoutColumnar
)

func (l Layout) String() string {
	switch l {
	case LayoutGazetteer:
		return "gazetteer"
	case LayoutColumnar:
		return "columnar"
	}
	return "unknown"
}

// Store reads and appends records in a CSV file.
type Store struct {
	mu       sync.Mutex
	path     string
	locality string
	layout   Layout
	header   store.Header
}

var _ store.Store = (*Store)(nil)

// Open inspects the header of path. locality is stripped from gazetteer addresses
// and assigned to records that carry none.
func Open(path, locality string) (*Store, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", store.ErrNotFound, path)
		}
		return nil, fmt.Errorf("csvfile: open %s: %w", path, err)
	}
	defer f.Close()

	r := newReader(f)
	row, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("csvfile: read header of %s: %w", path, err)
	}

	s := &Store{path: path, locality: locality}
	switch {
	case isGazetteer(row):
		s.layout = LayoutGazetteer
		s.header = gazetteerHeader(row)
	default:
		h, err := store.ParseHeader(row)
		if err != nil {
			return nil, fmt.Errorf("csvfile: %s: %w", path, err)
		}
		s.layout = LayoutColumnar
		s.header = h
	}
	log.Debugf("Opened %s csv store at %s", s.layout, path)
	return s, nil
}

// Create writes a new blank columnar file at path. It fails if the file exists.
func Create(path, locality string) (*Store, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("csvfile: create %s: %w", path, err)
	}
	w := newWriter(f)
	if err := w.Write(store.Columns); err != nil {
		f.Close()
		return nil, fmt.Errorf("csvfile: write header: %w", err)
	}
	w.Flush()
	if err := errors.Join(w.Error(), f.Close()); err != nil {
		return nil, fmt.Errorf("csvfile: write header: %w", err)
	}
	return Open(path, locality)
}

// Layout returns the detected layout.
func (s *Store) Layout() Layout {
	return s.layout
}

// Records implements store.Reader.
func (s *Store) Records(ctx context.Context) ([]index.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(ctx)
}

func (s *Store) read(ctx context.Context) ([]index.Record, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("csvfile: open %s: %w", s.path, err)
	}
	defer f.Close()

	r := newReader(f)
	if _, err := r.Read(); err != nil {
		return nil, fmt.Errorf("csvfile: read header of %s: %w", s.path, err)
	}

	var records []index.Record
	for line := 2; ; line++ {
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csvfile: %s line %d: %w", s.path, line, err)
		}
		if blank(row) {
			continue
		}

		rec, err := s.decode(row, int64(len(records)+1))
		if err != nil {
			return nil, fmt.Errorf("csvfile: %s line %d: %w", s.path, line, err)
		}
		if rec.Locality == "" {
			rec.Locality = s.locality
		}
		records = append(records, rec)
	}
	return records, nil
}

func (s *Store) decode(row []string, seq int64) (index.Record, error) {
	if s.layout == LayoutColumnar {
		return s.header.Record(row, seq)
	}
	return s.decodeGazetteer(row, seq)
}

// Create implements store.Writer. Only columnar files accept new rows.
func (s *Store) Create(ctx context.Context, addr store.NewAddress) (index.Record, error) {
	if s.layout != LayoutColumnar {
		return index.Record{}, fmt.Errorf("%w: %s has the %s layout", store.ErrReadOnly, s.path, s.layout)
	}
	if err := addr.Validate(s.locality); err != nil {
		return index.Record{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.read(ctx)
	if err != nil {
		return index.Record{}, err
	}
	var next int64 = 1
	for _, r := range existing {
		if r.ID >= next {
			next = r.ID + 1
		}
	}
	rec := addr.Record(next)

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		return index.Record{}, fmt.Errorf("csvfile: open %s for append: %w", s.path, err)
	}
	w := newWriter(f)
	if err := w.Write(s.row(rec)); err != nil {
		f.Close()
		return index.Record{}, fmt.Errorf("csvfile: append: %w", err)
	}
	w.Flush()
	if err := errors.Join(w.Error(), f.Close()); err != nil {
		return index.Record{}, fmt.Errorf("csvfile: append: %w", err)
	}
	return rec, nil
}

// row lays rec out in the file's own column order.
func (s *Store) row(rec index.Record) []string {
	values := store.Row(rec)
	width := 0
	for _, pos := range s.header {
		width = max(width, pos+1)
	}
	out := make([]string, width)
	for i, name := range store.Columns {
		if pos, ok := s.header[name]; ok {
			out[pos] = values[i]
		}
	}
	return out
}

// Close implements store.Store.
func (s *Store) Close() error {
	return nil
}

func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = Separator
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

func newWriter(w io.Writer) *csv.Writer {
	cw := csv.NewWriter(w)
	cw.Comma = Separator
	return cw
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func isGazetteer(row []string) bool {
	for _, name := range row {
		if store.ColumnName(name) == "full_address" {
			return true
		}
	}
	return false
}

func gazetteerHeader(row []string) store.Header {
	h := make(store.Header, len(row))
	for i, name := range row {
		h[strings.TrimPrefix(store.ColumnName(name), "@")] = i
	}
	return h
}

// decodeGazetteer splits "<locality>, <street>, <house>" at the first comma after the locality.
func (s *Store) decodeGazetteer(row []string, seq int64) (index.Record, error) {
	get := func(name string) string {
		i, ok := s.header[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	rec := index.Record{ID: seq}
	full := get("full_address")
	if s.locality != "" && len(full) >= len(s.locality) && strings.EqualFold(full[:len(s.locality)], s.locality) {
		rec.Locality = full[:len(s.locality)]
		full = strings.TrimLeft(full[len(s.locality):], ", ")
	}
	street, house, _ := strings.Cut(full, ",")
	rec.Street = strings.TrimSpace(street)
	rec.House = strings.TrimSpace(house)
	if rec.Street == "" {
		return rec, fmt.Errorf("%w: empty street in %q", store.ErrInvalidRecord, get("full_address"))
	}

	var err error
	if v := get("id"); v != "" {
		if rec.NodeID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return rec, fmt.Errorf("%w: node id %q", store.ErrInvalidRecord, v)
		}
	}
	if rec.Lat, err = store.ParseCoord(get("lat")); err != nil {
		return rec, err
	}
	if rec.Lon, err = store.ParseCoord(get("lon")); err != nil {
		return rec, err
	}
	return rec, nil
}
