package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bastiangx/addrserve/pkg/index"
)

// Columns is the header of the columnar layout shared by the file stores.
var Columns = []string{"id", "node_id", "locality", "street", "house", "building", "structure", "lon", "lat"}

var requiredColumns = []string{"street", "house", "lon", "lat"}

// Header maps lower-cased column names to their position in a row.
type Header map[string]int

// ParseHeader reads a header row. It fails unless every required column is present.
func ParseHeader(row []string) (Header, error) {
	h := make(Header, len(row))
	for i, name := range row {
		name = ColumnName(name)
		if _, dup := h[name]; !dup {
			h[name] = i
		}
	}
	for _, name := range requiredColumns {
		if _, ok := h[name]; !ok {
			return nil, fmt.Errorf("%w: header has no %q column", ErrInvalidRecord, name)
		}
	}
	return h, nil
}

// ColumnName lower-cases a header cell and drops a leading byte order mark.
func ColumnName(cell string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(cell, "\ufeff")))
}

// Has reports whether the header contains every given column.
func (h Header) Has(names ...string) bool {
	for _, n := range names {
		if _, ok := h[n]; !ok {
			return false
		}
	}
	return true
}

func (h Header) get(row []string, name string) string {
	i, ok := h[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Record decodes one columnar row. fallbackID is used when the row has no id.
func (h Header) Record(row []string, fallbackID int64) (index.Record, error) {
	rec := index.Record{
		ID:        fallbackID,
		Locality:  h.get(row, "locality"),
		Street:    h.get(row, "street"),
		House:     h.get(row, "house"),
		Building:  h.get(row, "building"),
		Structure: h.get(row, "structure"),
	}

	var err error
	if v := h.get(row, "id"); v != "" {
		if rec.ID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return rec, fmt.Errorf("%w: id %q", ErrInvalidRecord, v)
		}
	}
	if v := h.get(row, "node_id"); v != "" {
		if rec.NodeID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return rec, fmt.Errorf("%w: node_id %q", ErrInvalidRecord, v)
		}
	}
	if rec.Lon, err = ParseCoord(h.get(row, "lon")); err != nil {
		return rec, err
	}
	if rec.Lat, err = ParseCoord(h.get(row, "lat")); err != nil {
		return rec, err
	}
	if rec.Street == "" {
		return rec, fmt.Errorf("%w: empty street", ErrInvalidRecord)
	}
	return rec, nil
}

// Row encodes rec in Columns order.
func Row(rec index.Record) []string {
	return []string{
		strconv.FormatInt(rec.ID, 10),
		strconv.FormatInt(rec.NodeID, 10),
		rec.Locality,
		rec.Street,
		rec.House,
		rec.Building,
		rec.Structure,
		strconv.FormatFloat(rec.Lon, 'f', -1, 64),
		strconv.FormatFloat(rec.Lat, 'f', -1, 64),
	}
}

// ParseCoord parses a coordinate, accepting a decimal comma. Empty means zero.
func ParseCoord(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.Replace(s, ",", ".", 1), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: coordinate %q", ErrInvalidRecord, s)
	}
	return v, nil
}
