// Package store defines the record stores that feed the address index and persist
// newly saved addresses. Implementations live in the subpackages.
package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bastiangx/addrserve/pkg/index"
)

var (
	// ErrReadOnly is returned by Create on stores that cannot be written.
	ErrReadOnly = errors.New("store is read-only")
	// ErrNotFound is returned when a store location does not exist.
	ErrNotFound = errors.New("store not found")
	// ErrInvalidRecord is returned for rows or new addresses that cannot be used.
	ErrInvalidRecord = errors.New("invalid record")
)

// NewAddress is an address submitted for persistence.
type NewAddress struct {
	NodeID    int64   `json:"node_id,omitempty" msgpack:"node_id,omitempty"`
	Locality  string  `json:"locality,omitempty" msgpack:"locality,omitempty"`
	Street    string  `json:"street" msgpack:"street"`
	House     string  `json:"number" msgpack:"number"`
	Building  string  `json:"building,omitempty" msgpack:"building,omitempty"`
	Structure string  `json:"structure,omitempty" msgpack:"structure,omitempty"`
	Lon       float64 `json:"lon" msgpack:"lon"`
	Lat       float64 `json:"lat" msgpack:"lat"`
}

// Validate trims the address in place, fills an empty locality and checks the fields.
func (a *NewAddress) Validate(defaultLocality string) error {
	a.Locality = strings.TrimSpace(a.Locality)
	a.Street = strings.TrimSpace(a.Street)
	a.House = strings.TrimSpace(a.House)
	a.Building = strings.TrimSpace(a.Building)
	a.Structure = strings.TrimSpace(a.Structure)
	if a.Locality == "" {
		a.Locality = defaultLocality
	}

	switch {
	case a.Street == "":
		return fmt.Errorf("%w: street is required", ErrInvalidRecord)
	case a.House == "":
		return fmt.Errorf("%w: house number is required for %q", ErrInvalidRecord, a.Street)
	case a.Lon < -180 || a.Lon > 180:
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidRecord, a.Lon)
	case a.Lat < -90 || a.Lat > 90:
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidRecord, a.Lat)
	}
	return nil
}

// Record converts a to an index record with the given id.
func (a NewAddress) Record(id int64) index.Record {
	return index.Record{
		ID:        id,
		NodeID:    a.NodeID,
		Locality:  a.Locality,
		Street:    a.Street,
		House:     a.House,
		Building:  a.Building,
		Structure: a.Structure,
		Lon:       a.Lon,
		Lat:       a.Lat,
	}
}

// Reader supplies every stored record in a stable order.
type Reader interface {
	Records(ctx context.Context) ([]index.Record, error)
}

// Writer persists one address and returns it with its assigned id.
type Writer interface {
	Create(ctx context.Context, addr NewAddress) (index.Record, error)
}

// Store is a record store.
type Store interface {
	Reader
	Writer
	Close() error
}
