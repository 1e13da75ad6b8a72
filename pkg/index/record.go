package index

import "strings"

// Record is one reference address as supplied by a record store.
// Records are immutable once an Index has been built from them.
type Record struct {
	ID        int64   `json:"id" msgpack:"id"`
	NodeID    int64   `json:"node_id,omitempty" msgpack:"node_id,omitempty"`
	Locality  string  `json:"locality" msgpack:"locality"`
	Street    string  `json:"street" msgpack:"street"`
	House     string  `json:"house" msgpack:"house"`
	Building  string  `json:"building,omitempty" msgpack:"building,omitempty"`
	Structure string  `json:"structure,omitempty" msgpack:"structure,omitempty"`
	Lon       float64 `json:"lon" msgpack:"lon"`
	Lat       float64 `json:"lat" msgpack:"lat"`
}

// HouseKey returns the house number with its building and structure qualifiers
// in the form a query house fragment is compared against ("4к1с2").
// An empty result means the record has no comparable house.
func (r Record) HouseKey() string {
	house := compact(r.House)
	if house == "" {
		return ""
	}
	if b := compact(r.Building); b != "" {
		house += "к" + b
	}
	if s := compact(r.Structure); s != "" {
		house += "с" + s
	}
	return house
}

func compact(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !strings.ContainsAny(s, " \t") {
		return s
	}
	return strings.Join(strings.Fields(s), "")
}
