/*
Package server implements msgpack IPC for address search.

Clients write msgpack maps to stdin and read msgpack maps from stdout, one response per
request, in order. Values are concatenated with no framing; the msgpack encoding itself
delimits them. Logs go to stderr so they never mix with the stream.

# IPC

On startup the server writes a ready frame:

	{"status": "ready"}

A search request carries the raw address and an optional limit:

	{"id": "req_001", "q": "ул. Дурова, 4", "l": 3}

The response echoes the query and lists ranked objects with scores in [0,1]:

	{"id": "req_001", "searched_address": "ул. Дурова, 4",
	 "objects": [{"locality": "Москва", "street": "улица Дурова", "number": "4",
	              "lon": 37.62, "lat": 55.78, "score": 0.98}], "c": 1, "t": 412}

"t" is the time spent in microseconds. Requests without an id get a generated one.

# Actions

The "action" field selects the operation; it defaults to "search".

	{"id": "s1", "action": "save", "addresses": [{"street": "Шаболовка улица", "number": "37",
	                                               "lon": 37.61, "lat": 55.72}]}
	{"id": "r1", "action": "reload"}
	{"id": "t1", "action": "stats"}
	{"id": "h1", "action": "health"}

save persists new addresses and invalidates the index, reload rebuilds it from the store,
stats reports dataset build state and health answers {"status": "ok"}.

Failures are reported as error frames:

	{"id": "req_001", "e": "invalid query: no street in \"5\"", "c": 400}

Code 400 marks a bad request (invalid query, invalid address, read-only store, unknown
action); 500 marks a server-side failure such as an index build error.
*/
package server

import (
	"github.com/bastiangx/addrserve/pkg/index"
	"github.com/bastiangx/addrserve/pkg/match"
	"github.com/bastiangx/addrserve/pkg/store"
)

// Actions understood by the server.
const (
	ActionSearch = "search"
	ActionSave   = "save"
	ActionReload = "reload"
	ActionStats  = "stats"
	ActionHealth = "health"
)

// Request is every client message.
type Request struct {
	ID        string             `msgpack:"id"`
	Action    string             `msgpack:"action,omitempty"`
	Query     string             `msgpack:"q,omitempty"`
	Limit     int                `msgpack:"l,omitempty"`
	Addresses []store.NewAddress `msgpack:"addresses,omitempty"`
}

// SearchResponse answers a search request.
type SearchResponse struct {
	ID              string         `msgpack:"id"`
	SearchedAddress string         `msgpack:"searched_address"`
	Objects         []match.Object `msgpack:"objects"`
	Count           int            `msgpack:"c"`
	TimeTaken       int64          `msgpack:"t"`
}

// SaveResponse answers a save request with the stored records.
type SaveResponse struct {
	ID        string         `msgpack:"id"`
	Status    string         `msgpack:"status"`
	Saved     []index.Record `msgpack:"saved"`
	Count     int            `msgpack:"c"`
	TimeTaken int64          `msgpack:"t"`
}

// StatsResponse answers stats and reload requests.
type StatsResponse struct {
	ID        string       `msgpack:"id"`
	Status    string       `msgpack:"status"`
	Retriever string       `msgpack:"retriever"`
	Locality  string       `msgpack:"locality"`
	Datasets  []index.Stat `msgpack:"datasets"`
	TimeTaken int64        `msgpack:"t"`
}

// StatusResponse is the ready and health frame.
type StatusResponse struct {
	ID     string `msgpack:"id,omitempty"`
	Status string `msgpack:"status"`
}

// ErrorResponse holds basic error information for a failed request
type ErrorResponse struct {
	ID    string `msgpack:"id"`
	Error string `msgpack:"e"`
	Code  int    `msgpack:"c"`
}
