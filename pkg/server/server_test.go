package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bastiangx/addrserve/pkg/config"
	"github.com/bastiangx/addrserve/pkg/index"
	"github.com/bastiangx/addrserve/pkg/match"
	"github.com/bastiangx/addrserve/pkg/query"
	"github.com/bastiangx/addrserve/pkg/service"
	"github.com/bastiangx/addrserve/pkg/store"
	"github.com/bastiangx/addrserve/pkg/store/leveldb"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func init() {
	log.SetLevel(log.ErrorLevel)
}

type fakeService struct {
	lastLimit int
	searchErr error
	saveErr   error
	saved     []store.NewAddress
	reloads   int
}

func (f *fakeService) Search(_ context.Context, raw string, limit int) (match.SearchResult, error) {
	f.lastLimit = limit
	if f.searchErr != nil {
		return match.SearchResult{}, f.searchErr
	}
	return match.SearchResult{
		SearchedAddress: raw,
		Objects: []match.Object{
			{Locality: "Москва", Street: "улица Дурова", Number: "4", Lon: 37.6, Lat: 55.7, Score: 0.98},
		},
	}, nil
}

func (f *fakeService) Save(_ context.Context, addrs []store.NewAddress) ([]index.Record, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saved = append(f.saved, addrs...)
	out := make([]index.Record, len(addrs))
	for i, a := range addrs {
		out[i] = a.Record(int64(i + 1))
	}
	return out, nil
}

func (f *fakeService) Reload(context.Context) (index.Stat, error) {
	f.reloads++
	return index.Stat{ID: "default", Built: true, Records: 1}, nil
}

func (f *fakeService) Stats() []index.Stat {
	return []index.Stat{{ID: "default", Built: f.reloads > 0, Records: 1}}
}

func (f *fakeService) Retriever() string { return "levenshtein" }
func (f *fakeService) Locality() string  { return "Москва" }

func newServer(svc Service) *Server {
	return NewServer(svc, config.DefaultConfig().Server, strings.NewReader(""), &bytes.Buffer{})
}

func TestHandleSearch(t *testing.T) {
	svc := &fakeService{}
	s := newServer(svc)

	resp, ok := s.Handle(context.Background(), Request{ID: "req_001", Query: "Дурова 4", Limit: 3}).(SearchResponse)
	require.True(t, ok)
	assert.Equal(t, "req_001", resp.ID)
	assert.Equal(t, "Дурова 4", resp.SearchedAddress)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, "4", resp.Objects[0].Number)
	assert.Equal(t, 3, svc.lastLimit)
}

func TestHandleSearchLimits(t *testing.T) {
	svc := &fakeService{}
	s := newServer(svc)

	s.Handle(context.Background(), Request{Query: "Дурова 4", Limit: 1000})
	assert.Equal(t, 64, svc.lastLimit, "limit is capped")

	resp, ok := s.Handle(context.Background(), Request{Query: strings.Repeat("д", 300)}).(ErrorResponse)
	require.True(t, ok)
	assert.Equal(t, 400, resp.Code)

	for _, q := range []string{"12", "  ", "ааааа"} {
		_, ok = s.Handle(context.Background(), Request{Query: q}).(SearchResponse)
		assert.True(t, ok, "query %q reaches the engine", q)
	}
}

func TestHandleSearchEmptyDataset(t *testing.T) {
	st, err := leveldb.Open(filepath.Join(t.TempDir(), "addr.db"), "Москва", true)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	svc, err := service.New(config.DefaultConfig(), st)
	require.NoError(t, err)
	s := newServer(svc)

	for _, q := range []string{"Дурова 4", "12", "  "} {
		resp, ok := s.Handle(context.Background(), Request{ID: "req_001", Query: q, Limit: 3}).(SearchResponse)
		require.True(t, ok, "query %q", q)
		assert.Equal(t, q, resp.SearchedAddress)
		assert.NotNil(t, resp.Objects)
		assert.Empty(t, resp.Objects)
		assert.Equal(t, 0, resp.Count)
	}

	_, err = st.Create(context.Background(), store.NewAddress{Street: "улица Дурова", House: "4"})
	require.NoError(t, err)
	_, err = svc.Reload(context.Background())
	require.NoError(t, err)

	resp, ok := s.Handle(context.Background(), Request{Query: "12"}).(ErrorResponse)
	require.True(t, ok, "without a street the query is invalid once there is data")
	assert.Equal(t, 400, resp.Code)
}

func TestHandleGeneratesID(t *testing.T) {
	s := newServer(&fakeService{})
	resp, ok := s.Handle(context.Background(), Request{Action: ActionHealth}).(StatusResponse)
	require.True(t, ok)
	assert.Equal(t, "ok", resp.Status)
	_, err := uuid.Parse(resp.ID)
	assert.NoError(t, err)
}

func TestHandleErrors(t *testing.T) {
	testCases := []struct {
		description string
		svc         *fakeService
		req         Request
		code        int
	}{
		{"invalid query", &fakeService{searchErr: fmt.Errorf("%w: no street", query.ErrInvalidQuery)}, Request{Query: "ул 5"}, 400},
		{"build failure", &fakeService{searchErr: fmt.Errorf("%w: disk", index.ErrBuildFailure)}, Request{Query: "Дурова 4"}, 500},
		{"read only store", &fakeService{saveErr: store.ErrReadOnly}, Request{Action: ActionSave, Addresses: []store.NewAddress{{Street: "a"}}}, 400},
		{"invalid record", &fakeService{saveErr: store.ErrInvalidRecord}, Request{Action: ActionSave, Addresses: []store.NewAddress{{Street: "a"}}}, 400},
		{"store failure", &fakeService{saveErr: errors.New("boom")}, Request{Action: ActionSave, Addresses: []store.NewAddress{{Street: "a"}}}, 500},
		{"empty save", &fakeService{}, Request{Action: ActionSave}, 400},
		{"unknown action", &fakeService{}, Request{Action: "delete"}, 400},
	}

	for _, tc := range testCases {
		t.Run(tc.description, func(t *testing.T) {
			resp, ok := newServer(tc.svc).Handle(context.Background(), tc.req).(ErrorResponse)
			require.True(t, ok)
			assert.Equal(t, tc.code, resp.Code)
			assert.NotEmpty(t, resp.Error)
			assert.NotEmpty(t, resp.ID)
		})
	}
}

func TestHandleSaveReloadStats(t *testing.T) {
	svc := &fakeService{}
	s := newServer(svc)
	ctx := context.Background()

	saved, ok := s.Handle(ctx, Request{ID: "s1", Action: ActionSave, Addresses: []store.NewAddress{
		{Street: "Шаболовка улица", House: "37", Lon: 37.61, Lat: 55.72},
	}}).(SaveResponse)
	require.True(t, ok)
	assert.Equal(t, "saved", saved.Status)
	assert.Equal(t, 1, saved.Count)
	assert.Equal(t, "Шаболовка улица", saved.Saved[0].Street)

	stats, ok := s.Handle(ctx, Request{ID: "r1", Action: ActionReload}).(StatsResponse)
	require.True(t, ok)
	assert.Equal(t, "reloaded", stats.Status)
	assert.Equal(t, 1, svc.reloads)

	stats, ok = s.Handle(ctx, Request{ID: "t1", Action: ActionStats}).(StatsResponse)
	require.True(t, ok)
	assert.Equal(t, "levenshtein", stats.Retriever)
	assert.Equal(t, "Москва", stats.Locality)
	require.Len(t, stats.Datasets, 1)
	assert.True(t, stats.Datasets[0].Built)
}

func TestStartStream(t *testing.T) {
	var in bytes.Buffer
	enc := msgpack.NewEncoder(&in)
	require.NoError(t, enc.Encode(Request{ID: "a", Query: "Дурова 4"}))
	require.NoError(t, enc.Encode(map[string]any{"id": 12, "q": []int{1}}))
	require.NoError(t, enc.Encode(Request{ID: "b", Action: ActionHealth}))

	var out bytes.Buffer
	s := NewServer(&fakeService{}, config.DefaultConfig().Server, &in, &out)
	require.NoError(t, s.Start(context.Background()))

	dec := msgpack.NewDecoder(&out)

	var ready StatusResponse
	require.NoError(t, dec.Decode(&ready))
	assert.Equal(t, "ready", ready.Status)

	var search SearchResponse
	require.NoError(t, dec.Decode(&search))
	assert.Equal(t, "a", search.ID)
	assert.Equal(t, 1, search.Count)

	var malformed ErrorResponse
	require.NoError(t, dec.Decode(&malformed))
	assert.Equal(t, 400, malformed.Code)

	var health StatusResponse
	require.NoError(t, dec.Decode(&health))
	assert.Equal(t, "b", health.ID)
	assert.Equal(t, "ok", health.Status)
}

func TestStartBrokenStream(t *testing.T) {
	// 0xc1 is never used in msgpack
	in := bytes.NewReader([]byte{0xc1})
	s := NewServer(&fakeService{}, config.DefaultConfig().Server, in, &bytes.Buffer{})
	assert.Error(t, s.Start(context.Background()))
}
