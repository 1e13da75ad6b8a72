package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bastiangx/addrserve/internal/logger"
	"github.com/bastiangx/addrserve/internal/utils"
	"github.com/bastiangx/addrserve/pkg/config"
	"github.com/bastiangx/addrserve/pkg/index"
	"github.com/bastiangx/addrserve/pkg/match"
	"github.com/bastiangx/addrserve/pkg/query"
	"github.com/bastiangx/addrserve/pkg/store"
	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"
)

// Service is what the server needs from service.AddressService.
type Service interface {
	Search(ctx context.Context, raw string, limit int) (match.SearchResult, error)
	Save(ctx context.Context, addrs []store.NewAddress) ([]index.Record, error)
	Reload(ctx context.Context) (index.Stat, error)
	Stats() []index.Stat
	Retriever() string
	Locality() string
}

// Server handles the msgpack IPC for address search
type Server struct {
	svc      Service
	cfg      config.ServerConfig
	dec      *msgpack.Decoder
	out      *bufio.Writer
	enc      *msgpack.Encoder
	logger   *log.Logger
	requests int
}

// NewServer creates a server reading requests from r and writing responses to w.
// cmd/addrserve passes os.Stdin and os.Stdout.
func NewServer(svc Service, cfg config.ServerConfig, r io.Reader, w io.Writer) *Server {
	out := bufio.NewWriter(w)
	return &Server{
		svc:    svc,
		cfg:    cfg,
		dec:    msgpack.NewDecoder(bufio.NewReader(r)),
		out:    out,
		enc:    msgpack.NewEncoder(out),
		logger: logger.New("server"),
	}
}

// Start writes the ready frame and serves requests until the input ends or ctx is done.
// A request that is valid msgpack but not a valid Request gets a 400 and the loop
// continues; a broken msgpack stream ends it with an error.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Debug("Starting server")
	if err := s.send(StatusResponse{Status: "ready"}); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		raw, err := s.dec.DecodeRaw()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Debugf("Input closed after %d requests", s.requests)
				return nil
			}
			s.logger.Errorf("Reading request: %v", err)
			return fmt.Errorf("server: read request: %w", err)
		}
		s.requests++

		var req Request
		if err := msgpack.Unmarshal(raw, &req); err != nil {
			s.logger.Warnf("Malformed request: %v", err)
			if err := s.send(ErrorResponse{Error: "malformed request", Code: 400}); err != nil {
				return err
			}
			continue
		}
		if err := s.send(s.Handle(ctx, req)); err != nil {
			return err
		}
	}
}

// Handle runs one request and returns the frame to send back.
func (s *Server) Handle(ctx context.Context, req Request) any {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	switch req.Action {
	case "", ActionSearch:
		return s.handleSearch(ctx, req)
	case ActionSave:
		return s.handleSave(ctx, req)
	case ActionReload:
		start := time.Now()
		if _, err := s.svc.Reload(ctx); err != nil {
			return s.failure(req.ID, err)
		}
		return s.stats(req.ID, "reloaded", time.Since(start))
	case ActionStats:
		return s.stats(req.ID, "ok", 0)
	case ActionHealth:
		return StatusResponse{ID: req.ID, Status: "ok"}
	default:
		return ErrorResponse{ID: req.ID, Error: fmt.Sprintf("unknown action: %s", req.Action), Code: 400}
	}
}

func (s *Server) handleSearch(ctx context.Context, req Request) any {
	// Whether a query names a street is the engine's call: an empty dataset answers
	// anything with no objects.
	if !utils.WithinLength(req.Query, s.cfg.MaxQueryLen) {
		s.logger.Debugf("Rejected query of %d bytes", len(req.Query))
		return ErrorResponse{
			ID:    req.ID,
			Error: fmt.Sprintf("query must be at most %d characters", s.cfg.MaxQueryLen),
			Code:  400,
		}
	}

	limit := req.Limit
	if s.cfg.MaxLimit > 0 && limit > s.cfg.MaxLimit {
		limit = s.cfg.MaxLimit
	}

	start := time.Now()
	res, err := s.svc.Search(ctx, req.Query, limit)
	if err != nil {
		return s.failure(req.ID, err)
	}
	return SearchResponse{
		ID:              req.ID,
		SearchedAddress: res.SearchedAddress,
		Objects:         res.Objects,
		Count:           len(res.Objects),
		TimeTaken:       time.Since(start).Microseconds(),
	}
}

func (s *Server) handleSave(ctx context.Context, req Request) any {
	if len(req.Addresses) == 0 {
		return ErrorResponse{ID: req.ID, Error: "missing 'addresses'", Code: 400}
	}

	start := time.Now()
	saved, err := s.svc.Save(ctx, req.Addresses)
	if err != nil {
		return s.failure(req.ID, err)
	}
	return SaveResponse{
		ID:        req.ID,
		Status:    "saved",
		Saved:     saved,
		Count:     len(saved),
		TimeTaken: time.Since(start).Microseconds(),
	}
}

func (s *Server) stats(id, status string, took time.Duration) StatsResponse {
	return StatsResponse{
		ID:        id,
		Status:    status,
		Retriever: s.svc.Retriever(),
		Locality:  s.svc.Locality(),
		Datasets:  s.svc.Stats(),
		TimeTaken: took.Microseconds(),
	}
}

// failure maps err to an error frame.
func (s *Server) failure(id string, err error) ErrorResponse {
	code := 500
	switch {
	case errors.Is(err, query.ErrInvalidQuery),
		errors.Is(err, store.ErrInvalidRecord),
		errors.Is(err, store.ErrReadOnly):
		code = 400
	}
	if code == 500 {
		s.logger.Errorf("Request %s failed: %v", id, err)
	} else {
		s.logger.Debugf("Request %s rejected: %v", id, err)
	}
	return ErrorResponse{ID: id, Error: err.Error(), Code: code}
}

// send encodes one frame and flushes it so the client sees it immediately.
func (s *Server) send(frame any) error {
	if err := s.enc.Encode(frame); err != nil {
		s.logger.Errorf("Encoding response: %v", err)
		return fmt.Errorf("server: encode response: %w", err)
	}
	if err := s.out.Flush(); err != nil {
		return fmt.Errorf("server: write response: %w", err)
	}
	return nil
}
