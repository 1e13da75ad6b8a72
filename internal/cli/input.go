// Package cli handles cmd line input for debugging address searches in real time
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/addrserve/internal/logger"
	"github.com/bastiangx/addrserve/internal/utils"
	"github.com/bastiangx/addrserve/pkg/index"
	"github.com/bastiangx/addrserve/pkg/match"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

// Searcher is the part of service.AddressService the CLI uses.
type Searcher interface {
	Search(ctx context.Context, raw string, limit int) (match.SearchResult, error)
	Reload(ctx context.Context) (index.Stat, error)
	Stats() []index.Stat
}

var streetStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))

// InputHandler reads one query per line and prints the ranked matches.
// Lines starting with "/" are commands: /limit N, /stats, /reload.
type InputHandler struct {
	svc         Searcher
	in          io.Reader
	out         *log.Logger
	limit       int
	maxQueryLen int
	requests    int
}

// NewInputHandler creates a handler reading from in and printing to out.
func NewInputHandler(svc Searcher, in io.Reader, out io.Writer, limit, maxQueryLen int) *InputHandler {
	return &InputHandler{
		svc:         svc,
		in:          in,
		out:         logger.NewWithConfig(out, "", log.InfoLevel, false, false, log.TextFormatter),
		limit:       limit,
		maxQueryLen: maxQueryLen,
	}
}

// Start begins the CLI input loop. It returns nil when the input ends.
func (h *InputHandler) Start(ctx context.Context) error {
	h.out.Print("AddrServe CLI")
	h.out.Print("type an address and press enter to see matches (Ctrl+C to exit):")

	reader := bufio.NewReader(h.in)
	for {
		line, err := reader.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			h.handleInput(ctx, line)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (h *InputHandler) handleInput(ctx context.Context, line string) {
	if strings.HasPrefix(line, "/") {
		h.handleCommand(ctx, line)
		return
	}

	h.requests++
	if !utils.IsValidQuery(line, h.maxQueryLen) {
		h.out.Errorf("Not an address query: %q", line)
		return
	}

	start := time.Now()
	res, err := h.svc.Search(ctx, line, h.limit)
	elapsed := time.Since(start)
	log.Debugf("Took [ %v ] for query '%s'", elapsed, line)
	if err != nil {
		h.out.Errorf("Search failed: %v", err)
		return
	}
	if len(res.Objects) == 0 {
		h.out.Warnf("No matches for '%s'", line)
		return
	}

	h.out.Printf("Found %d matches for '%s':", len(res.Objects), line)
	for i, o := range res.Objects {
		house := o.Number
		if o.Building != "" {
			house += " к" + o.Building
		}
		if o.Structure != "" {
			house += " с" + o.Structure
		}
		h.out.Printf("%2d. %s, %s, %s  (score %.3f, %.5f %.5f)",
			i+1, o.Locality, streetStyle.Render(o.Street), house, o.Score, o.Lat, o.Lon)
	}
}

func (h *InputHandler) handleCommand(ctx context.Context, line string) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/limit":
		if len(fields) != 2 {
			h.out.Errorf("usage: /limit N")
			return
		}
		n, err := strconv.Atoi(fields[1])
		if err != nil || n <= 0 {
			h.out.Errorf("limit must be a positive number, got %q", fields[1])
			return
		}
		h.limit = n
		h.out.Printf("limit set to %d", n)
	case "/stats":
		for _, st := range h.svc.Stats() {
			h.out.Print(formatStat(st))
		}
		h.out.Printf("%d queries this session", h.requests)
	case "/reload":
		st, err := h.svc.Reload(ctx)
		if err != nil {
			h.out.Errorf("Reload failed: %v", err)
			return
		}
		h.out.Print(formatStat(st))
	default:
		h.out.Errorf("unknown command %s (try /limit, /stats, /reload)", fields[0])
	}
}

func formatStat(st index.Stat) string {
	if !st.Built {
		return fmt.Sprintf("dataset %s: not built", st.ID)
	}
	return fmt.Sprintf("dataset %s: %d records, built in %v", st.ID, st.Records, st.Took)
}
