package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"nhooyr.io/websocket"

	"nftmarket/core/types"
	"nftmarket/native/marketplace"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsBuffer       = 64
)

// eventFilter selects which committed events a stream subscriber receives.
type eventFilter struct {
	typePrefix  string
	marketplace string
}

// parseEventFilter reads the "type" (event type prefix, e.g. "marketplace.")
// and "marketplace" (marketplace name) query parameters.
func parseEventFilter(r *http.Request) (eventFilter, error) {
	q := r.URL.Query()
	f := eventFilter{typePrefix: strings.TrimSpace(q.Get("type"))}
	if name := strings.TrimSpace(q.Get("marketplace")); name != "" {
		addr, _, err := marketplace.MarketplaceAddress(name)
		if err != nil {
			return eventFilter{}, err
		}
		f.marketplace = addr.String()
	}
	return f, nil
}

func (f eventFilter) match(evt *types.Event) bool {
	if evt == nil {
		return false
	}
	if f.typePrefix != "" && !strings.HasPrefix(evt.Type, f.typePrefix) {
		return false
	}
	return f.marketplace == "" || evt.Attributes["marketplace"] == f.marketplace
}

// handleEventsWS streams committed ledger events as JSON text frames.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	if s == nil || s.recorder == nil {
		http.Error(w, "event stream unavailable", http.StatusServiceUnavailable)
		return
	}
	filter, err := parseEventFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: []string{"*"}})
	if err != nil {
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "stream closed")
	ctx := conn.CloseRead(r.Context())
	if err := s.streamEvents(ctx, conn, filter); err != nil {
		if status := websocket.CloseStatus(err); status == -1 {
			_ = conn.Close(websocket.StatusInternalError, "stream error")
		}
	}
}

func (s *Server) streamEvents(ctx context.Context, conn *websocket.Conn, filter eventFilter) error {
	updates, cancel := s.recorder.Subscribe(wsBuffer)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-updates:
			if !ok {
				return nil
			}
			if !filter.match(evt) {
				continue
			}
			if err := writeEvent(ctx, conn, evt); err != nil {
				return err
			}
		}
	}
}

func writeEvent(ctx context.Context, conn *websocket.Conn, evt *types.Event) error {
	data, err := json.Marshal(receiptLogs([]*types.Event{evt})[0])
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return conn.Write(writeCtx, websocket.MessageText, data)
}
