package web

import (
	"encoding/json"
	"fmt"
	"net/http"

	"stock-metadata-generator/internal/domain/model"
	"stock-metadata-generator/internal/usecase"
)

type itemsEvent struct {
	Items []itemView          `json:"items"`
	Run   *usecase.RunSummary `json:"run,omitempty"`
}

type keysEvent struct {
	Provider model.Provider `json:"provider"`
	Count    int            `json:"count"`
}

type keyChange struct {
	provider model.Provider
	count    int
}

// handleEvents streams server-sent events: "items" after every item store
// change and "keys" after every credential pool change. The first "items"
// event carries the current state.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	ctx := r.Context()

	itemsCh, unsubscribe := s.Items.Subscribe()
	defer unsubscribe()

	keyCh := make(chan keyChange, 1)
	for _, p := range s.Creds.Providers() {
		pool, err := s.Creds.Pool(p)
		if err != nil {
			continue
		}
		updates, stop := pool.Watch()
		defer stop()
		go func(p model.Provider) {
			for {
				select {
				case <-ctx.Done():
					return
				case keys := <-updates:
					select {
					case keyCh <- keyChange{provider: p, count: len(keys)}:
					case <-ctx.Done():
						return
					}
				}
			}
		}(p)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	if err := s.sendEvent(w, rc, "items", s.currentItems()); err != nil {
		return
	}
	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case <-itemsCh:
			err = s.sendEvent(w, rc, "items", s.currentItems())
		case kc := <-keyCh:
			err = s.sendEvent(w, rc, "keys", keysEvent{Provider: kc.provider, Count: kc.count})
		}
		if err != nil {
			return
		}
	}
}

func (s *Server) currentItems() itemsEvent {
	ev := itemsEvent{Items: toItemViews(s.Items.Snapshot())}
	if cur, ok := s.Batch.Current(); ok {
		ev.Run = &cur
	}
	return ev
}

func (s *Server) sendEvent(w http.ResponseWriter, rc *http.ResponseController, name string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, b); err != nil {
		return err
	}
	return rc.Flush()
}
