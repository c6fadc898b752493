package api

import (
	"context"
	"net/http"

	"github.com/onkernel/hypedesk/lib/events"
	"github.com/onkernel/hypedesk/lib/logger"
	mw "github.com/onkernel/hypedesk/lib/middleware"
)

// StreamEvents streams bus events as text/event-stream. Instance events
// are limited to the caller's own instances.
func (s *ApiService) StreamEvents(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	log := logger.FromContext(ctx)
	owner := mw.GetUserIDFromContext(ctx)

	sub, unsubscribe := s.Bus.Subscribe(ctx)
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	rc := http.NewResponseController(w)
	if err := rc.Flush(); err != nil {
		log.WarnContext(ctx, "event stream cannot flush", "error", err)
		return
	}

	body := events.ToSSEReader(forOwner(ctx, sub, owner))
	defer body.Close()

	buf := make([]byte, 4096)
	for {
		n, err := body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if ferr := rc.Flush(); ferr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// forOwner filters sub down to broadcast events and events owned by owner.
// The returned channel closes when sub does or ctx is done.
func forOwner(ctx context.Context, sub <-chan events.Event, owner string) <-chan events.Event {
	out := make(chan events.Event)
	go func() {
		defer close(out)
		for e := range sub {
			if !visibleTo(e, owner) {
				continue
			}
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

func visibleTo(e events.Event, owner string) bool {
	o := events.OwnerOf(e)
	return o == "" || o == owner
}
