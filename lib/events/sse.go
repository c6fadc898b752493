package events

import (
	"encoding/json"
	"fmt"
	"io"
)

// ToSSEReader renders a subscription as a text/event-stream body. Read
// returns io.EOF once ch is closed.
func ToSSEReader(ch <-chan Event) io.ReadCloser {
	return &sseStream{ch: ch}
}

type sseStream struct {
	ch     <-chan Event
	buffer []byte
}

func (s *sseStream) Read(p []byte) (int, error) {
	if len(s.buffer) == 0 {
		e, ok := <-s.ch
		if !ok {
			return 0, io.EOF
		}
		data, err := json.Marshal(e)
		if err != nil {
			return 0, fmt.Errorf("marshal event: %w", err)
		}
		s.buffer = []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", e.Type, data))
	}

	n := copy(p, s.buffer)
	s.buffer = s.buffer[n:]
	return n, nil
}

func (s *sseStream) Close() error {
	return nil
}
