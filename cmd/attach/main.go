// Command attach opens an interactive shell in an environment over the
// hypedesk control socket.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/nrednav/cuid2"
	"github.com/onkernel/hypedesk/cmd/api/api"
	"github.com/onkernel/hypedesk/lib/events"
	"golang.org/x/term"
)

type wireEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: attach <server-url> <container-ref>")
		fmt.Println("Example: HYPEDESK_TOKEN=... attach http://localhost:8080 ubuntu-desktop-abcd1234")
		os.Exit(1)
	}
	code, err := run(os.Args[1], os.Args[2], os.Getenv("HYPEDESK_TOKEN"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "\r\nError: %v\n", err)
	}
	os.Exit(code)
}

func run(server, ref, token string) (int, error) {
	wsURL, err := socketURL(server, token)
	if err != nil {
		return 1, err
	}

	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return 1, fmt.Errorf("connect: %w", err)
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var writeMu sync.Mutex
	send := func(msg api.ControlMessage) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		return ws.WriteJSON(msg)
	}

	sessionID := cuid2.Generate()
	if err := send(api.ControlMessage{Type: api.MsgTerminalOpen, SessionID: sessionID, ContainerRef: ref}); err != nil {
		return 1, fmt.Errorf("open session: %w", err)
	}

	// Put terminal in raw mode for interactive shell
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		oldState, err := term.MakeRaw(fd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not make terminal raw: %v\n", err)
		} else {
			defer term.Restore(fd, oldState)
		}
	}

	resizeTo := func() {
		if cols, rows, err := term.GetSize(fd); err == nil {
			send(api.ControlMessage{Type: api.MsgTerminalResize, SessionID: sessionID, Cols: uint(cols), Rows: uint(rows)})
		}
	}

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-winch:
				resizeTo()
			}
		}
	}()

	go func() {
		buf := make([]byte, 4096)
		for {
			n, err := os.Stdin.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				if send(api.ControlMessage{Type: api.MsgTerminalInput, SessionID: sessionID, Data: data}) != nil {
					return
				}
			}
			if err != nil {
				send(api.ControlMessage{Type: api.MsgTerminalClose, SessionID: sessionID})
				return
			}
		}
	}()

	for {
		var e wireEvent
		if err := ws.ReadJSON(&e); err != nil {
			return 1, fmt.Errorf("connection lost: %w", err)
		}
		if !strings.HasPrefix(e.Type, "terminal.") {
			continue
		}
		var te events.TerminalEvent
		if err := json.Unmarshal(e.Data, &te); err != nil || te.SessionID != sessionID {
			continue
		}

		switch e.Type {
		case events.TypeTerminalReady:
			resizeTo()
		case events.TypeTerminalOutput:
			os.Stdout.Write(te.Data)
		case events.TypeTerminalClosed:
			return 0, nil
		case events.TypeTerminalError:
			return 1, fmt.Errorf("%s", te.Message)
		}
	}
}

// socketURL turns an http(s) base URL into the control socket URL.
func socketURL(server, token string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "http", "":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
