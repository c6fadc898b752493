package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nrednav/cuid2"
	"github.com/onkernel/hypedesk/lib/events"
	"github.com/onkernel/hypedesk/lib/logger"
	mw "github.com/onkernel/hypedesk/lib/middleware"
)

// Control message types sent by clients on /ws.
const (
	MsgTerminalOpen   = "terminal.open"
	MsgTerminalInput  = "terminal.input"
	MsgTerminalResize = "terminal.resize"
	MsgTerminalClose  = "terminal.close"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  32 * 1024,
	WriteBufferSize: 32 * 1024,
	// Callers authenticate with a token; any origin may connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ControlMessage is one client request on the control socket. Data is
// base64 in JSON.
type ControlMessage struct {
	Type         string `json:"type"`
	SessionID    string `json:"session_id,omitempty"`
	ContainerRef string `json:"container_ref,omitempty"`
	Data         []byte `json:"data,omitempty"`
	Cols         uint   `json:"cols,omitempty"`
	Rows         uint   `json:"rows,omitempty"`
}

// wsConn is one control socket. gorilla allows a single concurrent writer,
// so Send serializes.
type wsConn struct {
	id string
	ws *websocket.Conn
	mu sync.Mutex
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(e events.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(e)
}

// ControlSocket serves the websocket control surface: terminal session
// requests in, terminal output and bus events out.
func (s *ApiService) ControlSocket(w http.ResponseWriter, r *http.Request) {
	owner := mw.GetUserIDFromContext(r.Context())

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.FromContext(r.Context()).ErrorContext(r.Context(), "websocket upgrade failed", "error", err)
		return
	}
	defer ws.Close()

	conn := &wsConn{id: cuid2.Generate(), ws: ws}
	log := logger.FromContext(r.Context()).With("conn_id", conn.id, "owner_id", owner)
	ctx, cancel := context.WithCancel(logger.AddToContext(r.Context(), log))
	defer cancel()

	// Opens run off the read loop. Teardown waits for them so a session
	// that finishes opening after the socket drops is still closed.
	var opens sync.WaitGroup
	log.InfoContext(ctx, "control connection opened")
	defer func() {
		cancel()
		opens.Wait()
		s.TerminalManager.CloseAllForConnection(conn)
		log.InfoContext(ctx, "control connection closed")
	}()

	go s.forwardEvents(ctx, conn, owner)
	go keepAlive(ctx, ws)

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WarnContext(ctx, "control connection read failed", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		var msg ControlMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendTerminalError(ctx, conn, "", "invalid JSON: "+err.Error())
			continue
		}
		if msg.Type == MsgTerminalOpen {
			opens.Add(1)
			go func() {
				defer opens.Done()
				s.openTerminal(ctx, conn, owner, msg)
			}()
			continue
		}
		s.handleControl(ctx, conn, msg)
	}
}

// openTerminal starts a session on one of owner's live instances. It runs
// in its own goroutine so a slow exec does not hold up the socket.
func (s *ApiService) openTerminal(ctx context.Context, conn *wsConn, owner string, msg ControlMessage) {
	inst, err := s.InstanceManager.ResolveContainer(ctx, owner, msg.ContainerRef)
	if err != nil {
		s.sendTerminalError(ctx, conn, msg.SessionID, err.Error())
		return
	}
	ref := inst.ContainerRef
	if ref == "" {
		ref = inst.ContainerName
	}
	if err := s.TerminalManager.Open(ctx, conn, ref, msg.SessionID); err != nil {
		logger.FromContext(ctx).DebugContext(ctx, "terminal open failed", "session_id", msg.SessionID, "error", err)
	}
}

func (s *ApiService) handleControl(ctx context.Context, conn *wsConn, msg ControlMessage) {
	switch msg.Type {
	case MsgTerminalInput:
		s.TerminalManager.Write(ctx, conn, msg.SessionID, msg.Data)
	case MsgTerminalResize:
		s.TerminalManager.Resize(ctx, conn, msg.SessionID, msg.Cols, msg.Rows)
	case MsgTerminalClose:
		s.TerminalManager.Close(conn, msg.SessionID)
	default:
		s.sendTerminalError(ctx, conn, msg.SessionID, "unknown message type: "+msg.Type)
	}
}

func (s *ApiService) sendTerminalError(ctx context.Context, conn *wsConn, sessionID, message string) {
	err := conn.Send(events.New(events.TypeTerminalError, events.TerminalEvent{
		SessionID: sessionID,
		Message:   message,
	}))
	if err != nil {
		logger.FromContext(ctx).DebugContext(ctx, "failed to send terminal error", "error", err)
	}
}

// forwardEvents relays bus events visible to owner until ctx is done or a
// write fails.
func (s *ApiService) forwardEvents(ctx context.Context, conn *wsConn, owner string) {
	sub, unsubscribe := s.Bus.Subscribe(ctx)
	defer unsubscribe()

	for e := range sub {
		if !visibleTo(e, owner) {
			continue
		}
		if err := conn.Send(e); err != nil {
			logger.FromContext(ctx).DebugContext(ctx, "event forward stopped", "error", err)
			return
		}
	}
}

func keepAlive(ctx context.Context, ws *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
