// Package terminal multiplexes interactive exec sessions onto client
// connections.
//
// Sessions are keyed by (connection ID, session ID): session IDs are chosen
// by clients and only need to be unique on their own connection. Each
// session has one reader goroutine that forwards output and emits the final
// closed or error event, so that event is always the last one a session
// sends.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/onkernel/hypedesk/lib/engine"
	"github.com/onkernel/hypedesk/lib/events"
	"github.com/onkernel/hypedesk/lib/logger"
	hdotel "github.com/onkernel/hypedesk/lib/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrSessionExists is returned when a connection reuses a live session ID
	ErrSessionExists = errors.New("session already exists")

	// ErrNotRunning is returned when the target container is not running
	ErrNotRunning = errors.New("container not running")

	// ErrInvalidSession is returned for an empty session ID
	ErrInvalidSession = errors.New("invalid session id")
)

// Initial terminal environment.
var sessionEnv = []string{"TERM=xterm-256color", "COLUMNS=80", "LINES=24"}

const readBufferSize = 32 * 1024

// Conn is a client connection that receives terminal events.
type Conn interface {
	ID() string
	Send(e events.Event) error
}

// Runtime is the slice of engine.Engine sessions need.
type Runtime interface {
	Inspect(ctx context.Context, ref string) (*engine.ContainerState, error)
	Exec(ctx context.Context, ref string, cfg engine.ExecConfig) (string, error)
	ExecAttach(ctx context.Context, execID string, tty bool) (engine.Stream, error)
	ExecResize(ctx context.Context, execID string, cols, rows uint) error
	ExecOutput(ctx context.Context, ref string, cmd []string) (string, error)
}

type sessionKey struct {
	conn    string
	session string
}

type session struct {
	key    sessionKey
	ref    string
	execID string
	shell  Shell
	stream engine.Stream
	conn   Conn

	closeOnce sync.Once
	mu        sync.Mutex
	explicit  bool
}

// shutdown closes the stream, which ends the reader. explicit marks a
// caller-requested close so the reader reports closed rather than error.
func (s *session) shutdown(explicit bool) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.explicit = explicit
		s.mu.Unlock()
		s.stream.Close()
	})
}

func (s *session) closedByCaller() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.explicit
}

// Manager is the session registry.
type Manager struct {
	runtime Runtime
	metrics *hdotel.TerminalMetrics

	mu       sync.Mutex
	sessions map[sessionKey]*session
	opening  map[sessionKey]struct{}
	wg       sync.WaitGroup
}

// NewManager creates a session manager. meter may be nil.
func NewManager(runtime Runtime, meter metric.Meter) (*Manager, error) {
	m := &Manager{
		runtime:  runtime,
		sessions: make(map[sessionKey]*session),
		opening:  make(map[sessionKey]struct{}),
	}
	if meter != nil {
		metrics, err := hdotel.NewTerminalMetrics(meter)
		if err != nil {
			return nil, err
		}
		m.metrics = metrics
	}
	return m, nil
}

// Open starts an interactive shell in ref and binds it to conn as
// sessionID. Every failure is also reported to conn as terminal.error; the
// returned error is for the caller's logs.
func (m *Manager) Open(ctx context.Context, conn Conn, ref, sessionID string) (err error) {
	log := logger.FromContext(ctx)
	key := sessionKey{conn: conn.ID(), session: sessionID}

	defer func() {
		if err != nil {
			m.recordOpen(ctx, "error")
			m.send(ctx, conn, events.TypeTerminalError, sessionID, err.Error())
		}
	}()

	if sessionID == "" {
		return ErrInvalidSession
	}

	// 1. Reserve the key so concurrent opens of the same ID cannot both win
	m.mu.Lock()
	_, live := m.sessions[key]
	_, pending := m.opening[key]
	if live || pending {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrSessionExists, sessionID)
	}
	m.opening[key] = struct{}{}
	m.mu.Unlock()
	defer func() {
		m.mu.Lock()
		delete(m.opening, key)
		m.mu.Unlock()
	}()

	// 2. The container must be running
	state, err := m.runtime.Inspect(ctx, ref)
	if errors.Is(err, engine.ErrNotFound) {
		return fmt.Errorf("%w: container %s not found", ErrNotRunning, ref)
	}
	if err != nil {
		return fmt.Errorf("inspect container: %w", err)
	}
	if !state.Running {
		return fmt.Errorf("%w: %s is %s", ErrNotRunning, ref, state.Status)
	}

	// 3. Pick a shell and start it on a TTY
	shell := detectShell(ctx, m.runtime, ref)
	execID, err := m.runtime.Exec(ctx, ref, engine.ExecConfig{
		Cmd:          shell.Cmd,
		Tty:          true,
		AttachStdin:  true,
		AttachStdout: true,
		AttachStderr: true,
		Env:          sessionEnv,
	})
	if err != nil {
		return fmt.Errorf("create exec: %w", err)
	}
	stream, err := m.runtime.ExecAttach(ctx, execID, true)
	if err != nil {
		return fmt.Errorf("attach exec: %w", err)
	}

	// 4. Register before any output is read
	s := &session{key: key, ref: ref, execID: execID, shell: shell, stream: stream, conn: conn}
	m.mu.Lock()
	m.sessions[key] = s
	m.mu.Unlock()
	if m.metrics != nil {
		m.metrics.SessionsActive.Add(ctx, 1)
	}
	m.recordOpen(ctx, "success")

	m.send(ctx, conn, events.TypeTerminalReady, sessionID, shell.Kind.String())
	log.InfoContext(ctx, "terminal session opened",
		"conn_id", key.conn,
		"session_id", sessionID,
		"container_ref", ref,
		"exec_id", execID,
		"shell", shell.Kind.String())

	// 5. Forward output. The reader outlives the request that opened it.
	readCtx := logger.AddToContext(context.Background(), log)
	m.wg.Add(1)
	go m.read(readCtx, s)
	return nil
}

func (m *Manager) read(ctx context.Context, s *session) {
	defer m.wg.Done()

	buf := make([]byte, readBufferSize)
	var readErr error
	for {
		n, err := s.stream.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if m.metrics != nil {
				m.metrics.BytesOut.Add(ctx, int64(n))
			}
			if sendErr := s.conn.Send(events.New(events.TypeTerminalOutput, events.TerminalEvent{
				SessionID: s.key.session,
				Data:      chunk,
			})); sendErr != nil {
				readErr = fmt.Errorf("send output: %w", sendErr)
				break
			}
		}
		if err != nil {
			readErr = err
			break
		}
	}

	s.shutdown(false)
	m.unregister(ctx, s)

	eventType, message := finalEvent(s.closedByCaller(), readErr)
	m.send(ctx, s.conn, eventType, s.key.session, message)
	logger.FromContext(ctx).InfoContext(ctx, "terminal session ended",
		"conn_id", s.key.conn,
		"session_id", s.key.session,
		"event", eventType,
		"reason", message)
}

// finalEvent maps how a session ended to its last event.
func finalEvent(closedByCaller bool, err error) (string, string) {
	if closedByCaller || err == nil || errors.Is(err, io.EOF) {
		return events.TypeTerminalClosed, ""
	}
	return events.TypeTerminalError, err.Error()
}

func (m *Manager) unregister(ctx context.Context, s *session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions[s.key] == s {
		delete(m.sessions, s.key)
		if m.metrics != nil {
			m.metrics.SessionsActive.Add(ctx, -1)
		}
	}
}

func (m *Manager) lookup(conn Conn, sessionID string) *session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[sessionKey{conn: conn.ID(), session: sessionID}]
}

// Write relays raw input. Unknown sessions are ignored.
func (m *Manager) Write(ctx context.Context, conn Conn, sessionID string, data []byte) {
	s := m.lookup(conn, sessionID)
	if s == nil {
		return
	}
	if _, err := s.stream.Write(data); err != nil {
		logger.FromContext(ctx).DebugContext(ctx, "terminal write failed", "session_id", sessionID, "error", err)
	}
}

// Resize is best effort; a failed resize leaves the session usable.
func (m *Manager) Resize(ctx context.Context, conn Conn, sessionID string, cols, rows uint) {
	s := m.lookup(conn, sessionID)
	if s == nil {
		return
	}
	if err := m.runtime.ExecResize(ctx, s.execID, cols, rows); err != nil {
		logger.FromContext(ctx).WarnContext(ctx, "terminal resize failed",
			"session_id", sessionID,
			"cols", cols,
			"rows", rows,
			"error", err)
	}
}

// Close ends a session. Closing an unknown or already-closed session does
// nothing.
func (m *Manager) Close(conn Conn, sessionID string) {
	if s := m.lookup(conn, sessionID); s != nil {
		s.shutdown(true)
	}
}

// CloseAllForConnection closes every session owned by conn.
func (m *Manager) CloseAllForConnection(conn Conn) {
	m.mu.Lock()
	var owned []*session
	for key, s := range m.sessions {
		if key.conn == conn.ID() {
			owned = append(owned, s)
		}
	}
	m.mu.Unlock()

	for _, s := range owned {
		s.shutdown(true)
	}
}

// Shutdown closes every session and waits for their readers.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	all := make([]*session, 0, len(m.sessions))
	for _, s := range m.sessions {
		all = append(all, s)
	}
	m.mu.Unlock()

	for _, s := range all {
		s.shutdown(true)
	}
	m.wg.Wait()
}

// Len returns the number of registered sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Has reports whether conn has a live session with that ID.
func (m *Manager) Has(conn Conn, sessionID string) bool {
	return m.lookup(conn, sessionID) != nil
}

func (m *Manager) send(ctx context.Context, conn Conn, eventType, sessionID, message string) {
	err := conn.Send(events.New(eventType, events.TerminalEvent{SessionID: sessionID, Message: message}))
	if err != nil {
		logger.FromContext(ctx).DebugContext(ctx, "failed to deliver terminal event",
			"conn_id", conn.ID(),
			"session_id", sessionID,
			"event", eventType,
			"error", err)
	}
}

func (m *Manager) recordOpen(ctx context.Context, result string) {
	if m.metrics == nil {
		return
	}
	m.metrics.SessionsOpened.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}
