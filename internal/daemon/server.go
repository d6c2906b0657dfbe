package daemon

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jcarver/attend/internal/assist"
	"github.com/jcarver/attend/internal/capture"
	"github.com/jcarver/attend/internal/db"
)

// Server accepts NDJSON commands over a Unix socket and streams events to
// subscribed connections. It is the control surface between the overlay
// client and the capture/orchestration core.
type Server struct {
	SocketPath string
	Orch       *assist.Orchestrator
	Screen     assist.ScreenSource
	Ring       *capture.Ring
	Store      *db.Store // optional; nil disables persistence
	SessionID  string
	Model      string
	Logger     *slog.Logger

	ln      net.Listener
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	subs    map[int]*subConn
	nextSub int
	seq     int
}

// subConn is a subscribed connection with serialized writes.
type subConn struct {
	conn net.Conn
	mu   sync.Mutex
}

func (s *subConn) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.conn.Write(data)
	return err
}

// Start listens on the Unix socket and begins accepting connections. A
// stale socket file from a previous run is removed first.
func (s *Server) Start() error {
	if s.Logger == nil {
		s.Logger = slog.Default()
	}
	if s.subs == nil {
		s.subs = make(map[int]*subConn)
	}

	if err := os.MkdirAll(filepath.Dir(s.SocketPath), 0o755); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	if err := os.Remove(s.SocketPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", s.SocketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.SocketPath, err)
	}
	s.ln = ln
	s.baseCtx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go s.acceptLoop()

	s.Logger.Info("daemon listening", "socket", s.SocketPath)
	return nil
}

// Stop closes the listener and all connections, then waits for handlers to
// finish, bounded by timeout. A stuck handler is abandoned, not joined
// forever.
func (s *Server) Stop(timeout time.Duration) {
	if s.cancel != nil {
		s.cancel()
	}
	if s.ln != nil {
		_ = s.ln.Close()
	}

	s.mu.Lock()
	for _, sub := range s.subs {
		_ = sub.conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(timeout):
		s.Logger.Warn("shutdown timed out; abandoning connection handlers")
	}

	_ = os.Remove(s.SocketPath)
}

func (s *Server) acceptLoop() {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return // listener closed
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()

	sub := &subConn{conn: conn}
	subscribed := false
	subID := 0

	defer func() {
		if subscribed {
			s.mu.Lock()
			delete(s.subs, subID)
			s.mu.Unlock()
		}
		_ = conn.Close()
	}()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	for scanner.Scan() {
		var cmd Command
		if err := json.Unmarshal(scanner.Bytes(), &cmd); err != nil {
			_ = sub.writeJSON(Response{OK: false, Error: "malformed command"})
			continue
		}

		resp := s.dispatch(cmd)
		if err := sub.writeJSON(resp); err != nil {
			return
		}

		// After a successful subscribe the connection becomes an event
		// stream; register it and stop reading commands from it.
		if cmd.Cmd == "subscribe" && resp.OK && !subscribed {
			subscribed = true
			s.mu.Lock()
			s.nextSub++
			subID = s.nextSub
			s.subs[subID] = sub
			s.mu.Unlock()
		}
	}
}

func (s *Server) dispatch(cmd Command) Response {
	switch cmd.Cmd {
	case "status":
		return Response{
			OK:         true,
			SessionID:  s.SessionID,
			Status:     "listening",
			Model:      s.Model,
			Processing: BoolPtr(s.Orch.Busy()),
			Fragments:  IntPtr(s.Ring.Len()),
		}

	case "context":
		return Response{
			OK:         true,
			SessionID:  s.SessionID,
			ScreenText: s.Screen.Context(s.baseCtx),
			AudioText:  s.Ring.Context(),
		}

	case "ask":
		if cmd.Text == "" {
			return Response{OK: false, Error: "empty question"}
		}
		if s.Orch.Busy() {
			return Response{OK: false, Error: "busy: a query is already in flight"}
		}
		s.wg.Add(1)
		go s.runQuery(cmd.Text)
		return Response{OK: true, SessionID: s.SessionID}

	case "subscribe":
		return Response{OK: true, SessionID: s.SessionID}

	default:
		return Response{OK: false, Error: fmt.Sprintf("unknown command %q", cmd.Cmd)}
	}
}

// runQuery executes one query off the accept path and broadcasts the
// outcome. The processing events bracket the query so every subscriber
// renders the in-flight state.
func (s *Server) runQuery(question string) {
	defer s.wg.Done()

	s.Broadcast(Event{Event: EventProcessing, Processing: BoolPtr(true)})
	defer s.Broadcast(Event{Event: EventProcessing, Processing: BoolPtr(false)})

	answer, err := s.Orch.HandleQuery(s.baseCtx, question)
	if err != nil {
		terminal := errors.Is(err, assist.ErrKeysExhausted)
		s.Broadcast(Event{
			Event:    EventError,
			Message:  err.Error(),
			Terminal: BoolPtr(terminal),
		})
		return
	}

	if s.Store != nil {
		if _, err := s.Store.RecordExchange(s.SessionID, question, answer, s.Model); err != nil {
			s.Logger.Warn("record exchange failed", "err", err)
		}
	}

	s.Broadcast(Event{Event: EventAnswer, Question: question, Text: answer})
}

// NotifyFragment persists and broadcasts a transcript fragment from the
// audio capture loop.
func (s *Server) NotifyFragment(f capture.Fragment) {
	s.mu.Lock()
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	if s.Store != nil {
		if _, err := s.Store.AppendFragment(s.SessionID, f.Text, f.ProducedAt, seq); err != nil {
			s.Logger.Warn("persist fragment failed", "err", err)
		}
	}

	s.Broadcast(Event{
		Event:          EventFragment,
		Text:           f.Text,
		SessionID:      s.SessionID,
		SequenceNumber: IntPtr(seq),
	})
}

// Broadcast sends an event to every subscribed connection, dropping
// connections whose writes fail.
func (s *Server) Broadcast(ev Event) {
	ev.SessionID = s.SessionID

	s.mu.Lock()
	targets := make(map[int]*subConn, len(s.subs))
	for id, sub := range s.subs {
		targets[id] = sub
	}
	s.mu.Unlock()

	for id, sub := range targets {
		if err := sub.writeJSON(ev); err != nil {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			_ = sub.conn.Close()
		}
	}
}
