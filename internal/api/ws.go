package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/lox/blackjack/internal/game"
	"github.com/lox/blackjack/internal/session"
	"github.com/mitchellh/mapstructure"
	"github.com/shopspring/decimal"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096

	commandTimeout = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origins are policed by the CORS middleware for browsers
	CheckOrigin: func(r *http.Request) bool { return true },
}

// message is sent from server to client
type message struct {
	Type  string     `json:"type"`
	Data  *GameState `json:"data,omitempty"`
	Error string     `json:"error,omitempty"`
}

// command is sent from client to server
type command struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

type betPayload struct {
	Amount decimal.Decimal `mapstructure:"amount"`
}

func stateMessage(gs GameState) *message {
	return &message{Type: "state", Data: &gs}
}

func (s *Server) handleWebSocket(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}
	rec, err := s.manager.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	conn := newConn(ws, id, s, s.logger)
	s.hub.add(conn)
	conn.send(stateMessage(NewGameState(rec)))
	conn.start()
}

// apply runs a client command through the session manager
func (s *Server) apply(ctx context.Context, id string, cmd command) (*session.Record, error) {
	switch cmd.Type {
	case "bet":
		var p betPayload
		if err := decodePayload(cmd.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", errBadCommand, err)
		}
		return s.manager.PlaceBet(ctx, id, p.Amount)
	case "deal":
		return s.manager.Deal(ctx, id)
	case "newhand":
		return s.manager.NewHand(ctx, id)
	case "state":
		return s.manager.Get(ctx, id)
	}

	action, err := game.ParseAction(cmd.Type)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errBadCommand, err)
	}
	return s.manager.Act(ctx, id, action)
}

var errBadCommand = errors.New("bad command")

var decimalType = reflect.TypeOf(decimal.Decimal{})

// decimalHook lets payload numbers, numeric strings and json.Number decode
// into decimal.Decimal fields.
func decimalHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != decimalType {
		return data, nil
	}
	switch v := data.(type) {
	case json.Number:
		return decimal.NewFromString(v.String())
	case string:
		return decimal.NewFromString(v)
	case float64:
		return decimal.NewFromFloat(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case int64:
		return decimal.NewFromInt(v), nil
	default:
		return data, nil
	}
}

func decodePayload(payload map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       decimalHook,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(payload)
}

func decodeCommand(data []byte) (command, error) {
	var cmd command
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&cmd); err != nil {
		return command{}, err
	}
	return cmd, nil
}

// hub tracks the websocket connections watching each session
type hub struct {
	mu       sync.RWMutex
	watchers map[string]map[*conn]struct{}
	logger   *log.Logger
}

func newHub(logger *log.Logger) *hub {
	return &hub{
		watchers: make(map[string]map[*conn]struct{}),
		logger:   logger,
	}
}

func (h *hub) add(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.watchers[c.sessionID]
	if !ok {
		set = make(map[*conn]struct{})
		h.watchers[c.sessionID] = set
	}
	set[c] = struct{}{}
	h.logger.Debug("Watcher connected", "session", c.sessionID, "watchers", len(set))
}

func (h *hub) remove(c *conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.watchers[c.sessionID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.watchers, c.sessionID)
	}
}

func (h *hub) broadcast(sessionID string, msg *message) {
	for _, c := range h.snapshot(sessionID) {
		c.send(msg)
	}
}

// snapshot copies the watcher set so sends happen without the hub lock held
func (h *hub) snapshot(sessionID string) []*conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	conns := make([]*conn, 0, len(h.watchers[sessionID]))
	for c := range h.watchers[sessionID] {
		conns = append(conns, c)
	}
	return conns
}

func (h *hub) count(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[sessionID])
}

func (h *hub) closeSession(sessionID string) {
	for _, c := range h.snapshot(sessionID) {
		c.close()
	}
}

func (h *hub) closeAll() {
	h.mu.RLock()
	var conns []*conn
	for _, set := range h.watchers {
		for c := range set {
			conns = append(conns, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range conns {
		c.close()
	}
}

// conn is one websocket client watching a session
type conn struct {
	ws        *websocket.Conn
	sessionID string
	server    *Server
	out       chan *message
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once

	// mu orders sends; version is the newest state queued so far
	mu      sync.Mutex
	version int64
}

func newConn(ws *websocket.Conn, sessionID string, server *Server, logger *log.Logger) *conn {
	ctx, cancel := context.WithCancel(context.Background())
	return &conn{
		ws:        ws,
		sessionID: sessionID,
		server:    server,
		out:       make(chan *message, 64),
		logger:    logger.With("session", sessionID),
		ctx:       ctx,
		cancel:    cancel,
	}
}

func (c *conn) start() {
	go c.writePump()
	go c.readPump()
}

// send queues a message without blocking. A client too slow to drain its
// queue is disconnected. Broadcasts run after the session lock is released,
// so a state older than one already queued is dropped.
func (c *conn) send(msg *message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if msg.Data != nil {
		if msg.Data.Version < c.version {
			c.logger.Debug("Dropping stale state", "version", msg.Data.Version, "sent", c.version)
			return
		}
		c.version = msg.Data.Version
	}

	select {
	case <-c.ctx.Done():
	case c.out <- msg:
	default:
		c.logger.Warn("Send buffer full, closing connection")
		c.close()
	}
}

func (c *conn) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.server.hub.remove(c)
		_ = c.ws.Close()
	})
}

func (c *conn) readPump() {
	defer c.close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		c.handle(data)
	}
}

func (c *conn) handle(data []byte) {
	cmd, err := decodeCommand(data)
	if err != nil {
		c.send(&message{Type: "error", Error: "invalid message: " + err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.ctx, commandTimeout)
	defer cancel()

	rec, err := c.server.apply(ctx, c.sessionID, cmd)
	if err != nil {
		c.logger.Debug("Command rejected", "type", cmd.Type, "error", err)
		c.send(&message{Type: "error", Error: err.Error()})
		return
	}

	if cmd.Type == "state" {
		c.send(stateMessage(NewGameState(rec)))
		return
	}
	c.server.hub.broadcast(c.sessionID, stateMessage(NewGameState(rec)))
}

func (c *conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case msg := <-c.out:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteJSON(msg); err != nil {
				c.logger.Debug("Failed to write message", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.ctx.Done():
			_ = c.ws.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
