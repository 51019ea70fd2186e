package ws

import (
	"context"
	"errors"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/thehaigo/desktop/internal/domain/env"
	"github.com/thehaigo/desktop/internal/infrastructure/logging"
	"github.com/thehaigo/desktop/internal/infrastructure/monitoring"
	"github.com/thehaigo/desktop/internal/shared/id"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// The surface binds to loopback; origin policy is the embedder's.
		return true
	},
}

// Handler manages WebSocket connections to the coordinator.
type Handler struct {
	env     *env.Env
	logger  *logging.Logger
	metrics *monitoring.Metrics
}

// NewHandler creates a new WebSocket handler.
func NewHandler(environment *env.Env, logger *logging.Logger, metrics *monitoring.Metrics) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{
		env:     environment,
		logger:  logger,
		metrics: metrics,
	}
}

// Message is the client-to-server frame. Fields beyond Type are read per
// message type.
type Message struct {
	Type    string   `json:"type"`
	Title   string   `json:"title,omitempty"`
	Key     string   `json:"key,omitempty"`
	Value   any      `json:"value,omitempty"`
	Default any      `json:"default,omitempty"`
	Kind    string   `json:"kind,omitempty"`
	Args    []string `json:"args,omitempty"`
}

// session is one live connection. The read loop owns dispatch; all writes
// funnel through out into a single writer goroutine.
type session struct {
	h    *Handler
	conn *websocket.Conn
	id   id.RequestID

	ctx    context.Context
	cancel context.CancelFunc
	out    chan []byte

	subscribed bool
}

// HandleConnection upgrades the request and serves the connection until the
// socket closes. Closing cancels the connection context, which is the death
// signal for every handle registered on it.
func (h *Handler) HandleConnection(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	if h.metrics != nil {
		h.metrics.IncWSConnections()
		defer h.metrics.DecWSConnections()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &session{
		h:      h,
		conn:   conn,
		id:     id.NewRequestID(),
		ctx:    ctx,
		cancel: cancel,
		out:    make(chan []byte, 64),
	}
	defer func() {
		cancel()
		conn.Close()
	}()

	go s.writeLoop()

	h.logger.Debug("websocket connected", zap.String("conn", s.id.String()))
	s.send("system", gin.H{
		"message":    "connected to desktop host",
		"connection": s.id,
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			h.logger.Debug("websocket closed",
				zap.String("conn", s.id.String()),
				zap.Error(err))
			return
		}

		var msg Message
		if err := sonic.Unmarshal(data, &msg); err != nil {
			s.sendError("malformed message")
			continue
		}

		if h.metrics != nil {
			h.metrics.RecordWSMessage("in", msg.Type)
		}
		s.dispatch(msg)
	}
}

func (s *session) dispatch(msg Message) {
	switch msg.Type {
	case "register_window":
		handle := env.NewHandle(msg.Title, s.ctx.Done())
		s.h.env.RegisterWindow(handle)
		s.send("registered", gin.H{
			"window_id": handle.ID(),
			"title":     handle.Label(),
		})

	case "subscribe":
		if s.subscribed {
			s.sendError("already subscribed")
			return
		}
		handle := env.NewHandle("ws:"+s.id.String(), s.ctx.Done())
		ch, err := s.h.env.Subscribe(handle)
		if err != nil {
			s.sendError(err.Error())
			return
		}
		s.subscribed = true
		go s.pumpEvents(ch)
		s.send("subscribed", nil)

	case "publish":
		kind := env.Kind(msg.Kind)
		if !kind.Valid() {
			s.sendError("unknown event kind: " + msg.Kind)
			return
		}
		s.h.env.Publish(env.NewEvent(kind, msg.Args...))

	case "put":
		prev := s.h.env.Put(msg.Key, msg.Value)
		s.send("value", gin.H{"key": msg.Key, "value": prev})

	case "get":
		s.send("value", gin.H{
			"key":   msg.Key,
			"value": s.h.env.Get(msg.Key, msg.Default),
		})

	case "await":
		// Await can block indefinitely; keep the read loop responsive.
		go func(key string) {
			value, err := s.h.env.Await(s.ctx, key)
			if err != nil {
				if !errors.Is(err, context.Canceled) {
					s.sendError(err.Error())
				}
				return
			}
			s.send("value", gin.H{"key": key, "value": value})
		}(msg.Key)

	case "ping":
		s.send("pong", nil)

	default:
		s.sendError("unknown message type: " + msg.Type)
	}
}

// pumpEvents forwards the subscriber channel to the socket. The channel
// closes when this connection or the coordinator goes away.
func (s *session) pumpEvents(ch <-chan env.Event) {
	for ev := range ch {
		s.send("event", gin.H{"event": ev})
	}
}

func (s *session) send(msgType string, data gin.H) {
	frame := gin.H{"type": msgType}
	for k, v := range data {
		frame[k] = v
	}

	encoded, err := sonic.Marshal(frame)
	if err != nil {
		s.h.logger.Error("websocket encode failed",
			zap.String("type", msgType),
			zap.Error(err))
		return
	}

	select {
	case s.out <- encoded:
		if s.h.metrics != nil {
			s.h.metrics.RecordWSMessage("out", msgType)
		}
	case <-s.ctx.Done():
	}
}

func (s *session) sendError(message string) {
	s.send("error", gin.H{"message": message})
}

// writeLoop is the connection's only writer.
func (s *session) writeLoop() {
	for {
		select {
		case frame := <-s.out:
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.cancel()
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}
