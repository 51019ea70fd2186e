// Package http is the local HTTP control surface over the coordinator.
// Every route is a thin translation between JSON and coordinator calls;
// state and ordering live in the coordinator alone.
package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thehaigo/desktop/internal/domain/env"
	"github.com/thehaigo/desktop/internal/infrastructure/logging"
)

const version = "0.1.0"

// Handlers contains all HTTP handlers.
type Handlers struct {
	env    *env.Env
	logger *logging.Logger
}

// NewHandlers creates a new handler set.
func NewHandlers(environment *env.Env, logger *logging.Logger) *Handlers {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handlers{
		env:    environment,
		logger: logger,
	}
}

type valueRequest struct {
	Value any `json:"value"`
}

type publishRequest struct {
	Kind string   `json:"kind"`
	Args []string `json:"args"`
}

type callbackRequest struct {
	Target string `json:"target"`
	Event  string `json:"event"`
	ID     string `json:"id"`
}

// Root handles the service descriptor.
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "desktop-host",
		"status":  "online",
		"version": version,
	})
}

// Health reports liveness plus a coordinator snapshot.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "healthy",
		"coordinator": h.env.Stats(),
	})
}

// GetValue reads a key, falling back to the optional default query value.
func (h *Handlers) GetValue(c *gin.Context) {
	key := c.Param("key")

	var def any
	if raw, ok := c.GetQuery("default"); ok {
		def = raw
	}

	c.JSON(http.StatusOK, gin.H{
		"key":   key,
		"value": h.env.Get(key, def),
	})
}

// PutValue stores a key and returns the previous value.
func (h *Handlers) PutValue(c *gin.Context) {
	key := c.Param("key")

	var req valueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid value body"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key":      key,
		"previous": h.env.Put(key, req.Value),
	})
}

// PopValue removes a key and returns what was stored.
func (h *Handlers) PopValue(c *gin.Context) {
	key := c.Param("key")

	c.JSON(http.StatusOK, gin.H{
		"key":   key,
		"value": h.env.Pop(key, nil),
	})
}

// AwaitValue long-polls a key until some Put populates it. The wait is
// bounded by the request context only.
func (h *Handlers) AwaitValue(c *gin.Context) {
	key := c.Param("key")

	value, err := h.env.Await(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, env.ErrClosed) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "coordinator closed"})
			return
		}
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": "await interrupted"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"key":   key,
		"value": value,
	})
}

// PublishEvent ingests an OS lifecycle event. This is also the relay target
// for second launches forwarding their arguments.
func (h *Handlers) PublishEvent(c *gin.Context) {
	var req publishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event body"})
		return
	}

	kind := env.Kind(req.Kind)
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown event kind: " + req.Kind})
		return
	}

	ev := env.NewEvent(kind, req.Args...)
	h.env.Publish(ev)

	c.JSON(http.StatusAccepted, gin.H{
		"accepted": true,
		"id":       ev.ID,
	})
}

// ListWindows returns the registered window handles in registration order.
func (h *Handlers) ListWindows(c *gin.Context) {
	handles := h.env.Windows()

	windows := make([]gin.H, 0, len(handles))
	for _, w := range handles {
		windows = append(windows, gin.H{
			"id":    w.ID(),
			"label": w.Label(),
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"windows": windows,
		"count":   len(windows),
	})
}

// Reconnect cycles suspendable listeners after a platform transport change.
func (h *Handlers) Reconnect(c *gin.Context) {
	h.env.Reconnect()
	c.JSON(http.StatusAccepted, gin.H{"status": "cycling"})
}

// SideServiceStatus reports side service availability, probing on first use.
func (h *Handlers) SideServiceStatus(c *gin.Context) {
	_, available := h.env.SideService(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"available": available,
		"state":     h.env.Stats().SideService,
	})
}

// RegisterCallback forwards a callback registration to the GUI toolkit.
// Callback invocations surface through the KV store under "callback.<id>".
func (h *Handlers) RegisterCallback(c *gin.Context) {
	var req callbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid callback body"})
		return
	}
	if req.Target == "" || req.Event == "" || req.ID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "target, event, and id are required"})
		return
	}

	key := "callback." + req.ID
	result, err := h.env.ConnectCallback(req.Target, req.Event, func(args []string) {
		h.env.Put(key, args)
	}, req.ID)
	if err != nil {
		if errors.Is(err, env.ErrNoToolkit) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":     req.ID,
		"result": result,
		"key":    key,
	})
}
