package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// LogEntry is one log record forwarded from the embedded webview.
type LogEntry struct {
	Level   string         `json:"level"`
	Message string         `json:"message"`
	Context map[string]any `json:"context"`
}

type logStreamRequest struct {
	Source  string     `json:"source"`
	Entries []LogEntry `json:"entries"`
}

// StreamLogs ingests webview console logs into the host logger, so one
// stream carries both sides of the application.
func (h *Handlers) StreamLogs(c *gin.Context) {
	var req logStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid log batch"})
		return
	}
	if req.Source != "webview" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown log source: " + req.Source})
		return
	}
	if len(req.Entries) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no log entries"})
		return
	}

	for _, entry := range req.Entries {
		h.writeEntry(entry)
	}

	c.JSON(http.StatusOK, gin.H{"received": len(req.Entries)})
}

func (h *Handlers) writeEntry(entry LogEntry) {
	fields := make([]zap.Field, 0, len(entry.Context)+1)
	fields = append(fields, zap.String("source", "webview"))

	for key, value := range entry.Context {
		switch v := value.(type) {
		case string:
			fields = append(fields, zap.String(key, v))
		case float64:
			fields = append(fields, zap.Float64(key, v))
		case bool:
			fields = append(fields, zap.Bool(key, v))
		default:
			fields = append(fields, zap.Any(key, v))
		}
	}

	switch entry.Level {
	case "error":
		h.logger.Error(entry.Message, fields...)
	case "warn":
		h.logger.Warn(entry.Message, fields...)
	case "debug", "verbose":
		h.logger.Debug(entry.Message, fields...)
	default:
		h.logger.Info(entry.Message, fields...)
	}
}
