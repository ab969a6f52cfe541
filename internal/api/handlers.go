package api

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"medichat/internal/classifier"
	"medichat/internal/history"
	"medichat/internal/models"
	"medichat/internal/stream"
)

// Answerer produces the RAG token stream for a query plus prior turns.
type Answerer interface {
	Stream(ctx context.Context, query string, history []models.Turn) <-chan stream.Event
}

// Handler wires the two HTTP routes to the classifier, the answerer and the
// session history store.
type Handler struct {
	answerer  Answerer
	history   *history.Store
	maxTurns  int
	typeDelay time.Duration
}

// NewHandler constructs a Handler instance.
func NewHandler(answerer Answerer, historyStore *history.Store, maxTurns int, typeDelay time.Duration) *Handler {
	return &Handler{
		answerer:  answerer,
		history:   historyStore,
		maxTurns:  maxTurns,
		typeDelay: typeDelay,
	}
}

// RegisterRoutes attaches all HTTP routes to the router.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.index)
	router.POST("/get", h.chat)
}

// index serves the chat page with a fresh session id. Loading the page wipes
// every session, which is the intended single-user-demo behavior.
func (h *Handler) index(c *gin.Context) {
	h.history.ClearAll()
	c.HTML(http.StatusOK, "index.html", gin.H{
		"SessionID": uuid.NewString(),
	})
}

// chat handles one message and streams the reply as Server-Sent-Events.
func (h *Handler) chat(c *gin.Context) {
	msg := strings.TrimSpace(c.PostForm("msg"))
	sessionID := strings.TrimSpace(c.PostForm("session_id"))
	if msg == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "msg is required"})
		return
	}
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id is required"})
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
		return
	}

	prior := h.history.Get(sessionID)
	needsRetrieval, reason := classifier.Classify(msg)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	ctx := c.Request.Context()
	var events <-chan stream.Event
	if needsRetrieval {
		log.Printf("[retrieval stream] reason: %s | query: %s", reason, truncate(msg, 50))
		events = h.answerer.Stream(ctx, msg, prior)
	} else {
		log.Printf("[no retrieval stream] reason: %s | query: %s", reason, truncate(msg, 50))
		events = stream.FromText(ctx, classifier.SimpleResponse(msg), h.typeDelay)
	}

	fullAnswer, err := stream.WriteSSE(c.Writer, flusher, events)
	if err != nil {
		// Covers producer failures (error frame already sent) and client
		// disconnects alike: the turn is not recorded.
		log.Printf("stream for session %s failed: %v", sessionID, err)
		return
	}

	h.history.AppendAndTrim(sessionID, []models.Turn{
		{Role: models.RoleUser, Content: msg},
		{Role: models.RoleAssistant, Content: fullAnswer},
	}, h.maxTurns)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
