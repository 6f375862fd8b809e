package http

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nivethaug/clawd-backend/internal/chat"
	"github.com/nivethaug/clawd-backend/internal/sessions/domain"
	"github.com/nivethaug/clawd-backend/internal/sessions/repository"
)

// Handler serves the chat endpoints, proxying turns to the agent gateway
// and persisting both sides of the conversation.
type Handler struct {
	store   repository.Store
	gateway *chat.Gateway
}

func NewHandler(store repository.Store, gateway *chat.Gateway) *Handler {
	return &Handler{store: store, gateway: gateway}
}

type incomingMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatReq struct {
	SessionKey string        `json:"session_key"`
	Messages   []incomingMsg `json:"messages"`
	Stream     bool          `json:"stream"`
	Image      *string       `json:"image,omitempty"`
}

// lastUserContent pulls the newest user turn out of the request history.
func lastUserContent(msgs []incomingMsg) (string, bool) {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == "user" {
			return msgs[i].Content, true
		}
	}
	return "", false
}

func (h *Handler) resolveSession(c *gin.Context, req *chatReq) (*domain.Session, string, bool) {
	if strings.TrimSpace(req.SessionKey) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "missing session_key"})
		return nil, "", false
	}

	sess, err := h.store.GetByKey(c.Request.Context(), req.SessionKey)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "session not found"})
			return nil, "", false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return nil, "", false
	}

	content, ok := lastUserContent(req.Messages)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "no user message provided"})
		return nil, "", false
	}
	return sess, content, true
}

func (h *Handler) chat(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	if req.Stream {
		h.streamChat(c, &req)
		return
	}

	sess, content, ok := h.resolveSession(c, &req)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.store.AddMessage(ctx, sess.ID, "user", content, nil); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	answer, err := h.gateway.Complete(ctx, sess.SessionKey, content)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": err.Error()})
		return
	}

	m, err := h.store.AddMessage(ctx, sess.ID, "assistant", answer, req.Image)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if err := h.store.Touch(ctx, sess.ID); err != nil {
		log.Printf("[warn] session touch failed session_id=%d err=%v", sess.ID, err)
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "message": m})
}

func (h *Handler) chatStream(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	h.streamChat(c, &req)
}

func (h *Handler) streamChat(c *gin.Context, req *chatReq) {
	sess, content, ok := h.resolveSession(c, req)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := h.store.AddMessage(ctx, sess.ID, "user", content, nil); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	upstream, err := h.gateway.OpenStream(ctx, sess.SessionKey, content)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"ok": false, "error": err.Error()})
		return
	}
	defer upstream.Body.Close()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Access-Control-Allow-Origin", "*")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "streaming unsupported"})
		return
	}

	var full strings.Builder
	sc := bufio.NewScanner(upstream.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 2*1024*1024)

	lastFrame := time.Now()
	for sc.Scan() {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			if time.Since(lastFrame) > 15*time.Second {
				fmt.Fprint(c.Writer, ": keep-alive\n\n")
				flusher.Flush()
				lastFrame = time.Now()
			}
			continue
		}
		data := strings.TrimSpace(line[6:])
		if data == "[DONE]" {
			break
		}

		var ch chat.StreamChunk
		if json.Unmarshal([]byte(data), &ch) != nil || len(ch.Choices) == 0 {
			continue
		}
		delta := ch.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		full.WriteString(delta)

		frame, _ := json.Marshal(gin.H{"choices": []gin.H{{"delta": gin.H{"content": delta}}}})
		fmt.Fprintf(c.Writer, "data: %s\n\n", frame)
		flusher.Flush()
		lastFrame = time.Now()
	}

	if full.Len() > 0 {
		if _, err := h.store.AddMessage(ctx, sess.ID, "assistant", full.String(), nil); err != nil {
			log.Printf("[error] assistant message save failed session_id=%d err=%v", sess.ID, err)
		}
		if err := h.store.Touch(ctx, sess.ID); err != nil {
			log.Printf("[warn] session touch failed session_id=%d err=%v", sess.ID, err)
		}
	}

	fmt.Fprint(c.Writer, "data: [DONE]\n\n")
	flusher.Flush()
}
