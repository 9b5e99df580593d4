package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/agentdesk/llm"
	"github.com/smallnest/agentdesk/log"
	"github.com/smallnest/agentdesk/metrics"
	"github.com/smallnest/agentdesk/prebuilt"
)

const (
	msgMissingKey = "Please enter your OpenAI API key in the sidebar to continue."
	msgUpstream   = "Error processing request"
	msgCheckKey   = "Please check your API key and try again."
)

type turnRequest struct {
	Content    string `json:"content"`
	APIKey     string `json:"api_key"`
	CustomerID string `json:"customer_id"`
}

type createSessionRequest struct {
	System string `json:"system"`
}

// MessageView is a message with its rendered HTML.
type MessageView struct {
	prebuilt.Message
	HTML string `json:"html"`
}

func (s *Server) views(msgs []prebuilt.Message) []MessageView {
	out := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, MessageView{Message: m, HTML: s.renderer.HTML(m.Content)})
	}
	return out
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listSystems(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"systems": systemInfos})
}

func (s *Server) drawGraph(c *gin.Context) {
	conv, ok := s.systems[c.Param("system")]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown system"})
		return
	}
	ex := conv.exporter()
	switch c.DefaultQuery("format", "mermaid") {
	case "mermaid":
		c.String(http.StatusOK, ex.DrawMermaid())
	case "dot":
		c.String(http.StatusOK, ex.DrawDOT())
	case "ascii":
		c.String(http.StatusOK, ex.DrawASCII())
	case "json":
		c.JSON(http.StatusOK, ex.Info())
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "format must be mermaid, dot, ascii or json"})
	}
}

func (s *Server) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if _, ok := s.systems[req.System]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown system"})
		return
	}
	session := s.sessions.create(req.System)
	log.Debug("server: created session %s", session.ID)
	c.JSON(http.StatusCreated, session)
}

func (s *Server) listSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": s.sessions.list(c.Query("system"))})
}

// lookup resolves the session of the request or writes a 404.
func (s *Server) lookup(c *gin.Context) (*sessionEntry, conversation, bool) {
	id := c.Param("id")
	e := s.sessions.entry(id, func(system string) bool {
		conv, ok := s.systems[system]
		if !ok {
			return false
		}
		found, err := conv.exists(c.Request.Context(), id)
		if err != nil {
			log.Warn("server: checking session %s: %v", id, err)
		}
		return found
	})
	if e == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, nil, false
	}
	return e, s.systems[e.session.System], true
}

func (s *Server) getSession(c *gin.Context) {
	e, conv, ok := s.lookup(c)
	if !ok {
		return
	}
	msgs, err := conv.history(c.Request.Context(), e.session.ID)
	if err != nil {
		log.Error("server: loading session %s: %v", e.session.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load session"})
		return
	}
	session, _ := s.sessions.get(e.session.ID)
	c.JSON(http.StatusOK, gin.H{"session": session, "messages": s.views(msgs)})
}

func (s *Server) clearSession(c *gin.Context) {
	e, conv, ok := s.lookup(c)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := conv.clear(c.Request.Context(), e.session.ID); err != nil {
		log.Error("server: clearing session %s: %v", e.session.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to clear session"})
		return
	}
	s.sessions.reset(e.session.ID)
	c.Status(http.StatusNoContent)
}

func (s *Server) deleteSession(c *gin.Context) {
	e, conv, ok := s.lookup(c)
	if !ok {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := conv.clear(c.Request.Context(), e.session.ID); err != nil {
		log.Error("server: deleting session %s: %v", e.session.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete session"})
		return
	}
	s.sessions.remove(e.session.ID)
	c.Status(http.StatusNoContent)
}

// bindTurn parses a turn request and creates its model, writing the error
// response when that fails.
func (s *Server) bindTurn(c *gin.Context, system string) (turnRequest, llms.Model, bool) {
	var req turnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return req, nil, false
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content is required"})
		return req, nil, false
	}
	model, err := s.models(req.APIKey)
	if err != nil {
		if errors.Is(err, llm.ErrMissingAPIKey) {
			s.metrics.RecordTurn(system, metrics.OutcomeBadKey)
			c.JSON(http.StatusBadRequest, gin.H{"error": msgMissingKey})
			return req, nil, false
		}
		log.Error("server: creating model: %v", err)
		s.metrics.RecordTurn(system, metrics.OutcomeError)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return req, nil, false
	}
	return req, model, true
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case llm.IsUpstream(err):
		return metrics.OutcomeUpstream
	}
	return metrics.OutcomeError
}

func (s *Server) postMessage(c *gin.Context) {
	e, conv, ok := s.lookup(c)
	if !ok {
		return
	}
	system := e.session.System
	req, model, ok := s.bindTurn(c, system)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	done := s.metrics.TurnStarted(system)
	msgs, err := conv.turn(c.Request.Context(), model, e.session.ID, turnInput{Content: req.Content, CustomerID: req.CustomerID}, nil)
	done()
	s.metrics.RecordTurn(system, outcomeOf(err))
	s.sessions.touch(e.session.ID, 1)

	if err != nil {
		log.Error("server: turn on %s failed: %v", e.session.ID, err)
		status := http.StatusInternalServerError
		if llm.IsUpstream(err) || errors.Is(err, llm.ErrMissingAPIKey) {
			status = http.StatusBadGateway
		}
		c.JSON(status, gin.H{
			"error":    msgUpstream + ": " + err.Error(),
			"hint":     msgCheckKey,
			"messages": s.views(msgs),
		})
		return
	}
	session, _ := s.sessions.get(e.session.ID)
	c.JSON(http.StatusOK, gin.H{"session": session, "messages": s.views(msgs)})
}

func (s *Server) streamMessage(c *gin.Context) {
	e, conv, ok := s.lookup(c)
	if !ok {
		return
	}
	system := e.session.System
	req, model, ok := s.bindTurn(c, system)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	send := func(event string, data any) {
		c.SSEvent(event, data)
		c.Writer.Flush()
	}
	send("message", gin.H{"messages": s.views([]prebuilt.Message{prebuilt.UserMessage(req.Content)})})

	done := s.metrics.TurnStarted(system)
	_, err := conv.turn(c.Request.Context(), model, e.session.ID, turnInput{Content: req.Content, CustomerID: req.CustomerID}, func(u nodeUpdate) {
		send("node", u)
		if len(u.Messages) > 0 {
			send("message", gin.H{"messages": s.views(u.Messages)})
		}
	})
	done()
	s.metrics.RecordTurn(system, outcomeOf(err))
	s.sessions.touch(e.session.ID, 1)

	if err != nil {
		log.Error("server: streamed turn on %s failed: %v", e.session.ID, err)
		send("error", gin.H{"error": msgUpstream + ": " + err.Error(), "hint": msgCheckKey})
		return
	}
	session, _ := s.sessions.get(e.session.ID)
	send("done", gin.H{"session": session})
}
