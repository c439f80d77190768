package ingest

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"pushpipe/internal/channel"
	"pushpipe/internal/engine"
	"pushpipe/internal/payload"
	logx "pushpipe/pkg/logx"
)

type pushRequest struct {
	// From identifies the sending entity: the configured sender id or a
	// /topics/... source.
	From    string             `json:"from"`
	Payload payload.RawPayload `json:"payload" binding:"required"`

	// Foreground and Active let the hosting application report its current
	// lifecycle state alongside the event. Omitted means unchanged.
	Foreground *bool `json:"foreground,omitempty"`
	Active     *bool `json:"active,omitempty"`
}

type pushResponse struct {
	Disposition engine.Disposition `json:"disposition"`
	Descriptor  any                `json:"descriptor,omitempty"`
	BadgeReset  bool               `json:"badgeReset,omitempty"`
}

func (s *Server) handlePush(c *gin.Context) {
	var req pushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if s.state != nil {
		if req.Active != nil {
			s.state.SetActive(*req.Active)
		}
		if req.Foreground != nil {
			s.state.SetForeground(*req.Foreground)
		}
	}

	res, err := s.engine.Process(c.Request.Context(), req.From, req.Payload)
	switch {
	case errors.Is(err, engine.ErrEmptyPayload):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, engine.ErrUnknownSender):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.log.Error("push processing failed", logx.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "processing failed"})
		return
	}

	out := pushResponse{Disposition: res.Disposition, BadgeReset: res.BadgeReset}
	if res.Descriptor != nil {
		out.Descriptor = res.Descriptor
	}
	c.JSON(http.StatusOK, out)
}

// handleNotificationSeen serves both the dismissed and the opened callback:
// either way the notification left the tray, so its inbox stack resets.
func (s *Server) handleNotificationSeen(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}
	s.engine.ClearHistory(id)
	c.JSON(http.StatusOK, gin.H{"cleared": id})
}

func (s *Server) handleCreateChannel(c *gin.Context) {
	if s.channels == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "channel registry disabled"})
		return
	}
	var spec channel.Spec
	if err := c.ShouldBindJSON(&spec); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	ch, err := s.channels.CreateOrGet(c.Request.Context(), spec)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (s *Server) handleListChannels(c *gin.Context) {
	if s.channels == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "channel registry disabled"})
		return
	}
	sums, err := s.channels.List(c.Request.Context())
	if err != nil {
		s.log.Error("channel list failed", logx.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "channel list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": sums})
}

func (s *Server) handleGetChannel(c *gin.Context) {
	if s.channels == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "channel registry disabled"})
		return
	}
	ch, err := s.channels.Get(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, channel.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	case err != nil:
		s.log.Error("channel get failed", logx.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "channel get failed"})
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (s *Server) handleDeleteChannel(c *gin.Context) {
	if s.channels == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "channel registry disabled"})
		return
	}
	if err := s.channels.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.log.Error("channel delete failed", logx.Err(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "channel delete failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
