package httpserver

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"pushdispatch/internal/model"
	"pushdispatch/internal/repository"
	"pushdispatch/internal/scheduler"
	"pushdispatch/internal/service"
	"pushdispatch/pkg/logger"
)

type Producer interface {
	CreateNotification(ctx context.Context, in service.NotificationInput) (*model.Notification, error)
	GetNotification(ctx context.Context, id string) (*model.Notification, error)
	CreateReminder(ctx context.Context, in service.ReminderInput) (*model.Reminder, error)
	RegisterToken(ctx context.Context, userID, token string) error
}

type Jobs interface {
	RunPollOnce(ctx context.Context) (service.PollResult, error)
	RunSweepOnce(ctx context.Context) (service.SweepResult, error)
}

type OutboxReplayer interface {
	ReplayFailed(ctx context.Context, limit int) (int64, error)
}

type Handler struct {
	producer Producer
	jobs     Jobs
	outbox   OutboxReplayer
	logger   *zap.Logger
}

func NewHandler(producer Producer, jobs Jobs, outbox OutboxReplayer, logger *zap.Logger) *Handler {
	return &Handler{
		producer: producer,
		jobs:     jobs,
		outbox:   outbox,
		logger:   logger,
	}
}

// CreateNotification handles POST /api/v1/notifications
func (h *Handler) CreateNotification(c *gin.Context) {
	var req struct {
		Token string            `json:"fcm_token"`
		Title string            `json:"title"`
		Body  string            `json:"body"`
		Data  map[string]string `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	n, err := h.producer.CreateNotification(c.Request.Context(), service.NotificationInput{
		Token: req.Token,
		Title: req.Title,
		Body:  req.Body,
		Data:  req.Data,
	})
	if err != nil {
		h.writeError(c, "Failed to create notification", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": n.ID, "status": "queued"})
}

// GetNotification handles GET /api/v1/notifications/:id
func (h *Handler) GetNotification(c *gin.Context) {
	n, err := h.producer.GetNotification(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, "Failed to get notification", err)
		return
	}
	c.JSON(http.StatusOK, n)
}

// CreateReminder handles POST /api/v1/reminders
func (h *Handler) CreateReminder(c *gin.Context) {
	var req struct {
		UserID       string            `json:"user_id"`
		Title        string            `json:"title"`
		Body         string            `json:"body"`
		Data         map[string]string `json:"data"`
		ScheduledFor time.Time         `json:"scheduled_for"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	rem, err := h.producer.CreateReminder(c.Request.Context(), service.ReminderInput{
		UserID:       req.UserID,
		Title:        req.Title,
		Body:         req.Body,
		Data:         req.Data,
		ScheduledFor: req.ScheduledFor,
	})
	if err != nil {
		h.writeError(c, "Failed to create reminder", err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": rem.ID, "scheduled_for": rem.ScheduledFor})
}

// RegisterToken handles PUT /api/v1/users/:id/token
func (h *Handler) RegisterToken(c *gin.Context) {
	var req struct {
		Token string `json:"fcm_token"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	if err := h.producer.RegisterToken(c.Request.Context(), c.Param("id"), req.Token); err != nil {
		h.writeError(c, "Failed to register token", err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RunPoll handles POST /api/v1/admin/poll
func (h *Handler) RunPoll(c *gin.Context) {
	res, err := h.jobs.RunPollOnce(c.Request.Context())
	if err != nil {
		h.writeError(c, "Manual poll failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"processed": res.Processed,
		"sent":      res.Sent,
		"failed":    res.Failed,
		"skipped":   res.Skipped,
	})
}

// RunSweep handles POST /api/v1/admin/sweep
func (h *Handler) RunSweep(c *gin.Context) {
	res, err := h.jobs.RunSweepOnce(c.Request.Context())
	if err != nil {
		h.writeError(c, "Manual sweep failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"cutoff":        res.Cutoff,
		"deleted":       res.Deleted(),
		"notifications": res.Notifications,
		"reminders":     res.Reminders,
		"errors":        res.Errors,
	})
}

// ReplayOutbox handles POST /api/v1/admin/outbox/replay?limit=N
func (h *Handler) ReplayOutbox(c *gin.Context) {
	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}

	n, err := h.outbox.ReplayFailed(c.Request.Context(), limit)
	if err != nil {
		h.writeError(c, "Outbox replay failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"replayed": n})
}

func (h *Handler) writeError(c *gin.Context, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, scheduler.ErrJobRunning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.WithTrace(c.Request.Context(), h.logger).Error(msg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
