package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"acadtrack/internal/model"
	"acadtrack/internal/service/lock"
	"acadtrack/internal/store"
)

type MilestoneHandler struct {
	store  store.Store
	engine *lock.Engine
	logger *zap.Logger
}

func NewMilestoneHandler(st store.Store, engine *lock.Engine, logger *zap.Logger) *MilestoneHandler {
	return &MilestoneHandler{store: st, engine: engine, logger: logger}
}

type createMilestoneRequest struct {
	ProjectID   int    `json:"project_id" binding:"required"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	OrderNumber int    `json:"order_number"`
}

func (h *MilestoneHandler) Create(c *gin.Context) {
	var req createMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	locked, err := h.engine.IsEffectivelyLocked(ctx, model.NodeProject, req.ProjectID)
	if err != nil {
		respondLockError(c, err)
		return
	}
	if locked {
		c.JSON(http.StatusConflict, gin.H{"error": "project is locked"})
		return
	}

	m := &model.Milestone{
		ProjectID:   req.ProjectID,
		Title:       req.Title,
		Description: req.Description,
		OrderNumber: req.OrderNumber,
		Status:      model.MilestoneStatusInProgress,
	}
	id, err := h.store.InsertMilestone(ctx, m)
	if err != nil {
		respondLockError(c, err)
		return
	}

	h.logger.Info("Milestone created",
		zap.Int("milestone_id", id),
		zap.Int("project_id", req.ProjectID),
	)
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *MilestoneHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	m, err := h.store.GetMilestone(c.Request.Context(), id)
	if err != nil {
		respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, m)
}

func (h *MilestoneHandler) ListByProject(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ms, err := h.store.MilestonesByProject(c.Request.Context(), id)
	if err != nil {
		respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"milestones": ms})
}

func (h *MilestoneHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	locked, err := h.engine.IsEffectivelyLocked(ctx, model.NodeMilestone, id)
	if err != nil {
		respondLockError(c, err)
		return
	}
	if locked {
		c.JSON(http.StatusConflict, gin.H{"error": "milestone is locked"})
		return
	}

	if err := h.store.DeleteMilestone(ctx, id); err != nil {
		respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Completion reports the stored aggregate for one milestone.
func (h *MilestoneHandler) Completion(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	m, err := h.store.GetMilestone(c.Request.Context(), id)
	if err != nil {
		respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"milestone_id":          m.ID,
		"completion_percentage": m.CompletionPercentage,
		"status":                m.Status,
	})
}
