package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"acadtrack/internal/model"
	"acadtrack/internal/service/lock"
	"acadtrack/internal/store"
)

type ReportHandler struct {
	store  store.Store
	engine *lock.Engine
	logger *zap.Logger
}

func NewReportHandler(st store.Store, engine *lock.Engine, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{store: st, engine: engine, logger: logger}
}

type createReportRequest struct {
	ProjectID   int    `json:"project_id" binding:"required"`
	MilestoneID *int   `json:"milestone_id"`
	TaskID      *int   `json:"task_id"`
	Title       string `json:"title" binding:"required"`
	Content     string `json:"content"`
}

// Create submits a report. The author must be an active project member, and
// the closest attached ancestor must not be effectively locked.
func (h *ReportHandler) Create(c *gin.Context) {
	var req createReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	authorID := c.GetInt("user_id")

	active, err := h.store.IsActiveMember(ctx, req.ProjectID, authorID)
	if err != nil {
		respondLockError(c, err)
		return
	}
	role := c.GetString("role")
	if !active && role != model.RoleInstructor && role != model.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "not a project member"})
		return
	}

	parentType, parentID := model.NodeProject, req.ProjectID
	if req.MilestoneID != nil {
		parentType, parentID = model.NodeMilestone, *req.MilestoneID
	}
	if req.TaskID != nil {
		parentType, parentID = model.NodeTask, *req.TaskID
	}
	locked, err := h.engine.IsEffectivelyLocked(ctx, parentType, parentID)
	if err != nil {
		respondLockError(c, err)
		return
	}
	if locked {
		c.JSON(http.StatusConflict, gin.H{"error": "parent is locked"})
		return
	}

	rep := &model.Report{
		ProjectID:   req.ProjectID,
		MilestoneID: req.MilestoneID,
		TaskID:      req.TaskID,
		AuthorID:    authorID,
		Title:       req.Title,
		Content:     req.Content,
		Status:      model.ReportStatusSubmitted,
	}
	id, err := h.store.InsertReport(ctx, rep)
	if err != nil {
		respondLockError(c, err)
		return
	}

	h.logger.Info("Report submitted",
		zap.Int("report_id", id),
		zap.Int("project_id", req.ProjectID),
		zap.Int("author_id", authorID),
	)
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *ReportHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	rep, err := h.store.GetReport(c.Request.Context(), id)
	if err != nil {
		respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (h *ReportHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	locked, err := h.engine.IsEffectivelyLocked(ctx, model.NodeReport, id)
	if err != nil {
		respondLockError(c, err)
		return
	}
	if locked {
		c.JSON(http.StatusConflict, gin.H{"error": "report is locked"})
		return
	}

	if err := h.store.DeleteReport(ctx, id); err != nil {
		respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
