package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"acadtrack/internal/model"
	"acadtrack/internal/service/lock"
	"acadtrack/internal/store"
)

// ProjectHandler covers project CRUD, membership management and the
// completion read endpoint. Lock transitions live in LockHandler.
type ProjectHandler struct {
	store  store.Store
	engine *lock.Engine
	logger *zap.Logger
}

func NewProjectHandler(st store.Store, engine *lock.Engine, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{store: st, engine: engine, logger: logger}
}

type createProjectRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Objectives  string `json:"objectives"`
	Scope       string `json:"scope"`
}

func (h *ProjectHandler) Create(c *gin.Context) {
	var req createProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p := &model.Project{
		Title:       req.Title,
		Description: req.Description,
		Objectives:  req.Objectives,
		Scope:       req.Scope,
		Status:      model.ProjectStatusActive,
	}
	id, err := h.store.InsertProject(c.Request.Context(), p)
	if err != nil {
		h.logger.Error("Failed to create project", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	h.logger.Info("Project created", zap.Int("project_id", id))
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (h *ProjectHandler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.store.GetProject(c.Request.Context(), id)
	if err != nil {
		respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *ProjectHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	locked, err := h.engine.IsEffectivelyLocked(ctx, model.NodeProject, id)
	if err != nil {
		respondLockError(c, err)
		return
	}
	if locked {
		c.JSON(http.StatusConflict, gin.H{"error": "project is locked"})
		return
	}

	if err := h.store.DeleteProject(ctx, id); err != nil {
		respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

type updateObjectivesRequest struct {
	Objectives string `json:"objectives"`
	Scope      string `json:"scope"`
}

// UpdateObjectives edits the objectives/scope text. It is refused while the
// objectives lock or any effective lock is in place.
func (h *ProjectHandler) UpdateObjectives(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req updateObjectivesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	p, err := h.store.GetProject(ctx, id)
	if err != nil {
		respondLockError(c, err)
		return
	}
	if p.ObjectivesLocked {
		c.JSON(http.StatusConflict, gin.H{"error": "objectives are locked"})
		return
	}
	if p.Locked {
		c.JSON(http.StatusConflict, gin.H{"error": "project is locked"})
		return
	}

	if err := h.store.UpdateProjectObjectives(ctx, id, req.Objectives, req.Scope); err != nil {
		respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Completion reports the stored completion percentage and status.
func (h *ProjectHandler) Completion(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.store.GetProject(c.Request.Context(), id)
	if err != nil {
		respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"project_id":            p.ID,
		"completion_percentage": p.CompletionPercentage,
		"status":                p.Status,
	})
}

type addMemberRequest struct {
	UserID int    `json:"user_id" binding:"required"`
	Role   string `json:"role" binding:"required"`
}

func (h *ProjectHandler) AddMember(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req addMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role != model.RoleStudent && req.Role != model.RoleInstructor {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid role"})
		return
	}

	ctx := c.Request.Context()
	if _, err := h.store.GetProject(ctx, id); err != nil {
		respondLockError(c, err)
		return
	}
	m := &model.Membership{ProjectID: id, UserID: req.UserID, Role: req.Role, Active: true}
	if err := h.store.AddMember(ctx, m); err != nil {
		h.logger.Error("Failed to add member",
			zap.Int("project_id", id),
			zap.Int("user_id", req.UserID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"status": "added"})
}

func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	userID, ok := pathParamInt(c, "user_id")
	if !ok {
		return
	}
	if err := h.store.DeactivateMember(c.Request.Context(), id, userID); err != nil {
		respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (h *ProjectHandler) ListMembers(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	members, err := h.store.MembersByProject(c.Request.Context(), id)
	if err != nil {
		respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"members": members})
}
