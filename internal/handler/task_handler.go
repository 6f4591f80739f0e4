package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"acadtrack/internal/model"
	"acadtrack/internal/service/completion"
	"acadtrack/internal/service/lock"
	"acadtrack/internal/store"
)

type TaskHandler struct {
	store      store.Store
	engine     *lock.Engine
	aggregator *completion.Aggregator
	logger     *zap.Logger
}

func NewTaskHandler(st store.Store, engine *lock.Engine, aggregator *completion.Aggregator, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		store:      st,
		engine:     engine,
		aggregator: aggregator,
		logger:     logger,
	}
}

type createTaskRequest struct {
	ProjectID   int    `json:"project_id" binding:"required"`
	MilestoneID *int   `json:"milestone_id"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

func (h *TaskHandler) Create(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()

	// a locked parent refuses new children
	parentType, parentID := model.NodeProject, req.ProjectID
	if req.MilestoneID != nil {
		parentType, parentID = model.NodeMilestone, *req.MilestoneID
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

	task := &model.Task{
		ProjectID:   req.ProjectID,
		MilestoneID: req.MilestoneID,
		Title:       req.Title,
		Description: req.Description,
	}
	var id int
	err = h.store.RunInTx(ctx, func(tx store.Store) error {
		if _, err := tx.GetProject(ctx, task.ProjectID); err != nil {
			return err
		}
		if task.MilestoneID != nil {
			if _, err := tx.GetMilestone(ctx, *task.MilestoneID); err != nil {
				return err
			}
		}
		var insertErr error
		id, insertErr = tx.InsertTask(ctx, task)
		return insertErr
	})
	if err != nil {
		respondLockError(c, err)
		return
	}
	task.ID = id

	if err := h.aggregator.RecomputeForTask(ctx, task); err != nil {
		h.logger.Error("Recompute after task create failed",
			zap.Int("task_id", id),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusCreated, gin.H{"id": id})
}

type updateTaskStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateStatus changes a task's status and re-runs the completion aggregates
// for its milestone and project. Lock and status are independent data, but a
// locked task refuses edits.
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req updateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !model.ValidTaskStatus(req.Status) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid status"})
		return
	}

	ctx := c.Request.Context()

	locked, err := h.engine.IsEffectivelyLocked(ctx, model.NodeTask, id)
	if err != nil {
		respondLockError(c, err)
		return
	}
	if locked {
		c.JSON(http.StatusConflict, gin.H{"error": "task is locked"})
		return
	}

	var task *model.Task
	err = h.store.RunInTx(ctx, func(tx store.Store) error {
		t, err := tx.GetTask(ctx, id)
		if err != nil {
			return err
		}
		task = t
		return tx.UpdateTaskStatus(ctx, t.ID, t.Version, req.Status)
	})
	if err != nil {
		respondLockError(c, err)
		return
	}

	if err := h.aggregator.RecomputeForTask(ctx, task); err != nil {
		h.logger.Error("Recompute after status change failed",
			zap.Int("task_id", id),
			zap.Error(err),
		)
	}

	h.logger.Info("Task status updated",
		zap.Int("task_id", id),
		zap.String("status", req.Status),
	)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Delete removes an unlocked task and re-aggregates its parents. Deleting an
// effectively locked node is rejected.
func (h *TaskHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()

	locked, err := h.engine.IsEffectivelyLocked(ctx, model.NodeTask, id)
	if err != nil {
		respondLockError(c, err)
		return
	}
	if locked {
		c.JSON(http.StatusConflict, gin.H{"error": "task is locked"})
		return
	}

	var task *model.Task
	err = h.store.RunInTx(ctx, func(tx store.Store) error {
		t, err := tx.GetTask(ctx, id)
		if err != nil {
			return err
		}
		task = t
		return tx.DeleteTask(ctx, id)
	})
	if err != nil {
		respondLockError(c, err)
		return
	}

	if err := h.aggregator.RecomputeForTask(ctx, task); err != nil {
		h.logger.Error("Recompute after task delete failed",
			zap.Int("task_id", id),
			zap.Error(err),
		)
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
