package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"acadtrack/internal/model"
	"acadtrack/internal/service/lock"
	"acadtrack/internal/store"
)

// LockHandler exposes the lock engine: cascade locks, single-node unlocks,
// effective-lock queries and the objectives lock.
type LockHandler struct {
	engine *lock.Engine
	logger *zap.Logger
}

func NewLockHandler(engine *lock.Engine, logger *zap.Logger) *LockHandler {
	return &LockHandler{engine: engine, logger: logger}
}

// Lock returns a handler locking a node of the given type with cascade.
func (h *LockHandler) Lock(nodeType model.NodeType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		actorID := c.GetInt("user_id")

		if err := h.engine.LockWithCascade(c.Request.Context(), nodeType, id, actorID); err != nil {
			respondLockError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "locked"})
	}
}

// Unlock returns a handler unlocking exactly one node; descendants keep their
// own lock state.
func (h *LockHandler) Unlock(nodeType model.NodeType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}

		if err := h.engine.Unlock(c.Request.Context(), nodeType, id); err != nil {
			respondLockError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "unlocked"})
	}
}

// EffectiveLock answers GET /nodes/:type/:id/effective-lock.
func (h *LockHandler) EffectiveLock(c *gin.Context) {
	nodeType, ok := model.ParseNodeType(c.Param("type"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid node type"})
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	locked, err := h.engine.IsEffectivelyLocked(c.Request.Context(), nodeType, id)
	if err != nil {
		respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"effectively_locked": locked})
}

func (h *LockHandler) LockObjectives(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.engine.LockObjectives(c.Request.Context(), id); err != nil {
		respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "objectives_locked"})
}

func (h *LockHandler) UnlockObjectives(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.engine.UnlockObjectives(c.Request.Context(), id); err != nil {
		respondLockError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "objectives_unlocked"})
}

func pathID(c *gin.Context) (int, bool) {
	return pathParamInt(c, "id")
}

func pathParamInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

func respondLockError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, store.ErrVersionConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "conflicting update, retry"})
	case errors.Is(err, lock.ErrLocked):
		c.JSON(http.StatusConflict, gin.H{"error": "node is locked"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
