package handler

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"acadtrack/internal/model"
	"acadtrack/internal/service/lock"
	"acadtrack/internal/store"
	"acadtrack/internal/store/storetest"
)

func TestLockVersionConflictRespondsConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)

	f := storetest.NewFake()
	projectID := f.AddProject(model.Project{Title: "Compilers"})
	mID := f.AddMilestone(model.Milestone{ProjectID: projectID, Title: "Parser"})
	f.Errs["SetNodeLock"] = store.ErrVersionConflict

	h := NewLockHandler(lock.NewEngine(f, zap.NewNop()), zap.NewNop())

	r := gin.New()
	r.POST("/milestones/:id/lock", func(c *gin.Context) { c.Set("user_id", 7) }, h.Lock(model.NodeMilestone))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/milestones/"+strconv.Itoa(mID)+"/lock", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.False(t, f.Milestones[mID].Locked)
}
