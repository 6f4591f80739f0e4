package httpserver

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"acadtrack/internal/handler"
	"acadtrack/internal/model"
	"acadtrack/pkg/metrics"
	"acadtrack/pkg/rbac"
	"acadtrack/pkg/trace"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Locks         *handler.LockHandler
	Projects      *handler.ProjectHandler
	Milestones    *handler.MilestoneHandler
	Tasks         *handler.TaskHandler
	Reports       *handler.ReportHandler
	Users         *handler.UserHandler
	Notifications *handler.NotificationHandler
}

func NewRouter(h Handlers, jwtSecret string, logger *zap.Logger, db *pgxpool.Pool) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// propagate or mint a trace id before anything logs
	r.Use(func(c *gin.Context) {
		traceID := c.GetHeader(trace.HeaderName())
		if traceID == "" {
			traceID = trace.GenerateTraceID()
		}
		ctx := trace.WithContext(c.Request.Context(), traceID)
		c.Request = c.Request.WithContext(ctx)
		c.Header(trace.HeaderName(), traceID)
		c.Next()
	})

	r.Use(func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		latency := time.Since(start)
		metrics.RecordHTTPRequestDuration(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), latency)
		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("trace_id", trace.FromContext(c.Request.Context())),
		)
	})

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(200)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c, 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(500, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		c.JSON(200, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/auth/register", h.Users.Register)
	r.POST("/auth/login", h.Users.Login)

	api := r.Group("/api/v1")
	api.Use(AuthMiddleware(jwtSecret))

	// lock state machine
	lockRoutes := []struct {
		base     string
		nodeType model.NodeType
	}{
		{"/projects", model.NodeProject},
		{"/milestones", model.NodeMilestone},
		{"/tasks", model.NodeTask},
		{"/reports", model.NodeReport},
	}
	for _, lr := range lockRoutes {
		api.POST(lr.base+"/:id/lock", RequirePermission(rbac.PermissionLockNode), h.Locks.Lock(lr.nodeType))
		api.POST(lr.base+"/:id/unlock", RequirePermission(rbac.PermissionUnlockNode), h.Locks.Unlock(lr.nodeType))
	}
	api.GET("/nodes/:type/:id/effective-lock", RequirePermission(rbac.PermissionReadNode), h.Locks.EffectiveLock)
	api.POST("/projects/:id/objectives/lock", RequirePermission(rbac.PermissionLockNode), h.Locks.LockObjectives)
	api.POST("/projects/:id/objectives/unlock", RequirePermission(rbac.PermissionUnlockNode), h.Locks.UnlockObjectives)

	// projects
	api.POST("/projects", RequirePermission(rbac.PermissionCreateProject), h.Projects.Create)
	api.GET("/projects/:id", RequirePermission(rbac.PermissionReadNode), h.Projects.Get)
	api.DELETE("/projects/:id", RequirePermission(rbac.PermissionDeleteNode), h.Projects.Delete)
	api.PUT("/projects/:id/objectives", RequirePermission(rbac.PermissionCreateProject), h.Projects.UpdateObjectives)
	api.GET("/projects/:id/completion", RequirePermission(rbac.PermissionReadNode), h.Projects.Completion)
	api.POST("/projects/:id/members", RequirePermission(rbac.PermissionCreateProject), h.Projects.AddMember)
	api.DELETE("/projects/:id/members/:user_id", RequirePermission(rbac.PermissionCreateProject), h.Projects.RemoveMember)
	api.GET("/projects/:id/members", RequirePermission(rbac.PermissionReadNode), h.Projects.ListMembers)
	api.GET("/projects/:id/milestones", RequirePermission(rbac.PermissionReadNode), h.Milestones.ListByProject)

	// milestones
	api.POST("/milestones", RequirePermission(rbac.PermissionCreateMilestone), h.Milestones.Create)
	api.GET("/milestones/:id", RequirePermission(rbac.PermissionReadNode), h.Milestones.Get)
	api.DELETE("/milestones/:id", RequirePermission(rbac.PermissionDeleteNode), h.Milestones.Delete)
	api.GET("/milestones/:id/completion", RequirePermission(rbac.PermissionReadNode), h.Milestones.Completion)

	// tasks
	api.POST("/tasks", RequirePermission(rbac.PermissionCreateTask), h.Tasks.Create)
	api.PATCH("/tasks/:id/status", RequirePermission(rbac.PermissionUpdateTask), h.Tasks.UpdateStatus)
	api.DELETE("/tasks/:id", RequirePermission(rbac.PermissionDeleteNode), h.Tasks.Delete)

	// reports
	api.POST("/reports", RequirePermission(rbac.PermissionCreateReport), h.Reports.Create)
	api.GET("/reports/:id", RequirePermission(rbac.PermissionReadNode), h.Reports.Get)
	api.DELETE("/reports/:id", RequirePermission(rbac.PermissionDeleteNode), h.Reports.Delete)

	// notifications
	api.GET("/notifications", h.Notifications.List)
	api.POST("/notifications/:id/read", h.Notifications.MarkRead)

	return r
}
