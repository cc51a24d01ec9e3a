package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/covalent-team/covalent/internal/config"
	"github.com/covalent-team/covalent/internal/middleware"
	"github.com/covalent-team/covalent/internal/modules/handler"
	"github.com/covalent-team/covalent/internal/modules/serializer"
)

type RouterDeps struct {
	Config           *config.Config
	DB               *gorm.DB
	Log              *zap.Logger
	ProjectHandler   *handler.ProjectHandler
	MemberHandler    *handler.MemberHandler
	ThreadHandler    *handler.ThreadHandler
	FileHandler      *handler.FileHandler
	AssistantHandler *handler.AssistantHandler
	ActivityHandler  *handler.ActivityHandler
	RoleHandler      *handler.RoleHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if d.Config.Telemetry.Enabled && d.Config.Telemetry.OtlpEndpoint != "" {
		r.Use(middleware.OtelTracing(d.Config.App.Name))
		// Add trace ID to response header
		r.Use(middleware.TraceID())
	}

	r.Use(middleware.ZapLogger(d.Log))

	// health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, serializer.Response{Msg: "ok"}) })

	v1 := r.Group("/api/v1")
	{
		v1.Use(middleware.UserAuth(d.Config, d.DB))

		// ping endpoint
		v1.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, serializer.Response{Msg: "pong"}) })

		projects := v1.Group("/projects")
		{
			projects.POST("", d.ProjectHandler.CreateProject)
			projects.GET("", d.ProjectHandler.GetProjects)
			projects.GET("/:id", d.ProjectHandler.GetProject)
			projects.PUT("/:id", d.ProjectHandler.UpdateProject)
			projects.DELETE("/:id", d.ProjectHandler.DeleteProject)

			projects.POST("/:id/ai-setup", d.AssistantHandler.SetupAI)
			projects.POST("/:id/ai-verify", d.AssistantHandler.VerifyAI)
			projects.PUT("/:id/assistant", d.AssistantHandler.UpdateProjectAssistant)

			projects.POST("/:id/members", d.MemberHandler.AddMember)
			projects.GET("/:id/members", d.MemberHandler.GetMembers)
			projects.PUT("/:id/members/:userId", d.MemberHandler.UpdateMember)
			projects.DELETE("/:id/members/:userId", d.MemberHandler.RemoveMember)

			projects.POST("/:id/threads", d.ThreadHandler.CreateThread)
			projects.GET("/:id/threads", d.ThreadHandler.GetThreads)

			projects.POST("/:id/files/upload", d.FileHandler.UploadFiles)
			projects.GET("/:id/files", d.FileHandler.GetFiles)
			projects.DELETE("/:id/files", d.FileHandler.DeleteFile)

			projects.GET("/:id/activity", d.ActivityHandler.GetActivity)
		}

		threads := v1.Group("/threads")
		{
			threads.PUT("/:id", d.ThreadHandler.RenameThread)
			threads.DELETE("/:id", d.ThreadHandler.DeleteThread)
			threads.GET("/:id/messages", d.ThreadHandler.GetMessages)
			threads.POST("/:id/messages", d.ThreadHandler.SendMessage)
			threads.GET("/:id/runs/:runId", d.ThreadHandler.GetRun)
		}

		assistants := v1.Group("/assistants")
		{
			assistants.PUT("/:id", d.AssistantHandler.UpdateAssistant)
		}

		admin := v1.Group("/admin")
		{
			admin.GET("/roles", d.RoleHandler.GetRoles)
			admin.POST("/users/:id/roles", d.RoleHandler.AssignRole)
			admin.DELETE("/users/:id/roles/:role", d.RoleHandler.RevokeRole)
		}
	}

	return r
}
