package app

import (
	"github.com/osvaldoandrade/taskdeck/internal/controllers"
	"github.com/osvaldoandrade/taskdeck/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupMappings(app *Application) {
	app.Engine.GET("/healthz", controllers.NewHealthController(app.Store).Handle)
	app.Engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := app.Engine.Group("/api", middleware.AuthMiddleware(app.Validator, app.Config))
	{
		api.GET("/tasks", controllers.NewListTasksController(app.Catalog).Handle)
		api.GET("/tasks/:id", controllers.NewGetTaskController(app.Catalog).Handle)

		api.GET("/executions", controllers.NewListExecutionsController(app.Executions).Handle)
		api.POST("/executions", middleware.RateLimitCreateExecution(app.RateLimiter, app.Config), controllers.NewCreateExecutionController(app.Executions).Handle)
		api.GET("/executions/:id", controllers.NewGetExecutionController(app.Executions).Handle)
		api.GET("/executions/:id/arguments", controllers.NewGetArgumentsController(app.Executions).Handle)

		admin := api.Group("", middleware.RequireAdmin(), middleware.RateLimitAdmin(app.RateLimiter, app.Config))
		admin.POST("/tasks", controllers.NewRegisterTaskController(app.Catalog).Handle)
		admin.PUT("/executions/:id/result", controllers.NewCompleteExecutionController(app.Executions).Handle)
	}
}
