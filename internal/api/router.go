package api

import (
	"go-mask-pipeline/internal/api/handler"
	"go-mask-pipeline/pkg/router"
)

func RegisterRoutes(r *router.Router) {
	r.POST("/api/v1/runs", handler.CreateRun)
	r.GET("/api/v1/runs", handler.ListRuns)
	// More specific routes first
	r.GET("/api/v1/runs/*/errors", handler.GetRunErrors)
	r.GET("/api/v1/runs/*/metrics", handler.GetRunMetrics)
	r.GET("/api/v1/runs/*/logs", handler.GetRunLogs)
	r.GET("/api/v1/runs/*/progress", handler.GetRunProgress)
	r.POST("/api/v1/checkpoints/reset", handler.ResetCheckpoint)
	// Generic run route last
	r.GET("/api/v1/runs/*", handler.GetRun)
}
