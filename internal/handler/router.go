package handler

import (
	"github.com/gin-gonic/gin"
)

func SetupRouter(h *Handler, ginMode string) *gin.Engine {
	if ginMode != "" {
		gin.SetMode(ginMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(AccessLog())
	r.Use(CORS())

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)

		api.GET("/documents", h.ListDocuments)
		api.POST("/documents", h.Upload)
		api.POST("/process-documents", h.ProcessDocuments)

		api.POST("/ask", h.Ask)
	}

	return r
}
