package api

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed static/index.html
var indexHTML []byte

func RegisterRoutes(r *gin.Engine, h *Handler) {
	api := r.Group("/api")
	{
		api.GET("/health", health)
		api.POST("/sessions", h.createSession)

		s := api.Group("/sessions/:session")
		s.Use(h.requireSession)
		{
			s.GET("", h.getState)
			s.DELETE("", h.deleteSession)

			s.POST("/images", h.uploadImages)
			s.POST("/images/url", h.addImageFromURL)
			s.POST("/images/qr", h.addQRImage)
			s.DELETE("/images/:index", h.removeImage)
			s.PUT("/images/:index/position", h.setPosition)
			s.PUT("/images/:index/size", h.setSize)

			// overlay events address items by id
			s.POST("/items/:item/resize", h.resizeImage)
			s.POST("/items/:item/hover", h.hoverImage)
			s.POST("/items/:item/remove", h.removeViaOverlay)
			s.POST("/items/:item/dragstart", h.dragStart)
			s.POST("/items/:item/dragover", h.dragOver)
			s.POST("/dragend", h.dragEnd)

			s.POST("/pointer", h.pointer)

			s.GET("/canvas.png", h.canvasPNG)
			s.GET("/export", h.exportPNG)
			s.GET("/layout", h.exportLayout)
		}
	}

	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
	})
}
