package ginserver

import (
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"warehub/internal/infra/storage/memory"
)

// MediaHandler serves uploads kept by the in-memory media store.
type MediaHandler struct {
	Store *memory.MediaStore
}

func (h MediaHandler) Serve(c *gin.Context) {
	file, ok := h.Store.Open(strings.TrimPrefix(c.Param("key"), "/"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "media not found"})
		return
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(file.Data)
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, contentType, file.Data)
}
