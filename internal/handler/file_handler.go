package handler

import (
	"context"
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	appErr "github.com/xxxsen/tribute/internal/pkg/errors"
)

type exportOpener interface {
	OpenExport(ctx context.Context, key string) (io.ReadCloser, error)
}

type FileHandler struct {
	files exportOpener
}

func NewFileHandler(files exportOpener) *FileHandler {
	return &FileHandler{files: files}
}

// Get streams a stored export. Keys are unguessable, so no auth is required.
func (h *FileHandler) Get(c *gin.Context) {
	key := c.Param("key")
	rc, err := h.files.OpenExport(c.Request.Context(), key)
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) || errors.Is(err, appErr.ErrInvalid) {
			c.Status(http.StatusNotFound)
			return
		}
		requestLogger(c).Error("open file failed", zap.String("key", key), zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer rc.Close()
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "private, max-age=3600")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		requestLogger(c).Warn("write file failed", zap.String("key", key), zap.Error(err))
	}
}
