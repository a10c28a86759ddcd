package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/tribute/internal/pkg/response"
	"github.com/xxxsen/tribute/internal/service"
)

const headerSharePassword = "X-Share-Password"

type sharedReader interface {
	GetShared(ctx context.Context, token, pass string) (*service.SharedDocument, error)
}

type ShareHandler struct {
	shares sharedReader
}

func NewShareHandler(shares sharedReader) *ShareHandler {
	return &ShareHandler{shares: shares}
}

// PublicGet serves a shared document without authentication. A protected
// share takes its password from the header or the "password" query.
func (h *ShareHandler) PublicGet(c *gin.Context) {
	pass := c.GetHeader(headerSharePassword)
	if pass == "" {
		pass = c.Query("password")
	}
	doc, err := h.shares.GetShared(c.Request.Context(), c.Param("token"), pass)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, doc)
}
