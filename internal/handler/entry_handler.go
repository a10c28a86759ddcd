package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/tribute/internal/model"
	"github.com/xxxsen/tribute/internal/pkg/response"
	"github.com/xxxsen/tribute/internal/service"
)

type EntryAPI interface {
	Create(ctx context.Context, userID string, in service.EntryInput) (*model.Entry, error)
	Get(ctx context.Context, userID, entryID string) (*model.Entry, error)
	List(ctx context.Context, userID string) ([]model.Entry, error)
	Update(ctx context.Context, userID, entryID string, in service.EntryInput) (*model.Entry, error)
	Delete(ctx context.Context, userID, entryID string) error
}

type EntryHandler struct {
	entries EntryAPI
}

func NewEntryHandler(entries EntryAPI) *EntryHandler {
	return &EntryHandler{entries: entries}
}

func (h *EntryHandler) Create(c *gin.Context) {
	var req service.EntryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}
	entry, err := h.entries.Create(c.Request.Context(), getUserID(c), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, entry)
}

func (h *EntryHandler) List(c *gin.Context) {
	items, err := h.entries.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}

func (h *EntryHandler) Get(c *gin.Context) {
	entry, err := h.entries.Get(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, entry)
}

func (h *EntryHandler) Update(c *gin.Context) {
	var req service.EntryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}
	entry, err := h.entries.Update(c.Request.Context(), getUserID(c), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, entry)
}

func (h *EntryHandler) Delete(c *gin.Context) {
	if err := h.entries.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}
