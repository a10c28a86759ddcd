package handler

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/xxxsen/tribute/internal/model"
	"github.com/xxxsen/tribute/internal/pkg/errcode"
	appErr "github.com/xxxsen/tribute/internal/pkg/errors"
	"github.com/xxxsen/tribute/internal/pkg/response"
	"github.com/xxxsen/tribute/internal/service"
	"github.com/xxxsen/tribute/internal/stream"
)

// ArtifactAPI is implemented by service.ArtifactService.
type ArtifactAPI interface {
	Update(ctx context.Context, in service.UpdateInput) (*service.UpdateResult, error)
	PrepareStreamUpdate(ctx context.Context, in service.UpdateInput) (stream.ProduceFunc, error)
	PrepareRun(ctx context.Context, in service.RunInput) (stream.ProduceFunc, error)
	Get(ctx context.Context, t service.Target) (*service.ArtifactView, error)
	Share(ctx context.Context, userID, docID, pass string) (*service.ShareInfo, error)
	Unshare(ctx context.Context, userID, docID string) error
	GetShared(ctx context.Context, token, pass string) (*service.SharedDocument, error)
	Export(ctx context.Context, userID, docID string) (*service.ExportResult, error)
	OpenExport(ctx context.Context, key string) (io.ReadCloser, error)
	ListSuggestions(ctx context.Context, userID, docID string) ([]model.Suggestion, error)
	List(ctx context.Context, userID string) ([]model.Document, error)
	Delete(ctx context.Context, userID, docID string) error
}

type ArtifactHandler struct {
	artifacts ArtifactAPI
}

func NewArtifactHandler(artifacts ArtifactAPI) *ArtifactHandler {
	return &ArtifactHandler{artifacts: artifacts}
}

type updateRequest struct {
	Prompt   string              `json:"prompt"`
	Document string              `json:"document"`
	History  []model.ChatMessage `json:"history"`
	EntryID  *string             `json:"entry_id"`
	DocType  string              `json:"doc_type"`
}

func (r updateRequest) input(userID string) service.UpdateInput {
	return service.UpdateInput{
		Target:   target(userID, r.EntryID, r.DocType),
		Prompt:   r.Prompt,
		Document: r.Document,
		History:  r.History,
	}
}

type runRequest struct {
	Mode        string  `json:"mode"`
	Title       string  `json:"title"`
	Context     string  `json:"context"`
	Description string  `json:"description"`
	EntryID     *string `json:"entry_id"`
	DocType     string  `json:"doc_type"`
}

type shareRequest struct {
	Password string `json:"password"`
}

type exportResponse struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
	URL  string `json:"url"`
}

func target(userID string, entryID *string, docType string) service.Target {
	t := service.Target{UserID: userID, DocType: model.DocType(strings.TrimSpace(docType))}
	if entryID != nil {
		t.EntryID = *entryID
	}
	return t
}

// Message is the plain, non-streaming update.
func (h *ArtifactHandler) Message(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}
	res, err := h.artifacts.Update(c.Request.Context(), req.input(getUserID(c)))
	if err != nil {
		handleAIError(c, err)
		return
	}
	response.Success(c, res)
}

// Stream streams snapshots of the structured {message, document} object.
func (h *ArtifactHandler) Stream(c *gin.Context) {
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}
	produce, err := h.artifacts.PrepareStreamUpdate(c.Request.Context(), req.input(getUserID(c)))
	if err != nil {
		handleError(c, err)
		return
	}
	serveStream(c, produce)
}

// UI streams text deltas for the create, update and suggestions modes.
func (h *ArtifactHandler) UI(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidRequest(c)
		return
	}
	produce, err := h.artifacts.PrepareRun(c.Request.Context(), service.RunInput{
		Target:      target(getUserID(c), req.EntryID, req.DocType),
		Mode:        service.Mode(strings.TrimSpace(req.Mode)),
		Title:       req.Title,
		Context:     req.Context,
		Description: req.Description,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	serveStream(c, produce)
}

func (h *ArtifactHandler) Get(c *gin.Context) {
	var entryID *string
	if v, ok := c.GetQuery("entry_id"); ok {
		entryID = &v
	}
	view, err := h.artifacts.Get(c.Request.Context(), target(getUserID(c), entryID, c.Query("doc_type")))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, view)
}

func (h *ArtifactHandler) List(c *gin.Context) {
	docs, err := h.artifacts.List(c.Request.Context(), getUserID(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": docs})
}

func (h *ArtifactHandler) Delete(c *gin.Context) {
	if err := h.artifacts.Delete(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *ArtifactHandler) Share(c *gin.Context) {
	var req shareRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			invalidRequest(c)
			return
		}
	}
	info, err := h.artifacts.Share(c.Request.Context(), getUserID(c), c.Param("id"), req.Password)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, info)
}

func (h *ArtifactHandler) Unshare(c *gin.Context) {
	if err := h.artifacts.Unshare(c.Request.Context(), getUserID(c), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"ok": true})
}

func (h *ArtifactHandler) Export(c *gin.Context) {
	res, err := h.artifacts.Export(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, appErr.ErrNotFound) || errors.Is(err, appErr.ErrUnauthorized) {
			handleError(c, err)
			return
		}
		response.Error(c, errcode.ErrExportFailed, "export failed")
		return
	}
	response.Success(c, exportResponse{Key: res.Key, Size: res.Size, URL: "/api/v1/files/" + res.Key})
}

func (h *ArtifactHandler) Suggestions(c *gin.Context) {
	items, err := h.artifacts.ListSuggestions(c.Request.Context(), getUserID(c), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"items": items})
}

func serveStream(c *gin.Context, produce stream.ProduceFunc) {
	sink := stream.NewSSEWriter(c.Writer)
	stream.Run(c.Request.Context(), sink, produce, service.StreamErrorText)
}

// handleAIError keeps the validation classes and reports everything else
// as a failed generation.
func handleAIError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, appErr.ErrUnauthorized),
		errors.Is(err, appErr.ErrInvalid),
		errors.Is(err, appErr.ErrNotFound),
		errors.Is(err, service.ErrAIUnavailable):
		handleError(c, err)
	default:
		requestLogger(c).Error("ai update failed", zap.Error(err))
		response.Error(c, errcode.ErrAIFailed, service.StreamErrorText(err))
	}
}
