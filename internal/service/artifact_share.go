package service

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/xxxsen/tribute/internal/model"
	appErr "github.com/xxxsen/tribute/internal/pkg/errors"
	"github.com/xxxsen/tribute/internal/pkg/password"
)

type ShareInfo struct {
	DocumentID  string `json:"document_id"`
	IsPublic    bool   `json:"is_public"`
	Token       string `json:"token,omitempty"`
	HasPassword bool   `json:"has_password"`
}

type SharedDocument struct {
	Title   string        `json:"title"`
	DocType model.DocType `json:"doc_type"`
	Content string        `json:"content"`
	Mtime   int64         `json:"mtime"`
}

type ExportResult struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Share makes the document readable through a token link, keeping the
// token of an already shared document.
func (s *ArtifactService) Share(ctx context.Context, userID, docID, pass string) (*ShareInfo, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	doc, err := s.docs.GetByID(ctx, userID, docID)
	if err != nil {
		return nil, err
	}
	token := doc.ShareToken
	if token == "" {
		token = newToken()
	}
	hash := ""
	if pass != "" {
		if hash, err = password.Hash(pass); err != nil {
			return nil, err
		}
	}
	if err := s.docs.SetShare(ctx, userID, doc.ID, 1, token, hash, s.now()); err != nil {
		return nil, err
	}
	return &ShareInfo{DocumentID: doc.ID, IsPublic: true, Token: token, HasPassword: hash != ""}, nil
}

func (s *ArtifactService) Unshare(ctx context.Context, userID, docID string) error {
	if userID == "" {
		return appErr.ErrUnauthorized
	}
	return s.docs.SetShare(ctx, userID, docID, 0, "", "", s.now())
}

func (s *ArtifactService) GetShared(ctx context.Context, token, pass string) (*SharedDocument, error) {
	doc, err := s.docs.GetByShareToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if doc.SharePasswordHash != "" {
		if pass == "" || password.Compare(doc.SharePasswordHash, pass) != nil {
			return nil, appErr.ErrForbidden
		}
	}
	return &SharedDocument{Title: doc.Title, DocType: doc.DocType, Content: doc.Content, Mtime: doc.Mtime}, nil
}

// Export renders the document as a standalone HTML page and stores it.
func (s *ArtifactService) Export(ctx context.Context, userID, docID string) (*ExportResult, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	if s.files == nil {
		return nil, fmt.Errorf("file store not configured")
	}
	doc, err := s.docs.GetByID(ctx, userID, docID)
	if err != nil {
		return nil, err
	}
	page, err := renderHTML(doc)
	if err != nil {
		return nil, err
	}
	key := newToken() + ".html"
	if err := s.files.Save(ctx, key, bytes.NewReader(page), int64(len(page)), "text/html; charset=utf-8"); err != nil {
		return nil, fmt.Errorf("save export: %w", err)
	}
	return &ExportResult{Key: key, Size: int64(len(page))}, nil
}

func (s *ArtifactService) OpenExport(ctx context.Context, key string) (io.ReadCloser, error) {
	if s.files == nil {
		return nil, appErr.ErrNotFound
	}
	return s.files.Open(ctx, key)
}

func renderHTML(doc *model.Document) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(doc.Content), &body); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(doc.Title)
	if title == "" {
		title = defaultTitle
	}
	var out bytes.Buffer
	out.WriteString("<!DOCTYPE html>\n<html><head><meta charset=\"utf-8\"><title>")
	out.WriteString(html.EscapeString(title))
	out.WriteString("</title></head><body>\n")
	out.Write(body.Bytes())
	out.WriteString("</body></html>\n")
	return out.Bytes(), nil
}
