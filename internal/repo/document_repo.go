package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/tribute/internal/model"
	"github.com/xxxsen/tribute/internal/pkg/dbutil"
	appErr "github.com/xxxsen/tribute/internal/pkg/errors"
)

const (
	DocumentStateNormal  = 1
	DocumentStateDeleted = 2
)

const documentTable = "artifact_documents"

var documentFields = []string{
	"id", "user_id", "entry_id", "doc_type", "title", "content",
	"is_public", "share_token", "share_password_hash", "state", "ctime", "mtime",
}

type DocumentRepo struct {
	db *sql.DB
}

func NewDocumentRepo(db *sql.DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

// Insert returns ErrConflict when a live document already occupies the
// (user, entry, doc type) slot.
func (r *DocumentRepo) Insert(ctx context.Context, doc *model.Document) error {
	data := map[string]interface{}{
		"id":                  doc.ID,
		"user_id":             doc.UserID,
		"entry_id":            doc.EntryID,
		"doc_type":            string(doc.DocType),
		"title":               doc.Title,
		"content":             doc.Content,
		"is_public":           doc.IsPublic,
		"share_token":         doc.ShareToken,
		"share_password_hash": doc.SharePasswordHash,
		"state":               doc.State,
		"ctime":               doc.Ctime,
		"mtime":               doc.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert(documentTable, []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	if _, err := r.db.ExecContext(ctx, sqlStr, args...); err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

func (r *DocumentRepo) Find(ctx context.Context, userID, entryID string, docType model.DocType) (*model.Document, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"entry_id": entryID,
		"doc_type": string(docType),
		"state":    DocumentStateNormal,
		"_limit":   []uint{0, 1},
	}
	return r.selectOne(ctx, where)
}

func (r *DocumentRepo) GetByID(ctx context.Context, userID, docID string) (*model.Document, error) {
	where := map[string]interface{}{
		"id":      docID,
		"user_id": userID,
		"state":   DocumentStateNormal,
	}
	return r.selectOne(ctx, where)
}

func (r *DocumentRepo) GetByShareToken(ctx context.Context, token string) (*model.Document, error) {
	if token == "" {
		return nil, appErr.ErrNotFound
	}
	where := map[string]interface{}{
		"share_token": token,
		"is_public":   1,
		"state":       DocumentStateNormal,
	}
	return r.selectOne(ctx, where)
}

func (r *DocumentRepo) ListByUser(ctx context.Context, userID string) ([]model.Document, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"state":    DocumentStateNormal,
		"_orderby": "mtime desc",
	}
	sqlStr, args, err := builder.BuildSelect(documentTable, where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	docs := make([]model.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

func (r *DocumentRepo) UpdateContent(ctx context.Context, docID, title, content string, mtime int64) error {
	where := map[string]interface{}{
		"id":    docID,
		"state": DocumentStateNormal,
	}
	update := map[string]interface{}{
		"title":   title,
		"content": content,
		"mtime":   mtime,
	}
	return r.exec(ctx, where, update)
}

func (r *DocumentRepo) SetShare(ctx context.Context, userID, docID string, isPublic int, token, passwordHash string, mtime int64) error {
	where := map[string]interface{}{
		"id":      docID,
		"user_id": userID,
		"state":   DocumentStateNormal,
	}
	update := map[string]interface{}{
		"is_public":           isPublic,
		"share_token":         token,
		"share_password_hash": passwordHash,
		"mtime":               mtime,
	}
	err := r.exec(ctx, where, update)
	if err != nil && dbutil.IsConflict(err) {
		return appErr.ErrConflict
	}
	return err
}

func (r *DocumentRepo) SoftDelete(ctx context.Context, userID, docID string, mtime int64) error {
	where := map[string]interface{}{
		"id":      docID,
		"user_id": userID,
		"state":   DocumentStateNormal,
	}
	update := map[string]interface{}{
		"state": DocumentStateDeleted,
		"mtime": mtime,
	}
	return r.exec(ctx, where, update)
}

// ClearSharesOfDeleted revokes share links still attached to soft-deleted documents.
func (r *DocumentRepo) ClearSharesOfDeleted(ctx context.Context, mtime int64) (int64, error) {
	const query = `
		UPDATE artifact_documents
		SET is_public = 0, share_token = '', share_password_hash = '', mtime = $1
		WHERE state = $2 AND share_token <> ''
	`
	res, err := r.db.ExecContext(ctx, query, mtime, DocumentStateDeleted)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *DocumentRepo) exec(ctx context.Context, where, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate(documentTable, where, update)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	result, err := r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return appErr.ErrNotFound
	}
	return nil
}

func (r *DocumentRepo) selectOne(ctx context.Context, where map[string]interface{}) (*model.Document, error) {
	sqlStr, args, err := builder.BuildSelect(documentTable, where, documentFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, appErr.ErrNotFound
	}
	return scanDocument(rows)
}

func scanDocument(rows *sql.Rows) (*model.Document, error) {
	var doc model.Document
	var docType string
	if err := rows.Scan(&doc.ID, &doc.UserID, &doc.EntryID, &docType, &doc.Title, &doc.Content,
		&doc.IsPublic, &doc.ShareToken, &doc.SharePasswordHash, &doc.State, &doc.Ctime, &doc.Mtime); err != nil {
		return nil, err
	}
	doc.DocType = model.DocType(docType)
	return &doc, nil
}
