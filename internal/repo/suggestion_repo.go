package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/tribute/internal/model"
	"github.com/xxxsen/tribute/internal/pkg/dbutil"
)

const suggestionTable = "suggestions"

type SuggestionRepo struct {
	db *sql.DB
}

func NewSuggestionRepo(db *sql.DB) *SuggestionRepo {
	return &SuggestionRepo{db: db}
}

func (r *SuggestionRepo) SaveBatch(ctx context.Context, items []model.Suggestion) error {
	if len(items) == 0 {
		return nil
	}
	data := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		data = append(data, map[string]interface{}{
			"id":             item.ID,
			"document_id":    item.DocumentID,
			"document_ctime": item.DocumentCtime,
			"user_id":        item.UserID,
			"original_text":  item.OriginalText,
			"suggested_text": item.SuggestedText,
			"description":    item.Description,
			"is_resolved":    item.IsResolved,
			"ctime":          item.Ctime,
		})
	}
	sqlStr, args, err := builder.BuildInsert(suggestionTable, data)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *SuggestionRepo) ListByDocument(ctx context.Context, userID, docID string) ([]model.Suggestion, error) {
	where := map[string]interface{}{
		"user_id":     userID,
		"document_id": docID,
		"_orderby":    "ctime asc",
	}
	fields := []string{"id", "document_id", "document_ctime", "user_id", "original_text", "suggested_text", "description", "is_resolved", "ctime"}
	sqlStr, args, err := builder.BuildSelect(suggestionTable, where, fields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Suggestion, 0)
	for rows.Next() {
		var item model.Suggestion
		if err := rows.Scan(&item.ID, &item.DocumentID, &item.DocumentCtime, &item.UserID, &item.OriginalText,
			&item.SuggestedText, &item.Description, &item.IsResolved, &item.Ctime); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
