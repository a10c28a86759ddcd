package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/tribute/internal/model"
	"github.com/xxxsen/tribute/internal/pkg/dbutil"
)

const messageTable = "artifact_messages"

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// Append inserts the messages in one statement; seq preserves their order.
func (r *MessageRepo) Append(ctx context.Context, docID string, msgs []model.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	data := make([]map[string]interface{}, 0, len(msgs))
	for _, msg := range msgs {
		data = append(data, map[string]interface{}{
			"id":          msg.ID,
			"document_id": docID,
			"role":        string(msg.Role),
			"content":     msg.Content,
			"ctime":       msg.Ctime,
		})
	}
	sqlStr, args, err := builder.BuildInsert(messageTable, data)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *MessageRepo) ListByDocument(ctx context.Context, docID string) ([]model.Message, error) {
	where := map[string]interface{}{
		"document_id": docID,
		"_orderby":    "seq asc",
	}
	sqlStr, args, err := builder.BuildSelect(messageTable, where, []string{"id", "document_id", "role", "content", "seq", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Message, 0)
	for rows.Next() {
		var msg model.Message
		var role string
		if err := rows.Scan(&msg.ID, &msg.DocumentID, &role, &msg.Content, &msg.Seq, &msg.Ctime); err != nil {
			return nil, err
		}
		msg.Role = model.Role(role)
		items = append(items, msg)
	}
	return items, rows.Err()
}
