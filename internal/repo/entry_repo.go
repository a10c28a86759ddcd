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
	EntryStateNormal  = 1
	EntryStateDeleted = 2
)

const entryTable = "entries"

var entryFields = []string{
	"id", "user_id", "name", "date_of_birth", "date_of_death",
	"place_of_birth", "place_of_death", "state", "ctime", "mtime",
}

type EntryRepo struct {
	db *sql.DB
}

func NewEntryRepo(db *sql.DB) *EntryRepo {
	return &EntryRepo{db: db}
}

func (r *EntryRepo) Create(ctx context.Context, entry *model.Entry) error {
	data := map[string]interface{}{
		"id":             entry.ID,
		"user_id":        entry.UserID,
		"name":           entry.Name,
		"date_of_birth":  entry.DateOfBirth,
		"date_of_death":  entry.DateOfDeath,
		"place_of_birth": entry.PlaceOfBirth,
		"place_of_death": entry.PlaceOfDeath,
		"state":          entry.State,
		"ctime":          entry.Ctime,
		"mtime":          entry.Mtime,
	}
	sqlStr, args, err := builder.BuildInsert(entryTable, []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *EntryRepo) GetByID(ctx context.Context, userID, entryID string) (*model.Entry, error) {
	where := map[string]interface{}{
		"id":      entryID,
		"user_id": userID,
		"state":   EntryStateNormal,
	}
	sqlStr, args, err := builder.BuildSelect(entryTable, where, entryFields)
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
	return scanEntry(rows)
}

func (r *EntryRepo) ListByUser(ctx context.Context, userID string) ([]model.Entry, error) {
	where := map[string]interface{}{
		"user_id":  userID,
		"state":    EntryStateNormal,
		"_orderby": "mtime desc",
	}
	sqlStr, args, err := builder.BuildSelect(entryTable, where, entryFields)
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *entry)
	}
	return items, rows.Err()
}

func (r *EntryRepo) Update(ctx context.Context, entry *model.Entry) error {
	where := map[string]interface{}{
		"id":      entry.ID,
		"user_id": entry.UserID,
		"state":   EntryStateNormal,
	}
	update := map[string]interface{}{
		"name":           entry.Name,
		"date_of_birth":  entry.DateOfBirth,
		"date_of_death":  entry.DateOfDeath,
		"place_of_birth": entry.PlaceOfBirth,
		"place_of_death": entry.PlaceOfDeath,
		"mtime":          entry.Mtime,
	}
	return r.exec(ctx, where, update)
}

func (r *EntryRepo) SoftDelete(ctx context.Context, userID, entryID string, mtime int64) error {
	where := map[string]interface{}{
		"id":      entryID,
		"user_id": userID,
		"state":   EntryStateNormal,
	}
	update := map[string]interface{}{
		"state": EntryStateDeleted,
		"mtime": mtime,
	}
	return r.exec(ctx, where, update)
}

func (r *EntryRepo) exec(ctx context.Context, where, update map[string]interface{}) error {
	sqlStr, args, err := builder.BuildUpdate(entryTable, where, update)
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

func scanEntry(rows *sql.Rows) (*model.Entry, error) {
	var entry model.Entry
	if err := rows.Scan(&entry.ID, &entry.UserID, &entry.Name, &entry.DateOfBirth, &entry.DateOfDeath,
		&entry.PlaceOfBirth, &entry.PlaceOfDeath, &entry.State, &entry.Ctime, &entry.Mtime); err != nil {
		return nil, err
	}
	return &entry, nil
}
