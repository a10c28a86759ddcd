package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/tribute/internal/model"
	appErr "github.com/xxxsen/tribute/internal/pkg/errors"
	"github.com/xxxsen/tribute/internal/pkg/timeutil"
	"github.com/xxxsen/tribute/internal/repo"
)

type EntryInput struct {
	Name         string `json:"name"`
	DateOfBirth  string `json:"date_of_birth"`
	DateOfDeath  string `json:"date_of_death"`
	PlaceOfBirth string `json:"place_of_birth"`
	PlaceOfDeath string `json:"place_of_death"`
}

func (in EntryInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("name is required: %w", appErr.ErrInvalid)
	}
	return nil
}

type EntryService struct {
	entries EntryStore
}

func NewEntryService(entries EntryStore) *EntryService {
	return &EntryService{entries: entries}
}

func (s *EntryService) Create(ctx context.Context, userID string, in EntryInput) (*model.Entry, error) {
	if userID == "" {
		return nil, appErr.ErrUnauthorized
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	now := timeutil.NowUnix()
	entry := &model.Entry{
		ID:           newID(),
		UserID:       userID,
		Name:         strings.TrimSpace(in.Name),
		DateOfBirth:  in.DateOfBirth,
		DateOfDeath:  in.DateOfDeath,
		PlaceOfBirth: in.PlaceOfBirth,
		PlaceOfDeath: in.PlaceOfDeath,
		State:        repo.EntryStateNormal,
		Ctime:        now,
		Mtime:        now,
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *EntryService) Get(ctx context.Context, userID, entryID string) (*model.Entry, error) {
	if !isUUID(entryID) {
		return nil, appErr.ErrNotFound
	}
	return s.entries.GetByID(ctx, userID, entryID)
}

func (s *EntryService) List(ctx context.Context, userID string) ([]model.Entry, error) {
	return s.entries.ListByUser(ctx, userID)
}

func (s *EntryService) Update(ctx context.Context, userID, entryID string, in EntryInput) (*model.Entry, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	entry, err := s.Get(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	entry.Name = strings.TrimSpace(in.Name)
	entry.DateOfBirth = in.DateOfBirth
	entry.DateOfDeath = in.DateOfDeath
	entry.PlaceOfBirth = in.PlaceOfBirth
	entry.PlaceOfDeath = in.PlaceOfDeath
	entry.Mtime = timeutil.NowUnix()
	if err := s.entries.Update(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *EntryService) Delete(ctx context.Context, userID, entryID string) error {
	if !isUUID(entryID) {
		return appErr.ErrNotFound
	}
	return s.entries.SoftDelete(ctx, userID, entryID, timeutil.NowUnix())
}
