package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/tribute/internal/ai"
	"github.com/xxxsen/tribute/internal/config"
	"github.com/xxxsen/tribute/internal/filestore"
	"github.com/xxxsen/tribute/internal/model"
	appErr "github.com/xxxsen/tribute/internal/pkg/errors"
	"github.com/xxxsen/tribute/internal/repo"
	"github.com/xxxsen/tribute/internal/stream"
)

const testEntryID = "9b2f6f8e-0d4c-4b7a-9a55-3f1a2b3c4d5e"

type fixture struct {
	docs        *memDocs
	msgs        *memMsgs
	suggestions *memSuggestions
	entries     *memEntries
	gateway     *fakeGateway
	svc         *ArtifactService
}

func newFixture(t *testing.T) *fixture {
	f := &fixture{
		docs:        newMemDocs(),
		msgs:        &memMsgs{},
		suggestions: &memSuggestions{},
		entries:     newMemEntries(),
		gateway:     newFakeGateway(),
	}
	files, err := filestore.New(config.FileStoreConfig{Type: "local", Data: map[string]interface{}{"dir": t.TempDir()}})
	require.NoError(t, err)
	f.svc = NewArtifactService(f.docs, f.msgs, f.suggestions, f.entries, f.gateway, files, ArtifactConfig{MaxInputChars: 200})
	return f
}

func (f *fixture) seedDoc(content string) model.Document {
	doc := model.Document{
		ID:      newID(),
		UserID:  "u1",
		DocType: model.DocTypeObituary,
		Title:   "Document",
		Content: content,
		State:   repo.DocumentStateNormal,
		Ctime:   1,
		Mtime:   1,
	}
	f.docs.put(doc)
	return doc
}

func runRecorded(t *testing.T, produce stream.ProduceFunc) *stream.Recorder {
	rec := stream.NewRecorder()
	stream.Run(context.Background(), rec, produce, StreamErrorText)
	return rec
}

func lastEvent(rec *stream.Recorder) stream.Event {
	events := rec.Events()
	return events[len(events)-1]
}

func TestUpdateCreatesDocumentWhenSlotIsEmpty(t *testing.T) {
	f := newFixture(t)
	f.gateway.object = &ai.ObjectResult{Message: "Here is a short bio.", Document: "Jane Doe (1950-2020) lived a full life."}

	res, err := f.svc.Update(context.Background(), UpdateInput{
		Target: Target{UserID: "u1"},
		Prompt: "Write a short bio for Jane Doe, born 1950 died 2020",
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.Document)

	docs := f.docs.live()
	require.Len(t, docs, 1)
	require.Equal(t, res.Document, docs[0].Content)
	require.Equal(t, model.DocTypeObituary, docs[0].DocType)

	msgs, err := f.msgs.ListByDocument(context.Background(), docs[0].ID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, model.RoleUser, msgs[0].Role)
	require.Equal(t, model.RoleAssistant, msgs[1].Role)
}

func TestUpdateKeepsPriorDocumentOnEmptyResult(t *testing.T) {
	f := newFixture(t)
	f.seedDoc("Jane Doe was born in 1950.")
	f.gateway.object = &ai.ObjectResult{Message: "Nothing to change.", Document: "  "}

	res, err := f.svc.Update(context.Background(), UpdateInput{Target: Target{UserID: "u1"}, Prompt: "Looks fine?"})
	require.NoError(t, err)
	require.Equal(t, "Jane Doe was born in 1950.", res.Document)
	require.Equal(t, "Jane Doe was born in 1950.", *f.gateway.lastCurrent)
}

func TestUpdateEmptyResultOnEmptySlotStoresNothing(t *testing.T) {
	f := newFixture(t)
	f.gateway.object = &ai.ObjectResult{Message: "ok", Document: ""}

	res, err := f.svc.Update(context.Background(), UpdateInput{Target: Target{UserID: "u1"}, Prompt: "Write about Jane"})
	require.ErrorIs(t, err, errEmptyResponse)
	require.Nil(t, res)
	require.Empty(t, f.docs.live())
	require.Empty(t, f.msgs.rows)
}

func TestStreamUpdateEmptyResultOnEmptySlotFails(t *testing.T) {
	f := newFixture(t)
	f.gateway.object = &ai.ObjectResult{Message: "ok", Document: " "}

	produce, err := f.svc.PrepareStreamUpdate(context.Background(), UpdateInput{Target: Target{UserID: "u1"}, Prompt: "Write about Jane"})
	require.NoError(t, err)
	rec := runRecorded(t, produce)

	last := lastEvent(rec)
	require.Equal(t, stream.KindError, last.Kind)
	require.Equal(t, "empty ai response", last.Error)
	require.Empty(t, f.docs.live())
	require.Empty(t, f.msgs.rows)
}

func TestUpdateIsCachedByInput(t *testing.T) {
	f := newFixture(t)
	f.gateway.object = &ai.ObjectResult{Message: "m", Document: "d"}
	in := UpdateInput{Target: Target{UserID: "u1"}, Prompt: "p", Document: "x"}

	_, err := f.svc.Update(context.Background(), in)
	require.NoError(t, err)
	_, err = f.svc.Update(context.Background(), in)
	require.NoError(t, err)
	require.Equal(t, 1, f.gateway.called())
}

func TestUpdateValidation(t *testing.T) {
	f := newFixture(t)
	f.gateway.object = &ai.ObjectResult{Message: "m", Document: "d"}

	tests := []struct {
		name string
		in   UpdateInput
		want error
	}{
		{name: "no user", in: UpdateInput{Prompt: "p"}, want: appErr.ErrUnauthorized},
		{name: "empty prompt", in: UpdateInput{Target: Target{UserID: "u1"}, Prompt: "  "}, want: appErr.ErrInvalid},
		{name: "prompt too long", in: UpdateInput{Target: Target{UserID: "u1"}, Prompt: strings.Repeat("a", 201)}, want: appErr.ErrInvalid},
		{name: "bad role", in: UpdateInput{Target: Target{UserID: "u1"}, Prompt: "p", History: []model.ChatMessage{{Role: "system", Content: "x"}}}, want: appErr.ErrInvalid},
		{name: "bad entry id", in: UpdateInput{Target: Target{UserID: "u1", EntryID: "nope"}, Prompt: "p"}, want: appErr.ErrInvalid},
		{name: "bad doc type", in: UpdateInput{Target: Target{UserID: "u1", DocType: "letter"}, Prompt: "p"}, want: appErr.ErrInvalid},
		{name: "foreign entry", in: UpdateInput{Target: Target{UserID: "u1", EntryID: testEntryID}, Prompt: "p"}, want: appErr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Update(context.Background(), tt.in)
			require.ErrorIs(t, err, tt.want)
		})
	}
	require.Zero(t, f.gateway.called())
}

func TestStreamUpdatePreservesOriginalAndAddsDetail(t *testing.T) {
	f := newFixture(t)
	original := "Jane Doe was born in 1950."
	seeded := f.seedDoc(original)
	f.gateway.chunks = []string{original, " She loved", " gardening."}
	f.gateway.object = &ai.ObjectResult{Message: "Added gardening.", Document: original + " She loved gardening."}

	produce, err := f.svc.PrepareStreamUpdate(context.Background(), UpdateInput{
		Target: Target{UserID: "u1"},
		Prompt: "Add that she loved gardening",
	})
	require.NoError(t, err)
	rec := runRecorded(t, produce)

	require.Equal(t, []stream.Kind{stream.KindStart, stream.KindSnapshot, stream.KindSnapshot, stream.KindSnapshot, stream.KindDone}, rec.Kinds())
	done := lastEvent(rec)
	require.Contains(t, done.Result.Document, original)
	require.Contains(t, done.Result.Document, "gardening")

	stored, err := f.docs.GetByID(context.Background(), "u1", seeded.ID)
	require.NoError(t, err)
	require.Equal(t, done.Result.Document, stored.Content)
}

func TestStreamGatewayFailureLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t)
	seeded := f.seedDoc("Jane Doe was born in 1950.")
	f.gateway.chunks = []string{"Jane ", "Doe ", "was"}
	f.gateway.failAt = 2
	f.gateway.err = errors.New("upstream reset")

	produce, err := f.svc.PrepareRun(context.Background(), RunInput{
		Target:      Target{UserID: "u1"},
		Mode:        ModeUpdate,
		Description: "Rewrite it",
	})
	require.NoError(t, err)
	rec := runRecorded(t, produce)

	last := lastEvent(rec)
	require.Equal(t, stream.KindError, last.Kind)
	require.Equal(t, "stream failed", last.Error)

	stored, err := f.docs.GetByID(context.Background(), "u1", seeded.ID)
	require.NoError(t, err)
	require.Equal(t, "Jane Doe was born in 1950.", stored.Content)
	require.Empty(t, f.msgs.rows)
}

func TestRunUpdateWithoutDocumentFallsBackToCreate(t *testing.T) {
	f := newFixture(t)
	f.gateway.chunks = []string{"Jane Doe ", "passed away."}

	produce, err := f.svc.PrepareRun(context.Background(), RunInput{
		Target:      Target{UserID: "u1", DocType: model.DocTypeEulogy},
		Mode:        ModeUpdate,
		Description: "Jane Doe, 1950-2020",
	})
	require.NoError(t, err)
	rec := runRecorded(t, produce)

	require.Equal(t, []stream.Kind{stream.KindStart, stream.KindClear, stream.KindDelta, stream.KindDelta, stream.KindDone}, rec.Kinds())
	require.Nil(t, f.gateway.lastCurrent)
	done := lastEvent(rec)
	require.Equal(t, msgCreated, done.Result.Message)

	docs := f.docs.live()
	require.Len(t, docs, 1)
	require.Equal(t, "Jane Doe passed away.", docs[0].Content)
	require.Equal(t, "Document", docs[0].Title)
	require.Equal(t, model.DocTypeEulogy, docs[0].DocType)
}

func TestRunCreateEmptyDraftFails(t *testing.T) {
	f := newFixture(t)
	f.gateway.chunks = nil

	produce, err := f.svc.PrepareRun(context.Background(), RunInput{Target: Target{UserID: "u1"}, Mode: ModeCreate, Context: "Jane"})
	require.NoError(t, err)
	rec := runRecorded(t, produce)
	require.Equal(t, "empty ai response", lastEvent(rec).Error)
	require.Empty(t, f.docs.live())
}

func TestRunCreateFallsBackToTitle(t *testing.T) {
	f := newFixture(t)
	f.gateway.chunks = []string{"Jane Doe, beloved teacher."}

	produce, err := f.svc.PrepareRun(context.Background(), RunInput{Target: Target{UserID: "u1"}, Mode: ModeCreate, Title: "Jane Doe, teacher"})
	require.NoError(t, err)
	rec := runRecorded(t, produce)
	require.Equal(t, stream.KindDone, lastEvent(rec).Kind)
	require.Equal(t, "Jane Doe, teacher", f.gateway.lastInstruction)

	docs := f.docs.live()
	require.Len(t, docs, 1)
	require.Equal(t, "Jane Doe, teacher", docs[0].Title)

	_, err = f.svc.PrepareRun(context.Background(), RunInput{Target: Target{UserID: "u1"}, Mode: ModeCreate, Title: "  "})
	require.ErrorIs(t, err, appErr.ErrInvalid)
}

func TestRunCreateOnOccupiedSlotRenames(t *testing.T) {
	f := newFixture(t)
	seeded := f.seedDoc("An old draft.")
	f.gateway.chunks = []string{"A new draft."}

	produce, err := f.svc.PrepareRun(context.Background(), RunInput{Target: Target{UserID: "u1"}, Mode: ModeCreate, Title: "In Memory of Jane", Context: "Jane"})
	require.NoError(t, err)
	runRecorded(t, produce)

	stored, err := f.docs.GetByID(context.Background(), "u1", seeded.ID)
	require.NoError(t, err)
	require.Equal(t, "A new draft.", stored.Content)
	require.Equal(t, "In Memory of Jane", stored.Title)

	f.gateway.chunks = []string{"A third draft."}
	produce, err = f.svc.PrepareRun(context.Background(), RunInput{Target: Target{UserID: "u1"}, Mode: ModeUpdate, Description: "Shorter"})
	require.NoError(t, err)
	runRecorded(t, produce)

	stored, err = f.docs.GetByID(context.Background(), "u1", seeded.ID)
	require.NoError(t, err)
	require.Equal(t, "In Memory of Jane", stored.Title)
}

func TestRunCreateUsesEntryDetails(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.entries.Create(context.Background(), &model.Entry{ID: testEntryID, UserID: "u1", Name: "Jane Doe", DateOfBirth: "1950", State: repo.EntryStateNormal}))
	f.gateway.chunks = []string{"Jane Doe was born in 1950."}

	produce, err := f.svc.PrepareRun(context.Background(), RunInput{Target: Target{UserID: "u1", EntryID: testEntryID}, Mode: ModeCreate})
	require.NoError(t, err)
	rec := runRecorded(t, produce)
	require.Equal(t, stream.KindDone, lastEvent(rec).Kind)
	require.Contains(t, f.gateway.lastInstruction, "Deceased Name: Jane Doe")

	docs := f.docs.live()
	require.Len(t, docs, 1)
	require.Equal(t, testEntryID, docs[0].EntryID)
}

func TestRunSuggestionsWithoutDocumentFinishesEmpty(t *testing.T) {
	f := newFixture(t)
	produce, err := f.svc.PrepareRun(context.Background(), RunInput{Target: Target{UserID: "u1"}, Mode: ModeSuggestions})
	require.NoError(t, err)
	rec := runRecorded(t, produce)
	require.Equal(t, []stream.Kind{stream.KindStart, stream.KindDone}, rec.Kinds())
	require.Nil(t, lastEvent(rec).Result)
	require.Zero(t, f.gateway.called())
}

func TestRunSuggestionsPersists(t *testing.T) {
	f := newFixture(t)
	doc := f.seedDoc("Jane was nice.")
	f.gateway.suggestions = []ai.SuggestionResult{
		{OriginalText: "Jane was nice.", SuggestedText: "Jane was endlessly kind to everyone she met.", Description: "More vivid"},
	}
	produce, err := f.svc.PrepareRun(context.Background(), RunInput{Target: Target{UserID: "u1"}, Mode: ModeSuggestions})
	require.NoError(t, err)
	rec := runRecorded(t, produce)
	require.Equal(t, []stream.Kind{stream.KindStart, stream.KindSuggestion, stream.KindDone}, rec.Kinds())
	require.Equal(t, msgSuggestions, lastEvent(rec).Result.Message)

	saved, err := f.svc.ListSuggestions(context.Background(), "u1", doc.ID)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	require.Equal(t, doc.Ctime, saved[0].DocumentCtime)
}

func TestRunRejectsUnknownMode(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.PrepareRun(context.Background(), RunInput{Target: Target{UserID: "u1"}, Mode: "rewrite"})
	require.ErrorIs(t, err, appErr.ErrInvalid)
	_, err = f.svc.PrepareRun(context.Background(), RunInput{Mode: ModeCreate, Context: "x"})
	require.ErrorIs(t, err, appErr.ErrUnauthorized)
}

func TestPersistenceFailureDoesNotBlockDelivery(t *testing.T) {
	f := newFixture(t)
	f.docs.insertErr = errors.New("disk full")
	f.gateway.chunks = []string{"Jane Doe."}

	produce, err := f.svc.PrepareRun(context.Background(), RunInput{Target: Target{UserID: "u1"}, Mode: ModeCreate, Context: "Jane"})
	require.NoError(t, err)
	rec := runRecorded(t, produce)
	done := lastEvent(rec)
	require.Equal(t, stream.KindDone, done.Kind)
	require.Equal(t, "Jane Doe.", done.Result.Document)
	require.Empty(t, f.docs.live())
}

func TestInsertConflictCoalescesToExistingRow(t *testing.T) {
	f := newFixture(t)
	var racer model.Document
	f.docs.beforeInsert = func(m *memDocs) {
		m.beforeInsert = nil
		racer = f.seedDoc("written by another request")
	}
	f.gateway.chunks = []string{"Jane Doe."}

	produce, err := f.svc.PrepareRun(context.Background(), RunInput{Target: Target{UserID: "u1"}, Mode: ModeCreate, Context: "Jane"})
	require.NoError(t, err)
	runRecorded(t, produce)

	docs := f.docs.live()
	require.Len(t, docs, 1)
	require.Equal(t, racer.ID, docs[0].ID)
	require.Equal(t, "Jane Doe.", docs[0].Content)
}

func TestGetIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.seedDoc("Jane Doe was born in 1950.")
	a, err := f.svc.Get(context.Background(), Target{UserID: "u1"})
	require.NoError(t, err)
	b, err := f.svc.Get(context.Background(), Target{UserID: "u1"})
	require.NoError(t, err)
	require.Equal(t, a.Document.Content, b.Document.Content)

	_, err = f.svc.Get(context.Background(), Target{UserID: "u2"})
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestDeleteFreesSlot(t *testing.T) {
	f := newFixture(t)
	doc := f.seedDoc("Jane Doe was born in 1950.")

	list, err := f.svc.List(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, f.svc.Delete(context.Background(), "u1", doc.ID))
	require.ErrorIs(t, f.svc.Delete(context.Background(), "u1", doc.ID), appErr.ErrNotFound)
	_, err = f.svc.Get(context.Background(), Target{UserID: "u1"})
	require.ErrorIs(t, err, appErr.ErrNotFound)

	f.gateway.chunks = []string{"A fresh start."}
	produce, err := f.svc.PrepareRun(context.Background(), RunInput{Target: Target{UserID: "u1"}, Mode: ModeCreate, Context: "Jane"})
	require.NoError(t, err)
	runRecorded(t, produce)
	docs := f.docs.live()
	require.Len(t, docs, 1)
	require.NotEqual(t, doc.ID, docs[0].ID)
}

func TestShareWithPassword(t *testing.T) {
	f := newFixture(t)
	doc := f.seedDoc("Jane Doe was born in 1950.")

	info, err := f.svc.Share(context.Background(), "u1", doc.ID, "secret")
	require.NoError(t, err)
	require.True(t, info.HasPassword)

	_, err = f.svc.GetShared(context.Background(), info.Token, "")
	require.ErrorIs(t, err, appErr.ErrForbidden)
	shared, err := f.svc.GetShared(context.Background(), info.Token, "secret")
	require.NoError(t, err)
	require.Equal(t, doc.Content, shared.Content)

	again, err := f.svc.Share(context.Background(), "u1", doc.ID, "")
	require.NoError(t, err)
	require.Equal(t, info.Token, again.Token)

	require.NoError(t, f.svc.Unshare(context.Background(), "u1", doc.ID))
	_, err = f.svc.GetShared(context.Background(), info.Token, "")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestExportRendersMarkdown(t *testing.T) {
	f := newFixture(t)
	doc := f.seedDoc("# Jane Doe\n\nShe loved **gardening**.")

	res, err := f.svc.Export(context.Background(), "u1", doc.ID)
	require.NoError(t, err)
	rc, err := f.svc.OpenExport(context.Background(), res.Key)
	require.NoError(t, err)
	defer rc.Close()
	page, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.Contains(t, string(page), "<h1>Jane Doe</h1>")
	require.Contains(t, string(page), "<strong>gardening</strong>")
	require.Equal(t, int64(len(page)), res.Size)

	_, err = f.svc.Export(context.Background(), "u2", doc.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestStreamErrorText(t *testing.T) {
	require.Equal(t, "ai service unavailable", StreamErrorText(ai.ErrUnavailable))
	require.Equal(t, "ai request timed out", StreamErrorText(context.DeadlineExceeded))
	require.Equal(t, "stream failed", StreamErrorText(errors.New("x")))
}
