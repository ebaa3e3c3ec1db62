package history

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	apierrors "github.com/diogo/glmchat/internal/errors"
	"github.com/diogo/glmchat/internal/storage"
)

// fakeClock returns a settable time source.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time         { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(t *testing.T) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)}
	s := NewStore(storage.NewGateway(storage.NewMemoryBackend(), nil))
	s.now = clock.now
	return s, clock
}

func TestCreateConversationIsNotPersisted(t *testing.T) {
	s, _ := newTestStore(t)

	conv := s.CreateConversation()
	if conv.ID == "" {
		t.Fatal("expected an id")
	}
	if conv.Title != DefaultTitle {
		t.Errorf("Title = %q, want %q", conv.Title, DefaultTitle)
	}
	if len(conv.Messages) != 0 {
		t.Errorf("expected no messages, got %d", len(conv.Messages))
	}

	list, _ := s.List()
	if len(list) != 0 {
		t.Errorf("List() returned %d conversations, want 0", len(list))
	}

	other := s.CreateConversation()
	if other.ID == conv.ID {
		t.Error("ids must be unique")
	}
}

func TestSaveDerivesTitle(t *testing.T) {
	s, _ := newTestStore(t)

	text := strings.Repeat("abcdefghi ", 4) + "klmno" // 45 characters
	if len([]rune(text)) != 45 {
		t.Fatalf("test setup: len = %d", len([]rune(text)))
	}

	conv := s.CreateConversation()
	conv.Messages = append(conv.Messages, NewUserMessage(text))
	if err := s.Save(conv); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	want := text[:30] + "..."
	if conv.Title != want {
		t.Errorf("Title = %q, want %q", conv.Title, want)
	}

	got, err := s.Get(conv.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Title != want {
		t.Errorf("stored Title = %q, want %q", got.Title, want)
	}
}

func TestSaveKeepsExplicitTitle(t *testing.T) {
	s, _ := newTestStore(t)

	conv := s.CreateConversation()
	conv.Title = "Trip planning"
	conv.Messages = append(conv.Messages, NewUserMessage("hello there"))
	if err := s.Save(conv); err != nil {
		t.Fatal(err)
	}
	if conv.Title != "Trip planning" {
		t.Errorf("Title = %q", conv.Title)
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		name     string
		messages []Message
		want     string
	}{
		{"empty", nil, DefaultTitle},
		{"ai only", []Message{NewAIMessage("welcome")}, DefaultTitle},
		{"short", []Message{NewAIMessage("hi"), NewUserMessage("hello")}, "hello"},
		{"exactly 30", []Message{NewUserMessage(strings.Repeat("x", 30))}, strings.Repeat("x", 30)},
		{"multibyte", []Message{NewUserMessage(strings.Repeat("你", 31))}, strings.Repeat("你", 30) + "..."},
		{"image only", []Message{NewUserMessage("", FileRef{Name: "cat.png", Kind: FileImage})}, "cat.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveTitle(tt.messages); got != tt.want {
				t.Errorf("DeriveTitle() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestListOrderedByUpdatedAt(t *testing.T) {
	s, clock := newTestStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		conv := s.CreateConversation()
		if err := s.Save(conv); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, conv.ID)
		clock.advance(time.Minute)
	}

	// Append to the oldest; it must move to the top.
	if _, err := s.AppendMessages(ids[0], NewUserMessage("bump")); err != nil {
		t.Fatal(err)
	}

	list, err := s.List()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{ids[0], ids[2], ids[1]}
	for i, conv := range list {
		if conv.ID != want[i] {
			t.Errorf("list[%d] = %s, want %s", i, conv.ID, want[i])
		}
	}
	for i := 1; i < len(list); i++ {
		if list[i-1].UpdatedAt.Before(list[i].UpdatedAt) {
			t.Errorf("list not descending at %d", i)
		}
	}
}

func TestUpdatedAtNeverMovesBackwards(t *testing.T) {
	s, clock := newTestStore(t)

	conv := s.CreateConversation()
	if err := s.Save(conv); err != nil {
		t.Fatal(err)
	}
	first := conv.UpdatedAt

	clock.advance(-time.Hour)
	if _, err := s.AppendMessages(conv.ID, NewUserMessage("late")); err != nil {
		t.Fatal(err)
	}

	got, _ := s.Get(conv.ID)
	if got.UpdatedAt.Before(first) {
		t.Errorf("UpdatedAt moved backwards: %v < %v", got.UpdatedAt, first)
	}
}

func TestSaveRoundTripThroughSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	backend, err := storage.NewSQLiteBackend(path)
	if err != nil {
		t.Fatal(err)
	}
	s := NewStore(storage.NewGateway(backend, nil))

	conv := s.CreateConversation()
	conv.Messages = append(conv.Messages,
		NewUserMessage("what is in this picture?", FileRef{Name: "cat.png", Kind: FileImage, URL: "data:image/png;base64,AAAA"}),
		NewAIMessage("A cat."),
		NewErrorMessage("rate limited"),
	)
	if err := s.Save(conv); err != nil {
		t.Fatal(err)
	}
	_ = backend.Close()

	backend2, err := storage.NewSQLiteBackend(path)
	if err != nil {
		t.Fatal(err)
	}
	defer backend2.Close()
	got, err := NewStore(storage.NewGateway(backend2, nil)).Get(conv.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if got.Title != conv.Title {
		t.Errorf("Title = %q, want %q", got.Title, conv.Title)
	}
	if !got.CreatedAt.Equal(conv.CreatedAt) || !got.UpdatedAt.Equal(conv.UpdatedAt) {
		t.Errorf("timestamps differ: %v/%v vs %v/%v", got.CreatedAt, got.UpdatedAt, conv.CreatedAt, conv.UpdatedAt)
	}
	if len(got.Messages) != 3 {
		t.Fatalf("len(Messages) = %d, want 3", len(got.Messages))
	}
	for i, m := range got.Messages {
		want := conv.Messages[i]
		if m.ID != want.ID || m.Content != want.Content || m.Sender != want.Sender || m.IsError != want.IsError {
			t.Errorf("message %d = %+v, want %+v", i, m, want)
		}
		if !m.Timestamp.Equal(want.Timestamp) {
			t.Errorf("message %d timestamp = %v, want %v", i, m.Timestamp, want.Timestamp)
		}
	}
	if len(got.Messages[0].Files) != 1 || got.Messages[0].Files[0].Kind != FileImage {
		t.Errorf("files not preserved: %+v", got.Messages[0].Files)
	}
}

func TestDeleteKeepsCurrentPointer(t *testing.T) {
	s, _ := newTestStore(t)

	conv := s.CreateConversation()
	if err := s.Save(conv); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCurrent(conv.ID); err != nil {
		t.Fatal(err)
	}

	if err := s.Delete(conv.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Get(conv.ID); !errors.Is(err, apierrors.ErrConversationNotFound) {
		t.Errorf("Get() after delete error = %v", err)
	}
	if id, ok := s.CurrentID(); !ok || id != conv.ID {
		t.Errorf("CurrentID() = %q, %v; delete must not reassign", id, ok)
	}
	if _, ok := s.Current(); ok {
		t.Error("Current() should not resolve a deleted conversation")
	}

	if err := s.Delete("missing"); !errors.Is(err, apierrors.ErrConversationNotFound) {
		t.Errorf("Delete(missing) error = %v", err)
	}
}

func TestBootstrap(t *testing.T) {
	s, clock := newTestStore(t)

	first, err := s.Bootstrap()
	if err != nil {
		t.Fatal(err)
	}
	if id, _ := s.CurrentID(); id != first.ID {
		t.Errorf("current = %s, want %s", id, first.ID)
	}

	again, err := s.Bootstrap()
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != first.ID {
		t.Errorf("second Bootstrap created a new conversation")
	}

	clock.advance(time.Minute)
	second := s.CreateConversation()
	if err := s.Save(second); err != nil {
		t.Fatal(err)
	}
	if err := s.SetCurrent("dangling"); err != nil {
		t.Fatal(err)
	}

	fresh, err := s.Bootstrap()
	if err != nil {
		t.Fatal(err)
	}
	if fresh.ID == first.ID || fresh.ID == second.ID {
		t.Errorf("Bootstrap reused %s for a dangling pointer", fresh.ID)
	}
	if len(fresh.Messages) != 0 {
		t.Errorf("new conversation has %d messages", len(fresh.Messages))
	}
	if id, _ := s.CurrentID(); id != fresh.ID {
		t.Errorf("current = %s, want %s", id, fresh.ID)
	}
	list, _ := s.List()
	if len(list) != 3 {
		t.Errorf("List() len = %d, want 3", len(list))
	}
}

func TestBootstrapWithoutPointerPicksMostRecent(t *testing.T) {
	s, clock := newTestStore(t)

	older := s.CreateConversation()
	if err := s.Save(older); err != nil {
		t.Fatal(err)
	}
	clock.advance(time.Minute)
	newer := s.CreateConversation()
	if err := s.Save(newer); err != nil {
		t.Fatal(err)
	}

	picked, err := s.Bootstrap()
	if err != nil {
		t.Fatal(err)
	}
	if picked.ID != newer.ID {
		t.Errorf("Bootstrap picked %s, want most recent %s", picked.ID, newer.ID)
	}
	list, _ := s.List()
	if len(list) != 2 {
		t.Errorf("List() len = %d, want 2", len(list))
	}
}

func TestAppendMessagesUnknownConversation(t *testing.T) {
	s, _ := newTestStore(t)
	if _, err := s.AppendMessages("nope", NewAIMessage("x")); !errors.Is(err, apierrors.ErrConversationNotFound) {
		t.Errorf("error = %v", err)
	}
}

func TestRenameAndClearAll(t *testing.T) {
	s, _ := newTestStore(t)

	conv := s.CreateConversation()
	_ = s.Save(conv)
	_ = s.SetCurrent(conv.ID)

	if err := s.Rename(conv.ID, "  Renamed  "); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(conv.ID)
	if got.Title != "Renamed" {
		t.Errorf("Title = %q", got.Title)
	}
	if err := s.Rename(conv.ID, " "); err == nil {
		t.Error("expected error for empty title")
	}

	if err := s.ClearAll(); err != nil {
		t.Fatal(err)
	}
	list, _ := s.List()
	if len(list) != 0 {
		t.Errorf("List() after ClearAll = %d", len(list))
	}
	if _, ok := s.CurrentID(); ok {
		t.Error("current pointer should be cleared")
	}
}
