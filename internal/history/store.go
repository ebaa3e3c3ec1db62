package history

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	apierrors "github.com/diogo/glmchat/internal/errors"
	"github.com/diogo/glmchat/internal/storage"
)

// Store owns the conversation list and the current-conversation pointer.
// Every mutation is a load-modify-save against the persistence gateway under
// a single mutex; background jobs append through the same path.
type Store struct {
	gw  *storage.Gateway
	mu  sync.Mutex
	now func() time.Time
}

// NewStore creates a new history store
func NewStore(gw *storage.Gateway) *Store {
	return &Store{
		gw:  gw,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) load() []*Conversation {
	return storage.Get(s.gw, storage.KeyConversations, []*Conversation{})
}

func (s *Store) persist(list []*Conversation) error {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
	if err := storage.Set(s.gw, storage.KeyConversations, list); err != nil {
		return fmt.Errorf("failed to save conversations: %w", err)
	}
	return nil
}

func indexOf(list []*Conversation, id string) int {
	for i, c := range list {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// CreateConversation creates a new, unsaved conversation.
func (s *Store) CreateConversation() *Conversation {
	now := s.now()
	return &Conversation{
		ID:        newConversationID(),
		Title:     DefaultTitle,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Save upserts conv by id. The title is recomputed while it is still the
// placeholder and UpdatedAt never moves backwards. conv is updated in place.
func (s *Store) Save(conv *Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load()
	s.touch(conv, list)

	if i := indexOf(list, conv.ID); i >= 0 {
		list[i] = conv.Clone()
	} else {
		list = append(list, conv.Clone())
	}
	return s.persist(list)
}

func (s *Store) touch(conv *Conversation, list []*Conversation) {
	if conv.Title == "" || conv.Title == DefaultTitle {
		conv.Title = DeriveTitle(conv.Messages)
	}

	updated := s.now()
	if conv.UpdatedAt.After(updated) {
		updated = conv.UpdatedAt
	}
	if i := indexOf(list, conv.ID); i >= 0 && list[i].UpdatedAt.After(updated) {
		updated = list[i].UpdatedAt
	}
	conv.UpdatedAt = updated
	if conv.Messages == nil {
		conv.Messages = []Message{}
	}
}

// AppendMessages appends msgs to the stored conversation id and saves it.
func (s *Store) AppendMessages(id string, msgs ...Message) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load()
	i := indexOf(list, id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", apierrors.ErrConversationNotFound, id)
	}

	conv := list[i]
	conv.Messages = append(conv.Messages, msgs...)
	s.touch(conv, list)
	if err := s.persist(list); err != nil {
		return nil, err
	}
	return conv.Clone(), nil
}

// Get retrieves a conversation by ID
func (s *Store) Get(id string) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load()
	if i := indexOf(list, id); i >= 0 {
		return list[i], nil
	}
	return nil, fmt.Errorf("%w: %s", apierrors.ErrConversationNotFound, id)
}

// List returns all conversations, most recently updated first.
func (s *Store) List() ([]*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load()
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].UpdatedAt.After(list[j].UpdatedAt)
	})
	return list, nil
}

// Delete removes a conversation. It does not pick a new current
// conversation; callers decide.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load()
	i := indexOf(list, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", apierrors.ErrConversationNotFound, id)
	}
	list = append(list[:i], list[i+1:]...)
	return s.persist(list)
}

// Rename sets a user-chosen title.
func (s *Store) Rename(id, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return fmt.Errorf("title cannot be empty")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.load()
	i := indexOf(list, id)
	if i < 0 {
		return fmt.Errorf("%w: %s", apierrors.ErrConversationNotFound, id)
	}
	list[i].Title = title
	return s.persist(list)
}

// ClearAll deletes every conversation and the current pointer.
func (s *Store) ClearAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist([]*Conversation{}); err != nil {
		return err
	}
	return s.gw.Delete(storage.KeyCurrentConversationID)
}

// SetCurrent records id as the current conversation.
func (s *Store) SetCurrent(id string) error {
	if err := storage.Set(s.gw, storage.KeyCurrentConversationID, id); err != nil {
		return fmt.Errorf("failed to save current conversation: %w", err)
	}
	return nil
}

// CurrentID returns the recorded current conversation id.
func (s *Store) CurrentID() (string, bool) {
	id := storage.Get(s.gw, storage.KeyCurrentConversationID, "")
	return id, id != ""
}

// Current returns the current conversation if the pointer resolves.
func (s *Store) Current() (*Conversation, bool) {
	id, ok := s.CurrentID()
	if !ok {
		return nil, false
	}
	conv, err := s.Get(id)
	if err != nil {
		return nil, false
	}
	return conv, true
}

// Bootstrap returns the current conversation. With no recorded pointer the
// most recent conversation is selected. A dangling pointer, or an empty
// history, gets a new conversation that is saved and selected.
func (s *Store) Bootstrap() (*Conversation, error) {
	id, recorded := s.CurrentID()
	if recorded {
		if conv, err := s.Get(id); err == nil {
			return conv, nil
		}
	} else {
		list, err := s.List()
		if err != nil {
			return nil, err
		}
		if len(list) > 0 {
			if err := s.SetCurrent(list[0].ID); err != nil {
				return nil, err
			}
			return list[0], nil
		}
	}

	conv := s.CreateConversation()
	if err := s.Save(conv); err != nil {
		return nil, err
	}
	if err := s.SetCurrent(conv.ID); err != nil {
		return nil, err
	}
	return conv, nil
}
