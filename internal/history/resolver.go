package history

import (
	"fmt"
	"strconv"
	"strings"

	apierrors "github.com/diogo/glmchat/internal/errors"
)

// minPrefixLen is the shortest id prefix accepted as a reference.
const minPrefixLen = 4

// Resolver turns user-friendly references into conversations.
type Resolver struct {
	store *Store
}

// NewResolver creates a resolver over store.
func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve converts a reference to a conversation.
//
// Supported references:
//   - "@last" - most recently updated conversation
//   - "@first" - least recently updated conversation
//   - "@current" - the current conversation
//   - "1", "2", "3" - by position in List (1-based)
//   - a full id or a unique id prefix of at least four characters
//   - "substring" - title match (error if several match)
func (r *Resolver) Resolve(ref string) (*Conversation, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("empty reference")
	}

	conversations, err := r.store.List()
	if err != nil {
		return nil, err
	}
	if len(conversations) == 0 {
		return nil, fmt.Errorf("%w: no conversations", apierrors.ErrConversationNotFound)
	}

	switch strings.ToLower(ref) {
	case "@last":
		return conversations[0], nil
	case "@first":
		return conversations[len(conversations)-1], nil
	case "@current":
		if conv, ok := r.store.Current(); ok {
			return conv, nil
		}
		return nil, fmt.Errorf("%w: no current conversation", apierrors.ErrConversationNotFound)
	}

	if index, err := strconv.Atoi(ref); err == nil {
		if index < 1 || index > len(conversations) {
			return nil, fmt.Errorf("index %d out of range (1-%d)", index, len(conversations))
		}
		return conversations[index-1], nil
	}

	var byPrefix []*Conversation
	for _, conv := range conversations {
		if conv.ID == ref {
			return conv, nil
		}
		if len(ref) >= minPrefixLen && strings.HasPrefix(conv.ID, ref) {
			byPrefix = append(byPrefix, conv)
		}
	}
	if len(byPrefix) == 1 {
		return byPrefix[0], nil
	}
	if len(byPrefix) > 1 {
		return nil, fmt.Errorf("id prefix '%s' matches %d conversations", ref, len(byPrefix))
	}

	refLower := strings.ToLower(ref)
	var matches []*Conversation
	for _, conv := range conversations {
		if strings.Contains(strings.ToLower(conv.Title), refLower) {
			matches = append(matches, conv)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: nothing matches '%s'", apierrors.ErrConversationNotFound, ref)
	case 1:
		return matches[0], nil
	default:
		titles := make([]string, 0, len(matches))
		for _, m := range matches {
			titles = append(titles, fmt.Sprintf("'%s'", m.Title))
		}
		return nil, fmt.Errorf("multiple conversations match '%s': %s. Use the id or be more specific",
			ref, strings.Join(titles, ", "))
	}
}

// ResolveAll resolves every reference, stopping at the first failure.
func (r *Resolver) ResolveAll(refs []string) ([]*Conversation, error) {
	out := make([]*Conversation, 0, len(refs))
	for _, ref := range refs {
		conv, err := r.Resolve(ref)
		if err != nil {
			return nil, err
		}
		out = append(out, conv)
	}
	return out, nil
}

// ReferenceHelp describes the accepted references.
func ReferenceHelp() string {
	return `Conversation references:
  @last          Most recently updated conversation
  @first         Least recently updated conversation
  @current       The current conversation
  1, 2, 3        By position in 'history list'
  <id>           Full id or a unique prefix (4+ characters)
  "text"         Title substring`
}
