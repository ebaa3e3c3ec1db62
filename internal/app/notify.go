package app

import (
	"go.uber.org/zap"

	"github.com/diogo/glmchat/internal/history"
)

// Notifier is told about messages that background jobs append.
type Notifier interface {
	MessageAppended(convID string, msg history.Message)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(convID string, msg history.Message)

// MessageAppended calls f.
func (f NotifierFunc) MessageAppended(convID string, msg history.Message) { f(convID, msg) }

// LogNotifier logs appended messages.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger}
}

// MessageAppended implements Notifier.
func (n *LogNotifier) MessageAppended(convID string, msg history.Message) {
	if msg.IsError {
		n.logger.Warn("background job failed", zap.String("conversation", convID), zap.String("message", msg.Content))
		return
	}
	n.logger.Info("background job finished", zap.String("conversation", convID), zap.Int("files", len(msg.Files)))
}

// notifyingSink appends to the store and then tells the notifier.
type notifyingSink struct {
	store    *history.Store
	notifier func() Notifier
}

func (s *notifyingSink) AppendMessages(id string, msgs ...history.Message) (*history.Conversation, error) {
	conv, err := s.store.AppendMessages(id, msgs...)
	if err != nil {
		return nil, err
	}
	n := s.notifier()
	for _, m := range msgs {
		n.MessageAppended(id, m)
	}
	return conv, nil
}
