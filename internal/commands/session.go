package commands

import (
	"fmt"

	"github.com/diogo/glmchat/internal/app"
	"github.com/diogo/glmchat/internal/history"
)

// openSession opens the session configured for this invocation. The caller
// must Close it.
func openSession() (*app.Session, error) {
	session, err := deps.OpenSession(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}
	return session, nil
}

// targetConversation returns the conversation a one-shot command writes to:
// a new one when requested, otherwise the current one.
func targetConversation(session *app.Session, fresh bool) (*history.Conversation, error) {
	if fresh {
		return session.NewConversation()
	}
	return session.Current()
}

func resolveConversation(session *app.Session, ref string) (*history.Conversation, error) {
	return history.NewResolver(session.Store()).Resolve(ref)
}
