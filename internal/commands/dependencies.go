package commands

import (
	"go.uber.org/zap"

	"github.com/diogo/glmchat/internal/app"
	"github.com/diogo/glmchat/internal/config"
	"github.com/diogo/glmchat/internal/history"
	"github.com/diogo/glmchat/internal/render"
	"github.com/diogo/glmchat/internal/tui"
)

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	// OpenSession builds the session for one command.
	OpenSession func(cfg config.Config, logger *zap.Logger) (*app.Session, error)

	// RunChat starts the interactive chat.
	RunChat func(session *app.Session, opts render.Options) error

	// CopyToClipboard writes text to the system clipboard.
	CopyToClipboard func(text string) error
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		OpenSession:     app.Open,
		RunChat:         runChatTUI,
		CopyToClipboard: writeClipboard,
	}
}

var deps = NewDependencies()

func runChatTUI(session *app.Session, opts render.Options) error {
	return tui.RunChat(session, opts, func(refresh func(convID string)) {
		session.SetNotifier(app.NotifierFunc(func(convID string, _ history.Message) {
			refresh(convID)
		}))
	})
}
