package commands

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/diogo/glmchat/internal/config"
	"github.com/diogo/glmchat/internal/logging"
	"github.com/diogo/glmchat/internal/render"
)

var chatNewFlag bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session in the current conversation.

Inside the chat:
  /new           Start a new conversation
  /attach PATH   Attach an image or document to the next message
  /image PROMPT  Generate an image
  /video PROMPT  Generate a video (uses an attached image if present)
  /model ID      Switch model
  /exit          Quit`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatNewFlag, "new", false, "Start in a new conversation")
}

func runChat(cmd *cobra.Command, args []string) error {
	// The terminal belongs to the TUI, so logs go to a file.
	dir, err := config.ResolveDataDir(cfg)
	if err != nil {
		return err
	}
	if l, err := logging.NewFile(filepath.Join(dir, "glmchat.log"), cfg.LogLevel); err == nil {
		logger = l
	}
	defer func() { _ = logger.Sync() }()

	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	// --model in the chat behaves like /model and is saved.
	if m := modelOverride(); m != "" {
		if _, err := session.UpdateSettings(func(s *config.ChatSettings) error {
			return s.Set("model", m)
		}); err != nil {
			return err
		}
	}
	if chatNewFlag {
		if _, err := session.NewConversation(); err != nil {
			return err
		}
	}

	opts := render.OptionsFromConfig(cfg.Markdown).WithWidth(getTerminalWidth() - 8)
	if err := deps.RunChat(session, opts); err != nil {
		return fmt.Errorf("chat error: %w", err)
	}

	if jobs := session.ActiveJobs(); len(jobs) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%d video task(s) still running. Check them with 'glmchat video status <id>'.\n", len(jobs))
	}
	return nil
}
