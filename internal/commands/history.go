package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/glmchat/internal/config"
	"github.com/diogo/glmchat/internal/history"
	"github.com/diogo/glmchat/internal/render"
)

var (
	exportAllFlag      bool
	exportMarkdownFlag bool
	exportDirFlag      string
	searchContentFlag  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Manage conversation history",
	Long:  "View and manage your local conversation history.\n\n" + history.ReferenceHelp(),
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all conversations",
	RunE:  runHistoryList,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var historyDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a conversation",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryDelete,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete all conversations",
	RunE:  runHistoryClear,
}

var historyNewCmd = &cobra.Command{
	Use:   "new",
	Short: "Start a new conversation and make it current",
	RunE:  runHistoryNew,
}

var historyUseCmd = &cobra.Command{
	Use:   "use <id>",
	Short: "Make a conversation current",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryUse,
}

var historyRenameCmd = &cobra.Command{
	Use:   "rename <id> <title>",
	Short: "Rename a conversation",
	Args:  cobra.ExactArgs(2),
	RunE:  runHistoryRename,
}

var historySearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search conversation titles (and content with --content)",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistorySearch,
}

var historyExportCmd = &cobra.Command{
	Use:   "export [id...]",
	Short: "Export conversations to a JSON file",
	Long: `Export the listed conversations, or all of them with --all, to a JSON
file in the export directory. With --markdown a single conversation is
printed as Markdown instead.`,
	RunE: runHistoryExport,
}

func init() {
	historySearchCmd.Flags().BoolVar(&searchContentFlag, "content", false, "Search message content too")
	historyExportCmd.Flags().BoolVar(&exportAllFlag, "all", false, "Export every conversation")
	historyExportCmd.Flags().BoolVar(&exportMarkdownFlag, "markdown", false, "Print one conversation as Markdown")
	historyExportCmd.Flags().StringVar(&exportDirFlag, "dir", "", "Directory to write the export to")

	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyDeleteCmd)
	historyCmd.AddCommand(historyClearCmd)
	historyCmd.AddCommand(historyNewCmd)
	historyCmd.AddCommand(historyUseCmd)
	historyCmd.AddCommand(historyRenameCmd)
	historyCmd.AddCommand(historySearchCmd)
	historyCmd.AddCommand(historyExportCmd)
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	conversations, err := session.Store().List()
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(conversations) == 0 {
		fmt.Fprintln(out, "No conversations found.")
		return nil
	}

	currentID, _ := session.Store().CurrentID()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tID\tTITLE\tMESSAGES\tUPDATED")
	_, _ = fmt.Fprintln(w, "-\t--\t-----\t--------\t-------")

	for i, conv := range conversations {
		marker := ""
		if conv.ID == currentID {
			marker = "*"
		}
		_, _ = fmt.Fprintf(w, "%d%s\t%s\t%s\t%d\t%s\n",
			i+1, marker, conv.ID, truncate(conv.Title, 40), len(conv.Messages), history.FormatRelativeTime(conv.UpdatedAt))
	}

	return w.Flush()
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	conv, err := resolveConversation(session, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isTTY(out) {
		opts := render.OptionsFromConfig(cfg.Markdown).WithWidth(getTerminalWidth() - 4)
		fmt.Fprint(out, render.Conversation(conv, opts))
		return nil
	}

	fmt.Fprintf(out, "ID: %s\n", conv.ID)
	fmt.Fprintf(out, "Title: %s\n", conv.Title)
	fmt.Fprintf(out, "Created: %s\n", conv.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Updated: %s\n", conv.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Messages: %d\n\n", len(conv.Messages))

	for i, msg := range conv.Messages {
		role := "You"
		switch {
		case msg.IsError:
			role = "Error"
		case msg.Sender == history.SenderAI:
			role = "GLM"
		}
		fmt.Fprintf(out, "[%d] %s (%s):\n", i+1, role, msg.Timestamp.Local().Format("15:04"))
		for _, f := range msg.Files {
			fmt.Fprintf(out, "  📎 %s (%s)\n", f.Name, f.Kind)
		}
		fmt.Fprintf(out, "  %s\n\n", strings.ReplaceAll(msg.Content, "\n", "\n  "))
	}
	return nil
}

func runHistoryDelete(cmd *cobra.Command, args []string) error {
	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	conv, err := resolveConversation(session, args[0])
	if err != nil {
		return err
	}
	if err := session.DeleteConversation(conv.ID); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Deleted conversation: %s\n", conv.ID)
	return nil
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	if _, err := session.ClearAll(); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}

	fmt.Fprintln(cmd.OutOrStdout(), "All conversations deleted.")
	return nil
}

func runHistoryNew(cmd *cobra.Command, args []string) error {
	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	conv, err := session.NewConversation()
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Started conversation: %s\n", conv.ID)
	return nil
}

func runHistoryUse(cmd *cobra.Command, args []string) error {
	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	conv, err := resolveConversation(session, args[0])
	if err != nil {
		return err
	}
	if _, err := session.SelectConversation(conv.ID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Current conversation: %s (%s)\n", conv.Title, conv.ID)
	return nil
}

func runHistoryRename(cmd *cobra.Command, args []string) error {
	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	conv, err := resolveConversation(session, args[0])
	if err != nil {
		return err
	}
	if err := session.Store().Rename(conv.ID, args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Renamed conversation: %s\n", conv.ID)
	return nil
}

func runHistorySearch(cmd *cobra.Command, args []string) error {
	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	results, err := session.Store().Search(args[0], searchContentFlag)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No matches.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tMATCH")
	for _, r := range results {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", r.Conversation.ID, truncate(r.Conversation.Title, 40), truncate(r.MatchSnippet, 60))
	}
	return w.Flush()
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	out := cmd.OutOrStdout()

	if exportMarkdownFlag {
		if len(args) != 1 {
			return fmt.Errorf("--markdown exports exactly one conversation")
		}
		conv, err := resolveConversation(session, args[0])
		if err != nil {
			return err
		}
		md, err := session.Store().ExportMarkdown(conv.ID)
		if err != nil {
			return err
		}
		if outputFlag != "" {
			return os.WriteFile(outputFlag, []byte(md), 0o644)
		}
		fmt.Fprint(out, md)
		return nil
	}

	var (
		doc      *history.ExportDocument
		filename string
	)
	if exportAllFlag {
		doc, filename, err = session.Store().ExportAll()
	} else {
		convs, rerr := history.NewResolver(session.Store()).ResolveAll(args)
		if rerr != nil {
			return rerr
		}
		ids := make([]string, 0, len(convs))
		for _, c := range convs {
			ids = append(ids, c.ID)
		}
		doc, filename, err = session.Store().ExportSelected(ids)
	}
	if err != nil {
		return err
	}

	dir := exportDirFlag
	if dir == "" {
		if dir, err = config.ResolveExportDir(cfg); err != nil {
			return err
		}
	}

	path, err := history.WriteExport(dir, filename, doc)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Exported %d conversation(s) to %s\n", doc.TotalConversations, filepath.Clean(path))
	return nil
}
