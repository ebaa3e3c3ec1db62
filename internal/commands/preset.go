package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/diogo/glmchat/internal/config"
)

var (
	presetFileFlag string
	presetNameFlag string
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage system prompt presets",
	Long: `View and manage presets. The selected preset is sent as the system
prompt of text-only chat requests.`,
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List presets",
	RunE:  runPresetList,
}

var presetShowCmd = &cobra.Command{
	Use:   "show <id|name>",
	Short: "Show a preset",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetShow,
}

var presetAddCmd = &cobra.Command{
	Use:   "add <name> [content]",
	Short: "Add a preset and select it",
	Long: `Add a preset. The content is taken from the argument, from --file, or
read from stdin until an empty line.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runPresetAdd,
}

var presetEditCmd = &cobra.Command{
	Use:   "edit <id|name> [content]",
	Short: "Change the name or content of a preset",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runPresetEdit,
}

var presetDeleteCmd = &cobra.Command{
	Use:   "delete <id|name>",
	Short: "Delete a preset",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetDelete,
}

var presetUseCmd = &cobra.Command{
	Use:   "use <id|name>",
	Short: "Select a preset",
	Args:  cobra.ExactArgs(1),
	RunE:  runPresetUse,
}

func init() {
	presetAddCmd.Flags().StringVarP(&presetFileFlag, "file", "f", "", "Read the content from a file")
	presetEditCmd.Flags().StringVarP(&presetFileFlag, "file", "f", "", "Read the content from a file")
	presetEditCmd.Flags().StringVar(&presetNameFlag, "name", "", "New name")

	presetCmd.AddCommand(presetListCmd)
	presetCmd.AddCommand(presetShowCmd)
	presetCmd.AddCommand(presetAddCmd)
	presetCmd.AddCommand(presetEditCmd)
	presetCmd.AddCommand(presetDeleteCmd)
	presetCmd.AddCommand(presetUseCmd)
}

func runPresetList(cmd *cobra.Command, args []string) error {
	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	settings := session.Settings()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tCONTENT\tSELECTED")
	_, _ = fmt.Fprintln(w, "--\t----\t-------\t--------")

	for _, p := range settings.Presets {
		selected := ""
		if p.ID == settings.SelectedPreset {
			selected = "✓"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, truncate(p.Content, 50), selected)
	}

	return w.Flush()
}

func runPresetShow(cmd *cobra.Command, args []string) error {
	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	p, err := findPreset(session.Settings(), args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID: %s\n", p.ID)
	fmt.Fprintf(out, "Name: %s\n", p.Name)
	fmt.Fprintf(out, "\nContent:\n%s\n", p.Content)
	return nil
}

func runPresetAdd(cmd *cobra.Command, args []string) error {
	content, err := presetContent(cmd, args[1:])
	if err != nil {
		return err
	}

	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	var added config.Preset
	if _, err := session.UpdateSettings(func(s *config.ChatSettings) error {
		p, err := s.AddPreset(args[0], content)
		added = p
		return err
	}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Preset '%s' added and selected (id %s).\n", added.Name, added.ID)
	return nil
}

func runPresetEdit(cmd *cobra.Command, args []string) error {
	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	p, err := findPreset(session.Settings(), args[0])
	if err != nil {
		return err
	}

	name, content := p.Name, p.Content
	if presetNameFlag != "" {
		name = presetNameFlag
	}
	if len(args) > 1 || presetFileFlag != "" {
		if content, err = presetContent(cmd, args[1:]); err != nil {
			return err
		}
	}

	if _, err := session.UpdateSettings(func(s *config.ChatSettings) error {
		return s.UpdatePreset(p.ID, name, content)
	}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Preset '%s' updated.\n", name)
	return nil
}

func runPresetDelete(cmd *cobra.Command, args []string) error {
	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	p, err := findPreset(session.Settings(), args[0])
	if err != nil {
		return err
	}
	if _, err := session.UpdateSettings(func(s *config.ChatSettings) error {
		return s.DeletePreset(p.ID)
	}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Preset '%s' deleted.\n", p.Name)
	return nil
}

func runPresetUse(cmd *cobra.Command, args []string) error {
	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	p, err := findPreset(session.Settings(), args[0])
	if err != nil {
		return err
	}
	if _, err := session.UpdateSettings(func(s *config.ChatSettings) error {
		return s.SelectPreset(p.ID)
	}); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Preset '%s' selected.\n", p.Name)
	return nil
}

func findPreset(settings config.ChatSettings, ref string) (config.Preset, error) {
	p, ok := settings.ResolvePreset(ref)
	if !ok {
		return config.Preset{}, fmt.Errorf("preset '%s' not found", ref)
	}
	return p, nil
}

// presetContent returns the content from args, --file or stdin, in that
// order.
func presetContent(cmd *cobra.Command, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	if presetFileFlag != "" {
		data, err := os.ReadFile(presetFileFlag)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), nil
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "Enter the system prompt (end with an empty line):")
	reader := bufio.NewReader(cmd.InOrStdin())
	var lines []string
	for {
		line, err := reader.ReadString('\n')
		line = strings.TrimRight(line, "\n\r")
		if line == "" {
			break
		}
		lines = append(lines, line)
		if err != nil {
			break
		}
	}
	return strings.Join(lines, "\n"), nil
}
