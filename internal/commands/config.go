package commands

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/diogo/glmchat/internal/config"
	"github.com/diogo/glmchat/internal/models"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show and change configuration",
	Long: `Show and change glmchat configuration.

Application options live in config.toml. Chat settings (api_key, model,
temperature, max_tokens) are stored with your conversations.`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the configuration and chat settings",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a configuration option or chat setting",
	Args:  cobra.ExactArgs(2),
	RunE:  runConfigSet,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config.toml if none exists",
	RunE:  runConfigInit,
}

var configModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List known models",
	RunE:  runConfigModels,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configModelsCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if path, err := config.GetConfigPath(); err == nil {
		fmt.Fprintf(out, "# %s\n", path)
	}
	if err := toml.NewEncoder(out).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	s := session.Settings()
	preset := "(none)"
	if p, ok := s.FindPreset(s.SelectedPreset); ok {
		preset = p.Name
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "# chat settings")
	fmt.Fprintf(out, "api_key = %s\n", config.MaskedAPIKey(s.EffectiveAPIKey()))
	fmt.Fprintf(out, "model = %s\n", s.Model)
	fmt.Fprintf(out, "temperature = %s\n", strconv.FormatFloat(s.Temperature, 'f', -1, 64))
	fmt.Fprintf(out, "max_tokens = %d\n", s.MaxTokens)
	fmt.Fprintf(out, "preset = %s\n", preset)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	key, value := strings.ToLower(args[0]), args[1]

	if slices.Contains(config.SettingKeys(), key) {
		session, err := openSession()
		if err != nil {
			return err
		}
		defer func() { _ = session.Close() }()

		if _, err := session.UpdateSettings(func(s *config.ChatSettings) error {
			return s.Set(key, value)
		}); err != nil {
			return err
		}
		if key == "api_key" {
			value = config.MaskedAPIKey(value)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
		return nil
	}

	if !slices.Contains(config.ConfigKeys(), key) {
		return fmt.Errorf("unknown key %q (valid: %s, %s)", key,
			strings.Join(config.SettingKeys(), ", "), strings.Join(config.ConfigKeys(), ", "))
	}

	if err := cfg.Set(key, value); err != nil {
		return err
	}
	if err := config.SaveConfig(cfg); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
	return nil
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path, err := config.GetConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Config already exists: %s\n", path)
		return nil
	}
	if err := config.SaveConfig(config.DefaultConfig()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Config written to %s\n", path)
	return nil
}

func runConfigModels(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	for _, m := range models.AllModels() {
		marker := " "
		if m.ID == models.DefaultModel.ID {
			marker = "*"
		}
		var caps []string
		if m.Vision {
			caps = append(caps, "vision")
		}
		if m.URLImagesOnly {
			caps = append(caps, "url-images")
		}
		if m.Reasoning {
			caps = append(caps, "reasoning")
		}
		fmt.Fprintf(out, "%s %-24s %-17s %s\n", marker, m.ID, m.Family, strings.Join(caps, ","))
	}
	return nil
}
