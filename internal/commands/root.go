// Package commands provides CLI commands for glmchat.
package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diogo/glmchat/internal/config"
	"github.com/diogo/glmchat/internal/logging"
)

var (
	// Global flags
	modelFlag   string
	verboseFlag bool

	// Root flags
	outputFlag string
	fileFlag   string
	attachFlag []string
	rawFlag    bool
	newFlag    bool

	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// state shared by the subcommands of one invocation
var (
	cfg    = config.DefaultConfig()
	logger = zap.NewNop()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "glmchat [prompt]",
	Short: "CLI for the GLM chat, image and video models",
	Long: `glmchat is a command-line client for the BigModel open platform. It keeps
conversations locally and supports chat, image generation and video
generation.

Examples:
  glmchat chat                          Start interactive chat
  glmchat "What is Go?"                 Send a single message
  glmchat -a photo.png "What is this?"  Attach an image
  glmchat -f prompt.md                  Read the message from a file
  cat prompt.md | glmchat               Read the message from stdin
  glmchat image "a lighthouse at dusk"  Generate an image
  glmchat video "waves at sunrise"      Generate a video
  glmchat config set api_key <key>      Store your API key`,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Fprintf(cmd.OutOrStdout(), "glmchat %s (built %s)\n", Version, BuildTime)
			return nil
		}

		if fileFlag != "" {
			data, err := os.ReadFile(fileFlag)
			if err != nil {
				return fmt.Errorf("failed to read file: %w", err)
			}
			return runQuery(cmd, string(data))
		}

		if len(args) > 0 {
			return runQuery(cmd, args[0])
		}

		if stdinHasData() {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("failed to read stdin: %w", err)
			}
			return runQuery(cmd, string(data))
		}

		if len(attachFlag) > 0 {
			return runQuery(cmd, "")
		}
		return cmd.Help()
	},
}

// setup loads the configuration and the logger before any command runs.
func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "Warning: %v (using defaults)\n", err)
	}
	cfg = loaded

	l, err := logging.New(cfg.LogLevel, verboseFlag || cfg.Verbose)
	if err != nil {
		return err
	}
	logger = l
	return nil
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Error"))
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "Model to use (e.g., glm-4-flash-250414)")
	rootCmd.PersistentFlags().BoolVar(&verboseFlag, "verbose", false, "Log debug output to stderr")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Save response to file")
	rootCmd.Flags().StringVarP(&fileFlag, "file", "f", "", "Read prompt from file")
	rootCmd.Flags().StringSliceVarP(&attachFlag, "attach", "a", nil, "Attach an image or document (path or URL, repeatable)")
	rootCmd.Flags().BoolVar(&rawFlag, "raw", false, "Print only the answer text")
	rootCmd.Flags().BoolVar(&newFlag, "new", false, "Start a new conversation for this message")
	rootCmd.Flags().BoolP("version", "v", false, "Show version and exit")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(imageCmd)
	rootCmd.AddCommand(videoCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(presetCmd)
	rootCmd.AddCommand(configCmd)
}

// stdinHasData reports whether stdin is a pipe or a file.
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

// modelOverride returns the --model flag resolved to a known id, or "".
func modelOverride() string {
	return strings.TrimSpace(modelFlag)
}
