package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/diogo/glmchat/internal/chat"
	"github.com/diogo/glmchat/internal/config"
	apierrors "github.com/diogo/glmchat/internal/errors"
	"github.com/diogo/glmchat/internal/render"
)

// Gradient colors for animation
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#ff6b6b"),
	lipgloss.Color("#feca57"),
	lipgloss.Color("#48dbfb"),
	lipgloss.Color("#ff9ff3"),
	lipgloss.Color("#54a0ff"),
	lipgloss.Color("#5f27cd"),
	lipgloss.Color("#00d2d3"),
	lipgloss.Color("#1dd1a1"),
}

var (
	colorText     = lipgloss.Color("#c0caf5")
	colorTextDim  = lipgloss.Color("#565f89")
	colorTextMute = lipgloss.Color("#3b4261")
	colorSuccess  = lipgloss.Color("#9ece6a")
	colorPrimary  = lipgloss.Color("#7aa2f7")
	colorError    = lipgloss.Color("#f7768e")
)

var (
	assistantLabelStyle = lipgloss.NewStyle().
				Foreground(colorPrimary).
				Bold(true)

	assistantBubbleStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorPrimary).
				Foreground(colorText).
				Padding(0, 1).
				MarginTop(1).
				MarginBottom(1)

	successStyle = lipgloss.NewStyle().Foreground(colorSuccess)
	dimStyle     = lipgloss.NewStyle().Foreground(colorTextDim)
)

// spinner handles the animated loading indicator
type spinner struct {
	out     io.Writer
	message string
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	frame   int
	stopped bool
}

// newSpinner creates a new animated spinner writing to out. A nil out
// yields a spinner that draws nothing.
func newSpinner(out io.Writer, message string) *spinner {
	return &spinner{
		out:     out,
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// start begins the animation
func (s *spinner) start() {
	go func() {
		defer close(s.done)
		if s.out == nil {
			<-s.stop
			return
		}

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		fmt.Fprint(s.out, "\033[?25l")
		for {
			select {
			case <-s.stop:
				fmt.Fprint(s.out, "\r\033[K\033[?25h")
				return
			case <-ticker.C:
				s.mu.Lock()
				s.render()
				s.frame++
				s.mu.Unlock()
			}
		}
	}()
}

// render draws the current animation frame
func (s *spinner) render() {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

	spinColor := gradientColors[s.frame%len(gradientColors)]
	spinnerChar := lipgloss.NewStyle().Foreground(spinColor).Bold(true).Render(chars[s.frame%len(chars)])

	var dots strings.Builder
	numDots := (s.frame / 3) % 4
	for i := 0; i < 3; i++ {
		if i < numDots {
			dotColor := gradientColors[(s.frame+i)%len(gradientColors)]
			dots.WriteString(lipgloss.NewStyle().Foreground(dotColor).Render("●"))
		} else {
			dots.WriteString(lipgloss.NewStyle().Foreground(colorTextMute).Render("○"))
		}
	}

	msg := lipgloss.NewStyle().Foreground(colorText).Render(s.message)
	fmt.Fprintf(s.out, "\r\033[K%s %s %s", spinnerChar, msg, dots.String())
}

// stopOnce safely closes the stop channel only once
func (s *spinner) stopOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
}

// stopWithSuccess stops the spinner and shows success message
func (s *spinner) stopWithSuccess(message string) {
	s.stopOnce()
	<-s.done
	if s.out == nil {
		return
	}
	checkmark := lipgloss.NewStyle().Foreground(colorSuccess).Bold(true).Render("✓")
	fmt.Fprintf(s.out, "%s %s\n", checkmark, successStyle.Render(message))
}

// stopWithError stops the spinner
func (s *spinner) stopWithError() {
	s.stopOnce()
	<-s.done
}

// progressWriter returns where spinners draw: stderr for decorated output,
// nothing for raw output.
func progressWriter(cmd *cobra.Command, raw bool) io.Writer {
	if raw {
		return nil
	}
	return cmd.ErrOrStderr()
}

// runQuery sends one message to the current conversation and prints the
// answer.
func runQuery(cmd *cobra.Command, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" && len(attachFlag) == 0 {
		return fmt.Errorf("prompt cannot be empty")
	}

	session, err := openSession()
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	session.UseModel(modelOverride())

	conv, err := targetConversation(session, newFlag)
	if err != nil {
		return err
	}

	attachments := make([]chat.Attachment, 0, len(attachFlag))
	for _, path := range attachFlag {
		attachments = append(attachments, chat.NewAttachment(path))
	}

	errOut := progressWriter(cmd, rawFlag)
	if errOut != nil && (verboseFlag || cfg.Verbose) {
		model := modelOverride()
		if model == "" {
			model = session.Settings().Model
		}
		fmt.Fprintln(errOut, dimStyle.Render(fmt.Sprintf("[verbose] Model: %s", model)))
	}

	spin := newSpinner(errOut, "Generating response")
	spin.start()

	ctx, cancel := context.WithTimeout(cmd.Context(), requestTimeout())
	defer cancel()

	startTime := time.Now()
	msg, err := session.Send(ctx, conv.ID, prompt, attachments)
	if err != nil {
		spin.stopWithError()
		return fmt.Errorf("generation failed: %w", err)
	}
	spin.stopWithSuccess("Done")
	if errOut != nil && (verboseFlag || cfg.Verbose) {
		fmt.Fprintln(errOut, dimStyle.Render(fmt.Sprintf("[verbose] Request took %s", time.Since(startTime).Round(time.Millisecond))))
	}

	return printAnswer(cmd, msg.Content)
}

// printAnswer writes text to the output file or stdout, decorated unless
// --raw is set or stdout is not a terminal.
func printAnswer(cmd *cobra.Command, text string) error {
	if outputFlag != "" {
		if err := os.WriteFile(outputFlag, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !rawFlag {
			fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render(fmt.Sprintf("✓ Response saved to %s", outputFlag)))
		}
		return nil
	}

	if cfg.CopyToClipboard && !rawFlag {
		if err := deps.CopyToClipboard(text); err != nil {
			fmt.Fprintln(cmd.ErrOrStderr(), lipgloss.NewStyle().Foreground(colorError).Render(
				fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err),
			))
		} else {
			fmt.Fprintln(cmd.ErrOrStderr(), successStyle.Render("✓ Copied to clipboard"))
		}
	}

	out := cmd.OutOrStdout()
	if rawFlag || !isTTY(out) {
		fmt.Fprint(out, text)
		if !strings.HasSuffix(text, "\n") {
			fmt.Fprintln(out)
		}
		return nil
	}

	bubbleWidth := getTerminalWidth() - 4
	if bubbleWidth < 40 {
		bubbleWidth = 40
	}
	if bubbleWidth > 120 {
		bubbleWidth = 120
	}
	contentWidth := bubbleWidth - 4

	opts := render.OptionsFromConfig(cfg.Markdown).WithWidth(contentWidth)
	rendered := strings.TrimRight(render.MarkdownOrPlain(text, opts), "\n")

	fmt.Fprintln(out, assistantLabelStyle.Render("✦ GLM"))
	fmt.Fprintln(out, assistantBubbleStyle.Width(bubbleWidth).Render(rendered))
	return nil
}

func requestTimeout() time.Duration {
	if cfg.RequestTimeout > 0 {
		return time.Duration(cfg.RequestTimeout) * time.Second
	}
	return 5 * time.Minute
}

func writeClipboard(text string) error {
	return clipboard.WriteAll(text)
}

// getTerminalWidth returns the terminal width or a default value
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}

// isTTY reports whether w is a terminal.
func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// formatErrorMessage formats an error with additional context from structured errors
func formatErrorMessage(err error, context string) string {
	if err == nil {
		return ""
	}

	errorStyle := lipgloss.NewStyle().Foreground(colorError)

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %s", context, apierrors.UserMessage(err))))

	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode > 0 {
			sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", apiErr.StatusCode)))
		}
		if apiErr.Endpoint != "" {
			sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Endpoint: %s", apiErr.Endpoint)))
		}
		if apiErr.Message != "" {
			sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Provider: %s", apiErr.Message)))
		}
	}

	if kind := apierrors.Kind(err); kind != "Unknown" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Kind: %s", kind)))
	} else {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  %v", err)))
	}

	switch {
	case errors.Is(err, apierrors.ErrMissingCredential), errors.Is(err, apierrors.ErrInvalidCredential):
		sb.WriteString(dimStyle.Render("\n  Hint: Run 'glmchat config set api_key <key>' or set " + config.EnvAPIKey))
	case errors.Is(err, apierrors.ErrRateLimited):
		sb.WriteString(dimStyle.Render("\n  Hint: You've hit the usage limit. Try again later or use a different model"))
	case errors.Is(err, apierrors.ErrNetworkUnavailable):
		sb.WriteString(dimStyle.Render("\n  Hint: Check your internet connection and try again"))
	case errors.Is(err, apierrors.ErrModalityUnsupported), errors.Is(err, apierrors.ErrUnsupportedCapability):
		sb.WriteString(dimStyle.Render("\n  Hint: Pick another model with --model"))
	}

	return sb.String()
}

// truncate shortens s to n display columns, adding "..." when cut.
func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if runewidth.StringWidth(s) <= n {
		return s
	}
	return runewidth.Truncate(s, n, "...")
}
