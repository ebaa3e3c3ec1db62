// Package tui provides the terminal user interface for glmchat.
package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	apierrors "github.com/diogo/glmchat/internal/errors"
)

// Tokyo Night palette.
var (
	colorBorder    = lipgloss.Color("#414868")
	colorPrimary   = lipgloss.Color("#7aa2f7")
	colorSecondary = lipgloss.Color("#9ece6a")
	colorAccent    = lipgloss.Color("#bb9af7")
	colorWarning   = lipgloss.Color("#e0af68")
	colorError     = lipgloss.Color("#f7768e")
	colorText      = lipgloss.Color("#c0caf5")
	colorTextDim   = lipgloss.Color("#565f89")
	colorTextMute  = lipgloss.Color("#3b4261")
)

var (
	headerStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 2)

	titleStyle    = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	subtitleStyle = lipgloss.NewStyle().Foreground(colorTextDim)
	hintStyle     = lipgloss.NewStyle().Foreground(colorTextMute).Italic(true)

	messagesAreaStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(colorBorder).
				Padding(0, 1)

	userLabelStyle      = lipgloss.NewStyle().Foreground(colorSecondary).Bold(true)
	assistantLabelStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	errorLabelStyle     = lipgloss.NewStyle().Foreground(colorError).Bold(true)
	fileStyle           = lipgloss.NewStyle().Foreground(colorAccent).Underline(true)
	timestampStyle      = lipgloss.NewStyle().Foreground(colorTextMute)

	inputPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	inputLabelStyle   = lipgloss.NewStyle().Foreground(colorSecondary).Bold(true)
	attachmentStyle   = lipgloss.NewStyle().Foreground(colorWarning)
	loadingStyle      = lipgloss.NewStyle().Foreground(colorAccent)
	statusBarStyle    = lipgloss.NewStyle().Foreground(colorTextMute)
	statusKeyStyle    = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	statusDescStyle   = lipgloss.NewStyle().Foreground(colorTextDim)
	noticeStyle       = lipgloss.NewStyle().Foreground(colorSecondary)
	welcomeStyle      = lipgloss.NewStyle().Foreground(colorTextDim).Align(lipgloss.Center)
	welcomeTitleStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true).Align(lipgloss.Center)
)

// FormatError returns a styled error with the provider details when the
// error carries them.
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	errStyle := lipgloss.NewStyle().Foreground(colorError)
	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	sb.WriteString(errStyle.Render("✗ " + apierrors.UserMessage(err)))

	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", apiErr.StatusCode)))
		if apiErr.Message != "" {
			sb.WriteString(dimStyle.Render("\n  Provider: " + apiErr.Message))
		}
	}
	if kind := apierrors.Kind(err); kind != "Unknown" {
		sb.WriteString(dimStyle.Render("\n  Kind: " + kind))
	}
	return sb.String()
}
