package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/casebrief/internal/core/domain"
)

// Palette.
var (
	colourPrimary = lipgloss.Color("#7C3AED")
	colourMuted   = lipgloss.Color("#6C7086")
	colourSuccess = lipgloss.Color("#A6E3A1")
	colourWarning = lipgloss.Color("#F9E2AF")
	colourError   = lipgloss.Color("#F38BA8")
)

var (
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(colourPrimary).MarginTop(1)
	headerStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(colourMuted)
	successStyle = lipgloss.NewStyle().Foreground(colourSuccess)
	warningStyle = lipgloss.NewStyle().Foreground(colourWarning)
	errorStyle   = lipgloss.NewStyle().Foreground(colourError).Bold(true)
)

// connectionStyle colours a connection status.
func connectionStyle(s domain.ConnectionStatus) lipgloss.Style {
	switch s {
	case domain.ConnectionConnected:
		return successStyle
	case domain.ConnectionExpired:
		return warningStyle
	case domain.ConnectionError:
		return errorStyle
	default:
		return mutedStyle
	}
}

// jobStyle colours a job status.
func jobStyle(s domain.JobStatus) lipgloss.Style {
	switch s {
	case domain.JobCompleted:
		return successStyle
	case domain.JobFailed:
		return errorStyle
	case domain.JobCancelled:
		return warningStyle
	default:
		return mutedStyle
	}
}
