package styles

import (
	"github.com/charmbracelet/lipgloss/v2"
)

var (
	// MenuBar is the bottom help line of the viewer.
	MenuBar = lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("252")).
		Padding(0, 1)

	ListTitle    = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).MarginLeft(2)
	AddrSelected = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	AddrNormal   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	Spinner      = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))
	ErrorText    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
)
