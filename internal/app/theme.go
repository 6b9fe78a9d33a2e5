package app

import "github.com/charmbracelet/lipgloss"

const (
	bubblePaddingVertical   = 0
	bubblePaddingHorizontal = 1
	taskPaneWidth           = 34
)

var (
	headerStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	helpStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	statusStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	metaStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Faint(true)
	userBubbleStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240")).Background(lipgloss.Color("236")).Padding(bubblePaddingVertical, bubblePaddingHorizontal)
	agentBubbleStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(bubblePaddingVertical, bubblePaddingHorizontal)
	systemBubbleStyle  = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("237")).Foreground(lipgloss.Color("245")).Padding(bubblePaddingVertical, bubblePaddingHorizontal)
	questionStyle      = lipgloss.NewStyle().Border(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("179")).Foreground(lipgloss.Color("230")).Padding(bubblePaddingVertical, bubblePaddingHorizontal)
	specificationStyle = lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color("108")).Padding(bubblePaddingVertical, bubblePaddingHorizontal)
	taskPaneStyle      = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("238")).PaddingLeft(1)

	taskPendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	taskActiveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("110")).Bold(true)
	taskDoneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("70"))
	taskFailedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	taskWaitingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("179"))

	toastInfoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("29")).Bold(true)
	toastErrorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("160")).Bold(true)
)
