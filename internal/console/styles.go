package console

import (
	"github.com/AlexandrinoANP/ANP/internal/orchestrator"
	"github.com/charmbracelet/lipgloss"
)

// Catppuccin Mocha
const (
	colorMauve    lipgloss.Color = "#cba6f7"
	colorRed      lipgloss.Color = "#f38ba8"
	colorPeach    lipgloss.Color = "#fab387"
	colorYellow   lipgloss.Color = "#f9e2af"
	colorGreen    lipgloss.Color = "#a6e3a1"
	colorTeal     lipgloss.Color = "#94e2d5"
	colorBlue     lipgloss.Color = "#89b4fa"
	colorLavender lipgloss.Color = "#b4befe"
	colorText     lipgloss.Color = "#cdd6f4"
	colorSubtext0 lipgloss.Color = "#a6adc8"
	colorOverlay1 lipgloss.Color = "#7f849c"
	colorSurface1 lipgloss.Color = "#45475a"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(colorMauve)
	subtleStyle  = lipgloss.NewStyle().Foreground(colorOverlay1)
	commandStyle = lipgloss.NewStyle().Foreground(colorText)
	resultStyle  = lipgloss.NewStyle().Foreground(colorSubtext0).Italic(true)
	errorStyle   = lipgloss.NewStyle().Foreground(colorRed)
	noticeStyle  = lipgloss.NewStyle().Foreground(colorGreen)
	inputBox     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorLavender).
			Padding(0, 1)
	historyBox = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(colorSurface1)
)

var statusColors = map[orchestrator.Status]lipgloss.Color{
	orchestrator.StatusPending:    colorOverlay1,
	orchestrator.StatusProcessing: colorYellow,
	orchestrator.StatusCompleted:  colorGreen,
	orchestrator.StatusError:      colorRed,
}

var categoryColors = map[orchestrator.Category]lipgloss.Color{
	orchestrator.CategoryContent:    colorBlue,
	orchestrator.CategoryAutomation: colorTeal,
	orchestrator.CategorySocial:     colorMauve,
	orchestrator.CategoryCalendar:   colorPeach,
	orchestrator.CategoryCRM:        colorLavender,
}

// statusLabels 面板上的状态文案
var statusLabels = map[orchestrator.Status]string{
	orchestrator.StatusPending:    "Pendente",
	orchestrator.StatusProcessing: "Processando",
	orchestrator.StatusCompleted:  "Concluído",
	orchestrator.StatusError:      "Erro",
}

func statusBadge(status orchestrator.Status) string {
	return lipgloss.NewStyle().
		Foreground(statusColors[status]).
		Width(12).
		Render(statusLabels[status])
}

func categoryBadge(category orchestrator.Category) string {
	return lipgloss.NewStyle().
		Foreground(categoryColors[category]).
		Width(11).
		Render(string(category))
}
