package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/voltlab/distflow/pkg/pipeline"
	"github.com/voltlab/distflow/pkg/report"
)

// Voltage bands for highlighting, per the usual ANSI service limits.
const (
	voltageLow      = 0.95
	voltageCritical = 0.90
)

var (
	listDimStyle     = lipgloss.NewStyle().Foreground(colorDim)
	styleVoltageLow  = lipgloss.NewStyle().Foreground(colorYellow)
	styleVoltageCrit = lipgloss.NewStyle().Foreground(colorRed)
	styleVoltageGood = lipgloss.NewStyle().Foreground(colorWhite)
	styleSelectedRow = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	styleTableHeader = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// voltageModel is the bubbletea model for browsing solve results.
type voltageModel struct {
	result *pipeline.Result
	rows   [][]string

	cursor int
	height int
	offset int
}

func newVoltageModel(res *pipeline.Result) voltageModel {
	return voltageModel{
		result: res,
		rows:   report.Rows(res.Nodes, res.Voltages),
		height: 15,
	}
}

func (m voltageModel) Init() tea.Cmd {
	return nil
}

func (m voltageModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
				if m.cursor < m.offset {
					m.offset = m.cursor
				}
			}
		case "down", "j":
			if m.cursor < len(m.rows)-1 {
				m.cursor++
				if m.cursor >= m.offset+m.height {
					m.offset = m.cursor - m.height + 1
				}
			}
		case "g", "home":
			m.cursor, m.offset = 0, 0
		case "G", "end":
			m.cursor = len(m.rows) - 1
			if m.cursor >= m.height {
				m.offset = m.cursor - m.height + 1
			}
		}
	case tea.WindowSizeMsg:
		m.height = msg.Height - 8
		if m.height < 5 {
			m.height = 5
		}
	}
	return m, nil
}

func (m voltageModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Voltage Profile"))
	b.WriteString("  ")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("root %s", m.result.Root)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  g/G top/bottom  q quit"))
	b.WriteString("\n\n")

	end := m.offset + m.height
	if end > len(m.rows) {
		end = len(m.rows)
	}

	window := make([][]string, 0, end-m.offset)
	for i := m.offset; i < end; i++ {
		row := m.rows[i]
		cursor := "  "
		if i == m.cursor {
			cursor = "▸ "
		}
		window = append(window, append([]string{cursor}, row...))
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers(append([]string{""}, report.Header...)...).
		Rows(window...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return styleTableHeader
			}
			idx := m.offset + row
			if idx >= len(m.rows) {
				return lipgloss.NewStyle()
			}
			if idx == m.cursor {
				return styleSelectedRow
			}
			if col >= 2 {
				switch v := m.result.Voltages[idx][col-2]; {
				case v > 0 && v < voltageCritical:
					return styleVoltageCrit
				case v > 0 && v < voltageLow:
					return styleVoltageLow
				}
			}
			return styleVoltageGood
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.cursor+1, len(m.rows))))

	return b.String()
}
