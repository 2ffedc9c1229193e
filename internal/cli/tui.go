package cli

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/depresolve/pkg/report"
)

var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	detailBoxStyle    = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(colorDim).
				Padding(0, 1)
)

// =============================================================================
// ReportModel - interactive component browser
// =============================================================================

// ReportModel is the bubbletea model for browsing the components of a report.
// The list is indented by depth; the detail pane describes the component
// under the cursor.
type ReportModel struct {
	Report *report.Report
	Cursor int
	Height int
	Offset int

	failed map[string][]string
}

// NewReportModel creates a browser for r.
func NewReportModel(r *report.Report) ReportModel {
	failed := make(map[string][]string, len(r.Unresolved))
	for _, u := range r.Unresolved {
		failed[u.Ref] = u.Errors
	}
	return ReportModel{Report: r, Height: 15, failed: failed}
}

func (m ReportModel) Init() tea.Cmd {
	return nil
}

func (m ReportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	n := len(m.Report.Components)
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < n-1 {
				m.Cursor++
			}
		case "home", "g":
			m.Cursor = 0
		case "end", "G":
			m.Cursor = max(n-1, 0)
		case "n":
			m.Cursor = m.nextUnresolved()
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-14, 5)
	}
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
	return m, nil
}

// nextUnresolved returns the index of the next unresolved component after
// the cursor, wrapping around, or the cursor if there is none.
func (m ReportModel) nextUnresolved() int {
	n := len(m.Report.Components)
	for i := 1; i <= n; i++ {
		j := (m.Cursor + i) % n
		if _, ok := m.failed[m.Report.Components[j].Ref]; ok {
			return j
		}
	}
	return m.Cursor
}

func (m ReportModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render(m.Report.Root))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  n next unresolved  q quit"))
	b.WriteString("\n\n")

	comps := m.Report.Components
	if len(comps) == 0 {
		b.WriteString(listDimStyle.Render("  no components"))
		b.WriteString("\n")
		return b.String()
	}

	end := min(m.Offset+m.Height, len(comps))
	for i := m.Offset; i < end; i++ {
		c := comps[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		mark := styleIconSuccess.Render(iconSuccess)
		if _, bad := m.failed[c.Ref]; bad {
			mark = styleIconError.Render(iconError)
		} else if c.File == "" {
			mark = listDimStyle.Render("·")
		}
		line := cursor + strings.Repeat("  ", c.Depth) + c.Ref
		if i == m.Cursor {
			line = listSelectedStyle.Render(line)
		}
		b.WriteString(line + " " + mark + "\n")
	}
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(comps))))
	b.WriteString("\n\n")
	b.WriteString(detailBoxStyle.Render(m.detail(comps[m.Cursor])))
	return b.String()
}

func (m ReportModel) detail(c report.Component) string {
	rows := [][2]string{
		{"purl", c.PURL},
		{"scope", c.Scope},
		{"file", c.File},
		{"sha256", c.SHA256},
		{"repository", c.Repository},
	}
	if c.Optional {
		rows = append(rows, [2]string{"optional", "true"})
	}
	var lines []string
	for _, r := range rows {
		if r[1] == "" {
			continue
		}
		lines = append(lines, StyleDim.Render(fmt.Sprintf("%-11s", r[0]))+StyleValue.Render(r[1]))
	}
	for _, e := range m.failed[c.Ref] {
		lines = append(lines, StyleError.Render(e))
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// Helpers
// =============================================================================

// reportTable renders saved report entries as a table.
func reportTable(entries []reportEntry, now time.Time) string {
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	rows := make([][]string, len(entries))
	for i, e := range entries {
		status := iconSuccess
		if e.Failed {
			status = iconError
		}
		rows[i] = []string{
			status,
			e.ID,
			e.Root,
			fmt.Sprintf("%d/%d", e.Resolved, e.Components),
			formatRelativeTime(e.CreatedAt, now),
		}
	}
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "ID", "Root", "Resolved", "Created").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 0 && entries[row].Failed {
				return lipgloss.NewStyle().Foreground(colorRed)
			}
			if col == 0 {
				return lipgloss.NewStyle().Foreground(colorGreen)
			}
			if col == 4 {
				return lipgloss.NewStyle().Foreground(colorDim)
			}
			return lipgloss.NewStyle()
		}).
		Render()
}

// reportEntry is one row of the report list.
type reportEntry struct {
	ID         string
	Root       string
	CreatedAt  time.Time
	Components int
	Resolved   int
	Failed     bool
}

func formatRelativeTime(t, now time.Time) string {
	diff := now.Sub(t)
	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2, 2006")
	}
}
