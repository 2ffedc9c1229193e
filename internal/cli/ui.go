package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/depresolve/pkg/graph"
	"github.com/matzehuels/depresolve/pkg/report"
)

var (
	colorCyan   = lipgloss.Color("36")
	colorGreen  = lipgloss.Color("35")
	colorYellow = lipgloss.Color("220")
	colorRed    = lipgloss.Color("167")
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

var (
	StyleTitle     = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)
	StyleDim       = lipgloss.NewStyle().Foreground(colorDim)
	StyleValue     = lipgloss.NewStyle().Foreground(colorWhite)
	StyleSuccess   = lipgloss.NewStyle().Foreground(colorGreen)
	StyleWarning   = lipgloss.NewStyle().Foreground(colorYellow)
	StyleError     = lipgloss.NewStyle().Foreground(colorRed)
)

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconCycle   = "↺"
	iconArrow   = "→"
)

func printSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func printError(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconError.Render(iconError)+" "+fmt.Sprintf(format, args...))
}

func printWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printFile(w io.Writer, path string) {
	fmt.Fprintln(w, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// printTree prints t indented by depth. Each line shows the coordinate,
// the scope when it is not compile, and a resolution marker when
// markResolved is set.
func printTree(w io.Writer, t *graph.Tree, markResolved bool) {
	t.Walk(func(n *graph.Node, parents []graph.NodeID) bool {
		indent := strings.Repeat("  ", len(parents))
		if n.Virtual {
			fmt.Fprintln(w, indent+StyleDim.Render("(dependencies)"))
			return true
		}
		c := n.Coordinate()
		line := indent + StyleDim.Render(c.GroupID+":") + StyleValue.Render(c.ArtifactID) + StyleDim.Render(":"+c.Version)
		if s := n.Dependency.EffectiveScope(); s != "compile" {
			line += " " + StyleDim.Render("("+s+")")
		}
		if n.Dependency.Optional {
			line += " " + StyleDim.Render("optional")
		}
		if markResolved {
			if n.IsResolved() {
				line += " " + styleIconSuccess.Render(iconSuccess)
			} else {
				line += " " + styleIconError.Render(iconError)
			}
		}
		fmt.Fprintln(w, line)
		return true
	})
}

// printComponents prints the components of a report indented by depth.
func printComponents(w io.Writer, r *report.Report) {
	failed := make(map[string]bool, len(r.Unresolved))
	for _, u := range r.Unresolved {
		failed[u.Ref] = true
	}
	for _, c := range r.Components {
		line := strings.Repeat("  ", c.Depth) + StyleValue.Render(c.Ref)
		if c.Scope != "" && c.Scope != "compile" {
			line += " " + StyleDim.Render("("+c.Scope+")")
		}
		if failed[c.Ref] {
			line += " " + styleIconError.Render(iconError)
		} else if c.File != "" {
			line += " " + styleIconSuccess.Render(iconSuccess)
		}
		fmt.Fprintln(w, line)
	}
}

// printCycles prints one line per recorded cycle.
func printCycles(w io.Writer, cycles [][]string) {
	for _, c := range cycles {
		path := append(c[:len(c):len(c)], c[0])
		fmt.Fprintln(w, styleIconWarning.Render(iconCycle)+" "+StyleWarning.Render(strings.Join(path, " "+iconArrow+" ")))
	}
}

// printSummary prints the headline counts of r and its failures.
func printSummary(w io.Writer, r *report.Report, resolved bool) {
	parts := []string{fmt.Sprintf("%d components", r.Summary.Components)}
	if resolved {
		parts = append(parts,
			StyleSuccess.Render(fmt.Sprintf("%d resolved", r.Summary.Resolved)),
			fmt.Sprintf("%d unresolved", r.Summary.Unresolved))
	}
	if r.Summary.Cycles > 0 {
		parts = append(parts, fmt.Sprintf("%d cycles", r.Summary.Cycles))
	}
	fmt.Fprintln(w, "  "+strings.Join(parts, StyleDim.Render(" · ")))

	for _, u := range r.Unresolved {
		printError(w, "%s", u.Ref)
		for _, e := range u.Errors {
			printDetail(w, "%s", e)
		}
	}
	for _, e := range r.CollectionErrors {
		printWarning(w, "%s", e)
	}
}
