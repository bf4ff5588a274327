package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var inspectProjectKey string

// inspectCmd opens the interactive graph browser.
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Browse the live graph interactively",
	Long: `Opens a terminal UI listing every active node in the user level
(and, with --project, a project level too). Select a node to see its gist,
notes, and connected edges.`,
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectProjectKey, "project", "", "also load this project's graph")
}

type node struct {
	ID      string   `json:"id"`
	Gist    string   `json:"gist"`
	Touches []string `json:"touches,omitempty"`
	Notes   []string `json:"notes,omitempty"`
}

type edge struct {
	From  string   `json:"from"`
	To    string   `json:"to"`
	Rel   string   `json:"rel"`
	Notes []string `json:"notes,omitempty"`
}

type levelGraph struct {
	Nodes []node `json:"nodes"`
	Edges []edge `json:"edges"`
}

type readResult struct {
	User    levelGraph `json:"user"`
	Project levelGraph `json:"project"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()

	client := newRPCClient(addr)
	var result readResult
	if err := client.Call(ctx, "read", map[string]any{"project_key": inspectProjectKey}, &result); err != nil {
		return err
	}

	nodes := append([]node{}, result.User.Nodes...)
	nodes = append(nodes, result.Project.Nodes...)
	edges := append([]edge{}, result.User.Edges...)
	edges = append(edges, result.Project.Edges...)

	if len(nodes) == 0 {
		fmt.Println("no active nodes to inspect")
		return nil
	}

	model := newInspectModel(nodes, edges)
	_, err := tea.NewProgram(model, tea.WithAltScreen()).Run()
	return err
}

// inspectModel is the bubbletea model for the graph browser: a node list on
// the left driving a detail viewport on the right.
type inspectModel struct {
	nodes    []node
	edgesOf  map[string][]edge
	cursor   int
	viewport viewport.Model
	ready    bool
	width    int
	height   int
}

func newInspectModel(nodes []node, edges []edge) inspectModel {
	edgesOf := make(map[string][]edge)
	for _, e := range edges {
		edgesOf[e.From] = append(edgesOf[e.From], e)
		edgesOf[e.To] = append(edgesOf[e.To], e)
	}
	return inspectModel{nodes: nodes, edgesOf: edgesOf}
}

func (m inspectModel) Init() tea.Cmd {
	return nil
}

func (m inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		viewportHeight := m.height - 2
		if !m.ready {
			m.viewport = viewport.New(m.width/2, viewportHeight)
			m.ready = true
		} else {
			m.viewport.Width = m.width / 2
			m.viewport.Height = viewportHeight
		}
		m.viewport.SetContent(m.renderDetail())

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "j", "down":
			if m.cursor < len(m.nodes)-1 {
				m.cursor++
				m.viewport.SetContent(m.renderDetail())
			}
		case "k", "up":
			if m.cursor > 0 {
				m.cursor--
				m.viewport.SetContent(m.renderDetail())
			}
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m inspectModel) View() string {
	if !m.ready {
		return "loading...\n"
	}

	listWidth := m.width - m.viewport.Width
	var list strings.Builder
	for i, n := range m.nodes {
		row := n.ID
		if i == m.cursor {
			row = selectedRowStyle.Render("> " + row)
		} else {
			row = "  " + row
		}
		list.WriteString(row)
		list.WriteString("\n")
	}

	listPane := lipgloss.NewStyle().Width(listWidth).Height(m.viewport.Height).Render(list.String())
	detailPane := m.viewport.View()
	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, detailPane) + "\n" + helpStyle.Render("j/k move  q quit")
}

func (m inspectModel) renderDetail() string {
	if m.cursor >= len(m.nodes) {
		return ""
	}
	n := m.nodes[m.cursor]

	var b strings.Builder
	b.WriteString(titleStyle.Render(n.ID))
	b.WriteString("\n\n")
	b.WriteString(n.Gist)
	b.WriteString("\n")

	if len(n.Touches) > 0 {
		b.WriteString("\ntouches:\n")
		for _, t := range n.Touches {
			b.WriteString("  " + t + "\n")
		}
	}
	if len(n.Notes) > 0 {
		b.WriteString("\nnotes:\n")
		for _, note := range n.Notes {
			b.WriteString("  " + note + "\n")
		}
	}

	if edges := m.edgesOf[n.ID]; len(edges) > 0 {
		b.WriteString("\nedges:\n")
		for _, e := range edges {
			b.WriteString(fmt.Sprintf("  %s --%s--> %s\n", e.From, e.Rel, e.To))
		}
	}

	return b.String()
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	selectedRowStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("212"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
)
