package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/flowscope/pkg/hgraph"
	"github.com/matzehuels/flowscope/pkg/render"
	"github.com/matzehuels/flowscope/pkg/session"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listNormalStyle   = lipgloss.NewStyle().Foreground(colorWhite)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

const maxHyperRows = 6

// exploreCommand creates the interactive explore command.
func (c *CLI) exploreCommand() *cobra.Command {
	var (
		view viewOpts
		save string
	)

	cmd := &cobra.Command{
		Use:   "explore [graph.json]",
		Short: "Browse the container tree and collapse or expand containers",
		Long: `Browse the container tree of a graph document interactively.

Keys:
  ↑/↓ or k/j   move
  enter/space  collapse or expand the selected container
  c / e        collapse / expand everything
  r            reset to the loaded state
  q            quit

Each change schedules a relayout after the configured debounce window. With
--save, the final state is written as a graph document on exit.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runExplore(cmd.Context(), args[0], view, save)
		},
	}

	view.register(cmd.Flags())
	cmd.Flags().StringVar(&save, "save", "", "write the final state to this file")

	return cmd
}

func (c *CLI) runExplore(ctx context.Context, input string, view viewOpts, save string) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	sess, err := c.openSession(ctx, input, view, cfg.Layout.Debounce.Duration)
	if err != nil {
		return err
	}
	defer sess.Close()

	m := newExploreModel(ctx, sess)
	defer m.unsubscribe()
	if _, err := tea.NewProgram(m, tea.WithContext(ctx), tea.WithAltScreen()).Run(); err != nil {
		return err
	}
	if save == "" {
		return nil
	}
	sess.Flush()
	data, err := sess.Snapshot()
	if err != nil {
		return err
	}
	if err := os.WriteFile(save, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", save, err)
	}
	printSuccess("Saved state")
	printFile(save)
	return nil
}

// =============================================================================
// Tree
// =============================================================================

// treeLine is one row of the container tree.
type treeLine struct {
	ID        string
	Label     string
	Depth     int
	Container bool
	Collapsed bool
	Children  int
}

// treeLines lists visible elements depth-first. Children of collapsed
// containers are not listed.
func treeLines(g *hgraph.Graph) []treeLine {
	var lines []treeLine
	var walk func(id string, depth int)
	walk = func(id string, depth int) {
		if c, ok := g.Container(id); ok {
			if !g.IsContainerVisible(id) {
				return
			}
			children := g.Children(id)
			lines = append(lines, treeLine{
				ID: id, Label: c.DisplayLabel(), Depth: depth,
				Container: true, Collapsed: c.Collapsed, Children: len(children),
			})
			if c.Collapsed {
				return
			}
			for _, child := range children {
				walk(child, depth+1)
			}
			return
		}
		if n, ok := g.Node(id); ok && g.IsNodeVisible(id) {
			lines = append(lines, treeLine{ID: id, Label: n.DisplayLabel(), Depth: depth})
		}
	}
	for _, id := range g.Roots() {
		walk(id, 0)
	}
	return lines
}

func (l treeLine) render(selected bool) string {
	icon := iconLeaf
	switch {
	case l.Container && l.Collapsed:
		icon = iconCollapsed
	case l.Container:
		icon = iconExpanded
	}
	cursor := "  "
	if selected {
		cursor = "> "
	}
	text := fmt.Sprintf("%s%s%s %s", cursor, strings.Repeat("  ", l.Depth), icon, l.Label)
	if l.Label != l.ID {
		text += listDimStyle.Render(" (" + l.ID + ")")
	}
	if l.Collapsed {
		text += listDimStyle.Render(fmt.Sprintf(" [%d hidden]", l.Children))
	}

	switch {
	case selected:
		return listSelectedStyle.Render(text)
	case l.Collapsed:
		return StyleWarning.Render(text)
	case l.Container:
		return listNormalStyle.Render(text)
	default:
		return listDimStyle.Render(text)
	}
}

// =============================================================================
// exploreModel - Interactive collapse/expand
// =============================================================================

// layoutMsg carries a render output pushed by the session.
type layoutMsg struct {
	out render.Output
	ok  bool
}

type exploreModel struct {
	ctx         context.Context
	sess        *session.Session
	updates     <-chan render.Output
	unsubscribe func()

	lines  []treeLine
	hyper  []hgraph.EdgeView
	stats  hgraph.Stats
	cursor int
	offset int
	height int

	placed int
	status string
}

func newExploreModel(ctx context.Context, sess *session.Session) *exploreModel {
	updates, cancel := sess.Subscribe(1)
	m := &exploreModel{
		ctx:         ctx,
		sess:        sess,
		updates:     updates,
		unsubscribe: cancel,
		height:      20,
		placed:      len(sess.Render().Elements),
	}
	m.refresh()
	return m
}

// refresh re-reads the tree and hyperedges from the session.
func (m *exploreModel) refresh() {
	m.hyper = m.hyper[:0]
	m.sess.View(func(g *hgraph.Graph) {
		m.lines = treeLines(g)
		for _, e := range g.VisibleEdges() {
			if e.Kind == hgraph.KindHyper {
				m.hyper = append(m.hyper, e)
			}
		}
	})
	m.stats = m.sess.Stats()
	if m.cursor >= len(m.lines) {
		m.cursor = max(len(m.lines)-1, 0)
	}
}

func (m *exploreModel) waitForLayout() tea.Cmd {
	return func() tea.Msg {
		out, ok := <-m.updates
		return layoutMsg{out: out, ok: ok}
	}
}

func (m *exploreModel) Init() tea.Cmd {
	return m.waitForLayout()
}

func (m *exploreModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case layoutMsg:
		if !msg.ok {
			return m, nil
		}
		m.placed = len(msg.out.Elements)
		m.status = fmt.Sprintf("laid out %d elements (generation %d)", m.placed, msg.out.Generation)
		return m, m.waitForLayout()

	case tea.WindowSizeMsg:
		m.height = max(msg.Height-12, 5)

	case tea.KeyMsg:
		var err error
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.lines)-1 {
				m.cursor++
			}
		case "enter", " ":
			if m.cursor < len(m.lines) && m.lines[m.cursor].Container {
				err = m.sess.Toggle(m.ctx, m.lines[m.cursor].ID)
			}
		case "c":
			err = m.sess.CollapseAll(m.ctx)
		case "e":
			err = m.sess.ExpandAll(m.ctx)
		case "r":
			err = m.sess.Reset(m.ctx)
		default:
			return m, nil
		}
		if err != nil {
			m.status = StyleWarning.Render(err.Error())
		}
		m.refresh()
		m.scroll()
	}
	return m, nil
}

// scroll keeps the cursor inside the window.
func (m *exploreModel) scroll() {
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.height {
		m.offset = m.cursor - m.height + 1
	}
}

func (m *exploreModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Explore"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ toggle  c collapse all  e expand all  r reset  q quit"))
	b.WriteString("\n\n")

	end := min(m.offset+m.height, len(m.lines))
	for i := m.offset; i < end; i++ {
		b.WriteString(m.lines[i].render(i == m.cursor))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(statsLine(m.stats)))
	b.WriteString("\n")
	if len(m.hyper) > 0 {
		b.WriteString(hyperTable(m.hyper))
		b.WriteString("\n")
	}
	if m.sess.Pending() {
		b.WriteString(listDimStyle.Render("layout pending..."))
	} else {
		b.WriteString(listDimStyle.Render(m.status))
	}
	return b.String()
}

func hyperTable(hyper []hgraph.EdgeView) string {
	rows := make([][]string, 0, maxHyperRows)
	for i, e := range hyper {
		if i == maxHyperRows {
			rows = append(rows, []string{"…", "", "", fmt.Sprintf("+%d", len(hyper)-i)})
			break
		}
		rows = append(rows, []string{e.Source, e.Target, fmt.Sprint(e.Count()), e.Style})
	}
	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("From", "To", "Edges", "Style").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			if col == 2 {
				return lipgloss.NewStyle().Foreground(colorYellow)
			}
			return lipgloss.NewStyle().Foreground(colorWhite)
		}).
		Render()
}
