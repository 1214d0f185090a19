// Package ui is the operator console served over SSH.
package ui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/deemkeen/kinship/domain"
	"github.com/deemkeen/kinship/notify"
	"github.com/deemkeen/kinship/ui/common"
	"github.com/deemkeen/kinship/util"
)

const RefreshInterval = 2 * time.Second

// Source is the live engine state shown in the console.
type Source interface {
	Online() []domain.Presence
	PendingQueues() []notify.QueueSize
	Polling() int
}

type view int

const (
	onlineView view = iota
	queuesView
)

var (
	modelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(common.COLOR_LIGHTBLUE)).
		MarginLeft(1)
)

type refreshMsg time.Time

func refreshAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return refreshMsg(t)
	})
}

type Model struct {
	source  Source
	admin   string
	width   int
	height  int
	state   view
	online  table.Model
	queues  table.Model
	polling int
	updated time.Time
	now     func() time.Time
}

func NewModel(source Source, admin string, width, height int) Model {
	width = common.DefaultWindowWidth(width)
	height = common.DefaultWindowHeight(height)

	online := table.New(
		table.WithColumns([]table.Column{
			{Title: "NPID", Width: 20},
			{Title: "Status", Width: 14},
			{Title: "Now playing", Width: 30},
			{Title: "Heartbeat", Width: 10},
		}),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	queues := table.New(
		table.WithColumns([]table.Column{
			{Title: "Recipient", Width: 20},
			{Title: "Pending events", Width: 16},
		}),
		table.WithHeight(height),
	)

	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(common.COLOR_GREY)).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#FAFAFA")).
		Background(lipgloss.Color(common.COLOR_PURPLE))
	online.SetStyles(styles)
	queues.SetStyles(styles)

	m := Model{
		source: source,
		admin:  admin,
		width:  width,
		height: height,
		online: online,
		queues: queues,
		now:    time.Now,
	}
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return refreshAfter(RefreshInterval)
}

func (m *Model) refresh() {
	now := m.now()

	users := m.source.Online()
	rows := make([]table.Row, 0, len(users))
	for _, p := range users {
		age := now.Sub(p.LastHeartbeat).Truncate(time.Second)
		rows = append(rows, table.Row{p.Npid, string(p.Status), p.NowPlaying, age.String()})
	}
	m.online.SetRows(rows)

	sizes := m.source.PendingQueues()
	qrows := make([]table.Row, 0, len(sizes))
	for _, q := range sizes {
		qrows = append(qrows, table.Row{q.Npid, strconv.Itoa(q.Count)})
	}
	m.queues.SetRows(qrows)

	m.polling = m.source.Polling()
	m.updated = now
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case refreshMsg:
		m.refresh()
		return m, refreshAfter(RefreshInterval)

	case tea.WindowSizeMsg:
		m.width = common.DefaultWindowWidth(msg.Width)
		m.height = common.DefaultWindowHeight(msg.Height)
		m.online.SetHeight(m.height)
		m.queues.SetHeight(m.height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab":
			if m.state == onlineView {
				m.state = queuesView
				m.online.Blur()
				m.queues.Focus()
			} else {
				m.state = onlineView
				m.queues.Blur()
				m.online.Focus()
			}
			return m, nil
		case "r":
			m.refresh()
			return m, nil
		}
	}

	var cmd tea.Cmd
	if m.state == onlineView {
		m.online, cmd = m.online.Update(msg)
	} else {
		m.queues, cmd = m.queues.Update(msg)
	}
	return m, cmd
}

func (m Model) header() string {
	title := common.TitleStyle.Render(util.GetNameAndVersion())
	online := lipgloss.NewStyle().
		Foreground(common.StatusColor(string(domain.StatusOnline))).
		Render(fmt.Sprintf("%d present", len(m.online.Rows())))
	polling := fmt.Sprintf("%d polling", m.polling)
	return lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", online, " · ", polling)
}

func (m Model) tabs() string {
	names := []string{"Online", "Queues"}
	rendered := make([]string, len(names))
	for i, name := range names {
		if view(i) == m.state {
			rendered[i] = common.ActiveTabStyle.Render(name)
		} else {
			rendered[i] = common.TabStyle.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
}

func (m Model) View() string {
	var body string
	switch m.state {
	case onlineView:
		if len(m.online.Rows()) == 0 {
			body = common.EmptyStyle.Render("Nobody is online.")
		} else {
			body = m.online.View()
		}
	case queuesView:
		if len(m.queues.Rows()) == 0 {
			body = common.EmptyStyle.Render("No pending events.")
		} else {
			body = m.queues.View()
		}
	}

	var sb strings.Builder
	sb.WriteString(m.header())
	sb.WriteString("\n")
	sb.WriteString(m.tabs())
	sb.WriteString("\n")
	sb.WriteString(modelStyle.MaxWidth(m.width).Render(body))
	sb.WriteString("\n")
	sb.WriteString(common.HelpStyle.Render(fmt.Sprintf(
		"tab: switch view • r: refresh • q: quit • signed in as %s • updated %s",
		m.admin, m.updated.Format("15:04:05"))))
	return sb.String()
}
