package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"plugdir/internal/modules/discovery/dto"
	"plugdir/internal/ui/theme"
)

// Port is the minimal interface this view needs from the discovery
// use-case.
type Port interface {
	Initialize(ctx context.Context) (dto.ScanResult, error)
	List(ctx context.Context) ([]dto.PluginInfo, error)
}

// ScanDoneMsg is sent when the folder scan finishes.
type ScanDoneMsg struct {
	Result dto.ScanResult
	Err    error
}

type pluginItem struct{ p dto.PluginInfo }

func (i pluginItem) Title() string       { return i.p.Name + " " + i.p.Version }
func (i pluginItem) Description() string { return i.p.SourceModulePath }
func (i pluginItem) FilterValue() string { return i.p.Name + " " + i.p.TypeName }

type pane int

const (
	paneScanning pane = iota // scan in flight
	paneList                 // user browses discovered plugins
	paneDetail               // one plugin's fields
)

// Model is the self-contained Bubble Tea model for the catalog browser.
type Model struct {
	port       Port
	pane       pane
	pluginList list.Model
	detail     viewport.Model
	spinner    spinner.Model
	result     dto.ScanResult
	selected   dto.PluginInfo
	scanErr    error
	width      int
	height     int
}

func New(port Port) Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(theme.Lavender).BorderForeground(theme.Lavender)
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(theme.Sapphire).BorderForeground(theme.Lavender)

	l := list.New(nil, delegate, 0, 0)
	l.Title = "Discovered plugins"
	l.Styles.Title = theme.Title
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)

	vp := viewport.New(0, 0)
	vp.Style = lipgloss.NewStyle().
		Background(theme.Mantle).
		Foreground(theme.Text).
		Padding(1)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Lavender)

	return Model{
		port:       port,
		pane:       paneScanning,
		pluginList: l,
		detail:     vp,
		spinner:    sp,
	}
}

// Filtering reports whether the plugin list's search filter is active.
func (m Model) Filtering() bool {
	return m.pluginList.FilterState() == list.Filtering
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.scanCmd(), m.spinner.Tick)
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()

	case ScanDoneMsg:
		if msg.Err != nil {
			m.scanErr = msg.Err
			m.pane = paneList
			return m, nil
		}
		m.result = msg.Result
		items := make([]list.Item, len(msg.Result.Plugins))
		for i, p := range msg.Result.Plugins {
			items[i] = pluginItem{p: p}
		}
		cmds = append(cmds, m.pluginList.SetItems(items))
		m.pane = paneList

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case tea.KeyMsg:
		switch m.pane {
		case paneList:
			switch msg.String() {
			case "enter":
				if item, ok := m.pluginList.SelectedItem().(pluginItem); ok {
					m.selected = item.p
					m.detail.SetContent(m.renderDetail())
					m.detail.GotoTop()
					m.pane = paneDetail
				}
			default:
				var lCmd tea.Cmd
				m.pluginList, lCmd = m.pluginList.Update(msg)
				cmds = append(cmds, lCmd)
			}

		case paneDetail:
			switch msg.String() {
			case "esc":
				m.pane = paneList
			default:
				var vCmd tea.Cmd
				m.detail, vCmd = m.detail.Update(msg)
				cmds = append(cmds, vCmd)
			}
		}
		return m, tea.Batch(cmds...)
	}

	if m.pane == paneList {
		var lCmd tea.Cmd
		m.pluginList, lCmd = m.pluginList.Update(msg)
		cmds = append(cmds, lCmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.pane == paneScanning {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center,
			m.spinner.View()+" Scanning…")
	}

	header := m.renderHeader()
	headerH := lipgloss.Height(header)
	bodyH := m.height - headerH
	if bodyH < 1 {
		bodyH = 1
	}

	var body string
	switch m.pane {
	case paneList:
		if m.scanErr != nil {
			body = lipgloss.Place(m.width, bodyH, lipgloss.Center, lipgloss.Center,
				theme.Hot.Render("Scan failed: "+m.scanErr.Error()))
			break
		}
		listW := m.width * 6 / 10
		hintW := m.width - listW
		listPane := lipgloss.NewStyle().Width(listW).Height(bodyH).Render(m.pluginList.View())
		hint := theme.Muted.Render("enter: details  /: filter")
		hintPane := lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).BorderForeground(theme.Surface1).
			Background(theme.Mantle).Width(hintW - 2).Height(bodyH - 2).
			Render(hint)
		body = lipgloss.JoinHorizontal(lipgloss.Top, listPane, hintPane)

	case paneDetail:
		hint := theme.Muted.Render("esc: back to list  ↑/↓: scroll\n")
		hintH := lipgloss.Height(hint)
		m.detail.Height = bodyH - hintH
		if m.detail.Height < 1 {
			m.detail.Height = 1
		}
		body = lipgloss.JoinVertical(lipgloss.Left, hint, m.detail.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func (m *Model) resize() {
	m.pluginList.SetSize(m.width*6/10, m.height-3)
	m.detail.Width = m.width - 4
	m.detail.Height = m.height - 4
}

func (m Model) renderHeader() string {
	status := fmt.Sprintf("%d plugins in %d modules", len(m.result.Plugins), m.result.ModuleCount)
	if len(m.result.LoadFailures) > 0 {
		status += theme.Hot.Render(fmt.Sprintf("  (%d load failures)", len(m.result.LoadFailures)))
	}
	return theme.Title.Render("plugdir") + "  " + theme.Muted.Render(status) + "\n"
}

func (m Model) renderDetail() string {
	p := m.selected
	var sb strings.Builder
	sb.WriteString(theme.Title.Render(p.Name+" "+p.Version) + "\n\n")
	sb.WriteString(theme.Muted.Render("module: ") + p.SourceModulePath + "\n")
	sb.WriteString(theme.Muted.Render("type:   ") + p.TypeName + "\n")
	return sb.String()
}

func (m Model) scanCmd() tea.Cmd {
	return func() tea.Msg {
		result, err := m.port.Initialize(context.Background())
		return ScanDoneMsg{Result: result, Err: err}
	}
}
