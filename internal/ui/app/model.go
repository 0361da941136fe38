package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"plugdir/internal/ui/views/catalog"
)

// Model is the top-level Bubble Tea model: it hosts the catalog browser
// and owns global quit handling.
type Model struct {
	view catalog.Model
}

func New(port catalog.Port) Model {
	return Model{view: catalog.New(port)}
}

func (m Model) Init() tea.Cmd {
	return m.view.Init()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok && !m.view.Filtering() {
		switch key.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	}
	var cmd tea.Cmd
	m.view, cmd = m.view.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	return m.view.View()
}
