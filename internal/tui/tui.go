// Package tui is the interactive terminal front end. Every gesture goes
// through the store and persists before the next frame renders.
package tui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"
	"unsafe"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/idilsaglam/todolist/internal/model"
	"github.com/idilsaglam/todolist/internal/store"
)

// listItem adapts a todo to bubbles/list.Item
type listItem struct {
	todo model.Todo
}

func (i listItem) text() string {
	if i.todo.IsOpen() {
		return "(untitled)"
	}
	return i.todo.Title
}

// Implement list.Item interface
func (i listItem) Title() string       { return i.text() }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.todo.Title }

type uiModel struct {
	store *store.Store
	list  list.Model

	// Inline edit (also used right after adding an empty entry)
	editing bool
	editID  int
	editErr string
	ti      textinput.Model // shared text input model

	// Blocking notice, dismissed by any key
	notice string

	// Sort state: direction the next sort applies, and the last
	// applied direction for the header indicator.
	nextAsc  bool
	lastSort string
}

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, _ := item.(listItem)

	mark := accentStyle.Render(bullet)
	text := it.text()
	if it.todo.IsOpen() {
		mark = pendingStyle.Render(openMark)
		text = mutedStyle.Render(text)
	}

	line := fmt.Sprintf("%s %s", mark, text)
	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintln(w, prefix+line)
}

// Run starts the Bubble Tea program over the given store.
func Run(st *store.Store) error {
	p := tea.NewProgram(newModel(st), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func newModel(st *store.Store) uiModel {
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("todo", "todos")

	// Extend help with our bindings
	addBind := key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	editBind := key.NewBinding(key.WithKeys("e"), key.WithHelp("e/enter", "edit"))
	delBind := key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	sortBind := key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sort"))
	extra := func() []key.Binding { return []key.Binding{addBind, editBind, delBind, sortBind} }
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	m := uiModel{
		store:   st,
		list:    l,
		nextAsc: true,
	}
	m.ti = textinput.New()
	m.ti.Prompt = "> "
	m.ti.Placeholder = "Todo title..."
	m.ti.CharLimit = 200

	m.refresh()
	return m
}

// refresh rebuilds the visible list from the store.
func (m *uiModel) refresh() {
	todos := m.store.Todos()
	items := make([]list.Item, 0, len(todos))
	for _, td := range todos {
		items = append(items, listItem{todo: td})
	}
	m.list.SetItems(items)
	if idx := m.list.Index(); idx >= len(items) && len(items) > 0 {
		m.list.Select(len(items) - 1)
	}
	m.list.Title = m.headerTitle(len(todos))
}

func (m *uiModel) headerTitle(total int) string {
	title := fmt.Sprintf("%s   %s %d",
		titleStyle.Render("Todos"),
		accentStyle.Render("Total"), total,
	)
	if m.lastSort != "" {
		title += "  " + accentStyle.Render(m.lastSort)
	}
	return title
}

// selected returns the todo under the cursor.
func (m *uiModel) selected() (model.Todo, bool) {
	i := m.list.Index()
	items := m.list.Items()
	if i < 0 || i >= len(items) {
		return model.Todo{}, false
	}
	li, ok := items[i].(listItem)
	return li.todo, ok
}

// selectByID moves the cursor onto the todo with the given id.
func (m *uiModel) selectByID(id int) {
	for i, it := range m.list.Items() {
		if li, ok := it.(listItem); ok && li.todo.ID == id {
			m.list.Select(i)
			return
		}
	}
}

func (m *uiModel) startEdit(td model.Todo) {
	m.editing = true
	m.editID = td.ID
	m.editErr = ""
	m.ti.SetValue(td.Title)
	m.ti.CursorEnd()
	m.ti.Placeholder = "Todo title..."
	m.ti.Focus()
}

func (m *uiModel) stopEdit() {
	m.editing = false
	m.editErr = ""
	m.ti.SetValue("")
	m.ti.Blur()
}

// Update and View implement Bubble Tea's Model on uiModel
func (m uiModel) Init() tea.Cmd { return nil }

func (m uiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// A notice blocks everything until a key dismisses it.
	if m.notice != "" {
		if _, ok := msg.(tea.KeyMsg); ok {
			m.notice = ""
		}
		return m, nil
	}

	// edit mode
	if m.editing {
		var cmd tea.Cmd
		switch x := msg.(type) {
		case tea.KeyMsg:
			switch x.String() {
			case "enter":
				// The store trims; the raw-empty check is its call too.
				if err := m.store.Edit(m.editID, m.ti.Value()); err != nil {
					m.editErr = errMessage(err)
					return m, nil
				}
				id := m.editID
				m.stopEdit()
				m.refresh()
				m.selectByID(id)
				return m, nil
			case "esc":
				m.stopEdit()
				m.refresh()
				return m, nil
			}
		}
		m.ti, cmd = m.ti.Update(msg)
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Let the list's filter input consume keys while filtering.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit

		case "a":
			td, err := m.store.Add("")
			if err != nil {
				m.notice = errMessage(err)
				return m, nil
			}
			// A new entry arms an ascending sort again.
			m.nextAsc = true
			m.lastSort = ""
			m.refresh()
			m.selectByID(td.ID)
			m.startEdit(td)
			return m, nil

		case "e", "enter":
			if td, ok := m.selected(); ok {
				m.startEdit(td)
			}
			return m, nil

		case "d":
			if td, ok := m.selected(); ok {
				if err := m.store.Delete(td.ID); err != nil {
					m.notice = errMessage(err)
					return m, nil
				}
				m.refresh()
			}
			return m, nil

		case "s":
			if err := m.store.Sort(m.nextAsc); err != nil {
				m.notice = errMessage(err)
				return m, nil
			}
			if m.nextAsc {
				m.lastSort = sortAsc
			} else {
				m.lastSort = sortDesc
			}
			m.nextAsc = !m.nextAsc
			m.refresh()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m uiModel) View() string {
	w, h := widthHeight()
	listHeight := h - 4
	if m.editing {
		listHeight = h - 6
	}
	m.list.SetSize(w-2, listHeight)

	content := m.list.View()
	if m.editing {
		bar := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
		title := "Edit todo"
		if m.editErr != "" {
			title += " — " + errorStyle.Render(m.editErr)
		}
		content = content + "\n" + bar.Render(title+"\n"+m.ti.View())
	}
	if m.notice != "" {
		content = content + "\n" + noticeStyle.Render(m.notice+"\n"+helpStyle.Render("press any key"))
	}
	return panelString(content)
}

func errMessage(err error) string {
	msg := err.Error()
	if len(msg) > 0 {
		msg = strings.ToUpper(msg[:1]) + msg[1:]
	}
	return msg
}

// helpers for View
func panelString(inner string) string {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1)
	return border.Render(inner)
}

func widthHeight() (int, int) {
	w, h := 80, 24
	if tw, th, err := termSize(); err == nil {
		w, h = tw, th
	}
	return w, h
}

// portable terminal size
func termSize() (int, int, error) {
	fd := int(os.Stdout.Fd())
	type winsize struct {
		Row, Col, Xpixel, Ypixel uint16
	}
	ws := &winsize{}
	_, _, err := syscall.Syscall(syscall.SYS_IOCTL,
		uintptr(fd), uintptr(syscall.TIOCGWINSZ), uintptr(unsafe.Pointer(ws)))
	if err != 0 {
		return 0, 0, fmt.Errorf("ioctl: %v", err)
	}
	return int(ws.Col), int(ws.Row), nil
}
