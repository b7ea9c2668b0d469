package browse

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/schemakeep/schemakeep/internal/metadata"
)

// view identifies the active screen.
type view int

const (
	viewTables view = iota
	viewDetail
	viewDataTypes
)

// Model is the bubbletea model for the catalog browser.
type Model struct {
	backend   string
	tables    []metadata.Table
	indexes   map[int64][]metadata.Index // keyed by owner table id
	datatypes []metadata.DataType
	typeNames map[int64]string

	active view
	cursor int
	detail *metadata.Table

	filter      textinput.Model
	filtering   bool
	visibleIdxs []int

	width  int
	height int
}

// NewModel builds the browser over a loaded catalog image.
func NewModel(backend string, tables []metadata.Table, indexes []metadata.Index, datatypes []metadata.DataType) Model {
	byOwner := make(map[int64][]metadata.Index)
	for _, ix := range indexes {
		byOwner[ix.OwnerID] = append(byOwner[ix.OwnerID], ix)
	}
	names := make(map[int64]string, len(datatypes))
	for _, dt := range datatypes {
		names[dt.ID] = dt.Name
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })

	filter := textinput.New()
	filter.Placeholder = "table name"
	filter.CharLimit = 64

	m := Model{
		backend:   backend,
		tables:    tables,
		indexes:   byOwner,
		datatypes: datatypes,
		typeNames: names,
		filter:    filter,
		width:     100,
		height:    24,
	}
	m.recomputeVisible()
	return m
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}
		switch m.active {
		case viewTables:
			return m.updateTables(msg)
		default:
			return m.updateSubView(msg)
		}
	}
	return m, nil
}

func (m Model) updateTables(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.visibleIdxs)-1 {
			m.cursor++
		}

	case "home":
		m.cursor = 0

	case "end":
		if len(m.visibleIdxs) > 0 {
			m.cursor = len(m.visibleIdxs) - 1
		}

	case "/":
		m.filtering = true
		m.filter.SetValue("")
		m.filter.Focus()
		return m, textinput.Blink

	case "t":
		m.active = viewDataTypes

	case "enter":
		if m.cursor < len(m.visibleIdxs) {
			m.detail = &m.tables[m.visibleIdxs[m.cursor]]
			m.active = viewDetail
		}
	}
	return m, nil
}

func (m Model) updateSubView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "enter", "backspace":
		m.active = viewTables
		m.detail = nil
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filtering = false
		m.filter.SetValue("")
		m.filter.Blur()
		m.recomputeVisible()
		return m, nil

	case "enter":
		m.filtering = false
		m.filter.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.recomputeVisible()
	return m, cmd
}

func (m *Model) recomputeVisible() {
	needle := strings.ToLower(m.filter.Value())
	m.visibleIdxs = m.visibleIdxs[:0]
	for i, t := range m.tables {
		if needle == "" || strings.Contains(strings.ToLower(t.Name), needle) {
			m.visibleIdxs = append(m.visibleIdxs, i)
		}
	}
	if m.cursor >= len(m.visibleIdxs) {
		m.cursor = 0
	}
}

func (m Model) View() string {
	switch m.active {
	case viewDetail:
		return m.viewDetail()
	case viewDataTypes:
		return m.viewDataTypes()
	default:
		return m.viewTables()
	}
}

func (m Model) viewTables() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("schemakeep catalog") + "\n\n")

	if m.filtering {
		b.WriteString("  Filter: " + m.filter.View() + "\n\n")
	} else if m.filter.Value() != "" {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  Filter: %s (/ to change, esc to clear)", m.filter.Value())) + "\n\n")
	}

	header := fmt.Sprintf("  %6s %-32s %8s %8s %12s", "ID", "Table", "Cols", "Idx", "Tuples")
	b.WriteString(dimStyle.Render(header) + "\n")
	b.WriteString(dimStyle.Render("  "+strings.Repeat("─", min(m.width-4, 70))) + "\n")

	listHeight := m.height - 10
	if listHeight < 5 {
		listHeight = 5
	}
	start := 0
	if m.cursor >= listHeight {
		start = m.cursor - listHeight + 1
	}
	end := start + listHeight
	if end > len(m.visibleIdxs) {
		end = len(m.visibleIdxs)
	}

	if len(m.visibleIdxs) == 0 {
		b.WriteString(dimStyle.Render("  No tables match\n"))
	}

	for vi := start; vi < end; vi++ {
		t := m.tables[m.visibleIdxs[vi]]

		cursor := "  "
		nameStyle := lipgloss.NewStyle()
		if vi == m.cursor {
			cursor = highlightStyle.Render("> ")
			nameStyle = nameStyle.Bold(true)
		}

		line := fmt.Sprintf("%s%6d %-32s %8d %8d %12s",
			cursor, t.ID, nameStyle.Render(truncate(t.Name, 32)),
			len(t.Columns), len(m.indexes[t.ID]), formatTuples(t.Tuples))
		b.WriteString(line + "\n")
	}

	b.WriteString("\n")
	b.WriteString(summaryStyle.Render(fmt.Sprintf("  %d tables • backend: %s", len(m.tables), m.backend)) + "\n\n")
	b.WriteString(dimStyle.Render("  enter detail • / filter • t datatypes • q quit") + "\n")
	return b.String()
}

func (m Model) viewDetail() string {
	t := m.detail
	var b strings.Builder

	b.WriteString(titleStyle.Render("Table: "+t.Name) + "\n\n")
	b.WriteString(fmt.Sprintf("  ID %d • generation %d • tuples %s", t.ID, t.Generation, formatTuples(t.Tuples)))
	if t.Namespace != "" {
		b.WriteString(" • namespace " + t.Namespace)
	}
	b.WriteString("\n\n")

	header := fmt.Sprintf("  %4s %-28s %-14s %-8s %6s", "Pos", "Column", "Type", "Null", "ID")
	b.WriteString(dimStyle.Render(header) + "\n")
	b.WriteString(dimStyle.Render("  "+strings.Repeat("─", min(m.width-4, 64))) + "\n")
	for _, c := range t.Columns {
		null := "?"
		if c.Nullable != nil {
			if *c.Nullable {
				null = okStyle.Render("yes")
			} else {
				null = "no"
			}
		}
		typeName := m.typeNames[c.DataTypeID]
		if typeName == "" {
			typeName = fmt.Sprintf("type#%d", c.DataTypeID)
		}
		b.WriteString(fmt.Sprintf("  %4d %-28s %-14s %-8s %6d\n",
			c.OrdinalPosition, truncate(c.Name, 28), typeName, null, c.ID))
	}

	if ixs := m.indexes[t.ID]; len(ixs) > 0 {
		b.WriteString("\n" + summaryStyle.Render("  Indexes") + "\n")
		for _, ix := range ixs {
			b.WriteString(fmt.Sprintf("    %s (keys %v, %d key columns)\n",
				ix.Name, ix.Keys, ix.NumberOfKeyColumns))
		}
	}

	if len(t.PrimaryKeys) > 0 {
		b.WriteString("\n" + dimStyle.Render(fmt.Sprintf("  Primary key ordinals: %v", t.PrimaryKeys)) + "\n")
	}

	b.WriteString("\n" + dimStyle.Render("  esc back • q quit") + "\n")
	return b.String()
}

func (m Model) viewDataTypes() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Data types") + "\n\n")
	header := fmt.Sprintf("  %4s %-10s %8s %-18s %-12s", "ID", "Name", "PgOID", "PgName", "Qualified")
	b.WriteString(dimStyle.Render(header) + "\n")
	b.WriteString(dimStyle.Render("  "+strings.Repeat("─", min(m.width-4, 58))) + "\n")
	for _, dt := range m.datatypes {
		b.WriteString(fmt.Sprintf("  %4d %-10s %8d %-18s %-12s\n",
			dt.ID, dt.Name, dt.PgDataType, dt.PgDataTypeName, dt.PgDataTypeQualifiedName))
	}
	b.WriteString("\n" + dimStyle.Render("  esc back • q quit") + "\n")
	return b.String()
}
