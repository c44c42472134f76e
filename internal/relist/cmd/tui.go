package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/v2/list"
	"github.com/charmbracelet/bubbles/v2/spinner"
	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"

	"relist/internal/disassembly"
	"relist/internal/relist/log"
	"relist/internal/relist/styles"
	"relist/internal/symbols"
	"relist/internal/tokens"
)

type viewMode int

const (
	viewListing viewMode = iota
	viewSymbols
	viewInfo
)

type symbolItem struct {
	label *symbols.Label
	color bool
}

func (i symbolItem) Title() string {
	return fmt.Sprintf("%x  %s", i.label.Addr, i.label.String())
}

func (i symbolItem) Description() string { return "" }

func (i symbolItem) FilterValue() string {
	return fmt.Sprintf("%x %s %s", i.label.Addr, i.label.String(), i.label.Name)
}

type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }

func (d itemDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	i, ok := listItem.(symbolItem)
	if !ok {
		return
	}

	indicator := " "
	addrStyle := styles.AddrNormal
	if index == m.Index() {
		indicator = ">"
		addrStyle = styles.AddrSelected
	}

	fmt.Fprintf(w, " %s  %s  %-8s %s",
		indicator,
		addrStyle.Render(fmt.Sprintf("%016x", i.label.Addr)),
		i.label.Kind,
		tokens.RenderStream(i.label.Tokens, i.color))
}

type model struct {
	ctx      context.Context
	path     string
	listing  viewport.Model
	info     viewport.Model
	symbols  list.Model
	spinner  spinner.Model
	mode     viewMode
	loading  bool
	err      error
	d        *disassembly.Disassembly
	digest   string
	size     int64
	rows     []int // listing row of each table entry
	width    int
	height   int
	color    bool
}

type loadedMsg struct {
	d      *disassembly.Disassembly
	digest string
	size   int64
	err    error
}

// loadCmd opens the binary off the UI goroutine.
func loadCmd(ctx context.Context, path string) tea.Cmd {
	return func() (msg tea.Msg) {
		defer log.RecoverPanic("load", func() {
			msg = loadedMsg{err: fmt.Errorf("panic while loading %s", path)}
		})

		digest, size, err := fileDigest(path)
		if err != nil {
			return loadedMsg{err: err}
		}
		d, err := openBinary(ctx, path)
		if err != nil {
			return loadedMsg{err: err}
		}
		return loadedMsg{d: d, digest: digest, size: size}
	}
}

func newModel(ctx context.Context, path string) model {
	if ctx == nil {
		ctx = context.Background()
	}

	listing := viewport.New()
	listing.SetWidth(80)
	listing.SetHeight(24)

	info := viewport.New()
	info.SetWidth(80)
	info.SetHeight(24)

	symbolsList := list.New([]list.Item{}, itemDelegate{}, 80, 24)
	symbolsList.SetShowStatusBar(false)
	symbolsList.SetFilteringEnabled(true)
	symbolsList.Title = "Symbols"
	symbolsList.Styles.Title = styles.ListTitle
	symbolsList.SetShowHelp(true)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.Spinner

	return model{
		ctx:     ctx,
		path:    path,
		listing: listing,
		info:    info,
		symbols: symbolsList,
		spinner: s,
		mode:    viewListing,
		loading: true,
		width:   80,
		height:  24,
		color:   useColor(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		loadCmd(m.ctx, m.path),
		m.spinner.Tick,
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case loadedMsg:
		m.loading = false
		m.err = msg.err
		m.d = msg.d
		m.digest = msg.digest
		m.size = msg.size
		if m.d != nil {
			m.updateListing()
			m.updateSymbolsList()
			m.updateInfo()
		}
		return m, nil

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		if msg.Width != m.width || msg.Height != m.height {
			m.width = msg.Width
			m.height = msg.Height
			m.listing.SetWidth(msg.Width)
			m.listing.SetHeight(msg.Height - 2)
			m.info.SetWidth(msg.Width)
			m.info.SetHeight(msg.Height - 2)
			m.symbols.SetWidth(msg.Width)
			m.symbols.SetHeight(msg.Height - 2)
			if m.d != nil {
				m.updateInfo()
			}
		}

	case tea.KeyMsg:
		if m.mode == viewSymbols && m.symbols.FilterState() == list.Filtering {
			if k := msg.String(); k == "ctrl+c" {
				return m, tea.Quit
			}
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "l":
			m.mode = viewListing
			return m, nil
		case "s":
			if m.d != nil {
				m.mode = viewSymbols
			}
			return m, nil
		case "i":
			if m.d != nil {
				m.mode = viewInfo
			}
			return m, nil
		case "enter":
			if m.mode == viewSymbols {
				if item, ok := m.symbols.SelectedItem().(symbolItem); ok {
					m.jumpTo(item.label.Addr)
					m.mode = viewListing
				}
				return m, nil
			}
		case "tab":
			if m.d != nil {
				m.mode = (m.mode + 1) % 3
			}
			return m, nil
		case "shift+tab":
			if m.d != nil {
				m.mode = (m.mode + 2) % 3
			}
			return m, nil
		}
	}

	switch m.mode {
	case viewSymbols:
		m.symbols, cmd = m.symbols.Update(msg)
	case viewInfo:
		m.info, cmd = m.info.Update(msg)
	default:
		m.listing, cmd = m.listing.Update(msg)
	}
	return m, cmd
}

func (m model) View() string {
	var content string
	switch {
	case m.loading:
		content = fmt.Sprintf("\n  %s Decoding %s...", m.spinner.View(), m.path)
	case m.err != nil:
		content = "\n  " + styles.ErrorText.Render(m.err.Error())
	case m.mode == viewSymbols:
		content = m.symbols.View()
	case m.mode == viewInfo:
		content = m.info.View()
	default:
		content = m.listing.View()
	}

	var menu string
	switch {
	case m.d == nil:
		menu = " Q: quit "
	case m.mode == viewSymbols:
		menu = " Enter: jump to listing • /: filter • L: listing • I: info • Tab: cycle • Q: quit "
	case m.mode == viewInfo:
		menu = " L: listing • S: symbols • Tab: cycle • Q: quit "
	default:
		menu = " S: symbols • I: info • Tab: cycle • Q: quit "
	}

	return content + "\n" + styles.MenuBar.Width(m.width).Render(menu)
}

// updateListing renders the full listing and records the row of every
// table entry for jumps.
func (m *model) updateListing() {
	lines := m.d.Lines(m.d.Proc.Iter())
	m.rows = listingRows(lines)
	m.listing.SetContent(strings.TrimSuffix(disassembly.Render(lines, m.color), "\n"))
	m.listing.GotoTop()
}

// listingRows returns the output row of each line as laid out by
// disassembly.Render.
func listingRows(lines []disassembly.Line) []int {
	rows := make([]int, len(lines))
	row := 0
	for i, l := range lines {
		if l.Header != nil {
			if i > 0 {
				row++
			}
			row++
		}
		rows[i] = row
		row++
	}
	return rows
}

// jumpTo scrolls the listing to the first entry at or above addr, or
// its label header when there is one.
func (m *model) jumpTo(addr uint64) {
	if len(m.rows) == 0 {
		return
	}
	i := min(m.d.Proc.Index(addr), len(m.rows)-1)
	row := m.rows[i]
	if a, _ := m.d.Proc.Iter().At(i); row > 0 {
		if _, ok := m.d.Symbols.Get(a); ok {
			row--
		}
	}
	m.listing.SetYOffset(row)
}

func (m *model) updateSymbolsList() {
	items := make([]list.Item, 0, m.d.Symbols.Len())
	for l := range m.d.Symbols.All() {
		items = append(items, symbolItem{label: l, color: m.color})
	}
	m.symbols.SetItems(items)
	m.symbols.Title = fmt.Sprintf("Symbols (%d total)", len(items))
}

func (m *model) updateInfo() {
	width := m.width
	if width == 0 {
		width = 80
	}
	rendered := styles.Render(infoMarkdown(m.d, m.digest, m.size), width-2, m.color)
	m.info.SetContent(strings.TrimSuffix(rendered, "\n"))
}

func (m model) close() {
	if m.d != nil {
		m.d.Close()
	}
}
