package tui

import (
	"fmt"
	"strings"

	"github.com/Borislavv/infinite-feed/pkg/engine"
	"github.com/Borislavv/infinite-feed/pkg/prometheus/metrics/keyword"
	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
)

const (
	itemsPanelName  = "ItemsPanel"
	statusPanelName = "StatusPanel"
	bottomPanelName = "BottomPanel"
	helpPanelName   = "HelpPanel"
)

var (
	bufferLengthKey = keyword.BufferLength
	topLoadsKey     = keyword.Loads + `{edge="top"}`
	bottomLoadsKey  = keyword.Loads + `{edge="bottom"}`
	pollAppendsKey  = keyword.PollAppends
)

type Panel interface {
	Update(s engine.Snapshot, metrics map[string]*MetricBuffer)
	Draw() ui.Drawable
	Name() string
}

// ItemsPanel lists the mounted window. Rows inside the viewport are highlighted.
type ItemsPanel struct {
	list *widgets.List
}

func NewItemsPanel() *ItemsPanel {
	l := widgets.NewList()
	l.Title = "Feed"
	l.TextStyle = ui.NewStyle(ui.ColorWhite)
	l.SelectedRowStyle = ui.NewStyle(ui.ColorBlack, ui.ColorGreen)
	l.WrapText = false
	return &ItemsPanel{list: l}
}

func (p *ItemsPanel) Update(s engine.Snapshot, _ map[string]*MetricBuffer) {
	rows, first := itemRows(s)
	p.list.Rows = rows
	p.list.SelectedRow = first
	p.list.Title = fmt.Sprintf("Feed [%d-%d of %d]", s.Window.Start, s.Window.End, s.Length)
}

func (p *ItemsPanel) Draw() ui.Drawable { return p.list }
func (p *ItemsPanel) Name() string      { return itemsPanelName }

// itemRows formats the window items and returns the row of the first visible one.
func itemRows(s engine.Snapshot) (rows []string, first int) {
	itemHeight := 0.0
	if s.Length > 0 {
		itemHeight = s.Content / float64(s.Length)
	}
	top, bottom := s.Scroll.Position, s.Scroll.Position+s.Viewport

	rows = make([]string, 0, len(s.Items))
	first = -1
	for i, item := range s.Items {
		idx := s.Window.Start + i
		y := float64(idx) * itemHeight
		marker := " "
		if y+itemHeight > top && y < bottom {
			marker = ">"
			if first < 0 {
				first = i
			}
		}
		rows = append(rows, fmt.Sprintf("%s %4d  %-20s %s", marker, idx, item.Content, item.ImageRef))
	}
	if first < 0 {
		first = 0
	}
	return rows, first
}

// StatusPanel shows the engine state carried by the snapshot.
type StatusPanel struct {
	p *widgets.Paragraph
}

func NewStatusPanel() *StatusPanel {
	p := widgets.NewParagraph()
	p.Title = "State"
	p.BorderStyle.Fg = ui.ColorYellow
	p.TextStyle.Fg = ui.ColorWhite
	return &StatusPanel{p: p}
}

func (p *StatusPanel) Update(s engine.Snapshot, _ map[string]*MetricBuffer) {
	p.p.Text = statusText(s)
}

func (p *StatusPanel) Draw() ui.Drawable { return p.p }
func (p *StatusPanel) Name() string      { return statusPanelName }

func statusText(s engine.Snapshot) string {
	lock := "free"
	if s.Lock.Locked {
		lock = fmt.Sprintf("held at %.0f", s.Lock.Target)
	}
	polling := "off"
	if s.Polling {
		polling = "on"
	}
	lines := []string{
		fmt.Sprintf("%-10s %d / %d (trimmed %d)", "items", s.Length, s.Cap, s.Trimmed),
		fmt.Sprintf("%-10s %.0f of %.0f", "position", s.Scroll.Position, s.Scroll.MaxScroll),
		fmt.Sprintf("%-10s %s, %s (v=%.1f)", "motion", s.Motion, s.Direction, s.Scroll.Velocity),
		fmt.Sprintf("%-10s top %s, bottom %s", "loads", s.Top, s.Bottom),
		fmt.Sprintf("%-10s %s", "lock", lock),
		fmt.Sprintf("%-10s %s", "polling", polling),
		fmt.Sprintf("%-10s #%d", "snapshot", s.Seq),
	}
	return strings.Join(lines, "\n")
}

type PlotPanel struct {
	title  string
	metric string
	plot   *widgets.Plot
}

func NewPlotPanel(title, metric string) *PlotPanel {
	plot := widgets.NewPlot()
	plot.Title = title
	plot.Data = [][]float64{{0, 0}}
	return &PlotPanel{title: title, metric: metric, plot: plot}
}

func (p *PlotPanel) Update(_ engine.Snapshot, metrics map[string]*MetricBuffer) {
	buf, ok := metrics[p.metric]
	if !ok {
		p.plot.Data = [][]float64{{0, 0}}
		return
	}
	p.plot.Data = [][]float64{safeData(buf.pts())}
}

func (p *PlotPanel) Draw() ui.Drawable { return p.plot }
func (p *PlotPanel) Name() string      { return p.title }

var defaultLineColors = []ui.Color{
	ui.ColorGreen,
	ui.ColorCyan,
	ui.ColorMagenta,
	ui.ColorRed,
	ui.ColorYellow,
	ui.ColorBlue,
}

type MultiPlotPanel struct {
	title string
	keys  []string
	plot  *widgets.Plot
}

func NewMultiPlotPanel(title string, keys []string) *MultiPlotPanel {
	plot := widgets.NewPlot()
	plot.Title = title
	plot.Marker = widgets.MarkerBraille
	plot.AxesColor = ui.ColorWhite
	plot.Data = make([][]float64, len(keys))
	plot.LineColors = make([]ui.Color, len(keys))
	plot.DataLabels = make([]string, len(keys))

	for i, k := range keys {
		plot.DataLabels[i] = k
		plot.LineColors[i] = defaultLineColors[i%len(defaultLineColors)]
		plot.Data[i] = []float64{0, 0}
	}

	return &MultiPlotPanel{title: title, keys: keys, plot: plot}
}

func (m *MultiPlotPanel) Update(_ engine.Snapshot, metrics map[string]*MetricBuffer) {
	data := make([][]float64, 0, len(m.keys))
	for _, key := range m.keys {
		buf, ok := metrics[key]
		if !ok {
			data = append(data, []float64{0, 0})
			continue
		}
		data = append(data, safeData(buf.pts()))
	}
	m.plot.Data = data
}

func (m *MultiPlotPanel) Draw() ui.Drawable { return m.plot }
func (m *MultiPlotPanel) Name() string      { return m.title }

// safeData pads series the plot widget cannot draw.
func safeData(pts []float64) []float64 {
	if len(pts) < 2 {
		return []float64{0, 0}
	}
	return pts
}

type bottomPanel struct {
	p *widgets.Paragraph
}

func NewBottomPanel() Panel {
	p := widgets.NewParagraph()
	p.Title = "Keys"
	p.Text = "[wheel|j|k] Scroll  [PgUp|PgDn] Page  [Home|End] Jump  [p] Polling  [h] Help  [q] Quit"
	p.Border = false
	return &bottomPanel{p: p}
}

func (l *bottomPanel) Update(engine.Snapshot, map[string]*MetricBuffer) {}
func (l *bottomPanel) Draw() ui.Drawable                                { return l.p }
func (l *bottomPanel) Name() string                                     { return bottomPanelName }

type HelpPanel struct {
	visible bool
	p       *widgets.Paragraph
}

func NewHelpPanel() *HelpPanel {
	p := widgets.NewParagraph()
	p.Title = "Help"
	p.Text = `[wheel]       smooth scroll, momentum decays with friction
[Up|Down]     accelerate by one line
[PgUp|PgDn]   accelerate by one page
[Home|End]    jump to the edge
[p]           toggle polling for new items
[h]           toggle help
[q]           quit`
	p.BorderStyle.Fg = ui.ColorCyan
	p.TextStyle.Fg = ui.ColorWhite
	return &HelpPanel{p: p}
}

func (h *HelpPanel) Update(engine.Snapshot, map[string]*MetricBuffer) {}

func (h *HelpPanel) Draw() ui.Drawable {
	if !h.visible {
		return nil
	}
	return h.p
}

func (h *HelpPanel) Name() string      { return helpPanelName }
func (h *HelpPanel) SetVisible(v bool) { h.visible = v }
func (h *HelpPanel) IsVisible() bool   { return h.visible }
