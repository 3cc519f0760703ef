package simulator

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/wifiprov/internal/devclient"
	"github.com/muurk/wifiprov/internal/events"
	"github.com/muurk/wifiprov/internal/state"
	"github.com/muurk/wifiprov/internal/ui"
)

// TickInterval is how often the model ticks the supervisor.
const TickInterval = 20 * time.Millisecond

const maxEvents = 8

type tickMsg time.Time

type eventMsg events.Event

type actionMsg struct {
	action string
	result string
	err    error
}

type keyMap struct {
	Button  key.Binding
	Creds   key.Binding
	Reset   key.Binding
	Link    key.Binding
	Network key.Binding
	Power   key.Binding
	Quit    key.Binding
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Button, k.Creds, k.Reset, k.Link, k.Network, k.Power, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Button, k.Creds, k.Reset},
		{k.Link, k.Network, k.Power, k.Quit},
	}
}

type formKeyMap struct {
	Next    key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp implements help.KeyMap.
func (k formKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Confirm, k.Cancel}
}

// FullHelp implements help.KeyMap.
func (k formKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Next, k.Confirm, k.Cancel}}
}

// Model is the interactive simulator screen.
type Model struct {
	dev    *Device
	logs   *LogBuffer
	sub    <-chan events.Event
	cancel func()

	recent []events.Event
	status string
	err    error

	formActive bool
	inputs     []textinput.Model
	focus      int

	Spinner  spinner.Model
	HoldBar  progress.Model
	Help     help.Model
	keys     keyMap
	formKeys formKeyMap

	Width  int
	Height int
}

// NewModel wraps a device. logs may be nil.
func NewModel(dev *Device, logs *LogBuffer) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ui.WarningColor)

	ssid := textinput.New()
	ssid.Placeholder = "SSID"
	ssid.CharLimit = 32
	if nets := dev.Networks(); len(nets) > 0 {
		ssid.SetValue(nets[0].SSID)
	}
	pass := textinput.New()
	pass.Placeholder = "password"
	pass.EchoMode = textinput.EchoPassword
	pass.EchoCharacter = '•'
	pass.CharLimit = 64

	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 24

	sub, cancel := dev.Events.Subscribe()

	return Model{
		dev:     dev,
		logs:    logs,
		sub:     sub,
		cancel:  cancel,
		inputs:  []textinput.Model{ssid, pass},
		Spinner: s,
		HoldBar: bar,
		Help:    help.New(),
		keys: keyMap{
			Button:  key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "button")),
			Creds:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "credentials")),
			Reset:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "http reset")),
			Link:    key.NewBinding(key.WithKeys("l"), key.WithHelp("l", "drop link")),
			Network: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "toggle network")),
			Power:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "power cycle")),
			Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		},
		formKeys: formKeyMap{
			Next:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
			Confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
			Cancel:  key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		},
	}
}

func tick() tea.Cmd {
	return tea.Tick(TickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitForEvent(ch <-chan events.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return nil
		}
		return eventMsg(e)
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(tick(), waitForEvent(m.sub), m.Spinner.Tick)
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Help.Width = msg.Width
		return m, nil

	case tickMsg:
		if err := m.dev.Tick(); err != nil {
			m.err = err
			return m, tea.Quit
		}
		return m, tick()

	case eventMsg:
		m.recent = append(m.recent, events.Event(msg))
		if len(m.recent) > maxEvents {
			m.recent = m.recent[len(m.recent)-maxEvents:]
		}
		return m, waitForEvent(m.sub)

	case actionMsg:
		if msg.err != nil {
			m.status = errorStyle.Render(fmt.Sprintf("%s: %s", msg.action, devclient.GetShortErrorMessage(msg.err)))
		} else {
			m.status = okStyle.Render(fmt.Sprintf("%s: %s", msg.action, msg.result))
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.cancel()
			m.dev.Close()
			return m, tea.Quit
		}
		if m.formActive {
			return m.updateForm(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		m.dev.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Button):
		if m.dev.ButtonHeld() {
			m.dev.ReleaseButton()
			m.status = "button released"
		} else {
			m.dev.PressButton()
			m.status = fmt.Sprintf("button held (reset after %s)", m.dev.cfg.Button().Hold)
		}

	case key.Matches(msg, m.keys.Creds):
		if m.portalURL() == "" {
			m.status = errorStyle.Render("portal is not running")
			return m, nil
		}
		m.formActive = true
		m.focus = 0
		return m, m.inputs[0].Focus()

	case key.Matches(msg, m.keys.Reset):
		return m, m.httpReset()

	case key.Matches(msg, m.keys.Link):
		m.dev.Radio.DropLink()
		m.status = "link dropped"

	case key.Matches(msg, m.keys.Network):
		if nets := m.dev.Networks(); len(nets) > 0 {
			if m.dev.ToggleNetwork(nets[0].SSID) {
				m.status = nets[0].SSID + " in range"
			} else {
				m.status = nets[0].SSID + " out of range"
			}
		}

	case key.Matches(msg, m.keys.Power):
		if err := m.dev.PowerCycle(); err != nil {
			m.err = err
			return m, tea.Quit
		}
		m.status = fmt.Sprintf("power cycled (boot %d)", m.dev.Boots())
	}
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.formKeys.Cancel):
		m.formActive = false
		m.blurInputs()
		return m, nil

	case key.Matches(msg, m.formKeys.Next):
		m.inputs[m.focus].Blur()
		m.focus = (m.focus + 1) % len(m.inputs)
		return m, m.inputs[m.focus].Focus()

	case key.Matches(msg, m.formKeys.Confirm):
		m.formActive = false
		m.blurInputs()
		return m, m.save(m.inputs[0].Value(), m.inputs[1].Value())
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) blurInputs() {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
}

// portalURL is where the current boot's portal listens, or "".
func (m Model) portalURL() string {
	return m.localURL(m.dev.Coordinator().PortalAddr())
}

func (m Model) localURL(addr net.Addr) string {
	tcp, ok := addr.(*net.TCPAddr)
	if !ok || tcp == nil {
		return ""
	}
	host := m.dev.opts.ListenHost
	if host == "" {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(tcp.Port))
}

// The requests below block until a later tick services them, so they run as
// commands off the update loop.

func (m Model) save(ssid, password string) tea.Cmd {
	url := m.portalURL()
	return func() tea.Msg {
		client := devclient.NewClientWithURL(url)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		res, err := client.Save(ctx, ssid, password, "")
		return actionMsg{action: "save", result: res, err: err}
	}
}

func (m Model) httpReset() tea.Cmd {
	c := m.dev.Coordinator()
	url := m.localURL(c.SurfaceAddr())
	if url == "" {
		url = m.portalURL()
	}
	if url == "" {
		return func() tea.Msg {
			return actionMsg{action: "reset", err: devclient.NewValidationError("no HTTP surface is running")}
		}
	}
	return func() tea.Msg {
		client := devclient.NewClientWithURL(url)
		client.SetRetry(0, 0)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		res, err := client.Reset(ctx, "")
		return actionMsg{action: "reset", result: res, err: err}
	}
}

// Err is the error that ended the program, if any.
func (m Model) Err() error {
	return m.err
}

// View implements tea.Model
func (m Model) View() string {
	c := m.dev.Coordinator()
	phase := c.Phase()

	header := lipgloss.JoinHorizontal(lipgloss.Center,
		titleStyle.Render("WIFIPROV SIMULATOR"), " ",
		ui.PhaseBadge(phase.String()), " ",
		ui.MutedStyle.Render(fmt.Sprintf("boot %d", m.dev.Boots())),
	)
	if phase == state.PhaseConnecting || phase == state.PhaseRetryWait {
		header += " " + m.Spinner.View()
	}

	var b strings.Builder
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label) + valueStyle.Render(value) + "\n")
	}

	row("SSID", orDash(c.SSID()))
	if ip := c.LocalIP(); ip != nil {
		row("IP", ip.String())
	}
	if c.IsProvisioning() {
		ap := c.APName()
		if addr := c.APAddress(); addr != nil {
			ap += " @ " + addr.String()
		}
		row("Access point", ap)
		row("Portal", orDash(m.portalURL()))
	}
	if url := m.localURL(c.SurfaceAddr()); url != "" {
		row("Surface", url)
	}
	row("Retries", fmt.Sprintf("%d / %d", c.RetryCount(), c.Config().MaxRetries()))

	led := ledOffStyle.Render("○ off")
	if m.dev.LEDLit() {
		led = ledOnStyle.Render("● on")
	}
	row("LED", led)
	button := "released"
	if m.dev.ButtonHeld() {
		button = "held " + m.HoldBar.ViewAs(m.dev.HoldProgress())
	}
	row("Button", button)

	var nets []string
	for _, n := range m.dev.Networks() {
		mark := "out of range"
		if m.dev.InRange(n.SSID) {
			mark = fmt.Sprintf("%d dBm", n.Strength)
		}
		nets = append(nets, fmt.Sprintf("%s (%s)", n.SSID, mark))
	}
	row("Networks", orDash(strings.Join(nets, ", ")))

	width := ui.ClampWidth(m.Width) - 2
	sections := []string{header, panelStyle.Width(width).Render(strings.TrimRight(b.String(), "\n"))}

	if m.formActive {
		form := sectionStyle.Render("Submit credentials to the portal") + "\n" +
			m.inputs[0].View() + "\n" + m.inputs[1].View()
		sections = append(sections, panelStyle.Width(width).Render(form))
	}

	sections = append(sections, sectionStyle.Render("Events"), m.renderEvents())

	if m.logs != nil {
		lines := m.logs.Lines(6)
		for i, l := range lines {
			if len(l) > width {
				lines[i] = l[:width]
			}
		}
		sections = append(sections, sectionStyle.Render("Log"), logStyle.Render(strings.Join(lines, "\n")))
	}

	if m.status != "" {
		sections = append(sections, m.status)
	}
	if m.formActive {
		sections = append(sections, m.Help.View(m.formKeys))
	} else {
		sections = append(sections, m.Help.View(m.keys))
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m Model) renderEvents() string {
	if len(m.recent) == 0 {
		return ui.MutedStyle.Render("  (none yet)")
	}
	lines := make([]string, 0, len(m.recent))
	for _, e := range m.recent {
		lines = append(lines, "  "+describe(e))
	}
	return strings.Join(lines, "\n")
}

func describe(e events.Event) string {
	at := fmt.Sprintf("%8.1fs", float64(e.UptimeMS)/1000)
	switch e.Type {
	case events.TypePhase:
		return fmt.Sprintf("%s  %s → %s", at, e.From, e.Phase)
	case events.TypeFailed:
		return fmt.Sprintf("%s  connection failed (attempt %d)", at, e.RetryCount)
	case events.TypeAPModeStarted:
		return fmt.Sprintf("%s  access point %s at %s", at, e.APName, e.APAddress)
	case events.TypeReset, events.TypeRestart:
		return fmt.Sprintf("%s  %s: %s", at, e.Type, e.Reason)
	default:
		return fmt.Sprintf("%s  %s", at, e.Type)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
