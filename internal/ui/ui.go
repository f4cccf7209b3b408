// Package ui implements the interactive tunnel dashboard.
package ui

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mNandhu/lpf-cli/internal/appconfig"
	"github.com/mNandhu/lpf-cli/internal/autossh"
	"github.com/mNandhu/lpf-cli/internal/events"
	"github.com/mNandhu/lpf-cli/internal/lifecycle"
	"github.com/mNandhu/lpf-cli/internal/model"
	"github.com/mNandhu/lpf-cli/internal/proc"
	"github.com/mNandhu/lpf-cli/internal/registry"
	"github.com/mNandhu/lpf-cli/internal/util"
)

type tickMsg time.Time

type statusMsg string

type modelUI struct {
	ctl      *lifecycle.Controller
	cfg      appconfig.Config
	tunnels  []model.TunnelStatus
	filtered []model.TunnelStatus
	sel      int
	filter   textinput.Model
	showHelp bool
	status   string
	width    int
}

func newModel() (modelUI, error) {
	cfg, err := appconfig.Load()
	if err != nil {
		return modelUI{}, err
	}
	if err := appconfig.EnsureDirs(); err != nil {
		return modelUI{}, err
	}
	regPath, err := appconfig.RegistryFilePath()
	if err != nil {
		return modelUI{}, err
	}
	pidDir, err := appconfig.PidDir()
	if err != nil {
		return modelUI{}, err
	}
	ctl := lifecycle.NewController(
		registry.NewStore(regPath),
		autossh.New(pidDir, cfg.Tunnel),
		proc.NewChecker(),
		util.PortInUse,
		events.NewStore(),
	)

	fi := textinput.New()
	fi.Placeholder = "filter"
	fi.Prompt = "/"
	fi.CharLimit = 64

	m := modelUI{ctl: ctl, cfg: cfg, filter: fi}
	m.refresh(true)
	m.status = "Ready. j/k to navigate, x to stop, R to restart inactive, Enter to ssh."
	return m, nil
}

func (m *modelUI) refresh(withSync bool) {
	m.tunnels = m.ctl.List(withSync)
	m.applyFilter()
}

func (m *modelUI) applyFilter() {
	f := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if f == "" {
		m.filtered = append([]model.TunnelStatus(nil), m.tunnels...)
	} else {
		m.filtered = nil
		for _, st := range m.tunnels {
			if strings.Contains(strings.ToLower(st.ID), f) {
				m.filtered = append(m.filtered, st)
			}
		}
	}
	if m.sel >= len(m.filtered) {
		m.sel = len(m.filtered) - 1
	}
	if m.sel < 0 {
		m.sel = 0
	}
}

func tickCmd(seconds int) tea.Cmd {
	if seconds <= 0 {
		seconds = util.DefaultRefreshSeconds
	}
	return tea.Tick(time.Duration(seconds)*time.Second, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m modelUI) Init() tea.Cmd {
	return tickCmd(m.cfg.UI.RefreshSeconds)
}

func (m modelUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		m.refresh(false)
		return m, tickCmd(m.cfg.UI.RefreshSeconds)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case statusMsg:
		m.status = string(msg)
		return m, nil
	case tea.KeyMsg:
		if m.filter.Focused() {
			switch msg.String() {
			case "enter", "esc":
				m.filter.Blur()
				m.applyFilter()
				return m, nil
			}
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.applyFilter()
			return m, cmd
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "j", "down":
			if m.sel < len(m.filtered)-1 {
				m.sel++
			}
		case "k", "up":
			if m.sel > 0 {
				m.sel--
			}
		case "/":
			m.filter.Focus()
			m.status = "Filter mode: type and press Enter"
			return m, textinput.Blink
		case "?":
			m.showHelp = !m.showHelp
		case "r":
			m.refresh(false)
			m.status = "Refreshed tunnel status"
		case "s":
			res, err := m.ctl.Sync(true)
			if err != nil {
				m.status = "sync failed: " + err.Error()
				break
			}
			m.refresh(false)
			m.status = fmt.Sprintf("Sync complete: %d demoted", len(res.Reconciled))
		case "R":
			res, err := m.ctl.RestartInactive(context.Background())
			if err != nil {
				m.status = "restart failed: " + err.Error()
				break
			}
			m.refresh(false)
			m.status = fmt.Sprintf("Restarted %d, failed %d", len(res.Restarted), len(res.Failures))
		case "x":
			if len(m.filtered) == 0 {
				break
			}
			st := m.filtered[m.sel]
			res, err := m.ctl.Remove(st.ID)
			if err != nil {
				m.status = "remove failed: " + err.Error()
				break
			}
			m.refresh(false)
			m.status = "Removed " + res.ID
		case "enter":
			if len(m.filtered) == 0 {
				break
			}
			host := m.filtered[m.sel].SSHHost
			cmd := exec.Command("ssh", host)
			return m, tea.ExecProcess(cmd, func(err error) tea.Msg {
				if err != nil {
					return statusMsg("ssh exited: " + err.Error())
				}
				return statusMsg("ssh session closed")
			})
		}
	}
	return m, nil
}

func (m modelUI) View() string {
	head := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")).Render("lpf Tunnel Dashboard")
	subhead := fmt.Sprintf("tunnels=%d shown=%d refresh=%ds", len(m.tunnels), len(m.filtered), clampRefresh(m.cfg.UI.RefreshSeconds))

	tbl := strings.Builder{}
	tbl.WriteString(fmt.Sprintf("  %-30s %-10s %-36s %-8s %s\n", "ID", "STATUS", "FORWARDING", "PID", "LAST STARTED"))
	for i, st := range m.filtered {
		cursor := " "
		if i == m.sel {
			cursor = ">"
		}
		pid := "-"
		if st.PID > 0 {
			pid = strconv.Itoa(st.PID)
		}
		tbl.WriteString(fmt.Sprintf("%s %-30s %-10s %-36s %-8s %s\n",
			cursor, st.ID, renderState(st.State), st.Forwarding, pid, lastStarted(st.LastStarted)))
	}
	if len(m.filtered) == 0 {
		tbl.WriteString("  (no tunnels)\n")
	}

	filterLine := m.filter.View()
	quickHelp := "Keys: Enter ssh | x stop | s sync | R restart inactive | / filter | r refresh | ? help | q quit"

	tunnels := m.renderPanel("Tunnels", tbl.String(), lipgloss.Color("63"))
	status := m.renderPanel("Status", m.status, lipgloss.Color("205"))
	help := ""
	if m.showHelp {
		help = m.renderPanel("Help", helpBlock(), lipgloss.Color("244"))
	}
	return lipgloss.JoinVertical(
		lipgloss.Left,
		head,
		subhead,
		filterLine,
		quickHelp,
		tunnels,
		help,
		status,
	)
}

func (m modelUI) renderPanel(title, body string, border lipgloss.Color) string {
	width := m.width - 2
	if width < 40 {
		width = 80
	}
	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(width)
	head := lipgloss.NewStyle().Bold(true).Render(title)
	return style.Render(head + "\n" + strings.TrimRight(body, "\n"))
}

func renderState(s model.TunnelState) string {
	if s == model.TunnelActive {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Render("ACTIVE    ")
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("160")).Render("INACTIVE  ")
}

func lastStarted(unix int64) string {
	if unix <= 0 {
		return "-"
	}
	return time.Unix(unix, 0).Local().Format("15:04:05")
}

func helpBlock() string {
	return strings.Join([]string{
		"j/k or arrows  select a tunnel",
		"Enter          open an interactive ssh session to the tunnel's host",
		"x              stop and remove the selected tunnel",
		"s              reconcile the registry against live processes",
		"R              relaunch every inactive tunnel",
		"/              filter by id substring",
		"r              refresh now",
		"q              quit",
	}, "\n")
}

func clampRefresh(seconds int) int {
	if seconds <= 0 {
		return util.DefaultRefreshSeconds
	}
	return seconds
}

// Run starts the dashboard. The helper binaries are checked up front so the
// stop/restart keys don't fail with a confusing exec error mid-session.
func Run() error {
	if err := autossh.EnsureBinaries(); err != nil {
		return err
	}
	m, err := newModel()
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
