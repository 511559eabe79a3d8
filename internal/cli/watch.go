package cli

import (
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"mmfs.ai/launcher/internal/logfile"
)

// WatchFlags holds command-line flags for the watch command
type WatchFlags struct {
	LogFile     string
	RefreshRate time.Duration
	MaxLines    int
}

// newWatchCommand creates the watch subcommand
func newWatchCommand() *cobra.Command {
	flags := &WatchFlags{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Live terminal view of the application log",
		Long: `Watch tails the configured log file in an interactive terminal view,
refreshing while the application runs. Similar to 'tail -f' with a status
header.

Examples:
  mmfs watch
  mmfs watch --refresh 250ms
  mmfs watch --log-file /var/log/fyersmmfs/mmfs.log`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.LogFile == "" {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				flags.LogFile = cfg.LogFile
			}
			return runWatch(flags)
		},
	}

	cmd.Flags().StringVar(&flags.LogFile, "log-file", "", "Log file to tail (defaults to the configured one)")
	cmd.Flags().DurationVar(&flags.RefreshRate, "refresh", 500*time.Millisecond, "Refresh rate for live updates")
	cmd.Flags().IntVar(&flags.MaxLines, "max-lines", 200, "Maximum number of lines to keep on screen")

	return cmd
}

// runWatch starts the terminal log view
func runWatch(flags *WatchFlags) error {
	model := newWatchModel(flags)

	program := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	return nil
}

// watchModel holds the state for the Bubble Tea log view
type watchModel struct {
	flags        *WatchFlags
	lines        []string
	logSize      int64
	paused       bool
	lastUpdate   time.Time
	windowWidth  int
	windowHeight int
	err          error
}

type watchTickMsg time.Time

type linesLoadedMsg struct {
	lines []string
	size  int64
}

type watchErrMsg struct {
	err error
}

func newWatchModel(flags *WatchFlags) watchModel {
	return watchModel{
		flags:      flags,
		lastUpdate: time.Now(),
	}
}

// Init implements the Bubble Tea init method
func (m watchModel) Init() tea.Cmd {
	return tea.Batch(
		m.tickCmd(),
		m.loadLinesCmd(),
	)
}

// Update implements the Bubble Tea update method
func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit

		case " ":
			m.paused = !m.paused
			return m, nil

		case "r":
			return m, m.loadLinesCmd()
		}

	case watchTickMsg:
		if !m.paused {
			return m, tea.Batch(
				m.tickCmd(),
				m.loadLinesCmd(),
			)
		}
		return m, m.tickCmd()

	case linesLoadedMsg:
		m.lines = msg.lines
		m.logSize = msg.size
		m.lastUpdate = time.Now()
		m.err = nil
		return m, nil

	case watchErrMsg:
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

// View implements the Bubble Tea view method
func (m watchModel) View() string {
	header := m.renderHeader()
	body := m.renderBody()
	footer := m.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

func (m watchModel) renderHeader() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		Render("MMFS Log")

	status := "LIVE"
	statusStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	if m.paused {
		status = "PAUSED"
		statusStyle = statusStyle.Foreground(lipgloss.Color("196"))
	}

	info := fmt.Sprintf("%s | %d bytes | updated %s",
		m.flags.LogFile,
		m.logSize,
		m.lastUpdate.Format("15:04:05"),
	)

	return lipgloss.JoinHorizontal(lipgloss.Left,
		title,
		"  ",
		info,
		"  ",
		statusStyle.Render(status),
	)
}

func (m watchModel) renderBody() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v", m.err))
	}
	if len(m.lines) == 0 {
		return lipgloss.NewStyle().Faint(true).Render("(log is empty)")
	}

	visible := m.lines
	if m.windowHeight > 4 && len(visible) > m.windowHeight-4 {
		visible = visible[len(visible)-(m.windowHeight-4):]
	}

	return lipgloss.JoinVertical(lipgloss.Left, visible...)
}

func (m watchModel) renderFooter() string {
	return lipgloss.NewStyle().
		Faint(true).
		Render("q: quit | space: pause | r: refresh")
}

func (m watchModel) tickCmd() tea.Cmd {
	return tea.Tick(m.flags.RefreshRate, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

func (m watchModel) loadLinesCmd() tea.Cmd {
	return func() tea.Msg {
		lines, err := logfile.TailLines(m.flags.LogFile, m.flags.MaxLines)
		if err != nil {
			return watchErrMsg{err: err}
		}

		var size int64
		if stat, err := os.Stat(m.flags.LogFile); err == nil {
			size = stat.Size()
		}

		return linesLoadedMsg{lines: lines, size: size}
	}
}
