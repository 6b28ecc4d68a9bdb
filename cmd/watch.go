// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2026 Voltlog

package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/voltlog/vestat/pkg/vedirect"
)

var watchInterval float64

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live telemetry dashboard",
	Long: `Polls the charge controller continuously and shows a live dashboard
of the decoded telemetry: battery and panel measurements, charger state,
daily yield, and a log of recent frame errors.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Float64VarP(&watchInterval, "interval", "i", 2.0, "Seconds between refreshes")
	rootCmd.AddCommand(watchCmd)
}

// Event log entry
type eventLogEntry struct {
	timestamp time.Time
	message   string
	isError   bool
}

// Decoded values captured after a successful refresh. The dashboard renders
// from this copy so a failed refresh keeps showing the last good frame.
type frameData struct {
	timestamp     time.Time
	product       string
	serial        string
	firmware      string
	batteryVolts  float64
	batteryAmps   float64
	panelVolts    float64
	panelWatts    float64
	loadAmps      float64
	state         string
	tracker       string
	offReasons    []string
	errorText     string
	yieldTotal    float64
	yieldToday    float64
	peakToday     float64
	yieldYest     float64
	peakYest      float64
	fieldCount    int
}

// Dashboard model
type watchModel struct {
	dev           *vedirect.Device
	connection    string
	interval      time.Duration
	spin          spinner.Model
	lastFrame     *frameData
	frames        int
	badFrames     int
	eventLog      []eventLogEntry
	maxLogEntries int
	width         int
	height        int
	quitting      bool
}

// Messages
type refreshMsg struct {
	frame *frameData
	err   error
}
type refreshTickMsg time.Time

func initialWatchModel(dev *vedirect.Device, connection string, interval time.Duration) watchModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))

	return watchModel{
		dev:           dev,
		connection:    connection,
		interval:      interval,
		spin:          sp,
		eventLog:      make([]eventLogEntry, 0),
		maxLogEntries: 100,
		width:         80,
		height:        24,
	}
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(
		m.spin.Tick,
		refreshCmd(m.dev),
		tea.EnterAltScreen,
	)
}

// refreshCmd runs one refresh pass off the UI loop. Only one is ever in
// flight: the next is scheduled when the result message arrives.
func refreshCmd(dev *vedirect.Device) tea.Cmd {
	return func() tea.Msg {
		if err := dev.Refresh(); err != nil {
			return refreshMsg{err: err}
		}
		return refreshMsg{frame: captureFrame(dev)}
	}
}

func refreshTickCmd(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}

// captureFrame snapshots the decoded values. Accessor errors leave the zero
// value in place; the raw record stays inspectable via the fields command.
func captureFrame(dev *vedirect.Device) *frameData {
	f := &frameData{
		timestamp:  time.Now(),
		product:    dev.ProductName(),
		serial:     dev.SerialNumber(),
		firmware:   dev.Firmware(),
		offReasons: dev.OffReasons(),
		errorText:  dev.ErrorText(),
		fieldCount: len(dev.Record()),
	}
	f.batteryVolts, _ = dev.BatteryVolts()
	f.batteryAmps, _ = dev.BatteryAmps()
	f.panelVolts, _ = dev.SolarVolts()
	f.panelWatts, _ = dev.SolarWatts()
	f.loadAmps, _ = dev.LoadAmps()
	f.yieldTotal, _ = dev.YieldTotalKWh()
	f.yieldToday, _ = dev.YieldTodayKWh()
	f.peakToday, _ = dev.MaxPowerTodayWatts()
	f.yieldYest, _ = dev.YieldYesterdayKWh()
	f.peakYest, _ = dev.MaxPowerYesterdayWatts()

	if state, err := dev.OperatingState(); err == nil {
		f.state = state
	} else {
		f.state = "Unknown"
	}
	if tracker, err := dev.TrackerState(); err == nil {
		f.tracker = tracker.String()
	} else {
		f.tracker = "Unknown"
	}
	return f
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case refreshTickMsg:
		return m, refreshCmd(m.dev)

	case refreshMsg:
		if msg.err != nil {
			m.badFrames++
			switch {
			case errors.Is(msg.err, vedirect.ErrChecksum):
				m.addLogEntry("checksum mismatch, frame discarded", true)
			case errors.Is(msg.err, vedirect.ErrNoFrame):
				m.addLogEntry("no frame before timeout", true)
			default:
				m.addLogEntry(fmt.Sprintf("REFRESH ERROR: %v", msg.err), true)
			}
		} else {
			m.frames++
			if m.lastFrame == nil {
				m.addLogEntry(fmt.Sprintf("first frame decoded (%d fields)", msg.frame.fieldCount), false)
			}
			m.lastFrame = msg.frame
		}
		return m, refreshTickCmd(m.interval)
	}

	return m, nil
}

func (m *watchModel) addLogEntry(message string, isError bool) {
	entry := eventLogEntry{
		timestamp: time.Now(),
		message:   message,
		isError:   isError,
	}
	m.eventLog = append(m.eventLog, entry)

	// Keep only last N entries
	if len(m.eventLog) > m.maxLogEntries {
		m.eventLog = m.eventLog[len(m.eventLog)-m.maxLogEntries:]
	}
}

func (m watchModel) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}

	// Styles
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("12")).
		Background(lipgloss.Color("235")).
		Padding(0, 1)

	headerStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")).
		Bold(true)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("10"))

	errorStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true)

	warningStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("11"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	// Header
	var s strings.Builder
	s.WriteString(titleStyle.Render("VESTAT - LIVE TELEMETRY"))
	s.WriteString("\n")
	s.WriteString(headerStyle.Render(fmt.Sprintf("%s | Refresh: %.1fs | Press 'q' to quit",
		m.connection, m.interval.Seconds())))
	s.WriteString("\n\n")

	if m.lastFrame == nil {
		s.WriteString(m.spin.View())
		s.WriteString(warningStyle.Render(" Waiting for first frame..."))
		s.WriteString("\n\n")
	} else {
		f := m.lastFrame

		s.WriteString(fmt.Sprintf("%s %s   %s %s   %s %s\n",
			labelStyle.Render("Product:"), valueStyle.Render(f.product),
			labelStyle.Render("Serial:"), valueStyle.Render(f.serial),
			labelStyle.Render("FW:"), valueStyle.Render(f.firmware),
		))
		s.WriteString("\n")

		measurements := strings.Builder{}
		measurements.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			labelStyle.Render("Battery:"), valueStyle.Render(fmt.Sprintf("%.2f V", f.batteryVolts)),
			labelStyle.Render("Current:"), valueStyle.Render(fmt.Sprintf("%.2f A", f.batteryAmps)),
		))
		measurements.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			labelStyle.Render("Panel:  "), valueStyle.Render(fmt.Sprintf("%.2f V", f.panelVolts)),
			labelStyle.Render("Power:  "), valueStyle.Render(fmt.Sprintf("%.0f W", f.panelWatts)),
		))
		measurements.WriteString(fmt.Sprintf("%s %s",
			labelStyle.Render("Load:   "), valueStyle.Render(fmt.Sprintf("%.2f A", f.loadAmps)),
		))
		s.WriteString(boxStyle.Render(measurements.String()))
		s.WriteString("\n\n")

		stateContent := strings.Builder{}
		stateContent.WriteString(fmt.Sprintf("%s %s   %s %s\n",
			labelStyle.Render("State:"), valueStyle.Render(f.state),
			labelStyle.Render("MPPT:"), valueStyle.Render(f.tracker),
		))
		stateContent.WriteString(fmt.Sprintf("%s %s\n",
			labelStyle.Render("Off reasons:"), headerStyle.Render(strings.Join(f.offReasons, ", ")),
		))
		if f.errorText != "No error" {
			stateContent.WriteString(fmt.Sprintf("%s %s",
				labelStyle.Render("Error:"), errorStyle.Render(f.errorText),
			))
		} else {
			stateContent.WriteString(fmt.Sprintf("%s %s",
				labelStyle.Render("Error:"), valueStyle.Render(f.errorText),
			))
		}
		s.WriteString(boxStyle.Render(stateContent.String()))
		s.WriteString("\n\n")

		yieldContent := strings.Builder{}
		yieldContent.WriteString(fmt.Sprintf("%s %s   %s %s (%s %s)\n",
			labelStyle.Render("Total:"), valueStyle.Render(fmt.Sprintf("%.2f kWh", f.yieldTotal)),
			labelStyle.Render("Today:"), valueStyle.Render(fmt.Sprintf("%.2f kWh", f.yieldToday)),
			headerStyle.Render("peak"), valueStyle.Render(fmt.Sprintf("%.0f W", f.peakToday)),
		))
		yieldContent.WriteString(fmt.Sprintf("%s %s (%s %s)",
			labelStyle.Render("Yest.:"), valueStyle.Render(fmt.Sprintf("%.2f kWh", f.yieldYest)),
			headerStyle.Render("peak"), valueStyle.Render(fmt.Sprintf("%.0f W", f.peakYest)),
		))
		s.WriteString(boxStyle.Render(yieldContent.String()))
		s.WriteString("\n\n")

		s.WriteString(headerStyle.Render(fmt.Sprintf("Frames: %d ok, %d bad | Last: %s",
			m.frames, m.badFrames, f.timestamp.Format("15:04:05"))))
		s.WriteString("\n\n")
	}

	// Event log
	s.WriteString(labelStyle.Render("Recent Events:"))
	s.WriteString("\n")

	logHeight := m.height - 20 // Reserve space for header and telemetry boxes
	if logHeight < 5 {
		logHeight = 5
	}

	logContent := strings.Builder{}
	startIdx := len(m.eventLog) - logHeight
	if startIdx < 0 {
		startIdx = 0
	}

	if len(m.eventLog) == 0 {
		logContent.WriteString(headerStyle.Render("  (no events yet)"))
	} else {
		for i := startIdx; i < len(m.eventLog); i++ {
			entry := m.eventLog[i]
			timestamp := entry.timestamp.Format("15:04:05.000")
			if entry.isError {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					errorStyle.Render("✗ "+entry.message),
				))
			} else {
				logContent.WriteString(fmt.Sprintf("%s %s\n",
					headerStyle.Render(timestamp),
					warningStyle.Render("ℹ "+entry.message),
				))
			}
		}
	}

	s.WriteString(boxStyle.Width(m.width - 4).Render(logContent.String()))

	return s.String()
}

func runWatch(cmd *cobra.Command, args []string) error {
	dev, desc, err := newDecoder()
	if err != nil {
		return err
	}

	m := initialWatchModel(dev, desc, time.Duration(watchInterval*float64(time.Second)))
	p := tea.NewProgram(m)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	return nil
}
