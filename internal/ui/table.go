package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

func newTable(headers []string, rows [][]string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})
}

// RoomInfo is shown after a room id has been generated.
type RoomInfo struct {
	RoomID   string
	RelayURL string
}

func (r RoomInfo) View() string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Success).
		Padding(1, 2)

	content := fmt.Sprintf("%s New room\n\n%s Room ID:  %s\n%s Relay:    %s",
		IconRoom,
		IconCopy, BoldStyle.Foreground(Primary).Render(r.RoomID),
		IconSignal, MutedStyle.Render(r.RelayURL),
	)
	return box.Render(content)
}

// ProbeSummary is the outcome of a relayctl call.
type ProbeSummary struct {
	Room     string
	Role     string
	Peer     string
	Sent     int
	Received int
	Echoed   int64
	Min      time.Duration
	Avg      time.Duration
	Max      time.Duration
	Duration time.Duration
}

func ProbeSummaryView(s ProbeSummary) string {
	rows := [][]string{
		{"Room", s.Room},
		{"Role", s.Role},
		{"Peer", orDash(s.Peer)},
	}
	if s.Role == "answerer" {
		rows = append(rows, []string{"Pings echoed", fmt.Sprintf("%d", s.Echoed)})
	} else {
		loss := 0.0
		if s.Sent > 0 {
			loss = float64(s.Sent-s.Received) / float64(s.Sent) * 100
		}
		rows = append(rows,
			[]string{"Pings", fmt.Sprintf("%d sent, %d received", s.Sent, s.Received)},
			[]string{"Loss", fmt.Sprintf("%.0f%%", loss)},
			[]string{"RTT min/avg/max", fmt.Sprintf("%s / %s / %s", formatRTT(s.Min), formatRTT(s.Avg), formatRTT(s.Max))},
		)
	}
	rows = append(rows, []string{"Duration", s.Duration.Round(time.Millisecond).String()})

	return newTable([]string{"Metric", "Value"}, rows).Render()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatRTT(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return d.Round(10 * time.Microsecond).String()
}
