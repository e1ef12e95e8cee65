package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/psantana5/logcheck/internal/streamer"
)

// Summary is what the operator sees after a session when --summary is set
type Summary struct {
	SessionID string
	Serial    string
	Filter    string
	ClearErr  error
	Cleared   bool
	Stream    *streamer.Result
}

// Write renders the summary as a two-column table
func (s *Summary) Write(out io.Writer) error {
	table := tablewriter.NewWriter(out)
	table.Header("Field", "Value")

	serial := s.Serial
	if serial == "" {
		serial = "(default device)"
	}

	clearStatus := "skipped"
	if s.Cleared {
		clearStatus = "ok"
		if s.ClearErr != nil {
			clearStatus = "failed: " + s.ClearErr.Error()
		}
	}

	rows := [][]string{
		{"Session", s.SessionID},
		{"Device", serial},
		{"Filter", s.Filter},
		{"Clear", clearStatus},
	}

	if s.Stream != nil {
		rows = append(rows,
			[]string{"PID", strconv.Itoa(s.Stream.PID)},
			[]string{"Lines", strconv.Itoa(s.Stream.Lines)},
			[]string{"Stop reason", string(s.Stream.Reason)},
			[]string{"Exit code", strconv.Itoa(s.Stream.ExitCode)},
			[]string{"Duration", s.Stream.Duration().Round(time.Millisecond).String()},
		)
		if s.Stream.Signal != "" {
			rows = append(rows, []string{"Signal", s.Stream.Signal})
		}
	}

	for _, row := range rows {
		if err := table.Append(row[0], row[1]); err != nil {
			return fmt.Errorf("failed to build summary: %w", err)
		}
	}
	return table.Render()
}
