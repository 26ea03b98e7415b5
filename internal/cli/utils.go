// Package cli provides output formatting for the notes commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/globalfish/notes/internal/models"
	"github.com/globalfish/notes/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteAskResponse writes an answer and its sources to w in the given format.
func WriteAskResponse(w io.Writer, resp *models.AskResponse, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	default:
		writeAskResponseText(w, resp)
		return nil
	}
}

func writeAskResponseText(w io.Writer, resp *models.AskResponse) {
	fmt.Fprintf(w, "\n%s\n", resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Fprintf(w, "\n--- %d source(s), %dms ---\n", len(resp.Sources), resp.QueryTime)
		for _, src := range resp.Sources {
			fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
			fmt.Fprintf(w, "Chunk: %s | Score: %.4f\n", src.Chunk.ID, src.Score)
			fmt.Fprintf(w, "%s\n", utils.Truncate(src.Chunk.Content, 200))
		}
	}
	fmt.Fprintln(w)
}

// WriteRecords writes parsed meeting records to w in the given format.
func WriteRecords(w io.Writer, recs []*models.MeetingRecord, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(recs)
	default:
		writeRecordsText(w, recs)
		return nil
	}
}

func writeRecordsText(w io.Writer, recs []*models.MeetingRecord) {
	fmt.Fprintf(w, "\nParsed %d record(s)\n", len(recs))
	for _, rec := range recs {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "Title: %s\n", rec.Title)
		if rec.Date != "" {
			fmt.Fprintf(w, "Date: %s\n", rec.Date)
		}
		if len(rec.Attendees) > 0 {
			fmt.Fprintf(w, "Attendees: %s\n", strings.Join(rec.Attendees, ", "))
		}
		if rec.Notes != "" {
			fmt.Fprintf(w, "Notes:\n%s\n", utils.Truncate(rec.Notes, 400))
		}
		for _, item := range rec.ActionItems {
			if item.DueDate != "" {
				fmt.Fprintf(w, "- [ ] %s (Due: %s)\n", item.Task, item.DueDate)
			} else {
				fmt.Fprintf(w, "- [ ] %s\n", item.Task)
			}
		}
	}
	fmt.Fprintln(w)
}
