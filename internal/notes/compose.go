package notes

import (
	"fmt"
	"strings"
	"time"

	"github.com/globalfish/notes/internal/models"
)

// ComposeMarkdown serializes a note to the markdown conventions the parser
// reads back: a level-1 title heading, bold Date and Attendees fields, a Notes
// section, and an Action Items section with checkbox bullets. Compose followed
// by Parse recovers the same title, date, attendees, and action items; notes
// recovery is best-effort because the notes body is written as prose, not
// bullets.
func ComposeMarkdown(input *models.NoteInput) string {
	lines := []string{
		fmt.Sprintf("# %s", titleOrDefault(input.Title)),
		fmt.Sprintf("**Date:** %s", input.Date),
		fmt.Sprintf("**Attendees:** %s", strings.Join(input.Attendees, ", ")),
		"",
		fmt.Sprintf("## Notes\n%s", input.Notes),
	}
	if len(input.ActionItems) > 0 {
		lines = append(lines, "\n## Action Items")
		for _, item := range input.ActionItems {
			task := strings.TrimSpace(item.Task)
			due := strings.TrimSpace(item.DueDate)
			line := fmt.Sprintf("- [ ] %s", task)
			if due != "" {
				line += fmt.Sprintf(" _(Due: %s)_", due)
			}
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func titleOrDefault(title string) string {
	if strings.TrimSpace(title) == "" {
		return "Meeting"
	}
	return title
}

// NoteFilename returns the file name convention for an authored note:
// meeting_<date>_<title with spaces underscored>.md. Path separators in
// either part are replaced so the result is a single path element and a
// crafted title cannot escape the notes directory.
func NoteFilename(date, title string) string {
	return fmt.Sprintf("meeting_%s_%s.md", filenamePart(date), filenamePart(title))
}

func filenamePart(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}

// ParseActionLines converts the authoring form's free-text action lines
// ("task | due", one per line) into action items. A line with no due date
// defaults to tomorrow relative to now; this default belongs to the authoring
// side only and is never applied by the extractor.
func ParseActionLines(raw string, now time.Time) []models.ActionItem {
	var items []models.ActionItem
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		task, due, found := strings.Cut(line, "|")
		task = strings.TrimSpace(task)
		due = strings.TrimSpace(due)
		if !found || due == "" {
			due = now.AddDate(0, 0, 1).Format("2006-01-02")
		}
		items = append(items, models.ActionItem{Task: task, DueDate: due})
	}
	return items
}
