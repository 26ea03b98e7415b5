package notes

import (
	"regexp"
	"strings"

	"github.com/globalfish/notes/internal/models"
)

var (
	// checkboxLineRe matches a checkbox bullet anywhere in a file, the
	// fallback when no Action Items heading exists.
	checkboxLineRe = regexp.MustCompile(`(?im)^[-*]\s*\[.?\]\s*(.+)$`)

	// checkboxMarkRe strips a leading "[ ]"/"[x]" marker from a bullet that
	// was captured under an Action Items heading.
	checkboxMarkRe = regexp.MustCompile(`(?i)^\[.?\]\s*`)

	// dueDelimRe finds the task/due-date delimiter: a pipe, a "(Due:" marker,
	// or a bare "Due:"/"Due " marker. The leftmost occurrence wins.
	dueDelimRe = regexp.MustCompile(`\||\(Due:|_?Due:?\s`)
)

// ExtractField tries each pattern against text in order and returns the first
// non-empty capture group, trimmed. Returns "" when nothing matches. With
// multiple candidate matches for one pattern, the first wins; ambiguity is
// never an error.
func ExtractField(text string, patterns []*regexp.Regexp) string {
	for _, pattern := range patterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil || len(m) < 2 {
			continue
		}
		if captured := strings.TrimSpace(m[1]); captured != "" {
			return captured
		}
	}
	return ""
}

// ExtractBlock finds a heading (levels 2-4) matching one of the label
// variants and returns the contiguous bullet lines beneath it joined by
// newlines, or "" when no variant yields any. For each label an exact heading
// match (optional trailing colon) is tried before a looser "heading contains
// label" match. Scanning under the heading skips blank lines, captures bullet
// lines, and stops at any heading or non-bullet prose; the block does not span
// prose. The first label variant that yields at least one line wins.
func (p *Parser) ExtractBlock(text string, labelVariants []string) string {
	for _, label := range labelVariants {
		start, ok := findBlockHeading(text, label)
		if !ok {
			continue
		}
		var lines []string
		for _, line := range strings.Split(text[start:], "\n") {
			if anyHeadingRe.MatchString(line) {
				break
			}
			if m := bulletRe.FindStringSubmatch(line); m != nil {
				lines = append(lines, strings.TrimSpace(m[1]))
				continue
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			break
		}
		if len(lines) > 0 {
			return strings.Join(lines, "\n")
		}
	}
	return ""
}

// findBlockHeading returns the offset just past the heading line for label,
// trying the exact form first and a looser contains-match second.
func findBlockHeading(text, label string) (int, bool) {
	quoted := regexp.QuoteMeta(label)
	exact := regexp.MustCompile(`(?im)^#{2,4}\s*` + quoted + `\s*:?[ \t]*$`)
	if loc := exact.FindStringIndex(text); loc != nil {
		return loc[1], true
	}
	loose := regexp.MustCompile(`(?im)^#{2,4}.*` + quoted + `.*$`)
	if loc := loose.FindStringIndex(text); loc != nil {
		return loc[1], true
	}
	return 0, false
}

// ExtractActionItems extracts task/due-date pairs. It first looks for a
// labeled action block; when that yields nothing it falls back to scanning the
// whole text for checkbox bullets. Due dates are passed through untouched apart
// from delimiter cleanup; absence stays an empty string, never a default.
func (p *Parser) ExtractActionItems(text string) []models.ActionItem {
	var candidates []string
	if block := p.ExtractBlock(text, p.actionLabels); block != "" {
		candidates = strings.Split(block, "\n")
	} else {
		for _, m := range checkboxLineRe.FindAllStringSubmatch(text, -1) {
			candidates = append(candidates, m[1])
		}
	}

	items := make([]models.ActionItem, 0, len(candidates))
	for _, line := range candidates {
		raw := strings.TrimSpace(line)
		if raw == "" {
			continue
		}
		items = append(items, splitActionLine(raw))
	}
	if len(items) == 0 {
		return nil
	}
	return items
}

// splitActionLine splits one candidate at the first delimiter into task and
// due date. A "(Due: ...)" wrapper (and any emphasis markers around it) is
// peeled off the due date; a pipe-delimited remainder is kept verbatim.
func splitActionLine(raw string) models.ActionItem {
	raw = checkboxMarkRe.ReplaceAllString(raw, "")
	loc := dueDelimRe.FindStringIndex(raw)
	if loc == nil {
		return models.ActionItem{Task: strings.TrimSpace(raw)}
	}
	task := trimEmphasis(raw[:loc[0]])
	due := strings.TrimSpace(raw[loc[1]:])
	delim := raw[loc[0]:loc[1]]
	if strings.Contains(delim, "(") {
		due = strings.TrimSuffix(due, "_")
		due = strings.TrimSuffix(due, ")")
		due = strings.TrimSpace(due)
	}
	if task == "" {
		task, due = due, ""
	}
	return models.ActionItem{Task: task, DueDate: due}
}

// trimEmphasis trims whitespace and trailing markdown emphasis markers.
func trimEmphasis(s string) string {
	return strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), "_*"))
}
