// Package notes extracts normalized meeting records from loosely structured
// markdown and serializes records back to the same conventions. The parser is
// a pure function of (path, mtime, raw text): it does no I/O, holds no mutable
// state, and never fails on malformed input.
package notes

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/globalfish/notes/internal/fileid"
	"github.com/globalfish/notes/internal/models"
)

// Default pattern fallback chains. Meeting notes in the wild use inconsistent
// emphasis and labeling, so each field is tried against an ordered list and
// the first non-empty capture wins. The lists are parameters (see options)
// so new conventions can be added without touching extraction logic.
var (
	DefaultTitlePatterns = []*regexp.Regexp{
		// The colon may sit inside or outside the bold markers.
		regexp.MustCompile(`(?im)\*\*Title:?\*\*\s*[:\-]?\s*(.+)`),
		regexp.MustCompile(`(?im)^#[ \t]+(.+)$`),
		regexp.MustCompile(`(?im)^##\s+Meeting Title\s*:\s*(.+)$`),
	}
	DefaultDatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)\*\*Date:?\*\*\s*[:\-]?\s*(.+)`),
		regexp.MustCompile(`(?im)Date\s*[:\-]?\s*(.+)`),
		regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`),
	}
	DefaultAttendeePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?im)\*\*Attendees:?\*\*\s*[:\-]?\s*(.+)`),
		regexp.MustCompile(`(?im)Attendees\s*[:\-]?\s*(.+)`),
	}

	// dateTokenPattern is the last-resort bare date match, applied to the file
	// path (single-section mode) or the section title (multi-section mode).
	dateTokenPattern = []*regexp.Regexp{regexp.MustCompile(`(\d{4}-\d{2}-\d{2})`)}
)

// DefaultNoteLabels and DefaultActionLabels are the heading label variants
// recognized by the bulleted-block extractor.
var (
	DefaultNoteLabels   = []string{"Notes", "Topics"}
	DefaultActionLabels = []string{"Action Items", "Actions", "Action"}
)

var (
	sectionHeadingRe = regexp.MustCompile(`^##[ \t]+(.+?)\s*$`)
	meetingTitleRe   = regexp.MustCompile(`(?i)^##[ \t]+Meeting Title\s*:\s*(.*?)\s*$`)
	bulletRe         = regexp.MustCompile(`^[ \t]*[-*][ \t]+(.*)$`)
	anyHeadingRe     = regexp.MustCompile(`^#{1,6}\s+`)
	attendeeSplitRe  = regexp.MustCompile(`[,;]`)
)

// Source is one note file as supplied by the caller. The parser does not read
// files; the provider stats and reads them and passes the result here. A zero
// ModTime means the stat failed and the file ID falls back to the path alone.
type Source struct {
	Path    string
	ModTime time.Time
	Raw     string
}

// Section is a candidate meeting: a span of the file delimited by a level-2
// heading. An empty Title marks the single-section fallback pseudo-section.
type Section struct {
	Title string
	Body  string
}

// Parser turns raw markdown into MeetingRecords. Safe for concurrent use.
type Parser struct {
	titlePatterns    []*regexp.Regexp
	datePatterns     []*regexp.Regexp
	attendeePatterns []*regexp.Regexp
	noteLabels       []string
	actionLabels     []string
	reserved         map[string]bool
}

// ParserOption configures a Parser.
type ParserOption func(*Parser)

// WithTitlePatterns overrides the ordered title pattern chain.
func WithTitlePatterns(patterns []*regexp.Regexp) ParserOption {
	return func(p *Parser) { p.titlePatterns = patterns }
}

// WithDatePatterns overrides the ordered date pattern chain.
func WithDatePatterns(patterns []*regexp.Regexp) ParserOption {
	return func(p *Parser) { p.datePatterns = patterns }
}

// WithAttendeePatterns overrides the ordered attendee pattern chain.
func WithAttendeePatterns(patterns []*regexp.Regexp) ParserOption {
	return func(p *Parser) { p.attendeePatterns = patterns }
}

// WithNoteLabels overrides the heading label variants for the notes block.
func WithNoteLabels(labels []string) ParserOption {
	return func(p *Parser) { p.noteLabels = labels }
}

// WithActionLabels overrides the heading label variants for the action block.
func WithActionLabels(labels []string) ParserOption {
	return func(p *Parser) { p.actionLabels = labels }
}

// NewParser returns a parser with the default pattern chains and block labels.
func NewParser(opts ...ParserOption) *Parser {
	p := &Parser{
		titlePatterns:    DefaultTitlePatterns,
		datePatterns:     DefaultDatePatterns,
		attendeePatterns: DefaultAttendeePatterns,
		noteLabels:       DefaultNoteLabels,
		actionLabels:     DefaultActionLabels,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.reserved = make(map[string]bool, len(p.noteLabels)+len(p.actionLabels))
	for _, l := range p.noteLabels {
		p.reserved[strings.ToLower(l)] = true
	}
	for _, l := range p.actionLabels {
		p.reserved[strings.ToLower(l)] = true
	}
	return p
}

// Split partitions raw text into meeting sections. A line matching a level-2
// heading starts a new section whose body runs to the next such heading or end
// of text. Headings whose text is a known block label (Notes, Action Items,
// ...) do not start a section; they belong to the body of the section they
// appear in. A "## Meeting Title:" prefix is recognized as an alternate anchor
// and stripped from the captured title. When no section headings are found the
// whole input is returned as one pseudo-section with an empty title, which
// signals the caller to use single-meeting fallback extraction. Only level-2
// headings count: a file with just a "#" heading is a zero-section file.
func (p *Parser) Split(raw string) []Section {
	var sections []Section
	var current *Section
	var body strings.Builder

	flush := func() {
		if current != nil {
			current.Body = strings.TrimRight(body.String(), "\n")
			sections = append(sections, *current)
			body.Reset()
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		title, ok := p.sectionTitle(line)
		if ok {
			flush()
			current = &Section{Title: title}
			continue
		}
		if current != nil {
			body.WriteString(line)
			body.WriteString("\n")
		}
	}
	flush()

	if len(sections) == 0 {
		return []Section{{Title: "", Body: raw}}
	}
	return sections
}

// sectionTitle reports whether line starts a meeting section and returns the
// captured title.
func (p *Parser) sectionTitle(line string) (string, bool) {
	if m := meetingTitleRe.FindStringSubmatch(line); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			return title, true
		}
		return "", false
	}
	m := sectionHeadingRe.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	title := strings.TrimSpace(m[1])
	if title == "" || p.reserved[strings.ToLower(strings.TrimSuffix(title, ":"))] {
		return "", false
	}
	return title, true
}

// Parse produces zero or more normalized meeting records from src.
//
// Multi-section files yield one record per section that has non-empty notes or
// action items; empty sections are silently dropped. Zero-section files always
// yield exactly one record via fallback extraction (title from a bold Title
// field, a level-1 heading, a Meeting Title field, or the file's base name;
// the raw body stands in for notes when no bullets are found).
func (p *Parser) Parse(src Source) []models.MeetingRecord {
	basename := filepath.Base(src.Path)
	topic := filepath.Base(filepath.Dir(src.Path))

	sections := p.Split(src.Raw)
	if len(sections) == 1 && sections[0].Title == "" {
		return []models.MeetingRecord{p.parseSingle(src, basename, topic)}
	}

	records := make([]models.MeetingRecord, 0, len(sections))
	for _, sec := range sections {
		date := ExtractField(sec.Body, p.datePatterns)
		if date == "" {
			date = ExtractField(sec.Title, dateTokenPattern)
		}
		noteText := p.ExtractBlock(sec.Body, p.noteLabels)
		actions := p.ExtractActionItems(sec.Body)
		if noteText == "" && len(actions) == 0 {
			continue
		}
		attendees := SplitAttendees(ExtractField(sec.Body, p.attendeePatterns))
		records = append(records, models.MeetingRecord{
			FileID:          fileid.SectionID(src.Path, sec.Title, date),
			SourcePath:      src.Path,
			SourceBasename:  basename,
			Topic:           topic,
			Title:           sec.Title,
			Date:            date,
			Attendees:       attendees,
			Notes:           noteText,
			ActionItems:     actions,
			RenderedContent: renderContent(sec.Title, attendees, noteText),
		})
	}
	return records
}

// parseSingle handles the zero-section fallback: the whole file is one meeting.
func (p *Parser) parseSingle(src Source, basename, topic string) models.MeetingRecord {
	title := ExtractField(src.Raw, p.titlePatterns)
	if title == "" {
		title = strings.TrimSuffix(basename, filepath.Ext(basename))
	}
	date := ExtractField(src.Raw, p.datePatterns)
	if date == "" {
		date = ExtractField(src.Path, dateTokenPattern)
	}
	attendees := SplitAttendees(ExtractField(src.Raw, p.attendeePatterns))
	noteText := p.ExtractBlock(src.Raw, p.noteLabels)
	if noteText == "" {
		noteText = allBullets(src.Raw)
	}
	actions := p.ExtractActionItems(src.Raw)

	recordNotes := noteText
	rendered := noteText
	if rendered == "" {
		rendered = strings.TrimSpace(src.Raw)
		recordNotes = rendered
	}
	return models.MeetingRecord{
		FileID:          fileid.NoteID(src.Path, src.ModTime),
		SourcePath:      src.Path,
		SourceBasename:  basename,
		Topic:           topic,
		Title:           title,
		Date:            date,
		Attendees:       attendees,
		Notes:           recordNotes,
		ActionItems:     actions,
		RenderedContent: renderContent(title, attendees, rendered),
	}
}

// renderContent composes the human-readable rendition that downstream
// consumers embed as the unit of semantic content.
func renderContent(title string, attendees []string, noteText string) string {
	var b strings.Builder
	b.WriteString("Meeting Title: ")
	b.WriteString(title)
	b.WriteString("\n\nAttendees:\n")
	if len(attendees) > 0 {
		b.WriteString(strings.Join(attendees, "\n"))
	} else {
		b.WriteString("(none)")
	}
	b.WriteString("\n\nNotes:\n")
	b.WriteString(noteText)
	return b.String()
}

// SplitAttendees parses a comma/semicolon-separated attendee field into
// trimmed, non-empty names.
func SplitAttendees(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := attendeeSplitRe.Split(raw, -1)
	attendees := make([]string, 0, len(parts))
	for _, part := range parts {
		if name := strings.TrimSpace(part); name != "" {
			attendees = append(attendees, name)
		}
	}
	if len(attendees) == 0 {
		return nil
	}
	return attendees
}

// allBullets collects the content of every bullet line in text, one per line.
func allBullets(text string) string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if m := bulletRe.FindStringSubmatch(line); m != nil {
			lines = append(lines, strings.TrimSpace(m[1]))
		}
	}
	return strings.Join(lines, "\n")
}
