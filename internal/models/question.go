package models

import "fmt"

// RecordFilter narrows retrieval to records matching metadata fields.
// Attendee and Topic are case-insensitive substring matches; Date is exact.
// Zero-valued fields are ignored.
type RecordFilter struct {
	Attendee string `json:"attendee,omitempty"`
	Date     string `json:"date,omitempty"`
	Topic    string `json:"topic,omitempty"`
}

// Empty reports whether no filter fields are set.
func (f *RecordFilter) Empty() bool {
	return f == nil || (f.Attendee == "" && f.Date == "" && f.Topic == "")
}

// AskRequest is a question to answer from indexed meeting notes.
type AskRequest struct {
	Question string        `json:"question"`
	Filters  *RecordFilter `json:"filters,omitempty"`
	TopK     int           `json:"top_k,omitempty"`
}

// Validate ensures the request has a question and normalizes TopK.
func (r *AskRequest) Validate() error {
	if r.Question == "" {
		return fmt.Errorf("question cannot be empty")
	}
	if r.TopK <= 0 {
		r.TopK = 4
	}
	if r.TopK > 20 {
		r.TopK = 20
	}
	return nil
}

// SourceChunk is one retrieved chunk backing an answer.
type SourceChunk struct {
	Chunk *NoteChunk `json:"chunk"`
	Score float64    `json:"score"`
}

// AskResponse is the answer to an AskRequest plus the chunks it was grounded on.
type AskResponse struct {
	Answer    string         `json:"answer"`
	Sources   []*SourceChunk `json:"sources,omitempty"`
	Question  string         `json:"question"`
	QueryTime int64          `json:"query_time_ms"`
}
