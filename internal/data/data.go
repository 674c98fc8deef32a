package data

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Query holds the search query text and its identifier.
type Query struct {
	Text string `json:"text"`
	QID  string `json:"qid"`
}

// UnmarshalJSON accepts qid as either a JSON string or a number, since
// upstream datasets use both interchangeably.
func (q *Query) UnmarshalJSON(b []byte) error {
	var raw struct {
		Text string          `json:"text"`
		QID  json.RawMessage `json:"qid"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	q.Text = raw.Text
	q.QID = rawToString(raw.QID)
	return nil
}

// Candidate is a single document to be ranked against a query.
type Candidate struct {
	DocID string         `json:"docid"`
	Score float64        `json:"score"`
	Doc   map[string]any `json:"doc"`
}

// UnmarshalJSON accepts docid as either a JSON string or a number.
func (c *Candidate) UnmarshalJSON(b []byte) error {
	var raw struct {
		DocID json.RawMessage `json:"docid"`
		Score float64         `json:"score"`
		Doc   map[string]any  `json:"doc"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	c.DocID = rawToString(raw.DocID)
	c.Score = raw.Score
	c.Doc = raw.Doc
	return nil
}

// Text returns the candidate's passage text. Datasets name the text field
// inconsistently, so the common names are tried in order; if none match,
// the whole document is serialized.
func (c Candidate) Text() string {
	for _, key := range []string{"text", "contents", "content", "body", "passage"} {
		if v, ok := c.Doc[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	if len(c.Doc) == 0 {
		return ""
	}
	b, err := json.Marshal(c.Doc)
	if err != nil {
		return ""
	}
	return string(b)
}

// Request is one unit of reranking work: a query plus its candidate pool.
type Request struct {
	Query      Query       `json:"query"`
	Candidates []Candidate `json:"candidates"`
}

// Result mirrors Request with the candidates in ranked order.
type Result struct {
	Query              Query                 `json:"query"`
	Candidates         []Candidate           `json:"candidates"`
	InvocationsHistory []InferenceInvocation `json:"invocations_history,omitempty"`
}

// InferenceInvocation records a single model call made while ranking.
type InferenceInvocation struct {
	ID           string `json:"id"`
	Method       string `json:"method"`
	Prompt       string `json:"prompt"`
	Response     string `json:"response"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

func rawToString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return strings.Trim(string(raw), `"`)
}

// Validate checks that a request is rankable.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Query.Text) == "" {
		return fmt.Errorf("request %s has an empty query", r.Query.QID)
	}
	if len(r.Candidates) == 0 {
		return fmt.Errorf("request %s has no candidates", r.Query.QID)
	}
	return nil
}
