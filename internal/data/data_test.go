package data

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestUnmarshal_FlexibleIDs(t *testing.T) {
	raw := `{
		"query": {"text": "capital of France", "qid": 1},
		"candidates": [
			{"docid": "doc1", "score": 0.5, "doc": {"text": "Paris is the capital of France."}},
			{"docid": 42, "score": 0.25, "doc": {"text": "Berlin is the capital of Germany."}}
		]
	}`

	var request Request
	require.NoError(t, json.Unmarshal([]byte(raw), &request))

	assert.Equal(t, "1", request.Query.QID)
	assert.Equal(t, "capital of France", request.Query.Text)
	require.Len(t, request.Candidates, 2)
	assert.Equal(t, "doc1", request.Candidates[0].DocID)
	assert.Equal(t, "42", request.Candidates[1].DocID)
	assert.Equal(t, 0.25, request.Candidates[1].Score)
}

func TestCandidateText(t *testing.T) {
	tests := []struct {
		name     string
		doc      map[string]any
		expected string
	}{
		{
			name:     "text field",
			doc:      map[string]any{"text": "Paris is the capital."},
			expected: "Paris is the capital.",
		},
		{
			name:     "contents field",
			doc:      map[string]any{"contents": "Some contents."},
			expected: "Some contents.",
		},
		{
			name:     "text preferred over body",
			doc:      map[string]any{"body": "body text", "text": "the text"},
			expected: "the text",
		},
		{
			name:     "unknown fields serialized",
			doc:      map[string]any{"title": "A title"},
			expected: `{"title":"A title"}`,
		},
		{
			name:     "empty doc",
			doc:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Candidate{DocID: "d", Doc: tt.doc}
			assert.Equal(t, tt.expected, c.Text())
		})
	}
}

func TestRequestValidate(t *testing.T) {
	valid := Request{
		Query:      Query{Text: "a query", QID: "q1"},
		Candidates: []Candidate{{DocID: "d1"}},
	}
	assert.NoError(t, valid.Validate())

	noQuery := Request{
		Query:      Query{Text: "   ", QID: "q2"},
		Candidates: []Candidate{{DocID: "d1"}},
	}
	assert.Error(t, noQuery.Validate())

	noCandidates := Request{Query: Query{Text: "a query", QID: "q3"}}
	assert.Error(t, noCandidates.Validate())
}

func TestResultMarshal_OmitsEmptyHistory(t *testing.T) {
	result := Result{
		Query:      Query{Text: "q", QID: "1"},
		Candidates: []Candidate{{DocID: "d1", Score: 1}},
	}

	b, err := json.Marshal(result)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "invocations_history")
}
