package processor

import (
	"encoding/json"
	"sync"

	"psoriasis-draw/internal/zone"
)

// AnswerType describes the value of an AnswerResult.
type AnswerType string

const (
	AnswerInteger      AnswerType = "integer"
	AnswerIntegerArray AnswerType = "integerArray"
	AnswerDecimal      AnswerType = "decimal"
)

// Result is one entry of a step's result history.
type Result interface {
	ResultIdentifier() string
	resultType() string
}

// AnswerResult is a single answer value.
type AnswerResult struct {
	Identifier string      `json:"identifier"`
	Type       AnswerType  `json:"answerType"`
	Value      interface{} `json:"value"`
}

func (r AnswerResult) ResultIdentifier() string { return r.Identifier }
func (r AnswerResult) resultType() string       { return "answer" }

// Int returns the value of an integer answer.
func (r AnswerResult) Int() (int, bool) {
	v, ok := r.Value.(int)
	return v, ok
}

// Ints returns the value of an integer array answer.
func (r AnswerResult) Ints() ([]int, bool) {
	v, ok := r.Value.([]int)
	return v, ok
}

// Float returns the value of a decimal answer.
func (r AnswerResult) Float() (float64, bool) {
	v, ok := r.Value.(float64)
	return v, ok
}

// SelectedIdentifiersResult summarizes which zones of a region were selected.
type SelectedIdentifiersResult struct {
	Identifier string                    `json:"identifier"`
	Selected   []zone.SelectedIdentifier `json:"selectedIdentifiers"`
	RegionMap  *zone.Map                 `json:"regionMap,omitempty"`
}

func (r SelectedIdentifiersResult) ResultIdentifier() string { return r.Identifier }
func (r SelectedIdentifiersResult) resultType() string       { return "selectedZones" }

// FileResult points at a file written for the step.
type FileResult struct {
	Identifier  string `json:"identifier"`
	Path        string `json:"path"`
	ContentType string `json:"contentType"`
}

func (r FileResult) ResultIdentifier() string { return r.Identifier }
func (r FileResult) resultType() string       { return "file" }

// Results is the append-only result history of a step. It is safe for
// concurrent use.
type Results struct {
	mu    sync.RWMutex
	items []Result
}

// NewResults creates an empty history.
func NewResults() *Results {
	return &Results{}
}

// Append adds r to the history.
func (rs *Results) Append(r Result) {
	rs.mu.Lock()
	rs.items = append(rs.items, r)
	rs.mu.Unlock()
}

// All returns a copy of the history in append order.
func (rs *Results) All() []Result {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return append([]Result(nil), rs.items...)
}

// Len returns the number of results.
func (rs *Results) Len() int {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return len(rs.items)
}

// Find returns the most recent result with the given identifier.
func (rs *Results) Find(id string) (Result, bool) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	for i := len(rs.items) - 1; i >= 0; i-- {
		if rs.items[i].ResultIdentifier() == id {
			return rs.items[i], true
		}
	}
	return nil, false
}

// Answer returns the most recent answer result with the given identifier.
func (rs *Results) Answer(id string) (AnswerResult, bool) {
	r, ok := rs.Find(id)
	if !ok {
		return AnswerResult{}, false
	}
	a, ok := r.(AnswerResult)
	return a, ok
}

// MergeSelectedIdentifiers appends one result under id holding the
// selections of every SelectedIdentifiersResult in the history, in append
// order, and returns it. Earlier merges under id are not merged again.
func (rs *Results) MergeSelectedIdentifiers(id string) SelectedIdentifiersResult {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	merged := SelectedIdentifiersResult{Identifier: id, Selected: []zone.SelectedIdentifier{}}
	for _, r := range rs.items {
		if s, ok := r.(SelectedIdentifiersResult); ok && s.Identifier != id {
			merged.Selected = append(merged.Selected, s.Selected...)
		}
	}
	rs.items = append(rs.items, merged)
	return merged
}

type resultEnvelope struct {
	Type   string `json:"type"`
	Result Result `json:"result"`
}

// MarshalJSON encodes the history as a list of typed entries.
func (rs *Results) MarshalJSON() ([]byte, error) {
	items := rs.All()
	out := make([]resultEnvelope, len(items))
	for i, r := range items {
		out[i] = resultEnvelope{Type: r.resultType(), Result: r}
	}
	return json.Marshal(out)
}
