package search

import (
	"context"
	"sync"
)

// Call records one invocation made against a StaticSearcher.
type Call struct {
	Op     string
	Index  string
	Query  string
	Limit  int
	Fields []string
}

// StaticSearcher is an in-memory Searcher returning a fixed set of records.
// It truncates to the requested limit the way a real backend would.
type StaticSearcher struct {
	Records []Record
	Err     error

	mu    sync.Mutex
	calls []Call
}

// NewStaticSearcher builds a StaticSearcher from raw JSON objects.
func NewStaticSearcher(raws ...string) *StaticSearcher {
	records := make([]Record, 0, len(raws))
	for _, raw := range raws {
		records = append(records, ParseRecord(raw))
	}
	return &StaticSearcher{Records: records}
}

func (s *StaticSearcher) SearchText(ctx context.Context, index string, query string, limit int) ([]Record, error) {
	return s.answer(Call{Op: "text", Index: index, Query: query, Limit: limit})
}

func (s *StaticSearcher) SearchFilter(ctx context.Context, index string, filter string, limit int) ([]Record, error) {
	return s.answer(Call{Op: "filter", Index: index, Query: filter, Limit: limit})
}

func (s *StaticSearcher) SearchFields(ctx context.Context, index string, query string, limit int, fields []string) ([]Record, error) {
	return s.answer(Call{Op: "fields", Index: index, Query: query, Limit: limit, Fields: fields})
}

// Calls returns a copy of the recorded invocations.
func (s *StaticSearcher) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Call, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *StaticSearcher) answer(call Call) ([]Record, error) {
	s.mu.Lock()
	s.calls = append(s.calls, call)
	s.mu.Unlock()

	if s.Err != nil {
		return nil, s.Err
	}
	records := s.Records
	if call.Limit >= 0 && call.Limit < len(records) {
		records = records[:call.Limit]
	}
	out := make([]Record, len(records))
	copy(out, records)
	return out, nil
}
