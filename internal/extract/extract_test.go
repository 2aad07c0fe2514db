package extract

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"textkit/internal/cache"
	"textkit/internal/llm"
	"textkit/internal/stats"
)

// fakeCompleter answers with canned JSON and counts calls.
type fakeCompleter struct {
	calls int64
	reply func(prompt string) (string, error)
}

func (f *fakeCompleter) ChatJSON(ctx context.Context, model string, messages []llm.Message) (string, error) {
	atomic.AddInt64(&f.calls, 1)
	prompt := messages[len(messages)-1].Content
	return f.reply(prompt)
}

func goodReply(prompt string) (string, error) {
	return `{"client_name":"John","company_name":"Acme","sentiment_score":10,"budget_range":"$5k","summary":"interested","Is_Urgent":true}`, nil
}

func TestProcessOrderPreserved(t *testing.T) {
	fake := &fakeCompleter{reply: func(prompt string) (string, error) {
		// Echo the row back in the summary so ordering is observable.
		row := strings.TrimPrefix(prompt, "Extract data from this email: ")
		return fmt.Sprintf(`{"client_name":"c","company_name":"x","sentiment_score":1,"budget_range":"","summary":%q,"Is_Urgent":false}`, row), nil
	}}

	p := NewProcessor(fake, "test/model", 3, nil, nil)

	rows := []string{"row zero", "row one", "row two", "row three"}
	leads := p.Process(context.Background(), rows)

	if len(leads) != len(rows) {
		t.Fatalf("Expected %d leads, got %d", len(rows), len(leads))
	}
	for i, lead := range leads {
		if lead.Summary != rows[i] {
			t.Errorf("Lead %d out of order: got %q, want %q", i, lead.Summary, rows[i])
		}
	}
}

func TestProcessRowFailureDoesNotAbort(t *testing.T) {
	fake := &fakeCompleter{reply: func(prompt string) (string, error) {
		if strings.Contains(prompt, "bad") {
			return "", fmt.Errorf("upstream exploded")
		}
		return goodReply(prompt)
	}}

	p := NewProcessor(fake, "test/model", 2, nil, nil)
	leads := p.Process(context.Background(), []string{"good row", "bad row", "another good row"})

	if leads[0].Error != "" || leads[2].Error != "" {
		t.Errorf("Good rows should have no error: %+v", leads)
	}
	if leads[1].Error == "" {
		t.Error("Bad row should carry an error")
	}
	if leads[0].ClientName != "John" {
		t.Errorf("Unexpected lead: %+v", leads[0])
	}
}

func TestProcessEmptyRow(t *testing.T) {
	fake := &fakeCompleter{reply: goodReply}

	p := NewProcessor(fake, "test/model", 1, nil, nil)
	leads := p.Process(context.Background(), []string{"  ", "real row"})

	if leads[0].Error == "" {
		t.Error("Empty row should carry an error")
	}
	if atomic.LoadInt64(&fake.calls) != 1 {
		t.Errorf("Empty row must not reach the LLM; got %d calls", fake.calls)
	}
}

func TestProcessInvalidModelJSON(t *testing.T) {
	fake := &fakeCompleter{reply: func(prompt string) (string, error) {
		return "{not json", nil
	}}

	p := NewProcessor(fake, "test/model", 1, nil, nil)
	leads := p.Process(context.Background(), []string{"row"})

	if leads[0].Error == "" {
		t.Error("Invalid model JSON should produce an error lead")
	}
}

func TestProcessUsesCache(t *testing.T) {
	fake := &fakeCompleter{reply: goodReply}
	c := cache.New(16, time.Minute)

	p := NewProcessor(fake, "test/model", 1, c, nil)

	p.Process(context.Background(), []string{"same row"})
	p.Process(context.Background(), []string{"same row"})

	if calls := atomic.LoadInt64(&fake.calls); calls != 1 {
		t.Errorf("Expected 1 API call with cache, got %d", calls)
	}
}

func TestProcessRecordsStats(t *testing.T) {
	fake := &fakeCompleter{reply: goodReply}
	tr := stats.NewTracker()

	p := NewProcessor(fake, "test/model", 2, nil, tr)
	p.Process(context.Background(), []string{"a", "b"})

	s := tr.Get("test/model")
	if s == nil || s.TotalCalls != 2 {
		t.Errorf("Expected 2 recorded calls, got %+v", s)
	}
}

func TestStatusLabel(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{10, "Very Excited"},
		{1, "Angry"},
		{5, "Unknown"},
	}
	for _, tt := range tests {
		if got := StatusLabel(tt.score); got != tt.want {
			t.Errorf("StatusLabel(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}
