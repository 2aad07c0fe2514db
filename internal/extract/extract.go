// Package extract turns rows of messy lead text into structured leads
// by sending each row through an LLM with a strict extraction prompt.
package extract

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"textkit/internal/cache"
	"textkit/internal/llm"
	"textkit/internal/logging"
	"textkit/internal/stats"
)

// The extraction contract the model is held to. The sentiment and
// urgency rules are deliberately blunt so the output stays a clean
// two-class signal.
const systemPrompt = "You are a strict data extraction engine. Analyze the email and return ONLY a JSON object. " +
	"LOGIC FOR sentiment_score: " +
	"IF the sender is positive, interested, or excited, THEN set sentiment_score to 10. " +
	"ELSE set sentiment_score to 1 (angry/uninterested). " +
	"Return this structure: {'client_name': string, 'company_name': string, " +
	"'sentiment_score': number, 'budget_range': string, 'summary': string, 'Is_Urgent': Boolean}. " +
	"If no client_name is mentioned in the email, set it to the string \"null\". " +
	"For 'Is_Urgent': set to true ONLY if the email contains the words 'ASAP' or 'Yesterday', otherwise set to false."

// Lead is one extracted record. Field names follow the extraction
// contract above.
type Lead struct {
	ClientName     string  `json:"client_name"`
	CompanyName    string  `json:"company_name"`
	SentimentScore float64 `json:"sentiment_score"`
	BudgetRange    string  `json:"budget_range"`
	Summary        string  `json:"summary"`
	IsUrgent       bool    `json:"Is_Urgent"`
	Error          string  `json:"error,omitempty"`
}

// StatusLabel maps a sentiment score to its display label.
func StatusLabel(score float64) string {
	switch score {
	case 10:
		return "Very Excited"
	case 1:
		return "Angry"
	default:
		return "Unknown"
	}
}

// Completer is the LLM dependency of the extractor.
type Completer interface {
	ChatJSON(ctx context.Context, model string, messages []llm.Message) (string, error)
}

// Processor runs lead extraction over row batches with bounded
// concurrency.
type Processor struct {
	client      Completer
	model       string
	concurrency int
	cache       *cache.ResponseCache
	tracker     *stats.Tracker
	log         *logging.Logger
}

// NewProcessor creates a processor. cache and tracker may be nil.
func NewProcessor(client Completer, model string, concurrency int, c *cache.ResponseCache, t *stats.Tracker) *Processor {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Processor{
		client:      client,
		model:       model,
		concurrency: concurrency,
		cache:       c,
		tracker:     t,
		log:         logging.Default().With(map[string]any{"component": "extract"}),
	}
}

// Process extracts a lead from every row. Results keep the input order
// and a failed row becomes a Lead carrying only an error; the batch
// never aborts.
func (p *Processor) Process(ctx context.Context, rows []string) []Lead {
	results := make([]Lead, len(rows))

	type item struct {
		row   string
		index int
	}
	work := make(chan item, len(rows))
	for i, row := range rows {
		work <- item{row, i}
	}
	close(work)

	var wg sync.WaitGroup
	for w := 0; w < p.concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for it := range work {
				select {
				case <-ctx.Done():
					results[it.index] = Lead{Error: ctx.Err().Error()}
				default:
					results[it.index] = p.extractOne(ctx, it.row)
				}
			}
		}()
	}
	wg.Wait()

	return results
}

// extractOne handles a single row.
func (p *Processor) extractOne(ctx context.Context, raw string) Lead {
	if strings.TrimSpace(raw) == "" {
		return Lead{Error: "empty raw_data row"}
	}

	prompt := "Extract data from this email: " + raw

	if p.cache != nil {
		if cached, ok := p.cache.Get(p.model, prompt); ok {
			p.log.Debug("cache hit", map[string]any{"model": p.model})
			return parseLead(cached)
		}
	}

	start := time.Now()
	rawJSON, err := p.client.ChatJSON(ctx, p.model, []llm.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: prompt},
	})
	if p.tracker != nil {
		p.tracker.Record(p.model, time.Since(start), err != nil)
	}
	if err != nil {
		p.log.Warn("row extraction failed", map[string]any{"error": err.Error()})
		return Lead{Error: err.Error()}
	}

	lead := parseLead(rawJSON)
	if p.cache != nil && lead.Error == "" {
		p.cache.Set(p.model, prompt, rawJSON)
	}
	return lead
}

// parseLead decodes the model's JSON into a Lead. Invalid JSON becomes
// an error lead rather than a failure.
func parseLead(raw string) Lead {
	var lead Lead
	if err := json.Unmarshal([]byte(raw), &lead); err != nil {
		return Lead{Error: "model returned invalid JSON: " + err.Error()}
	}
	return lead
}
