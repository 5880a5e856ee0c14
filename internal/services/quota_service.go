package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"manejobot/internal/database"
	"manejobot/internal/models"
)

// QuotaService accumulates token usage in memory and flushes it to the
// daily accounting table. Counts are per producer per day; losing a flush
// window on crash is acceptable for billing purposes.
type QuotaService struct {
	db      *database.DB
	metrics *Metrics

	mu      sync.Mutex
	pending map[int64]models.Usage
}

func NewQuotaService(db *database.DB, metrics *Metrics) *QuotaService {
	return &QuotaService{
		db:      db,
		metrics: metrics,
		pending: make(map[int64]models.Usage),
	}
}

// Track records one turn's token usage for the producer.
func (q *QuotaService) Track(pmoID int64, usage models.Usage) {
	if usage.PromptTokens == 0 && usage.CompletionTokens == 0 {
		return
	}
	q.mu.Lock()
	acc := q.pending[pmoID]
	acc.Add(usage)
	q.pending[pmoID] = acc
	q.mu.Unlock()

	if q.metrics != nil {
		q.metrics.TokensConsumed.WithLabelValues("prompt").Add(float64(usage.PromptTokens))
		q.metrics.TokensConsumed.WithLabelValues("completion").Add(float64(usage.CompletionTokens))
	}
}

// Flush writes pending counters to the daily table. Called by the
// scheduler and on shutdown.
func (q *QuotaService) Flush(ctx context.Context) error {
	q.mu.Lock()
	batch := q.pending
	q.pending = make(map[int64]models.Usage)
	q.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	day := time.Now().Format("2006-01-02")
	for pmoID, usage := range batch {
		_, err := q.db.Conn().ExecContext(ctx, `
			INSERT INTO uso_tokens (pmo_id, dia, prompt_tokens, completion_tokens)
			VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				prompt_tokens = prompt_tokens + VALUES(prompt_tokens),
				completion_tokens = completion_tokens + VALUES(completion_tokens)`,
			pmoID, day, usage.PromptTokens, usage.CompletionTokens)
		if err != nil {
			// Put the batch back so the next flush retries it.
			q.mu.Lock()
			for id, u := range batch {
				acc := q.pending[id]
				acc.Add(u)
				q.pending[id] = acc
			}
			q.mu.Unlock()
			return fmt.Errorf("erro ao gravar uso de tokens: %w", err)
		}
		delete(batch, pmoID)
	}
	return nil
}
