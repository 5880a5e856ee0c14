package extraction

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"manejobot/internal/models"
)

const maxAttempts = 3

// Observer receives failover events for instrumentation. All methods are
// called inline from the request path and must not block.
type Observer interface {
	BackendDemoted(backend string)
	ExtractionRetried()
}

// Selector walks the ranked backend list for every request, skipping
// demoted backends and demoting the ones that rate-limit mid-turn. A
// malformed answer triggers up to two re-asks with progressively stricter
// prompts before giving up.
type Selector struct {
	clients []Completer
	breaker *Breaker
	obs     Observer
	now     func() time.Time
}

// NewSelector builds a selector over the enabled backends, ranked by
// priority (lowest first).
func NewSelector(backends []models.Backend, timeout time.Duration, breaker *Breaker) *Selector {
	ranked := make([]models.Backend, 0, len(backends))
	for _, b := range backends {
		if b.Enabled {
			ranked = append(ranked, b)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Priority < ranked[j].Priority })

	clients := make([]Completer, 0, len(ranked))
	for _, b := range ranked {
		clients = append(clients, NewClient(b, timeout))
	}
	return &Selector{clients: clients, breaker: breaker, now: time.Now}
}

// NewSelectorWith wires pre-built completers, used by tests and by the
// specialist path which shares the backend pool.
func NewSelectorWith(clients []Completer, breaker *Breaker) *Selector {
	return &Selector{clients: clients, breaker: breaker, now: time.Now}
}

// SetObserver attaches failover instrumentation. Must be called before the
// selector starts serving requests.
func (s *Selector) SetObserver(obs Observer) { s.obs = obs }

// Extract runs the full extraction flow for one message: ranked failover
// across backends, demotion on rate limits and progressive prompt retries
// on malformed output. Token usage accumulates across every attempt,
// including failed ones that returned a payload.
func (s *Selector) Extract(ctx context.Context, history []string, message string) (*models.ExtractionResult, models.Usage, error) {
	var total models.Usage

	for attempt := 0; attempt < maxAttempts; attempt++ {
		system := SystemPrompt(attempt, s.now())
		user := UserPrompt(history, message)

		content, usage, err := s.complete(ctx, system, user, true)
		total.Add(usage)
		if err != nil {
			return nil, total, err
		}

		result, perr := ParseExtraction(content)
		if perr == nil {
			return result, total, nil
		}
		if s.obs != nil {
			s.obs.ExtractionRetried()
		}
		slog.Warn("extração malformada, tentando novamente",
			"tentativa", attempt+1, "erro", perr)
	}

	return nil, total, ErrMalformed
}

// Ask sends a free-form question through the same backend pool and returns
// the plain text answer. Used for technical questions that need no
// structured extraction.
func (s *Selector) Ask(ctx context.Context, system, user string) (string, models.Usage, error) {
	return s.complete(ctx, system, user, false)
}

// complete tries each available backend in rank order within the same
// request. Rate limits demote and move on; other failures just move on.
func (s *Selector) complete(ctx context.Context, system, user string, jsonMode bool) (string, models.Usage, error) {
	var total models.Usage
	var lastErr error

	for _, client := range s.clients {
		if !s.breaker.Available(client.Name()) {
			continue
		}

		content, usage, err := client.Complete(ctx, system, user, jsonMode)
		total.Add(usage)
		if err == nil {
			return content, total, nil
		}

		lastErr = err
		if IsRateLimited(err) {
			s.breaker.Demote(client.Name())
			if s.obs != nil {
				s.obs.BackendDemoted(client.Name())
			}
			slog.Warn("backend rebaixado por limite de requisições", "backend", client.Name())
			continue
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", total, err
		}
		slog.Warn("falha no backend, tentando o próximo", "backend", client.Name(), "erro", err)
	}

	if lastErr != nil {
		return "", total, errors.Join(ErrNoProviderAvailable, lastErr)
	}
	return "", total, ErrNoProviderAvailable
}
