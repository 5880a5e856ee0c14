package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"manejobot/internal/services"
)

// Scheduler runs the periodic maintenance jobs: flushing token usage,
// pruning idle thread locks and refreshing the active-conversations gauge.
type Scheduler struct {
	sched gocron.Scheduler
}

func New(quota *services.QuotaService, conversations *services.ConversationService, metrics *services.Metrics) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := quota.Flush(ctx); err != nil {
				slog.Error("falha ao gravar uso de tokens", "erro", err)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(func() {
			pruned := conversations.PruneIdleLocks()
			if pruned > 0 {
				slog.Debug("travas de conversa ociosas removidas", "total", pruned)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	if metrics != nil {
		_, err = sched.NewJob(
			gocron.DurationJob(time.Minute),
			gocron.NewTask(func() {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				count, err := conversations.CountActiveSince(ctx, time.Now().Add(-time.Hour))
				if err != nil {
					slog.Warn("falha ao contar conversas ativas", "erro", err)
					return
				}
				metrics.ActiveConversations.Set(float64(count))
			}),
		)
		if err != nil {
			return nil, err
		}
	}

	return &Scheduler{sched: sched}, nil
}

func (s *Scheduler) Start() { s.sched.Start() }

func (s *Scheduler) Stop() error { return s.sched.Shutdown() }
