package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// DispatcherConfig tunes the background sync workers.
type DispatcherConfig struct {
	// Workers is the number of concurrent job processors.
	Workers int
	// PollInterval is how often an idle worker checks for due jobs.
	PollInterval time.Duration
}

// DefaultDispatcherConfig returns the production dispatcher settings.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		Workers:      2,
		PollInterval: 5 * time.Second,
	}
}

// Dispatcher runs the background workers that drain the sync job queue.
// Workers poll on an interval; SKIP LOCKED row claims keep concurrent
// workers from processing the same job.
type Dispatcher struct {
	useCase SyncUseCase
	logger  *slog.Logger
	config  DispatcherConfig
	stop    chan struct{}
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(useCase SyncUseCase, logger *slog.Logger, config DispatcherConfig) *Dispatcher {
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Dispatcher{
		useCase: useCase,
		logger:  logger,
		config:  config,
		stop:    make(chan struct{}),
	}
}

// Start runs the workers until the context is canceled or Stop is called.
// It blocks until every worker has drained its current batch and exited.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.logger.Info("starting sync dispatcher",
		slog.Int("workers", d.config.Workers),
		slog.String("poll_interval", d.config.PollInterval.String()),
	)

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < d.config.Workers; i++ {
		worker := i
		g.Go(func() error {
			return d.run(ctx, worker)
		})
	}

	err := g.Wait()
	d.logger.Info("sync dispatcher stopped")
	return err
}

// Stop signals every worker to exit after its current batch. Safe to call
// once.
func (d *Dispatcher) Stop() {
	close(d.stop)
}

func (d *Dispatcher) run(ctx context.Context, worker int) error {
	ticker := time.NewTicker(d.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.stop:
			return nil
		case <-ticker.C:
			processed, err := d.useCase.ProcessJobs(ctx)
			if err != nil {
				d.logger.Error("failed to process sync jobs",
					slog.Int("worker", worker),
					slog.Any("error", err),
				)
				continue
			}
			if processed > 0 {
				d.logger.Info("processed sync jobs",
					slog.Int("worker", worker),
					slog.Int("count", processed),
				)
			}
		}
	}
}
