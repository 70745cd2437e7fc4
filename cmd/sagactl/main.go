// Command sagactl is an operational tool for the saga, timeout, and
// subscription stores: verify connectivity, ensure the timeout store's
// index, and optionally run a standalone timeout-leasing loop for local
// testing.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/relaybus/mongostore"
)

type args struct {
	mongostore.Config
	mongostore.TimeoutConfig
	TimeoutCollection string `arg:"--timeout-collection" default:"timeouts" help:"collection backing the timeout store"`
	Lease             bool   `arg:"--lease" help:"run a standalone due-timeout leasing loop instead of exiting after the readiness check"`
}

func (args) Description() string {
	return "Operational CLI for the saga/timeout/subscription MongoDB stores."
}

func main() {
	var a args
	arg.MustParse(&a)

	logger := zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &a, logger); err != nil {
		logger.Error().Err(err).Msg("sagactl exited with an error")
		os.Exit(1)
	}
}

func run(ctx context.Context, a *args, logger zerolog.Logger) error {
	client, err := mongostore.New(&a.Config, mongostore.WithLogger(mongostore.NewZerologLogger(logger)))
	if err != nil {
		return fmt.Errorf("configure client: %w", err)
	}
	if err := client.Open(ctx); err != nil {
		return fmt.Errorf("open client: %w", err)
	}
	defer client.Close(context.Background())

	if err := client.Ready(ctx); err != nil {
		return fmt.Errorf("readiness check: %w", err)
	}
	logger.Info().Str("database", a.Database).Msg("connected")

	timeouts, err := mongostore.NewTimeoutStore(client, a.TimeoutCollection, &a.TimeoutConfig)
	if err != nil {
		return fmt.Errorf("configure timeout store: %w", err)
	}
	if err := timeouts.EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("ensure timeout indexes: %w", err)
	}

	if !a.Lease {
		return nil
	}
	return leaseLoop(ctx, timeouts, a.PollTickInterval, logger)
}

func leaseLoop(ctx context.Context, timeouts *mongostore.TimeoutStore, tick time.Duration, logger zerolog.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				due, err := timeouts.GetDueTimeouts(gctx)
				if err != nil {
					return fmt.Errorf("poll due timeouts: %w", err)
				}
				for _, t := range due {
					logger.Info().Str("saga_id", t.SagaID.String()).Time("time", t.Time).Msg("due timeout leased")
					if err := t.MarkAsProcessed(gctx); err != nil {
						logger.Warn().Err(err).Msg("failed to mark timeout processed")
					}
				}
			}
		}
	})
	if err := g.Wait(); err != nil && gctx.Err() == nil {
		return err
	}
	return nil
}
