package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	connectAttempts = 5
	connectBackoff  = time.Second
)

// pingWithRetry calls ping until it succeeds, the attempts run out or ctx
// ends. The wait doubles after every failure.
func pingWithRetry(ctx context.Context, name string, log zerolog.Logger, ping func(context.Context) error) error {
	wait := connectBackoff
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if err = ping(ctx); err == nil {
			return nil
		}
		if attempt == connectAttempts {
			break
		}
		log.Warn().Err(err).
			Str("target", name).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("Connection not ready")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}
