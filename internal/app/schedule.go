package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	appLog "epdgui/internal/log"
)

// cronLogger routes cron's own logging to the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...any) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...any) {
	appLog.Error("cron: "+msg, err, kv...)
}

// Schedule runs r.Refresh on the cron spec (five fields or a descriptor such
// as "@hourly") in loc. A run is skipped while the previous one is still in
// progress. The caller stops the returned scheduler.
func Schedule(ctx context.Context, spec string, loc *time.Location, r *Refresher) (*cron.Cron, error) {
	if loc == nil {
		loc = time.Local
	}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)
	_, err := c.AddFunc(spec, func() {
		if ctx.Err() != nil {
			return
		}
		// Refresh logs its own failures.
		_ = r.Refresh(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("app: refresh schedule %q: %w", spec, err)
	}
	c.Start()
	appLog.Info("refresh scheduled", "spec", spec, "timezone", loc.String())
	return c, nil
}
