// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/stockconsole/internal/app/resources"
	"github.com/dalemusser/stockconsole/internal/app/system/timeouts"
	"github.com/dalemusser/stockconsole/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time initialization after the session backend is ready
// and before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n), zap.Any("timeouts", timeouts.Current()))
	}
	resources.LoadSharedTemplates()

	if deps.MongoSessions != nil {
		sweeper := workers.NewSessionSweeper(deps.MongoSessions, logger.Named("sessions"), appCfg.SweepInterval)
		sweeper.Start()
		onShutdown(sweeper.Stop)
	}
	return nil
}
