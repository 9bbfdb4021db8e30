// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"
	"sync"

	"github.com/dalemusser/stockconsole/internal/app/system/auth"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

var (
	closersMu sync.Mutex
	closers   []func()
)

// onShutdown registers a release function for an in-process cache built
// by BuildHandler.
func onShutdown(fn func()) {
	closersMu.Lock()
	defer closersMu.Unlock()
	closers = append(closers, fn)
}

// Shutdown releases caches and disconnects MongoDB.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	closersMu.Lock()
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i]()
	}
	closers = nil
	closersMu.Unlock()

	if mem, ok := deps.Sessions.(*auth.MemoryBackend); ok {
		mem.Close()
	}

	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
