// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	sessionsstore "github.com/dalemusser/stockconsole/internal/app/store/sessions"
	"github.com/dalemusser/stockconsole/internal/app/system/auth"
	"github.com/dalemusser/stockconsole/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB prepares the session backend. MongoDB is dialed only when
// session_backend is "mongo"; otherwise sessions are kept in memory.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	if appCfg.SessionBackend != sessionBackendMongo {
		mem, err := auth.NewMemoryBackend(appCfg.SessionIdleTTL)
		if err != nil {
			return DBDeps{}, fmt.Errorf("memory session backend: %w", err)
		}
		logger.Info("console sessions kept in memory", zap.Duration("idle_ttl", appCfg.SessionIdleTTL))
		return DBDeps{Sessions: mem}, nil
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(appCfg.MongoURI))
	if err != nil {
		return DBDeps{}, fmt.Errorf("connect MongoDB: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("ping MongoDB: %w", err)
	}

	db := client.Database(appCfg.MongoDatabase)
	store := sessionsstore.New(db, appCfg.SessionIdleTTL)
	logger.Info("console sessions kept in MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Duration("idle_ttl", appCfg.SessionIdleTTL))

	return DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
		Sessions:      store,
		MongoSessions: store,
	}, nil
}

// EnsureSchema creates the TTL index of the Mongo session store.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoSessions == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()
	if err := deps.MongoSessions.EnsureIndexes(ctx); err != nil {
		logger.Error("ensure session indexes failed", zap.Error(err))
		return err
	}
	return nil
}
