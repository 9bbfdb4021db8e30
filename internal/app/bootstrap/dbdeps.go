// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	sessionsstore "github.com/dalemusser/stockconsole/internal/app/store/sessions"
	"github.com/dalemusser/stockconsole/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds the console's back-end dependencies. The Mongo fields are
// nil when sessions are kept in memory.
type DBDeps struct {
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	// Sessions is where console session state lives: a MemoryBackend or
	// the Mongo sessions store.
	Sessions      auth.Backend
	MongoSessions *sessionsstore.Store
}
