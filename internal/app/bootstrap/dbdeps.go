// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps bundles database handles passed to the lifecycle hooks.
//
// WAFFLE constructs this once in ConnectDB and threads it through
// EnsureSchema, Startup, BuildHandler, and Shutdown.
type DBDeps struct {
	TutorDeskMongoClient   *mongo.Client
	TutorDeskMongoDatabase *mongo.Database
}
