// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"github.com/edusuite/tutordesk/internal/app/system/cache"
	"github.com/edusuite/tutordesk/internal/app/system/cachekeys"
	"github.com/edusuite/tutordesk/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// appCache and cacheSweeper are created in Startup and shared with
// BuildHandler and Shutdown. WAFFLE calls the hooks sequentially, so no
// synchronization is needed around the assignment.
var (
	appCache     *cache.Cache
	cacheSweeper *cache.Sweeper
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. TutorDesk
// uses it to apply timeout overrides from the environment, build the shared
// read cache, and start the background sweeper that evicts expired entries.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("applied timeout overrides from environment", zap.Int("count", n))
	}

	appCache = cache.New(cachekeys.DefaultPolicies())
	cacheSweeper = cache.NewSweeper(appCache, logger, appCfg.CacheSweepInterval)
	cacheSweeper.Start()

	return nil
}
