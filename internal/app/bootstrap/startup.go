// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/dochub/internal/app/accounts"
	"github.com/dalemusser/dochub/internal/app/specialids"
	"github.com/dalemusser/dochub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections
// and schema setup are complete, but before the HTTP handler is built.
//
// DocHub resolves the four special accounts (anonymous, previewer,
// everyone, support) here: every accessor fails fast until this has
// run, so initialization is an explicit startup step rather than
// something request handling triggers implicitly.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	initCtx, cancel := context.WithTimeout(ctx, timeouts.Long())
	defer cancel()

	manager := accounts.New(deps.MongoClient, deps.MongoDatabase, logger)
	if err := specialids.Initialize(initCtx, manager); err != nil {
		logger.Error("special account initialization failed", zap.Error(err))
		return err
	}
	logger.Info("special accounts initialized")
	return nil
}
