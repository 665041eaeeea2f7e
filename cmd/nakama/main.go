package main

import (
	"context"
	"database/sql"

	"taash/internal/ports/nakama"

	"github.com/heroiclabs/nakama-common/runtime"
)

// main is never executed: Nakama loads this package as a plugin and calls
// InitModule directly. It exists only so the package links in the default
// build mode.
func main() {}

// InitModule proxies Nakama initialization to the nakama adapter package.
func InitModule(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, initializer runtime.Initializer) error {
	return nakama.InitModule(ctx, logger, db, nk, initializer)
}
