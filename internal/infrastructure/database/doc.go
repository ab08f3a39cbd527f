// Package database provides SQLite persistence for Portero Core.
//
// The database holds the slow-moving relational state: user accounts and
// the audit/observation log. The notification collection itself lives in
// a JSON document store (see internal/notification) to stay externally
// readable.
//
// # Features
//
//   - WAL mode for concurrent reads during writes
//   - Busy timeout to avoid "database is locked" errors
//   - Embedded SQL migrations applied at startup
//   - Health checks for monitoring
//
// # Usage
//
//	db, err := database.Open(ctx, database.Config{
//	    Path:        cfg.Database.Path,
//	    WALMode:     true,
//	    BusyTimeout: 5,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
