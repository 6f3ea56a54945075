// Package database provides SQLite connectivity for Hearth.
//
// It opens the household database with WAL mode and a busy timeout, keeps a
// single pooled connection, and applies versioned migrations from any fs.FS
// (normally the embedded migrations package).
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are additive: new columns are nullable or carry a default.
package database
