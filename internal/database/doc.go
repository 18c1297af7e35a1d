// Package database provides the SQLite data access layer, used when
// DATABASE_PATH is set.
//
// # Architecture
//
//	database/
//	├── database.go      # Connection setup and migrations
//	├── users/           # Credential records, implements auth.Store
//	└── audit/           # Authentication audit trail
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase("./rolegate.db")
//
//	store := users.NewRepository(db.DB)
//	auditRepo := audit.NewRepository(db.DB)
//
// The connection pool is limited to one connection, so writes from
// request handlers, the audit recorder and the flash session store are
// serialized by database/sql rather than failing with SQLITE_BUSY.
package database
