// Package store persists household aggregates.
//
// Gateway is the boundary the automation service talks to. SQLiteGateway
// is the production implementation over the migrated household schema;
// MemoryGateway backs tests and ephemeral runs. All I/O failures are
// wrapped in ErrPersistence so callers can retry on the next pass.
package store
