// Package history persists provisioning run history in a local SQLite
// database: one row per run plus its ordered phase transitions. History is
// diagnostic data only; writes are best-effort and never fail a run.
package history
