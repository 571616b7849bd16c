// Package sqlite provides SQLite-backed access persistence.
//
// It is the default on-disk store used by the gate service and the
// provisioning CLI.
package sqlite
