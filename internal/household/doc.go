// Package household defines the per-user aggregate that the automation
// service locks, mutates, snapshots, and persists as a whole.
package household
