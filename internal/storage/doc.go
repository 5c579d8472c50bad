// Package storage persists task settings snapshots.
//
// A store is a flat key-value map: one entry per task name, holding the JSON
// snapshot produced by task.EncodeSettings. The app reads every entry once at
// startup and overwrites one entry on each settings change.
package storage
