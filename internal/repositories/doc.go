// Package repositories implements SQLite persistence for resolved stream URLs.
//
// [StreamRepository] backs the resolver's persistent cache so direct media URLs survive restarts
// until they expire. Timestamps are stored in UTC.
package repositories
