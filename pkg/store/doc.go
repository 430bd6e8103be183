// Package store persists conversation sessions, saved projects and project
// snapshots. Writes are last-writer-wins puts; nothing here is read back on
// the request path.
package store
