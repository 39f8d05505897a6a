// Package storage is the optional persistence layer: a journal of message
// outcomes (sent, dead-lettered) kept in SQLite. It is fed asynchronously
// from sender events, so journal writes never sit on the dispatch path.
package storage
