// Package models defines the server-side storage types.
package models

import "encoding/json"

// Record is one stored entity together with its position in the listing
// index of its kind.
type Record struct {
	Index string
	ID    string
	// Seq orders the index; it grows with every first insertion.
	Seq  int64
	Data json.RawMessage
}
