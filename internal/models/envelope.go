package models

import "encoding/json"

// Envelope is the uniform response body of every REST endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Page is one slice of a paginated listing. Next is nil on the last page.
type Page[T any] struct {
	Items []T     `json:"items"`
	Next  *string `json:"next"`
}

type DeleteResult struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}

type DeleteManyRequest struct {
	IDs []string `json:"ids"`
}

type DeleteManyResult struct {
	DeletedCount int      `json:"deletedCount"`
	IDs          []string `json:"ids"`
}
