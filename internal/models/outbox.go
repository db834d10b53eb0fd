package models

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/suitewaste/internal/common"
)

// Sync table names as they travel in outbox items.
const (
	TableTasks           = "tasks"
	TablePayments        = "payments"
	TableComplianceLogs  = "complianceLogs"
	TableTrainingModules = "trainingModules"
	TableAIMessages      = "aiMessages"
)

type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// SyncTables maps every sync table to its REST entity path.
var SyncTables = map[string]string{
	TableTasks:           "tasks",
	TablePayments:        "payments",
	TableComplianceLogs:  "compliancelogs",
	TableTrainingModules: "trainingmodules",
	TableAIMessages:      "aimessages",
}

// EntityPath returns the REST path segment for a sync table.
func EntityPath(table string) (string, error) {
	p, ok := SyncTables[table]
	if !ok {
		return "", fmt.Errorf("%w: %s", common.ErrorUnknownTable, table)
	}
	return p, nil
}

func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	}
	return false
}

// OutboxItem is a local mutation not yet acknowledged by the server.
// Timestamp is epoch millis at enqueue time.
type OutboxItem struct {
	ID        string          `json:"id"`
	Table     string          `json:"table"`
	Action    Action          `json:"action"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
}

// PayloadID extracts payload.id, or "" when the payload has none.
func (o OutboxItem) PayloadID() string {
	var p struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(o.Payload, &p); err != nil {
		return ""
	}
	return p.ID
}

type SyncRequest struct {
	Items []OutboxItem `json:"items"`
}

type SyncResult struct {
	Synced int `json:"synced"`
	Total  int `json:"total"`
}
