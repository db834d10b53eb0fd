// Package records implements the generic record tables of the local store.
// Each table keeps the entity as a JSON document in the data column; declared
// secondary indexes are SQLite expression indexes over json_extract.
package records

import (
	"fmt"
	"slices"

	"github.com/dmitrijs2005/suitewaste/internal/common"
)

// Schema names a record table and the JSON fields it indexes.
type Schema struct {
	Table   string
	Indexes []string
}

var (
	TasksSchema           = Schema{Table: "tasks", Indexes: []string{"status", "assignedTo", "dueDate"}}
	PaymentsSchema        = Schema{Table: "payments", Indexes: []string{"status", "date"}}
	ComplianceLogsSchema  = Schema{Table: "compliance_logs", Indexes: []string{"compliant", "timestamp"}}
	TrainingModulesSchema = Schema{Table: "training_modules", Indexes: []string{"completed"}}
	AIMessagesSchema      = Schema{Table: "ai_messages", Indexes: []string{"timestamp"}}
)

// expr returns the indexed expression for field, matching the migration.
func (s Schema) expr(field string) (string, error) {
	if field == "id" {
		return "id", nil
	}
	if !slices.Contains(s.Indexes, field) {
		return "", fmt.Errorf("%w: %s has no index %q", common.ErrorValidation, s.Table, field)
	}
	return fmt.Sprintf("json_extract(data, '$.%s')", field), nil
}
