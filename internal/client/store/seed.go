package store

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/suitewaste/internal/client/models"
	"github.com/dmitrijs2005/suitewaste/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/suitewaste/internal/client/repositories/records"
	"github.com/dmitrijs2005/suitewaste/internal/dbx"
	smodels "github.com/dmitrijs2005/suitewaste/internal/models"
	"github.com/google/uuid"
)

// DemoPassword is shared by every demo account.
const DemoPassword = "Auditor123"

const day = int64(86400000)

type demoUser struct {
	Email       string
	Role        string
	Permissions []string
}

var DemoUsers = []demoUser{
	{Email: "field@suitewaste.os", Role: models.RoleFieldOperator, Permissions: []string{"operations", "training", "ewaste"}},
	{Email: "manager@suitewaste.os", Role: models.RoleOperationsManager, Permissions: []string{"operations", "payments", "compliance", "training", "ai"}},
	{Email: "auditor@suitewaste.os", Role: models.RoleComplianceOfficer, Permissions: []string{"compliance", "training"}},
	{Email: "executive@suitewaste.os", Role: models.RoleExecutive, Permissions: []string{"payments", "compliance", "ai"}},
	{Email: "trainer@suitewaste.os", Role: models.RoleTrainingOfficer, Permissions: []string{"training", "ai"}},
}

// AnchorRole selects the user that dependent seed data is assigned to.
const AnchorRole = models.RoleOperationsManager

// SeedIfEmpty inserts the demo users that are missing and, once the anchor
// user exists, fills every empty record table with demo data. It is safe to
// call repeatedly and concurrently.
func (s *Store) SeedIfEmpty(ctx context.Context) error {
	s.seedMu.Lock()
	defer s.seedMu.Unlock()

	hash := s.hasher.Hash(DemoPassword)
	for _, du := range DemoUsers {
		if err := s.seedUser(ctx, du, hash); err != nil {
			return err
		}
	}

	anchor, err := s.users.FindByRole(ctx, AnchorRole)
	if err != nil {
		return err
	}
	if anchor == nil {
		s.log.Warn(ctx, "no anchor user, dependent seeding skipped", "role", AnchorRole)
		return nil
	}

	now := nowMillis()
	if err := seedGroup(ctx, s, s.tasks, seedTasks(anchor.ID, now)); err != nil {
		return err
	}
	if err := seedGroup(ctx, s, s.payments, seedPayments(now)); err != nil {
		return err
	}
	if err := seedGroup(ctx, s, s.complianceLogs, seedComplianceLogs(now)); err != nil {
		return err
	}
	if err := seedGroup(ctx, s, s.trainingModules, seedTrainingModules()); err != nil {
		return err
	}
	if err := seedGroup(ctx, s, s.aiMessages, seedAIMessages(now)); err != nil {
		return err
	}
	return s.metadata.SetTime(ctx, metadata.KeySeededAt, time.UnixMilli(now))
}

func (s *Store) seedUser(ctx context.Context, du demoUser, hash string) error {
	existing, err := s.users.GetByEmail(ctx, du.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	err = s.users.Add(ctx, &models.User{
		ID:           uuid.NewString(),
		Email:        du.Email,
		PasswordHash: hash,
		Role:         du.Role,
		Permissions:  du.Permissions,
	})
	if dbx.IsUniqueViolation(err) {
		s.log.Warn(ctx, "demo user already present", "email", du.Email)
		return nil
	}
	return err
}

// seedGroup fills tbl inside one transaction when it is empty.
func seedGroup[T any](ctx context.Context, s *Store, tbl *records.Table[T], items []T) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		t := tbl.WithTx(tx)
		n, err := t.Count(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			return nil
		}
		if err := t.BulkAdd(ctx, items); err != nil {
			return fmt.Errorf("seed %s: %w", t.Name(), err)
		}
		s.log.Info(ctx, "seeded", "table", t.Name(), "count", len(items))
		return nil
	})
}

func seedTasks(assignee string, now int64) []smodels.Task {
	items := make([]smodels.Task, 20)
	for i := range items {
		status := smodels.TaskPending
		if i%3 == 0 {
			status = smodels.TaskCompleted
		}
		items[i] = smodels.Task{
			ID:         uuid.NewString(),
			Title:      fmt.Sprintf("Task #%d: Collect from Client %c", i+1, 'A'+rune(i%10)),
			Status:     status,
			AssignedTo: assignee,
			DueDate:    now + int64(i-10)*day,
		}
	}
	return items
}

func seedPayments(now int64) []smodels.Payment {
	items := make([]smodels.Payment, 15)
	for i := range items {
		status := smodels.PaymentPaid
		if i%4 == 0 {
			status = smodels.PaymentDue
		}
		items[i] = smodels.Payment{
			ID:     uuid.NewString(),
			Amount: float64(1000 + (i*733)%5000),
			Status: status,
			Client: fmt.Sprintf("Client Corp %c", 'A'+rune(i%10)),
			Date:   now - int64(i)*7*day,
		}
	}
	return items
}

func seedComplianceLogs(now int64) []smodels.ComplianceLog {
	items := make([]smodels.ComplianceLog, 25)
	for i := range items {
		items[i] = smodels.ComplianceLog{
			ID:          uuid.NewString(),
			Description: fmt.Sprintf("Log entry for site visit %d. Checked safety protocols.", i+1),
			Compliant:   i%5 != 4,
			Timestamp:   now - int64(i)*3*day,
		}
	}
	return items
}

func seedTrainingModules() []smodels.TrainingModule {
	titles := []string{"Safety Protocols 101", "Waste Handling Procedures", "Emergency Response", "Client Communication"}
	items := make([]smodels.TrainingModule, len(titles))
	for i, title := range titles {
		items[i] = smodels.TrainingModule{ID: uuid.NewString(), Title: title, Content: "...", Completed: i < 2}
	}
	return items
}

func seedAIMessages(now int64) []smodels.AIMessage {
	return []smodels.AIMessage{{
		ID:        uuid.NewString(),
		Role:      smodels.RoleAI,
		Content:   "Welcome to AI Assist. How can I help you optimize operations today?",
		Timestamp: now - 10000,
	}}
}
