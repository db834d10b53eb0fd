package entities

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/suitewaste/internal/models"
	"github.com/google/uuid"
)

const day = 24 * time.Hour

// SeedUsers are the remote user mirrors. They carry no credentials.
func SeedUsers() []models.RemoteUser {
	return []models.RemoteUser{
		{ID: "u1", Name: "User A", Email: "usera@suitewaste.os", Role: "Field Operator", Permissions: []string{"operations"}},
		{ID: "u2", Name: "User B", Email: "userb@suitewaste.os", Role: "Operations Manager", Permissions: []string{"operations", "payments"}},
	}
}

func SeedChats(now time.Time) []models.ChatBoard {
	return []models.ChatBoard{{
		ID:    "c1",
		Title: "General",
		Messages: []models.ChatMessage{
			{ID: "m1", ChatID: "c1", UserID: "u1", Text: "Hello", TS: now.UnixMilli()},
		},
	}}
}

func clientLetter(i int) string {
	return string(rune('A' + i%10))
}

func SeedTasks(now time.Time) []models.Task {
	out := make([]models.Task, 0, 20)
	for i := 0; i < 20; i++ {
		status := models.TaskPending
		if i%3 == 0 {
			status = models.TaskCompleted
		}
		out = append(out, models.Task{
			ID:         uuid.NewString(),
			Title:      fmt.Sprintf("Task #%d: Collect from Client %s", i+1, clientLetter(i)),
			Status:     status,
			AssignedTo: "manager-id-placeholder",
			DueDate:    now.Add(time.Duration(i-10) * day).UnixMilli(),
		})
	}
	return out
}

func SeedPayments(now time.Time) []models.Payment {
	out := make([]models.Payment, 0, 15)
	for i := 0; i < 15; i++ {
		status := models.PaymentPaid
		if i%4 == 0 {
			status = models.PaymentDue
		}
		out = append(out, models.Payment{
			ID:     uuid.NewString(),
			Amount: float64(1000 + (i*787)%5000),
			Status: status,
			Client: "Client Corp " + clientLetter(i),
			Date:   now.Add(-time.Duration(i*7) * day).UnixMilli(),
		})
	}
	return out
}

func SeedComplianceLogs(now time.Time) []models.ComplianceLog {
	out := make([]models.ComplianceLog, 0, 25)
	for i := 0; i < 25; i++ {
		out = append(out, models.ComplianceLog{
			ID:          uuid.NewString(),
			Description: fmt.Sprintf("Log entry for site visit %d. Checked safety protocols.", i+1),
			Compliant:   i%5 != 4,
			Timestamp:   now.Add(-time.Duration(i*3) * day).UnixMilli(),
		})
	}
	return out
}

func SeedTrainingModules() []models.TrainingModule {
	titles := []string{"Safety Protocols 101", "Waste Handling Procedures", "Emergency Response", "Client Communication"}
	out := make([]models.TrainingModule, 0, len(titles))
	for i, t := range titles {
		out = append(out, models.TrainingModule{ID: uuid.NewString(), Title: t, Content: "...", Completed: i < 2})
	}
	return out
}

func SeedAIMessages(now time.Time) []models.AIMessage {
	return []models.AIMessage{{
		ID:        uuid.NewString(),
		Role:      models.RoleAI,
		Content:   "Welcome to AI Assist. How can I help you optimize operations today?",
		Timestamp: now.Add(-10 * time.Second).UnixMilli(),
	}}
}
