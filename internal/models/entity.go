// Package models holds the wire types shared by the client and the server:
// the business entities, the outbox item and the response envelope.
package models

// Task is an operations work item. DueDate is epoch millis.
type Task struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	AssignedTo string `json:"assignedTo"`
	DueDate    int64  `json:"dueDate"`
}

// Payment is a client invoice. Date is epoch millis.
type Payment struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
	Status string  `json:"status"`
	Client string  `json:"client"`
	Date   int64   `json:"date"`
}

type ComplianceLog struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Compliant   bool   `json:"compliant"`
	Timestamp   int64  `json:"timestamp"`
}

type TrainingModule struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	Completed bool   `json:"completed"`
}

// AIMessage is one turn of the assistant chat. Role is "user" or "ai".
type AIMessage struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// RemoteUser is the server-side mirror of a user, without credentials.
type RemoteUser struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email,omitempty"`
	Role        string   `json:"role,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

type ChatMessage struct {
	ID     string `json:"id"`
	ChatID string `json:"chatId"`
	UserID string `json:"userId"`
	Text   string `json:"text"`
	TS     int64  `json:"ts"`
}

// ChatBoard is a chat with its messages stored inline.
type ChatBoard struct {
	ID       string        `json:"id"`
	Title    string        `json:"title"`
	Messages []ChatMessage `json:"messages"`
}

const (
	TaskPending   = "pending"
	TaskCompleted = "completed"

	PaymentPaid = "paid"
	PaymentDue  = "due"

	RoleUser = "user"
	RoleAI   = "ai"
)
