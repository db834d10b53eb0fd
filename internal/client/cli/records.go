package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dmitrijs2005/suitewaste/internal/client/services"
	"github.com/dmitrijs2005/suitewaste/internal/models"
)

// Permissions that open the CLI modules.
const (
	permOperations = "operations"
	permPayments   = "payments"
	permCompliance = "compliance"
	permTraining   = "training"
)

const defaultTaskDue = 7 * 24 * time.Hour

func (a *App) printTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		fmt.Fprintln(a.out, "(no records)")
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...)
	fmt.Fprintln(a.out, t.String())
}

// Tasks lists tasks, optionally filtered by status.
func (a *App) Tasks(ctx context.Context, args []string) error {
	if err := a.require(permOperations); err != nil {
		return err
	}
	var (
		tasks []models.Task
		err   error
	)
	if len(args) > 0 {
		tasks, err = a.local.Tasks().Where(ctx, "status", args[0])
	} else {
		tasks, err = a.local.Tasks().OrderBy(ctx, "dueDate", false)
	}
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, []string{t.ID, t.Title, t.Status, formatMillis(t.DueDate)})
	}
	a.printTable([]string{"ID", "TITLE", "STATUS", "DUE"}, rows)
	return nil
}

// AddTask creates a pending task assigned to the signed-in user.
func (a *App) AddTask(ctx context.Context, args []string) error {
	if err := a.require(permOperations); err != nil {
		return err
	}
	title := strings.TrimSpace(strings.Join(args, " "))
	if title == "" {
		var err error
		if title, err = GetSimpleText(a.reader, "Task title", a.out); err != nil {
			return err
		}
	}
	if title == "" {
		return fmt.Errorf("title is required")
	}

	task := models.Task{
		Title:      title,
		Status:     models.TaskPending,
		AssignedTo: a.user.ID,
		DueDate:    time.Now().Add(defaultTaskDue).UnixMilli(),
	}
	record, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return a.write(ctx, models.TableTasks, models.ActionCreate, record)
}

// CompleteTask marks a task completed.
func (a *App) CompleteTask(ctx context.Context, args []string) error {
	if err := a.require(permOperations); err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: done <task id>")
	}
	record, err := json.Marshal(map[string]any{"id": args[0], "status": models.TaskCompleted})
	if err != nil {
		return err
	}
	return a.write(ctx, models.TableTasks, models.ActionUpdate, record)
}

func (a *App) DeleteTask(ctx context.Context, args []string) error {
	if err := a.require(permOperations); err != nil {
		return err
	}
	if len(args) == 0 {
		return fmt.Errorf("usage: rm <task id>")
	}
	record, err := json.Marshal(map[string]string{"id": args[0]})
	if err != nil {
		return err
	}
	return a.write(ctx, models.TableTasks, models.ActionDelete, record)
}

func (a *App) write(ctx context.Context, table string, action models.Action, record json.RawMessage) error {
	res, err := a.engine.Write(ctx, table, action, record)
	if err != nil {
		return err
	}

	var ref struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(res.Record, &ref)

	switch res.Status {
	case services.WriteSynced:
		fmt.Fprintf(a.out, "%s %s: saved and synced.\n", action, ref.ID)
	case services.WriteQueued:
		fmt.Fprintf(a.out, "%s %s: saved locally, queued for sync.\n", action, ref.ID)
	}
	return nil
}

func (a *App) Payments(ctx context.Context) error {
	if err := a.require(permPayments); err != nil {
		return err
	}
	payments, err := a.local.Payments().OrderBy(ctx, "date", true)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(payments))
	for _, p := range payments {
		rows = append(rows, []string{p.ID, p.Client, strconv.FormatFloat(p.Amount, 'f', 2, 64), p.Status, formatMillis(p.Date)})
	}
	a.printTable([]string{"ID", "CLIENT", "AMOUNT", "STATUS", "DATE"}, rows)
	return nil
}

func (a *App) ComplianceLogs(ctx context.Context) error {
	if err := a.require(permCompliance); err != nil {
		return err
	}
	logs, err := a.local.ComplianceLogs().OrderBy(ctx, "timestamp", true)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(logs))
	for _, l := range logs {
		ok := "no"
		if l.Compliant {
			ok = "yes"
		}
		rows = append(rows, []string{l.ID, l.Description, ok, formatMillis(l.Timestamp)})
	}
	a.printTable([]string{"ID", "DESCRIPTION", "COMPLIANT", "DATE"}, rows)
	return nil
}

func (a *App) Training(ctx context.Context) error {
	if err := a.require(permTraining); err != nil {
		return err
	}
	modules, err := a.local.TrainingModules().All(ctx)
	if err != nil {
		return err
	}
	rows := make([][]string, 0, len(modules))
	for _, m := range modules {
		done := "no"
		if m.Completed {
			done = "yes"
		}
		rows = append(rows, []string{m.ID, m.Title, done})
	}
	a.printTable([]string{"ID", "TITLE", "COMPLETED"}, rows)
	return nil
}
