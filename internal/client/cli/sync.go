package cli

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/dmitrijs2005/suitewaste/internal/client/transport"
	"github.com/dmitrijs2005/suitewaste/internal/models"
)

// progressWait bounds how long Sync waits for the progress report.
var progressWait = 5 * time.Second

// Sync drains the outbox now and shows the transport's progress report.
func (a *App) Sync(ctx context.Context) error {
	a.installWorker(ctx)

	box := a.worker.Connect(cliClientID)
	a.worker.Post(ctx, cliClientID, transport.Message{Type: transport.MsgManualSync})

	res, err := a.engine.Drain(ctx)
	a.showProgress(ctx, box)
	if err != nil {
		return err
	}
	if res.Total == 0 {
		fmt.Fprintln(a.out, "Nothing to sync.")
		return nil
	}
	fmt.Fprintf(a.out, "Synced %d of %d change(s).\n", res.Synced, res.Total)
	return nil
}

func (a *App) showProgress(ctx context.Context, box <-chan transport.Message) {
	timeout := time.NewTimer(progressWait)
	defer timeout.Stop()
	for {
		select {
		case m := <-box:
			switch m.Type {
			case transport.MsgSyncProgress:
				fmt.Fprintf(a.out, "sync %d%%\n", m.Progress)
			case transport.MsgSyncComplete:
				fmt.Fprintln(a.out, "sync 100%")
				return
			}
		case <-timeout.C:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Pull drains pending changes, then copies server records into the local
// store. With no argument every synced table is pulled.
func (a *App) Pull(ctx context.Context, args []string) error {
	tables := args
	if len(tables) == 0 {
		for name := range models.SyncTables {
			tables = append(tables, name)
		}
		slices.Sort(tables)
	}

	if _, err := a.engine.Drain(ctx); err != nil {
		return fmt.Errorf("pull skipped, pending changes could not be sent: %w", err)
	}

	for _, table := range tables {
		n, err := a.engine.Pull(ctx, table)
		if err != nil {
			return fmt.Errorf("pull %s: %w", table, err)
		}
		fmt.Fprintf(a.out, "%s: %d record(s)\n", table, n)
	}
	return nil
}

// Status prints connectivity, pending changes and the last sync time.
func (a *App) Status(ctx context.Context) error {
	pending, err := a.engine.Pending(ctx)
	if err != nil {
		return err
	}
	last, err := a.engine.LastSyncAt(ctx)
	if err != nil {
		return err
	}

	mode := "offline"
	if a.engine.Online() {
		mode = "online"
	}
	lastSync := "never"
	if !last.IsZero() {
		lastSync = last.Format(time.RFC3339)
	}
	user := "-"
	if a.user != nil {
		user = a.user.Email
	}

	fmt.Fprintf(a.out, "connection: %s\npending: %d\nlast sync: %s\ntransport: %s\nuser: %s\n",
		mode, pending, lastSync, a.worker.State(), user)
	return nil
}
