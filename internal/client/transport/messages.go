package transport

import (
	"context"
	"time"
)

type MessageType string

const (
	MsgManualSync   MessageType = "MANUAL_SYNC"
	MsgSyncProgress MessageType = "SYNC_PROGRESS"
	MsgSyncComplete MessageType = "SYNC_COMPLETE"
)

// Message is exchanged between a client and the worker.
type Message struct {
	Type     MessageType `json:"type"`
	Progress int         `json:"progress,omitempty"`
	Result   *SyncResult `json:"result,omitempty"`
}

type SyncResult struct {
	Success   bool   `json:"success"`
	Timestamp string `json:"timestamp"`
}

const mailboxSize = 16

// Connect registers clientID and returns its mailbox. Connecting twice
// returns the same mailbox.
func (w *Worker) Connect(clientID string) <-chan Message {
	return w.mailbox(clientID)
}

func (w *Worker) mailbox(clientID string) chan Message {
	w.boxMu.Lock()
	defer w.boxMu.Unlock()
	box, ok := w.mailboxes[clientID]
	if !ok {
		box = make(chan Message, mailboxSize)
		w.mailboxes[clientID] = box
	}
	return box
}

// Post delivers msg from clientID to the worker. MANUAL_SYNC starts a
// simulated progress report sent back to the same client; it does not touch
// any queued data. Other message types are ignored.
func (w *Worker) Post(ctx context.Context, clientID string, msg Message) {
	if msg.Type != MsgManualSync {
		w.log.Debug(ctx, "ignored message", "type", msg.Type, "client", clientID)
		return
	}

	box := w.mailbox(clientID)
	at := w.cfg.ProgressAt

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		start := time.Now()

		steps := []struct {
			at  time.Duration
			msg Message
		}{
			{at[0], Message{Type: MsgSyncProgress, Progress: 25}},
			{at[1], Message{Type: MsgSyncProgress, Progress: 75}},
			{at[2], Message{Type: MsgSyncComplete}},
		}
		for _, s := range steps {
			if ctx.Err() != nil {
				return
			}
			timer := time.NewTimer(time.Until(start.Add(s.at)))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			m := s.msg
			if m.Type == MsgSyncComplete {
				m.Result = &SyncResult{Success: true, Timestamp: time.Now().UTC().Format(time.RFC3339Nano)}
			}
			select {
			case box <- m:
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Wait blocks until every in-flight progress report has finished.
func (w *Worker) Wait() {
	w.wg.Wait()
}
