package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dmitrijs2005/suitewaste/internal/client/client"
	"github.com/dmitrijs2005/suitewaste/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/suitewaste/internal/client/repositories/outbox"
	"github.com/dmitrijs2005/suitewaste/internal/client/store"
	"github.com/dmitrijs2005/suitewaste/internal/common"
	"github.com/dmitrijs2005/suitewaste/internal/logging"
	"github.com/dmitrijs2005/suitewaste/internal/models"
	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
)

var (
	ErrDrainInProgress = errors.New("drain already in progress")
	ErrDrainFailed     = errors.New("drain failed")
	ErrOffline         = errors.New("client is offline")
)

type WriteStatus string

const (
	WriteSynced WriteStatus = "synced"
	WriteQueued WriteStatus = "queued"
)

// WriteResult tells the caller what happened to the remote half of a write.
// The local half has always been committed when a result is returned.
type WriteResult struct {
	Status WriteStatus
	// Record is the locally stored payload, with its id.
	Record json.RawMessage
	// OutboxID is set when the mutation was queued.
	OutboxID string
	// Reason explains why the mutation was queued.
	Reason error
}

type DrainResult struct {
	Synced int
	Total  int
}

// LocalStore is the part of the local store used by SyncService.
type LocalStore interface {
	Table(name string) (store.RecordTable, error)
	Outbox() outbox.Repository
	Metadata() metadata.Repository
}

type SyncOptions struct {
	// RequestTimeout bounds each remote attempt.
	RequestTimeout time.Duration
	// MaxRetries is the number of extra batch attempts after a transport
	// or server failure.
	MaxRetries uint64
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	PageSize   int
	Notifier   Notifier
	Logger     logging.Logger
}

func (o *SyncOptions) withDefaults() {
	if o.RequestTimeout <= 0 {
		o.RequestTimeout = 10 * time.Second
	}
	if o.BaseDelay <= 0 {
		o.BaseDelay = 200 * time.Millisecond
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = 5 * time.Second
	}
	if o.PageSize <= 0 {
		o.PageSize = 100
	}
	if o.Notifier == nil {
		o.Notifier = nopNotifier{}
	}
	if o.Logger == nil {
		o.Logger = logging.Nop()
	}
}

// SyncService commits writes locally, mirrors them to the server when it
// can, and queues them in the outbox when it cannot.
type SyncService struct {
	local  LocalStore
	remote client.Client
	opts   SyncOptions
	log    logging.Logger

	online   atomic.Bool
	draining atomic.Bool
}

// NewSyncService starts in the online state.
func NewSyncService(local LocalStore, remote client.Client, opts SyncOptions) *SyncService {
	opts.withDefaults()
	s := &SyncService{local: local, remote: remote, opts: opts, log: opts.Logger}
	s.online.Store(true)
	return s
}

func (s *SyncService) Online() bool { return s.online.Load() }

func (s *SyncService) notify(ctx context.Context, level NoticeLevel, format string, args ...any) {
	s.opts.Notifier.Notify(ctx, Notice{Level: level, Message: fmt.Sprintf(format, args...)})
}

// Write commits a mutation to the local store, then tries to apply it on the
// server. record is the full entity for create, the partial for update
// (with "id") and at least {"id"} for delete.
//
// A transport or server failure, a rejected answer, a 404 on update, or a
// known offline state queue the mutation and return WriteQueued. Other
// remote failures (validation, auth) are returned as errors; the local
// commit stays in place.
func (s *SyncService) Write(ctx context.Context, table string, action models.Action, record json.RawMessage) (*WriteResult, error) {
	entity, err := models.EntityPath(table)
	if err != nil {
		return nil, err
	}
	if !action.Valid() {
		return nil, fmt.Errorf("%w: %s", common.ErrorUnknownAction, action)
	}
	tbl, err := s.local.Table(table)
	if err != nil {
		return nil, err
	}

	record, id, err := s.commitLocal(ctx, tbl, action, record)
	if err != nil {
		return nil, err
	}

	if !s.Online() {
		return s.enqueue(ctx, table, action, record, ErrOffline)
	}

	rctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
	defer cancel()

	switch action {
	case models.ActionCreate:
		_, err = s.remote.Create(rctx, entity, record)
	case models.ActionUpdate:
		_, err = s.remote.Patch(rctx, entity, id, record)
	case models.ActionDelete:
		_, err = s.remote.Delete(rctx, entity, id)
	}

	switch {
	case err == nil:
		return &WriteResult{Status: WriteSynced, Record: record}, nil
	case client.Retryable(err):
		s.markOffline(ctx)
		return s.enqueue(ctx, table, action, record, err)
	case errors.Is(err, client.ErrRejected),
		action == models.ActionUpdate && errors.Is(err, client.ErrNotFound):
		return s.enqueue(ctx, table, action, record, err)
	default:
		return nil, fmt.Errorf("remote %s %s/%s: %w", action, entity, id, err)
	}
}

func (s *SyncService) commitLocal(ctx context.Context, tbl store.RecordTable, action models.Action, record json.RawMessage) (json.RawMessage, string, error) {
	var fields map[string]any
	if err := json.Unmarshal(record, &fields); err != nil || fields == nil {
		return nil, "", fmt.Errorf("%w: record must be a JSON object", common.ErrorValidation)
	}
	id, _ := fields["id"].(string)

	switch action {
	case models.ActionCreate:
		if id == "" {
			id = uuid.NewString()
			fields["id"] = id
			b, err := json.Marshal(fields)
			if err != nil {
				return nil, "", err
			}
			record = b
		}
		if err := tbl.PutJSON(ctx, record); err != nil {
			return nil, "", err
		}
	case models.ActionUpdate:
		if id == "" {
			return nil, "", fmt.Errorf("%w: id is required for update", common.ErrorValidation)
		}
		if err := tbl.MergeJSON(ctx, id, record); err != nil {
			return nil, "", err
		}
	case models.ActionDelete:
		if id == "" {
			return nil, "", fmt.Errorf("%w: id is required for delete", common.ErrorValidation)
		}
		if _, err := tbl.Delete(ctx, id); err != nil {
			return nil, "", err
		}
	}
	return record, id, nil
}

func (s *SyncService) enqueue(ctx context.Context, table string, action models.Action, record json.RawMessage, reason error) (*WriteResult, error) {
	item, err := s.local.Outbox().Enqueue(ctx, table, action, record)
	if err != nil {
		return nil, fmt.Errorf("failed to queue %s on %s: %w", action, table, err)
	}
	s.log.Info(ctx, "mutation queued", "table", table, "action", action, "outbox_id", item.ID, "reason", reason)
	s.notify(ctx, NoticeInfo, "Saved locally. The change to %s will sync when the server is reachable.", table)
	return &WriteResult{Status: WriteQueued, Record: record, OutboxID: item.ID, Reason: reason}, nil
}

// Drain sends a snapshot of the outbox to the server in one batch. The
// snapshot is removed only when the server confirms the batch; on failure
// the outbox is left exactly as it was. Items queued while the batch is in
// flight are left for the next drain.
func (s *SyncService) Drain(ctx context.Context) (DrainResult, error) {
	if !s.draining.CompareAndSwap(false, true) {
		return DrainResult{}, ErrDrainInProgress
	}
	defer s.draining.Store(false)

	items, err := s.local.Outbox().Snapshot(ctx)
	if err != nil {
		return DrainResult{}, err
	}
	if len(items) == 0 {
		return DrainResult{}, nil
	}

	res, err := s.sendBatch(ctx, items)
	if err != nil {
		if client.Retryable(err) {
			s.markOffline(ctx)
		}
		s.log.Warn(ctx, "drain failed", "items", len(items), "error", err)
		s.notify(ctx, NoticeError, "Sync failed. %d pending change(s) kept for the next attempt.", len(items))
		return DrainResult{Total: len(items)}, fmt.Errorf("%w: %w", ErrDrainFailed, err)
	}

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	if err := s.local.Outbox().Remove(ctx, ids); err != nil {
		return DrainResult{}, fmt.Errorf("failed to clear synced outbox items: %w", err)
	}
	if err := s.local.Metadata().SetTime(ctx, metadata.KeyLastSyncAt, time.UnixMilli(common.NowMillis())); err != nil {
		s.log.Warn(ctx, "failed to record sync time", "error", err)
	}

	out := DrainResult{Synced: res.Synced, Total: res.Total}
	s.log.Info(ctx, "outbox drained", "synced", out.Synced, "total", out.Total)
	if out.Synced < out.Total {
		s.notify(ctx, NoticeWarn, "Synced %d of %d change(s); the server could not apply the rest.", out.Synced, out.Total)
	} else {
		s.notify(ctx, NoticeInfo, "Synced %d change(s).", out.Synced)
	}
	return out, nil
}

// sendBatch posts the batch, retrying with capped exponential backoff while
// the failure is a transport or server error.
func (s *SyncService) sendBatch(ctx context.Context, items []models.OutboxItem) (*models.SyncResult, error) {
	b := retry.NewExponential(s.opts.BaseDelay)
	b = retry.WithCappedDuration(s.opts.MaxDelay, b)
	b = retry.WithMaxRetries(s.opts.MaxRetries, b)

	var res *models.SyncResult
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		actx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
		defer cancel()

		var err error
		res, err = s.remote.Sync(actx, items)
		if err != nil && client.Retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Pending reports how many mutations wait in the outbox.
func (s *SyncService) Pending(ctx context.Context) (int, error) {
	return s.local.Outbox().Count(ctx)
}

// LastSyncAt returns the time of the last confirmed drain, zero if none.
func (s *SyncService) LastSyncAt(ctx context.Context) (time.Time, error) {
	return s.local.Metadata().GetTime(ctx, metadata.KeyLastSyncAt)
}

// Pull copies every remote record of table into the local store. Pending
// outbox items are not affected, so an unsynced local change can be
// overwritten until it is drained; callers drain first.
func (s *SyncService) Pull(ctx context.Context, table string) (int, error) {
	entity, err := models.EntityPath(table)
	if err != nil {
		return 0, err
	}
	tbl, err := s.local.Table(table)
	if err != nil {
		return 0, err
	}

	n, cursor := 0, ""
	for {
		rctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
		page, err := s.remote.List(rctx, entity, cursor, s.opts.PageSize)
		cancel()
		if err != nil {
			return n, err
		}
		for _, raw := range page.Items {
			if err := tbl.PutJSON(ctx, raw); err != nil {
				return n, err
			}
			n++
		}
		if page.Next == nil || *page.Next == "" {
			return n, nil
		}
		cursor = *page.Next
	}
}

// SetOnline records a connectivity signal. Going from offline to online
// drains the outbox before returning.
func (s *SyncService) SetOnline(ctx context.Context, online bool) {
	was := s.online.Swap(online)

	switch {
	case online && !was:
		s.log.Info(ctx, "connection restored")
		s.notify(ctx, NoticeInfo, "Back online.")
		if _, err := s.Drain(ctx); err != nil && !errors.Is(err, ErrDrainInProgress) {
			s.log.Warn(ctx, "automatic drain failed", "error", err)
		}
	case !online && was:
		s.log.Info(ctx, "connection lost")
		s.notify(ctx, NoticeWarn, "You are offline. Changes will be queued.")
	}
}

func (s *SyncService) markOffline(ctx context.Context) {
	s.SetOnline(ctx, false)
}

// Watch probes the server every interval until ctx is done and feeds the
// result to SetOnline.
func (s *SyncService) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, s.opts.RequestTimeout)
			err := s.remote.Ping(pctx)
			cancel()
			s.SetOnline(ctx, err == nil)
		case <-ctx.Done():
			return
		}
	}
}
