// Package services holds the server use cases that span several entity
// collections: outbox replay and snapshot export.
package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/suitewaste/internal/common"
	"github.com/dmitrijs2005/suitewaste/internal/logging"
	"github.com/dmitrijs2005/suitewaste/internal/models"
	"github.com/dmitrijs2005/suitewaste/internal/server/entities"
)

// SyncService replays client outbox items against the entity collections.
type SyncService struct {
	registry *entities.Registry
	log      logging.Logger
}

func NewSyncService(registry *entities.Registry, log logging.Logger) *SyncService {
	return &SyncService{registry: registry, log: log}
}

// Apply replays items in order. A failing item is logged and skipped;
// Synced counts successes only and Total is len(items).
func (s *SyncService) Apply(ctx context.Context, items []models.OutboxItem) models.SyncResult {
	res := models.SyncResult{Total: len(items)}
	for _, item := range items {
		c, ok := s.registry.ByTable(item.Table)
		if !ok {
			s.log.Warn(ctx, "sync: unknown table", "table", item.Table, "item", item.ID)
			continue
		}
		if err := s.apply(ctx, c, item); err != nil {
			s.log.Error(ctx, "sync: failed to process item", "item", item.ID, "table", item.Table, "action", item.Action, "error", err)
			continue
		}
		res.Synced++
	}
	s.log.Info(ctx, "sync batch applied", "synced", res.Synced, "total", res.Total)
	return res
}

func (s *SyncService) apply(ctx context.Context, c entities.Collection, item models.OutboxItem) error {
	switch item.Action {
	case models.ActionCreate:
		_, err := c.CreateJSON(ctx, item.Payload)
		return err

	case models.ActionUpdate:
		id := item.PayloadID()
		if id == "" {
			return fmt.Errorf("%w: update without payload id", common.ErrorValidation)
		}
		exists, err := c.Exists(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			_, err = c.CreateJSON(ctx, item.Payload)
			return err
		}
		var partial map[string]any
		if err := json.Unmarshal(item.Payload, &partial); err != nil {
			return fmt.Errorf("%w: %v", common.ErrorValidation, err)
		}
		_, err = c.PatchJSON(ctx, id, partial)
		return err

	case models.ActionDelete:
		id := item.PayloadID()
		if id == "" {
			return fmt.Errorf("%w: delete without payload id", common.ErrorValidation)
		}
		_, err := c.Delete(ctx, id)
		return err
	}
	return fmt.Errorf("%w: %q", common.ErrorUnknownAction, item.Action)
}
