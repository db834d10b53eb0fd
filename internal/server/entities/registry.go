package entities

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/dmitrijs2005/suitewaste/internal/models"
	entityrepo "github.com/dmitrijs2005/suitewaste/internal/server/repositories/entities"
)

// Collection is the kind-independent view of a Store used by the REST
// surface and by sync replay.
type Collection interface {
	Name() string
	EnsureSeed(ctx context.Context) error
	ListJSON(ctx context.Context, cursor string, limit int) (*models.Page[json.RawMessage], error)
	CreateJSON(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)
	PatchJSON(ctx context.Context, id string, partial map[string]any) (json.RawMessage, error)
	Exists(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) (bool, error)
	DeleteMany(ctx context.Context, ids []string) (int, error)
	Repair(ctx context.Context) (entityrepo.RepairResult, error)
}

// Registry holds every collection of the server.
type Registry struct {
	Users           *Store[models.RemoteUser]
	Chats           *ChatBoards
	Tasks           *Store[models.Task]
	Payments        *Store[models.Payment]
	ComplianceLogs  *Store[models.ComplianceLog]
	TrainingModules *Store[models.TrainingModule]
	AIMessages      *Store[models.AIMessage]

	byName map[string]Collection
}

// NewRegistry builds all collections over backend, seeded relative to now.
func NewRegistry(backend entityrepo.Backend, now time.Time) *Registry {
	r := &Registry{
		Users:           NewStore("users", backend, SeedUsers()),
		Chats:           NewChatBoards(NewStore("chats", backend, SeedChats(now))),
		Tasks:           NewStore(models.SyncTables[models.TableTasks], backend, SeedTasks(now)),
		Payments:        NewStore(models.SyncTables[models.TablePayments], backend, SeedPayments(now)),
		ComplianceLogs:  NewStore(models.SyncTables[models.TableComplianceLogs], backend, SeedComplianceLogs(now)),
		TrainingModules: NewStore(models.SyncTables[models.TableTrainingModules], backend, SeedTrainingModules()),
		AIMessages:      NewStore(models.SyncTables[models.TableAIMessages], backend, SeedAIMessages(now)),
	}
	r.byName = map[string]Collection{}
	for _, c := range []Collection{r.Users, r.Chats, r.Tasks, r.Payments, r.ComplianceLogs, r.TrainingModules, r.AIMessages} {
		r.byName[c.Name()] = c
	}
	return r
}

// ByPath returns the collection served under /api/{path}.
func (r *Registry) ByPath(path string) (Collection, bool) {
	c, ok := r.byName[path]
	return c, ok
}

// ByTable returns the collection an outbox table replays into. Only the
// sync tables are addressable this way.
func (r *Registry) ByTable(table string) (Collection, bool) {
	path, err := models.EntityPath(table)
	if err != nil {
		return nil, false
	}
	return r.ByPath(path)
}

// EntityPaths lists the collections with plain CRUD routes.
func (r *Registry) EntityPaths() []string {
	out := make([]string, 0, len(models.SyncTables))
	for _, p := range models.SyncTables {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// All returns every collection ordered by name.
func (r *Registry) All() []Collection {
	out := make([]Collection, 0, len(r.byName))
	for _, c := range r.byName {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
