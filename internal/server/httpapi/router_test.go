package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/suitewaste/internal/auth"
	"github.com/dmitrijs2005/suitewaste/internal/logging"
	"github.com/dmitrijs2005/suitewaste/internal/models"
	"github.com/dmitrijs2005/suitewaste/internal/server/entities"
	entityrepo "github.com/dmitrijs2005/suitewaste/internal/server/repositories/entities"
	"github.com/dmitrijs2005/suitewaste/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type env struct {
	router   http.Handler
	registry *entities.Registry
}

func setup(t *testing.T, opts Options, putter services.ObjectPutter, bucket string) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	reg := entities.NewRegistry(entityrepo.NewMemoryBackend(), time.Now())
	log := logging.Nop()
	var snaps *services.SnapshotService
	if putter != nil {
		snaps = services.NewSnapshotService(reg, putter, bucket, log)
	}
	h := NewHandler(reg, services.NewSyncService(reg, log), snaps, log)
	return &env{router: NewRouter(opts, h), registry: reg}
}

func (e *env) do(t *testing.T, method, path string, body any, header ...string) (int, response) {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var resp response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w.Code, resp
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func listIDs(t *testing.T, e *env, path string) []string {
	t.Helper()
	var ids []string
	url := path + "?limit=100"
	for {
		code, resp := e.do(t, http.MethodGet, url, nil)
		require.Equal(t, http.StatusOK, code)
		page := decode[models.Page[struct {
			ID string `json:"id"`
		}]](t, resp.Data)
		for _, it := range page.Items {
			ids = append(ids, it.ID)
		}
		if page.Next == nil {
			return ids
		}
		url = path + "?limit=100&cursor=" + *page.Next
	}
}

func TestCreateTaskWithoutID(t *testing.T) {
	e := setup(t, Options{}, nil, "")

	code, resp := e.do(t, http.MethodPost, "/api/tasks", map[string]any{"title": "Collect bins", "status": "pending"})
	require.Equal(t, http.StatusOK, code)
	require.True(t, resp.Success)
	task := decode[models.Task](t, resp.Data)
	require.NotEmpty(t, task.ID)

	assert.Contains(t, listIDs(t, e, "/api/tasks"), task.ID)
}

func TestListSeedsOnFirstRead(t *testing.T) {
	e := setup(t, Options{}, nil, "")

	code, resp := e.do(t, http.MethodGet, "/api/tasks?limit=5", nil)
	require.Equal(t, http.StatusOK, code)
	page := decode[models.Page[models.Task]](t, resp.Data)
	assert.Len(t, page.Items, 5)
	require.NotNil(t, page.Next)

	assert.Len(t, listIDs(t, e, "/api/tasks"), 20)
	assert.Len(t, listIDs(t, e, "/api/users"), 2)
}

func TestListBadCursor(t *testing.T) {
	e := setup(t, Options{}, nil, "")
	code, resp := e.do(t, http.MethodGet, "/api/payments?cursor=xyz", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.False(t, resp.Success)
}

func TestSyncNetEffect(t *testing.T) {
	e := setup(t, Options{}, nil, "")
	ctx := context.Background()
	_, err := e.registry.Tasks.Create(ctx, models.Task{ID: "t2", Title: "old", Status: models.TaskPending})
	require.NoError(t, err)
	_, err = e.registry.Tasks.Create(ctx, models.Task{ID: "t3", Title: "doomed"})
	require.NoError(t, err)

	items := []models.OutboxItem{
		{ID: "o1", Table: models.TableTasks, Action: models.ActionCreate, Payload: json.RawMessage(`{"id":"t1","title":"new"}`), Timestamp: 1},
		{ID: "o2", Table: models.TableTasks, Action: models.ActionUpdate, Payload: json.RawMessage(`{"id":"t2","status":"completed"}`), Timestamp: 2},
		{ID: "o3", Table: models.TableTasks, Action: models.ActionDelete, Payload: json.RawMessage(`{"id":"t3"}`), Timestamp: 3},
	}
	code, resp := e.do(t, http.MethodPost, "/api/sync", models.SyncRequest{Items: items})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.SyncResult{Synced: 3, Total: 3}, decode[models.SyncResult](t, resp.Data))

	ids := listIDs(t, e, "/api/tasks")
	assert.ElementsMatch(t, []string{"t1", "t2"}, ids)

	t2, err := e.registry.Tasks.Get(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, models.TaskCompleted, t2.Status)
	assert.Equal(t, "old", t2.Title)
}

func TestSyncRejectsNonArray(t *testing.T) {
	e := setup(t, Options{}, nil, "")
	for _, body := range []any{map[string]any{"items": "nope"}, map[string]any{}, map[string]any{"items": nil}} {
		code, resp := e.do(t, http.MethodPost, "/api/sync", body)
		assert.Equal(t, http.StatusBadRequest, code)
		assert.Contains(t, resp.Error, "items must be an array")
	}
}

func TestPatchMissingIs404(t *testing.T) {
	e := setup(t, Options{}, nil, "")
	code, resp := e.do(t, http.MethodPatch, "/api/tasks/ghost", map[string]any{"status": "completed"})
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, resp.Success)

	code, resp = e.do(t, http.MethodPost, "/api/sync", models.SyncRequest{Items: []models.OutboxItem{
		{ID: "o1", Table: models.TableTasks, Action: models.ActionUpdate, Payload: json.RawMessage(`{"id":"ghost","status":"completed"}`)},
	}})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decode[models.SyncResult](t, resp.Data).Synced)
	assert.Contains(t, listIDs(t, e, "/api/tasks"), "ghost")
}

func TestPatchAndDelete(t *testing.T) {
	e := setup(t, Options{}, nil, "")
	_, resp := e.do(t, http.MethodPost, "/api/payments", map[string]any{"id": "p1", "amount": 10, "status": "due", "client": "A"})
	require.True(t, resp.Success)

	code, resp := e.do(t, http.MethodPatch, "/api/payments/p1", map[string]any{"status": "paid"})
	require.Equal(t, http.StatusOK, code)
	p := decode[models.Payment](t, resp.Data)
	assert.Equal(t, models.Payment{ID: "p1", Amount: 10, Status: "paid", Client: "A"}, p)

	code, resp = e.do(t, http.MethodDelete, "/api/payments/p1", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.DeleteResult{ID: "p1", Deleted: true}, decode[models.DeleteResult](t, resp.Data))

	_, resp = e.do(t, http.MethodDelete, "/api/payments/p1", nil)
	assert.Equal(t, models.DeleteResult{ID: "p1", Deleted: false}, decode[models.DeleteResult](t, resp.Data))
}

func TestDeleteMany(t *testing.T) {
	e := setup(t, Options{}, nil, "")
	for _, id := range []string{"a", "b"} {
		_, resp := e.do(t, http.MethodPost, "/api/aimessages", map[string]any{"id": id, "role": "user", "content": "hi"})
		require.True(t, resp.Success)
	}

	code, resp := e.do(t, http.MethodPost, "/api/aimessages/deleteMany", models.DeleteManyRequest{IDs: []string{"a", "b", "c"}})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, models.DeleteManyResult{DeletedCount: 2, IDs: []string{"a", "b", "c"}}, decode[models.DeleteManyResult](t, resp.Data))

	code, _ = e.do(t, http.MethodPost, "/api/aimessages/deleteMany", models.DeleteManyRequest{})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestListMatchesGetAfterMixedOps(t *testing.T) {
	e := setup(t, Options{}, nil, "")
	ctx := context.Background()
	for i := 0; i < 30; i++ {
		_, resp := e.do(t, http.MethodPost, "/api/compliancelogs", map[string]any{"description": "visit"})
		require.True(t, resp.Success)
	}
	ids := listIDs(t, e, "/api/compliancelogs")
	for i, id := range ids {
		if i%3 == 0 {
			_, resp := e.do(t, http.MethodDelete, "/api/compliancelogs/"+id, nil)
			require.True(t, resp.Success)
		}
	}

	remaining := listIDs(t, e, "/api/compliancelogs")
	assert.Len(t, remaining, 20)
	for _, id := range remaining {
		ok, err := e.registry.ComplianceLogs.Exists(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestUsersAndChats(t *testing.T) {
	e := setup(t, Options{}, nil, "")

	code, _ := e.do(t, http.MethodPost, "/api/users", map[string]any{"name": "  "})
	assert.Equal(t, http.StatusBadRequest, code)
	code, resp := e.do(t, http.MethodPost, "/api/users", map[string]any{"name": "Dana", "id": "ignored"})
	require.Equal(t, http.StatusOK, code)
	u := decode[models.RemoteUser](t, resp.Data)
	assert.Equal(t, "Dana", u.Name)
	assert.NotEqual(t, "ignored", u.ID)

	code, _ = e.do(t, http.MethodPost, "/api/chats", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, code)
	code, resp = e.do(t, http.MethodPost, "/api/chats", map[string]any{"title": "Depot"})
	require.Equal(t, http.StatusOK, code)
	chat := decode[models.ChatBoard](t, resp.Data)

	code, resp = e.do(t, http.MethodPost, "/api/chats/"+chat.ID+"/messages", map[string]any{"userId": "u1", "text": "hello"})
	require.Equal(t, http.StatusOK, code)
	msg := decode[models.ChatMessage](t, resp.Data)
	assert.Equal(t, chat.ID, msg.ChatID)

	code, resp = e.do(t, http.MethodGet, "/api/chats/"+chat.ID+"/messages", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, []models.ChatMessage{msg}, decode[[]models.ChatMessage](t, resp.Data))

	code, _ = e.do(t, http.MethodGet, "/api/chats/nope/messages", nil)
	assert.Equal(t, http.StatusNotFound, code)
	code, _ = e.do(t, http.MethodPost, "/api/chats/"+chat.ID+"/messages", map[string]any{"userId": "u1"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, resp = e.do(t, http.MethodPost, "/api/chats/deleteMany", models.DeleteManyRequest{IDs: []string{chat.ID}})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 1, decode[models.DeleteManyResult](t, resp.Data).DeletedCount)
}

func TestHealthAndShell(t *testing.T) {
	e := setup(t, Options{Secret: "s"}, nil, "")

	code, resp := e.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Success)

	for _, p := range []string{"/", "/index.html"} {
		req := httptest.NewRequest(http.MethodGet, p, nil)
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "SuiteWaste OS")
	}
}

func TestBearerAuth(t *testing.T) {
	secret := "shared"
	e := setup(t, Options{Secret: secret, TokenMaxAge: time.Hour}, nil, "")

	code, resp := e.do(t, http.MethodGet, "/api/tasks", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "missing token", resp.Error)

	code, _ = e.do(t, http.MethodGet, "/api/tasks", nil, "Authorization", "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, code)

	wrong, err := auth.GenerateToken("u1", "s1", "manager", []byte("other"), time.Minute)
	require.NoError(t, err)
	code, _ = e.do(t, http.MethodGet, "/api/tasks", nil, "Authorization", "Bearer "+wrong)
	assert.Equal(t, http.StatusUnauthorized, code)

	tok, err := auth.GenerateToken("u1", "s1", "manager", []byte(secret), time.Minute)
	require.NoError(t, err)
	code, _ = e.do(t, http.MethodGet, "/api/tasks", nil, "Authorization", "Bearer "+tok)
	assert.Equal(t, http.StatusOK, code)

	code, resp = e.do(t, http.MethodPost, "/api/chats/c1/messages", map[string]any{"text": "from token"}, "Authorization", "bearer "+tok)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "u1", decode[models.ChatMessage](t, resp.Data).UserID)
}

func TestBearerAuth_TokenTooOld(t *testing.T) {
	secret := []byte("shared")
	gin.SetMode(gin.TestMode)
	r := gin.New()
	later := time.Now().Add(2 * time.Hour)
	r.Use(bearerAuth(secret, time.Hour, func() time.Time { return later }))
	r.GET("/x", func(c *gin.Context) { ok(c, nil) })

	tok, err := auth.GenerateToken("u1", "", "", secret, 24*time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "token too old")
}

type recordingPutter struct{ keys []string }

func (p *recordingPutter) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	p.keys = append(p.keys, *in.Key)
	return &s3.PutObjectOutput{}, nil
}

func TestSnapshot(t *testing.T) {
	e := setup(t, Options{}, nil, "")
	code, _ := e.do(t, http.MethodPost, "/api/admin/snapshot", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	p := &recordingPutter{}
	e = setup(t, Options{}, p, "backups")
	code, resp := e.do(t, http.MethodPost, "/api/admin/snapshot", nil)
	require.Equal(t, http.StatusOK, code)
	res := decode[services.SnapshotResult](t, resp.Data)
	assert.Equal(t, []string{res.Key}, p.keys)
}

func TestCORSPreflight(t *testing.T) {
	e := setup(t, Options{AllowedOrigins: []string{"https://app.example"}}, nil, "")
	req := httptest.NewRequest(http.MethodOptions, "/api/tasks", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}
