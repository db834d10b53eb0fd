package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/suitewaste/internal/models"
	"github.com/dmitrijs2005/suitewaste/internal/server/entities"
	"github.com/dmitrijs2005/suitewaste/internal/server/services"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const shellHTML = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>SuiteWaste OS</title></head>
<body><div id="root"></div></body>
</html>
`

func (h *Handler) Shell(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(shellHTML))
}

func (h *Handler) Health(c *gin.Context) {
	ok(c, gin.H{"status": "ok"})
}

func parseLimit(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func (h *Handler) list(col entities.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if err := col.EnsureSeed(ctx); err != nil {
			h.writeError(c, err)
			return
		}
		page, err := col.ListJSON(ctx, c.Query("cursor"), parseLimit(c.Query("limit")))
		if err != nil {
			h.writeError(c, err)
			return
		}
		ok(c, page)
	}
}

func (h *Handler) create(col entities.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body json.RawMessage
		if err := c.ShouldBindJSON(&body); err != nil {
			bad(c, "invalid json body")
			return
		}
		created, err := col.CreateJSON(c.Request.Context(), body)
		if err != nil {
			h.writeError(c, err)
			return
		}
		ok(c, created)
	}
}

func (h *Handler) patch(col entities.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		var partial map[string]any
		if err := c.ShouldBindJSON(&partial); err != nil {
			bad(c, "invalid json body")
			return
		}
		updated, err := col.PatchJSON(c.Request.Context(), c.Param("id"), partial)
		if err != nil {
			h.writeError(c, err)
			return
		}
		ok(c, updated)
	}
}

func (h *Handler) delete(col entities.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		deleted, err := col.Delete(c.Request.Context(), id)
		if err != nil {
			h.writeError(c, err)
			return
		}
		ok(c, models.DeleteResult{ID: id, Deleted: deleted})
	}
}

func (h *Handler) deleteMany(col entities.Collection) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.DeleteManyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			bad(c, "ids required")
			return
		}
		ids := make([]string, 0, len(req.IDs))
		for _, id := range req.IDs {
			if id != "" {
				ids = append(ids, id)
			}
		}
		if len(ids) == 0 {
			bad(c, "ids required")
			return
		}
		n, err := col.DeleteMany(c.Request.Context(), ids)
		if err != nil {
			h.writeError(c, err)
			return
		}
		ok(c, models.DeleteManyResult{DeletedCount: n, IDs: ids})
	}
}

func (h *Handler) CreateUser(c *gin.Context) {
	var body struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Name) == "" {
		bad(c, "name required")
		return
	}
	u, err := h.registry.Users.Create(c.Request.Context(), models.RemoteUser{ID: uuid.NewString(), Name: strings.TrimSpace(body.Name)})
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, u)
}

func (h *Handler) CreateChat(c *gin.Context) {
	var body struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		bad(c, "title required")
		return
	}
	board, err := h.registry.Chats.CreateBoard(c.Request.Context(), body.Title)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, gin.H{"id": board.ID, "title": board.Title})
}

func (h *Handler) ListMessages(c *gin.Context) {
	if err := h.registry.Chats.EnsureSeed(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	msgs, err := h.registry.Chats.ListMessages(c.Request.Context(), c.Param("chatId"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, msgs)
}

func (h *Handler) SendMessage(c *gin.Context) {
	var body struct {
		UserID string `json:"userId"`
		Text   string `json:"text"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		bad(c, "userId and text required")
		return
	}
	if body.UserID == "" {
		body.UserID = UserIDFromContext(c)
	}
	if err := h.registry.Chats.EnsureSeed(c.Request.Context()); err != nil {
		h.writeError(c, err)
		return
	}
	msg, err := h.registry.Chats.SendMessage(c.Request.Context(), c.Param("chatId"), body.UserID, body.Text)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, msg)
}

func (h *Handler) Sync(c *gin.Context) {
	var body struct {
		Items json.RawMessage `json:"items"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		bad(c, "Invalid payload: items must be an array.")
		return
	}
	var items []models.OutboxItem
	if !strings.HasPrefix(strings.TrimSpace(string(body.Items)), "[") || json.Unmarshal(body.Items, &items) != nil {
		bad(c, "Invalid payload: items must be an array.")
		return
	}
	ok(c, h.sync.Apply(c.Request.Context(), items))
}

func (h *Handler) Snapshot(c *gin.Context) {
	if h.snapshots == nil {
		fail(c, http.StatusServiceUnavailable, services.ErrSnapshotsDisabled.Error())
		return
	}
	res, err := h.snapshots.Export(c.Request.Context())
	if errors.Is(err, services.ErrSnapshotsDisabled) {
		fail(c, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		h.writeError(c, err)
		return
	}
	ok(c, res)
}
