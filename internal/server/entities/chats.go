package entities

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/suitewaste/internal/common"
	"github.com/dmitrijs2005/suitewaste/internal/models"
	"github.com/google/uuid"
)

// ChatBoards stores chats with their messages inline.
type ChatBoards struct {
	*Store[models.ChatBoard]
	now func() time.Time
}

func NewChatBoards(store *Store[models.ChatBoard]) *ChatBoards {
	return &ChatBoards{Store: store, now: time.Now}
}

// CreateBoard starts an empty chat with a fresh id.
func (c *ChatBoards) CreateBoard(ctx context.Context, title string) (models.ChatBoard, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return models.ChatBoard{}, fmt.Errorf("%w: title required", common.ErrorValidation)
	}
	return c.Create(ctx, models.ChatBoard{ID: uuid.NewString(), Title: title, Messages: []models.ChatMessage{}})
}

func (c *ChatBoards) ListMessages(ctx context.Context, chatID string) ([]models.ChatMessage, error) {
	board, err := c.Get(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if board.Messages == nil {
		return []models.ChatMessage{}, nil
	}
	return board.Messages, nil
}

// SendMessage appends a message to the chat. The chat must exist.
func (c *ChatBoards) SendMessage(ctx context.Context, chatID, userID, text string) (models.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if userID == "" || text == "" {
		return models.ChatMessage{}, fmt.Errorf("%w: userId and text required", common.ErrorValidation)
	}

	msg := models.ChatMessage{
		ID:     uuid.NewString(),
		ChatID: chatID,
		UserID: userID,
		Text:   text,
		TS:     c.now().UnixMilli(),
	}
	err := c.withTx(ctx, func(ctx context.Context, st *Store[models.ChatBoard]) error {
		board, err := st.Get(ctx, chatID)
		if err != nil {
			return err
		}
		board.Messages = append(board.Messages, msg)
		_, err = st.Create(ctx, board)
		return err
	})
	if err != nil {
		return models.ChatMessage{}, err
	}
	return msg, nil
}
