package services

import "context"

type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeWarn  NoticeLevel = "warn"
	NoticeError NoticeLevel = "error"
)

// Notice is a short, non-blocking message for the user.
type Notice struct {
	Level   NoticeLevel
	Message string
}

// Notifier shows notices to the user. Implementations must not block.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Notice) {}
