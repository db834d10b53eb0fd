package cli

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/dmitrijs2005/suitewaste/internal/client/services"
)

// Notifier prints sync notices as styled one-line toasts.
type Notifier struct {
	mu     sync.Mutex
	w      io.Writer
	styles map[services.NoticeLevel]lipgloss.Style
}

func NewNotifier(w io.Writer) *Notifier {
	base := lipgloss.NewStyle().Bold(true).PaddingRight(1)
	return &Notifier{
		w: w,
		styles: map[services.NoticeLevel]lipgloss.Style{
			services.NoticeInfo:  base.Foreground(lipgloss.Color("10")),
			services.NoticeWarn:  base.Foreground(lipgloss.Color("11")),
			services.NoticeError: base.Foreground(lipgloss.Color("9")),
		},
	}
}

func (n *Notifier) Notify(_ context.Context, notice services.Notice) {
	style, ok := n.styles[notice.Level]
	if !ok {
		style = n.styles[services.NoticeInfo]
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintf(n.w, "%s%s\n", style.Render("["+string(notice.Level)+"]"), notice.Message)
}
