package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dmitrijs2005/suitewaste/internal/client/services"
	"github.com/stretchr/testify/assert"
)

func TestNotifier_WritesOneLinePerNotice(t *testing.T) {
	var out bytes.Buffer
	n := NewNotifier(&out)

	n.Notify(context.Background(), services.Notice{Level: services.NoticeWarn, Message: "You are offline."})
	n.Notify(context.Background(), services.Notice{Level: "odd", Message: "still printed"})

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	assert.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[warn]")
	assert.Contains(t, lines[0], "You are offline.")
	assert.Contains(t, lines[1], "still printed")
}
