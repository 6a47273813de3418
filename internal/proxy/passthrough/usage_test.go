package passthrough

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventCollector struct {
	events []string
}

func (c *eventCollector) ParseUsage([]byte) (int, int) { return 0, 0 }
func (c *eventCollector) ProviderName() string         { return "collector" }
func (c *eventCollector) ParseStreamEvent(data []byte, u *Usage) {
	c.events = append(c.events, string(data))
	u.CompletionTokens++
}

func TestSSETap_SplitAcrossWrites(t *testing.T) {
	c := &eventCollector{}
	tap := newSSETap(c)

	stream := "event: a\ndata: {\"n\":1}\n\n: comment\ndata:{\"n\":2}\r\n\ndata: [DONE]\n\n"
	for i := 0; i < len(stream); i += 3 {
		end := min(i+3, len(stream))
		n, err := tap.Write([]byte(stream[i:end]))
		require.NoError(t, err)
		assert.Equal(t, end-i, n)
	}
	require.NoError(t, tap.Close())

	assert.Equal(t, []string{`{"n":1}`, `{"n":2}`}, c.events)
	assert.Equal(t, 2, tap.usage.CompletionTokens)
}

func TestSSETap_UnterminatedFinalLine(t *testing.T) {
	c := &eventCollector{}
	tap := newSSETap(c)

	_, _ = tap.Write([]byte(`data: {"last":true}`))
	assert.Empty(t, c.events)
	_ = tap.Close()
	assert.Equal(t, []string{`{"last":true}`}, c.events)
}

func TestSSETap_OversizedLineSkipped(t *testing.T) {
	c := &eventCollector{}
	tap := newSSETap(c)

	_, _ = tap.Write([]byte("data: " + strings.Repeat("x", maxPendingLine+1) + "\n"))
	_, _ = tap.Write([]byte("data: {\"ok\":1}\n"))
	_ = tap.Close()

	assert.Equal(t, []string{`{"ok":1}`}, c.events)
}
