package ledger

import (
	"sync"
	"testing"
	"time"

	"ai-pdfchat-client/internal/constant"
	"ai-pdfchat-client/internal/entity"
	"ai-pdfchat-client/pkg/chat/stream"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestLedger() *Ledger {
	return NewWithClock(func() time.Time { return fixedNow })
}

func TestAppendUser(t *testing.T) {
	l := newTestLedger()
	att := []entity.ChatAttachment{{Name: "a.pdf", Type: constant.PDFMimeType}}

	msg := l.AppendUser("hi", att)
	att[0].Name = "mutated"

	assert.NotEmpty(t, msg.Id)
	assert.Equal(t, constant.ChatMessageSenderUser, msg.Sender)
	assert.Equal(t, fixedNow, msg.Timestamp)
	assert.False(t, msg.IsStreaming)

	stored, ok := l.Get(msg.Id)
	require.True(t, ok)
	assert.Equal(t, "a.pdf", stored.Attachments[0].Name)
}

func TestStreamingLifecycle(t *testing.T) {
	tests := []struct {
		name      string
		fragments []string
		want      string
	}{
		{name: "two frames", fragments: []string{"Hel", "lo"}, want: "Hello"},
		{name: "trailing whitespace trimmed once", fragments: []string{"a ", " b", "\n\n "}, want: "a  b"},
		{name: "leading whitespace kept", fragments: []string{"  x"}, want: "  x"},
		{name: "no fragments", fragments: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger()
			id := l.AppendStreamingPlaceholder()

			var acc string
			for _, f := range tt.fragments {
				msg, err := l.ApplyFragment(id, stream.Fragment{Answer: f})
				require.NoError(t, err)
				acc += f
				// No trimming while streaming.
				assert.Equal(t, acc, msg.Content)
				assert.True(t, msg.IsStreaming)
			}

			final, err := l.Finalize(id, acc, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.want, final.Content)
			assert.False(t, final.IsStreaming)

			_, err = l.ApplyFragment(id, stream.Fragment{Answer: "late"})
			assert.ErrorIs(t, err, ErrFinalized)
			_, err = l.Finalize(id, "again", nil)
			assert.ErrorIs(t, err, ErrFinalized)
		})
	}
}

func TestApplyFragment_ReferencesLastWriteWins(t *testing.T) {
	l := newTestLedger()
	id := l.AppendStreamingPlaceholder()

	two := []entity.ChatReference{{Text: "a", Page: 1}, {Text: "b", Page: 2}}
	msg, err := l.ApplyFragment(id, stream.Fragment{Answer: "x", References: two, HasReferences: true})
	require.NoError(t, err)
	assert.Len(t, msg.References, 2)

	msg, err = l.ApplyFragment(id, stream.Fragment{Answer: "y"})
	require.NoError(t, err)
	assert.Len(t, msg.References, 2, "absent field keeps the list")

	msg, err = l.ApplyFragment(id, stream.Fragment{Answer: "z", References: []entity.ChatReference{}, HasReferences: true})
	require.NoError(t, err)
	assert.Len(t, msg.References, 0, "explicit empty list replaces")

	final, err := l.Finalize(id, msg.Content, nil)
	require.NoError(t, err)
	assert.Empty(t, final.References)
	assert.Equal(t, "xyz", final.Content)
}

func TestFinalizeError(t *testing.T) {
	l := newTestLedger()
	id := l.AppendStreamingPlaceholder()
	_, err := l.ApplyFragment(id, stream.Fragment{Answer: "Hi"})
	require.NoError(t, err)

	msg, err := l.FinalizeError(id)
	require.NoError(t, err)
	assert.Equal(t, constant.ErrorMessageMarker, msg.Content)
	assert.False(t, msg.IsStreaming)

	_, err = l.FinalizeError(id)
	assert.ErrorIs(t, err, ErrFinalized)
}

func TestUnknownMessage(t *testing.T) {
	l := newTestLedger()
	_, err := l.ApplyFragment("missing", stream.Fragment{Answer: "x"})
	assert.ErrorIs(t, err, ErrUnknownMessage)
	_, err = l.Finalize("missing", "", nil)
	assert.ErrorIs(t, err, ErrUnknownMessage)
	_, err = l.FinalizeError("missing")
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestReplaceAll_DropsInFlightPlaceholder(t *testing.T) {
	l := newTestLedger()
	l.AppendUser("q", nil)
	id := l.AppendStreamingPlaceholder()

	history := []entity.ChatMessage{
		{Id: "1", Sender: constant.ChatMessageSenderUser, Content: "old q"},
		{Id: "2", Sender: constant.ChatMessageSenderAI, Content: "old a", IsStreaming: true},
	}
	l.ReplaceAll(history)
	history[0].Content = "mutated"

	snap := l.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "old q", snap[0].Content)
	assert.False(t, snap[1].IsStreaming)

	_, err := l.ApplyFragment(id, stream.Fragment{Answer: "stale"})
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestRollbackLast(t *testing.T) {
	l := newTestLedger()
	_, ok := l.RollbackLast()
	assert.False(t, ok)

	l.AppendUser("q", nil)
	id := l.AppendStreamingPlaceholder()
	assert.True(t, l.HasAI())

	removed, ok := l.RollbackLast()
	require.True(t, ok)
	assert.Equal(t, id, removed.Id)
	assert.Equal(t, 1, l.Len())
	assert.False(t, l.HasAI())

	last, ok := l.LastUser()
	require.True(t, ok)
	assert.Equal(t, "q", last.Content)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	l := newTestLedger()
	id := l.AppendStreamingPlaceholder()
	_, err := l.ApplyFragment(id, stream.Fragment{Answer: "a", References: []entity.ChatReference{{Text: "r"}}, HasReferences: true})
	require.NoError(t, err)

	snap := l.Snapshot()
	snap[0].References[0].Text = "changed"
	snap[0].Content = "changed"

	again, _ := l.Get(id)
	assert.Equal(t, "r", again.References[0].Text)
	assert.Equal(t, "a", again.Content)
}

func TestConcurrentFragments(t *testing.T) {
	l := newTestLedger()
	id := l.AppendStreamingPlaceholder()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = l.ApplyFragment(id, stream.Fragment{Answer: "x"})
			_ = l.Snapshot()
		}()
	}
	wg.Wait()

	msg, _ := l.Get(id)
	assert.Len(t, msg.Content, 50)
}
