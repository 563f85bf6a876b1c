package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/dreambuilder/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockedBuffer is a bytes.Buffer safe to read while a prompt writes to it.
type lockedBuffer struct {
	buf bytes.Buffer
	mu  sync.Mutex
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestAnswerReader_Answers(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		answers []string
	}{
		{name: "one answer per line", input: "Ada\n30\n35\n", answers: []string{"Ada", "30", "35"}},
		{name: "surrounding whitespace trimmed", input: "  $5,000 \t\n", answers: []string{"$5,000"}},
		{name: "blank answer keeps default", input: "\n400000\n", answers: []string{"", "400000"}},
		{name: "last answer without newline", input: "0.3\n350000", answers: []string{"0.3", "350000"}},
		{name: "windows line endings", input: "Ada\r\n30\r\n", answers: []string{"Ada", "30"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newAnswerReader(strings.NewReader(tt.input))
			for _, want := range tt.answers {
				got, err := r.next(context.Background())
				require.NoError(t, err)
				assert.Equal(t, want, got)
			}
			_, err := r.next(context.Background())
			assert.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestAnswerReader_CancelledBeforeAsking(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newAnswerReader(strings.NewReader("Ada\n")).next(ctx)
	assert.ErrorIs(t, err, ErrPromptCancelled)
}

func TestAnswerReader_LateAnswerGoesToNextPrompt(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	r := newAnswerReader(pr)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.next(ctx)
	require.ErrorIs(t, err, ErrPromptCancelled)

	go func() { _, _ = pw.Write([]byte("30\n")) }()

	got, err := r.next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "30", got)
}

func TestProfilePrompter_CancelledMidSetup(t *testing.T) {
	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })
	out := &lockedBuffer{}
	p := NewProfilePrompter(pr, out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := p.PromptProfile(ctx, model.UserProfile{ID: "u1"})
		done <- err
	}()
	go func() { _, _ = pw.Write([]byte("Ada\n30\n")) }()

	require.Eventually(t, func() bool {
		return strings.Contains(out.String(), "Age when buying")
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, ErrPromptCancelled)
	case <-time.After(time.Second):
		t.Fatal("setup did not stop after cancellation")
	}
	assert.NotContains(t, out.String(), "Monthly net income")
}

func TestProfilePrompter_InputEndsMidSetup(t *testing.T) {
	p := NewProfilePrompter(strings.NewReader("Ada\n30"), &bytes.Buffer{})

	_, err := p.PromptProfile(context.Background(), model.UserProfile{ID: "u1"})
	require.ErrorIs(t, err, io.EOF)
}
