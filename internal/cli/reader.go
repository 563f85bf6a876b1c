package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
)

// ErrPromptCancelled is returned when a prompt is abandoned before it is answered.
var ErrPromptCancelled = errors.New("prompt cancelled")

type answer struct {
	err  error
	text string
}

// answerReader hands out one trimmed answer per line. A cancelled prompt
// leaves its read in flight and the next prompt receives that line, so typed
// answers are never dropped. Not safe for concurrent use.
type answerReader struct {
	lines   *bufio.Reader
	pending chan answer
}

func newAnswerReader(r io.Reader) *answerReader {
	return &answerReader{lines: bufio.NewReader(r)}
}

// next waits for the next answer. A final line without a newline still counts.
func (r *answerReader) next(ctx context.Context) (string, error) {
	if ctx.Err() != nil {
		return "", ErrPromptCancelled
	}

	if r.pending == nil {
		ch := make(chan answer, 1)
		go func() {
			text, err := r.lines.ReadString('\n')
			ch <- answer{text: text, err: err}
		}()
		r.pending = ch
	}

	select {
	case <-ctx.Done():
		return "", ErrPromptCancelled
	case a := <-r.pending:
		r.pending = nil
		if a.err != nil && (!errors.Is(a.err, io.EOF) || a.text == "") {
			return "", a.err
		}
		return strings.TrimSpace(a.text), nil
	}
}
