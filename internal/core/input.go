package core

import (
	"bufio"
	"context"
	"errors"
	"io"
	"unicode/utf8"
)

// ErrInvalidInput is reported when an input line is not valid UTF-8.
var ErrInvalidInput = errors.New("input line is not valid utf-8")

// ReadLines reads newline-delimited lines from r until EOF, a read error or an
// invalid line. A failure is delivered as the last event before the channel closes.
func ReadLines(ctx context.Context, r io.Reader) <-chan InputEvent {
	lines := make(chan InputEvent)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			ev := InputEvent{Line: scanner.Text()}
			if !utf8.ValidString(ev.Line) {
				ev = InputEvent{Err: ErrInvalidInput}
			}
			select {
			case lines <- ev:
			case <-ctx.Done():
				return
			}
			if ev.Err != nil {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case lines <- InputEvent{Err: err}:
			case <-ctx.Done():
			}
		}
	}()
	return lines
}
