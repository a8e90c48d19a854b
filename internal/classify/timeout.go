package classify

import (
	"context"
	"errors"
	"time"
)

type timeoutClassifier struct {
	next    Classifier
	timeout time.Duration
}

// WithTimeout bounds every call to next by d. A non-positive d returns next unchanged.
func WithTimeout(next Classifier, d time.Duration) Classifier {
	if d <= 0 {
		return next
	}
	return &timeoutClassifier{next: next, timeout: d}
}

type outcome struct {
	result Result
	err    error
}

// Classify runs the wrapped classifier in its own goroutine so a classifier
// that ignores ctx still cannot hold the caller past the deadline.
func (t *timeoutClassifier) Classify(ctx context.Context, text string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		res, err := t.next.Classify(ctx, text)
		done <- outcome{result: res, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Result{}, ErrTimeout
		}
		return Result{}, ctx.Err()
	}
}
