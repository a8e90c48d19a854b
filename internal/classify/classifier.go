package classify

import (
	"context"
	"errors"

	"github.com/spec-kit/incident-service/internal/domain"
)

// ErrTimeout is returned when a classifier does not answer within its budget.
var ErrTimeout = errors.New("classification timed out")

// Result is the category and the entities extracted from a description.
type Result struct {
	Category string
	Entities []domain.Entity
}

// Classifier derives a category from free text. Implementations may be slow or fail.
type Classifier interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// Func adapts a plain function to Classifier.
type Func func(ctx context.Context, text string) (Result, error)

// Classify implements Classifier.
func (f Func) Classify(ctx context.Context, text string) (Result, error) {
	return f(ctx, text)
}
