package classify

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-service/internal/domain"
)

func TestRuleClassifier_DefaultTable(t *testing.T) {
	rc := NewRuleClassifier(DefaultPatterns())
	ctx := context.Background()

	tests := []struct {
		name     string
		text     string
		category string
		entities []domain.Entity
	}{
		{
			name:     "empty text",
			text:     "",
			category: domain.UnknownCategory,
			entities: []domain.Entity{},
		},
		{
			name:     "blank text",
			text:     "   ",
			category: domain.UnknownCategory,
			entities: []domain.Entity{},
		},
		{
			name:     "no match",
			text:     "nothing recognisable here",
			category: domain.UnknownCategory,
			entities: []domain.Entity{},
		},
		{
			name:     "last entity wins",
			text:     "Oracle database unreachable from the Data Center.",
			category: "Network Issue",
			entities: []domain.Entity{{Text: "Oracle", Label: "ORG"}, {Text: "Data Center", Label: "LOC"}},
		},
		{
			name:     "case insensitive keeps original text",
			text:     "ORACLE login failing",
			category: "System Issue",
			entities: []domain.Entity{{Text: "ORACLE", Label: "ORG"}},
		},
		{
			name:     "punctuation separates tokens",
			text:     "printer,elevator!",
			category: "Facility Issue",
			entities: []domain.Entity{{Text: "printer", Label: "PRODUCT"}, {Text: "elevator", Label: "FAC"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := rc.Classify(ctx, tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.category, res.Category)
			assert.Equal(t, tt.entities, res.Entities)
		})
	}
}

func TestRuleClassifier_LongestMatch(t *testing.T) {
	rc := NewRuleClassifier([]Pattern{
		{Label: "ORG", Pattern: "new"},
		{Label: "GPE", Pattern: "New York"},
	})

	res, err := rc.Classify(context.Background(), "the New York office and the new hire")
	require.NoError(t, err)
	assert.Equal(t, []domain.Entity{{Text: "New York", Label: "GPE"}, {Text: "new", Label: "ORG"}}, res.Entities)
	assert.Equal(t, "System Issue", res.Category)
}

func TestRuleClassifier_UnmappedKindKeepsCategory(t *testing.T) {
	rc := NewRuleClassifier([]Pattern{
		{Label: "PERSON", Pattern: "alice"},
		{Label: "MONEY", Pattern: "invoice"},
		{Label: "", Pattern: "ignored"},
	})

	res, err := rc.Classify(context.Background(), "alice sent an invoice that was ignored")
	require.NoError(t, err)
	assert.Equal(t, "User Issue", res.Category)
	assert.Equal(t, []domain.Entity{{Text: "alice", Label: "PERSON"}, {Text: "invoice", Label: "MONEY"}}, res.Entities)
}

func TestRuleClassifier_CancelledContext(t *testing.T) {
	rc := NewRuleClassifier(DefaultPatterns())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rc.Classify(ctx, "router down")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadPatterns(t *testing.T) {
	path := filepath.Join(t.TempDir(), "patterns.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"label":"FAC","pattern":"cafeteria"}]`), 0o600))

	patterns, err := LoadPatterns(path)
	require.NoError(t, err)
	assert.Equal(t, []Pattern{{Label: "FAC", Pattern: "cafeteria"}}, patterns)

	require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
	_, err = LoadPatterns(path)
	assert.Error(t, err)

	_, err = LoadPatterns(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestCategoryFor(t *testing.T) {
	c, ok := CategoryFor("NORP")
	assert.True(t, ok)
	assert.Equal(t, "Group-Related Issue", c)

	_, ok = CategoryFor("MONEY")
	assert.False(t, ok)
}

func TestWithTimeout(t *testing.T) {
	slow := Func(func(ctx context.Context, text string) (Result, error) {
		time.Sleep(200 * time.Millisecond)
		return Result{Category: "late"}, nil
	})

	start := time.Now()
	_, err := WithTimeout(slow, 10*time.Millisecond).Classify(context.Background(), "x")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 150*time.Millisecond)

	failing := Func(func(ctx context.Context, text string) (Result, error) {
		return Result{}, errors.New("model unavailable")
	})
	_, err = WithTimeout(failing, time.Second).Classify(context.Background(), "x")
	assert.EqualError(t, err, "model unavailable")

	fast := Func(func(ctx context.Context, text string) (Result, error) {
		return Result{Category: "Network Issue"}, nil
	})
	res, err := WithTimeout(fast, time.Second).Classify(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "Network Issue", res.Category)

	_, wrapped := WithTimeout(fast, 0).(*timeoutClassifier)
	assert.False(t, wrapped)
}
