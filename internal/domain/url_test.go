package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already canonical", "https://example.com/markets/fed", "https://example.com/markets/fed"},
		{"case and whitespace", "  HTTPS://Example.COM/Markets/Fed ", "https://example.com/Markets/Fed"},
		{"fragment dropped", "https://example.com/a#comments", "https://example.com/a"},
		{"trailing slash", "https://example.com/a/", "https://example.com/a"},
		{"root kept", "https://example.com/", "https://example.com/"},
		{"tracking params dropped", "https://example.com/a?utm_source=x&id=7&UTM_medium=y", "https://example.com/a?id=7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalURL(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCanonicalURL_Invalid(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "/relative/path", "not a url", "http://%zz"} {
		_, err := CanonicalURL(in)
		assert.True(t, errors.Is(err, ErrInvalidURL), "input %q", in)
	}
}

func TestNormalizeKeywords_URLFile(t *testing.T) {
	t.Parallel()

	got := NormalizeKeywords([]string{"Earnings", " technology", "earnings", ""})
	assert.Equal(t, []string{"earnings", "technology"}, got)
	assert.Nil(t, NormalizeKeywords(nil))
}

func TestScoringText_URLFile(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "body", NewsItem{Title: "title", Body: " body "}.ScoringText())
	assert.Equal(t, "title", NewsItem{Title: "title", Body: "   "}.ScoringText())
	assert.Equal(t, "", NewsItem{}.ScoringText())
}

func TestBatchReportAdd_URLFile(t *testing.T) {
	t.Parallel()

	var r BatchReport
	r.Add(Outcome{Kind: OutcomeCreated})
	r.Add(Outcome{Kind: OutcomeUpdatedExistingUnprocessed})
	r.Add(Outcome{Kind: OutcomeSkippedAlreadyProcessed})
	r.Add(Outcome{Kind: OutcomeSkippedNoContent})
	r.Add(Failed("https://example.com/x", "boom: %d", 3))

	assert.Equal(t, 1, r.Created)
	assert.Equal(t, 1, r.Updated)
	assert.Equal(t, 2, r.Skipped)
	assert.Equal(t, 1, r.Failed)
	assert.Len(t, r.Outcomes, 5)
	assert.Equal(t, "boom: 3", r.Outcomes[4].Reason)
}
