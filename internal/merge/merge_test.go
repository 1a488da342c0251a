package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ashita-ai/veritas/internal/model"
)

func TestMergeDropsDuplicateURLs(t *testing.T) {
	a := []model.EvidenceItem{{URL: "https://x.example/story-abc123", Title: "A"}}
	b := []model.EvidenceItem{{URL: "https://x.example/story-abc123", Title: "A dup"}, {URL: "https://y.example/story-xyz456", Title: "B"}}

	out := Merge(a, b)
	assert.Len(t, out, 2)
	assert.Equal(t, "A", out[0].Title)
}

func TestMergeDropsHomepages(t *testing.T) {
	a := []model.EvidenceItem{
		{URL: "https://x.example/"},
		{URL: "https://x.example/news"},
		{URL: "https://x.example/2024/story-abc123"},
	}
	out := Merge(a)
	assert.Len(t, out, 1)
	assert.Equal(t, "https://x.example/2024/story-abc123", out[0].URL)
}

func TestMergeSkipsEmptyURL(t *testing.T) {
	out := Merge([]model.EvidenceItem{{URL: ""}})
	assert.Empty(t, out)
}

func TestMergeOfNoListsIsEmpty(t *testing.T) {
	assert.Empty(t, Merge())
}
