package review

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ashita-ai/veritas/internal/model"
)

func TestPutAndGet(t *testing.T) {
	q := New()
	record := model.PendingReview{Claim: "c", Verdict: model.VerdictNotEnoughEvidence, CreatedAt: time.Now()}
	q.Put("id1", record)

	got, ok := q.Get("id1")
	assert.True(t, ok)
	assert.Equal(t, record.Claim, got.Claim)
}

func TestGetMissingReturnsFalse(t *testing.T) {
	q := New()
	_, ok := q.Get("missing")
	assert.False(t, ok)
}

func TestListReturnsAllIDs(t *testing.T) {
	q := New()
	q.Put("id1", model.PendingReview{})
	q.Put("id2", model.PendingReview{})

	ids := q.List()
	assert.Len(t, ids, 2)
	assert.Contains(t, ids, "id1")
	assert.Contains(t, ids, "id2")
}

func TestResolveRemovesEntry(t *testing.T) {
	q := New()
	q.Put("id1", model.PendingReview{})

	assert.True(t, q.Resolve("id1"))
	_, ok := q.Get("id1")
	assert.False(t, ok)
}

func TestResolveMissingReturnsFalse(t *testing.T) {
	q := New()
	assert.False(t, q.Resolve("missing"))
}

func TestDeleteRemovesEntryWithoutResolving(t *testing.T) {
	q := New()
	q.Put("id1", model.PendingReview{})
	q.Delete("id1")

	_, ok := q.Get("id1")
	assert.False(t, ok)
}
