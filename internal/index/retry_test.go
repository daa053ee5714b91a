package index_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ymiyake/reviewharvest/internal/index"
)

func TestForeverPolicyShouldRetry(t *testing.T) {
	p := index.NewForeverPolicy(0, 0)

	assert.False(t, p.ShouldRetry(nil, 0))
	assert.False(t, p.ShouldRetry(context.Canceled, 0))
	assert.False(t, p.ShouldRetry(context.DeadlineExceeded, 3))

	writeErr := errors.New("index unavailable")
	assert.True(t, p.ShouldRetry(writeErr, 0))
	assert.True(t, p.ShouldRetry(writeErr, 1_000_000), "no attempt ceiling")
}

func TestForeverPolicyBackoff(t *testing.T) {
	p := index.NewForeverPolicy(100*time.Millisecond, time.Second)

	assert.Equal(t, 100*time.Millisecond, p.Backoff(0))
	assert.Equal(t, 200*time.Millisecond, p.Backoff(1))
	assert.Equal(t, 400*time.Millisecond, p.Backoff(2))
	assert.Equal(t, time.Second, p.Backoff(10), "backoff is capped")
}

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "13012345-111", index.DocumentID("13012345", "111"))
}
