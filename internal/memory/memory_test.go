package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMemory_issueAndElapse(t *testing.T) {
	m := New()
	assert.False(t, m.IsBusy())

	m.IssueRead()
	assert.True(t, m.IsBusy())

	for i := 0; i < Latency-1; i++ {
		m.Elapse()
		assert.True(t, m.IsBusy(), "still busy after %d of %d cycles", i+1, Latency)
	}
	m.Elapse()
	assert.False(t, m.IsBusy())

	// saturates, doesn't go negative
	m.Elapse()
	assert.False(t, m.IsBusy())
}

func TestMemory_issueWhileBusyPanics(t *testing.T) {
	m := New()
	m.IssueWrite()
	assert.Panics(t, func() { m.IssueRead() })
}
