package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeqFilterDropsStaleEvents(t *testing.T) {
	f := NewSeqFilter(2)

	assert.False(t, f.Fresh(Event{Seq: 1}), "older than the snapshot")
	assert.False(t, f.Fresh(Event{Seq: 2}), "already in the snapshot")
	assert.True(t, f.Fresh(Event{Seq: 4}))
	// published late by a concurrent operation
	assert.False(t, f.Fresh(Event{Seq: 3}))
	assert.True(t, f.Fresh(Event{Seq: 5}))

	var zero SeqFilter
	assert.True(t, zero.Fresh(Event{Seq: 1}))
}
