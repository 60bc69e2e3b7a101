package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotAsOfPicksNearestNotAfter(t *testing.T) {
	t0 := time.Unix(1000, 0)
	t1 := time.Unix(2000, 0)
	t2 := time.Unix(3000, 0)

	meta := &TableMetadata{
		History: []*Snapshot{
			{ID: "s0", CommitTime: t0},
			{ID: "s1", CommitTime: t1},
			{ID: "s2", CommitTime: t2},
		},
	}

	assert.Equal(t, "s1", meta.SnapshotAsOf(t1).ID)
	assert.Equal(t, "s1", meta.SnapshotAsOf(time.Unix(2500, 0)).ID)
	assert.Equal(t, "s2", meta.SnapshotAsOf(time.Unix(9999, 0)).ID)
}

func TestSnapshotAsOfReturnsNilBeforeEverySnapshot(t *testing.T) {
	meta := &TableMetadata{
		History: []*Snapshot{
			{ID: "s0", CommitTime: time.Unix(1000, 0)},
		},
	}
	assert.Nil(t, meta.SnapshotAsOf(time.Unix(500, 0)))
}
