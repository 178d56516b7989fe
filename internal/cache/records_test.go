package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ryyparr-art/swingthoughts-sub007/internal/domain"
)

// countingRecordReader serves course records from a map and counts reads
type countingRecordReader struct {
	records map[string]domain.CourseRecord
	reads   int
	err     error
}

func (r *countingRecordReader) GetCourseRecord(_ context.Context, courseID string) (*domain.CourseRecord, error) {
	r.reads++
	if r.err != nil {
		return nil, r.err
	}
	record, ok := r.records[courseID]
	if !ok {
		return nil, domain.ErrNoCourseRecord
	}
	return &record, nil
}

func TestRecordsResolveReadThrough(t *testing.T) {
	reader := &countingRecordReader{records: map[string]domain.CourseRecord{
		"c1": {CourseID: "c1", HolderID: "champ", NetScore: 64},
	}}
	c := NewRecords(reader, NewMemory(time.Minute, 100), discardLogger())
	ctx := context.Background()

	resolved, err := c.Resolve(ctx, []string{"c1", "c1"})
	require.NoError(t, err)
	require.NotNil(t, resolved["c1"])
	assert.Equal(t, "champ", resolved["c1"].HolderID)
	assert.Equal(t, 64, resolved["c1"].NetScore)
	assert.Equal(t, 1, reader.reads)

	resolved, err = c.Resolve(ctx, []string{"c1"})
	require.NoError(t, err)
	require.NotNil(t, resolved["c1"])
	assert.Equal(t, 1, reader.reads, "second resolve served from cache")
}

func TestRecordsResolveCachesAbsence(t *testing.T) {
	reader := &countingRecordReader{}
	c := NewRecords(reader, NewMemory(time.Minute, 100), discardLogger())
	ctx := context.Background()

	resolved, err := c.Resolve(ctx, []string{"c1"})
	require.NoError(t, err)
	record, present := resolved["c1"]
	assert.True(t, present)
	assert.Nil(t, record, "a course with no record resolves to nil")
	assert.Equal(t, 1, reader.reads)

	resolved, err = c.Resolve(ctx, []string{"c1"})
	require.NoError(t, err)
	assert.Nil(t, resolved["c1"])
	assert.Equal(t, 1, reader.reads, "the absence itself is cached")
}

func TestRecordsResolveLoadFailure(t *testing.T) {
	reader := &countingRecordReader{err: errors.New("store down")}
	c := NewRecords(reader, NewMemory(time.Minute, 100), discardLogger())

	_, err := c.Resolve(context.Background(), []string{"c1"})
	assert.Error(t, err)
}

func TestRecordsPutOverridesCachedHolder(t *testing.T) {
	reader := &countingRecordReader{records: map[string]domain.CourseRecord{
		"c1": {CourseID: "c1", HolderID: "old", NetScore: 68},
	}}
	c := NewRecords(reader, NewMemory(time.Minute, 100), discardLogger())
	ctx := context.Background()

	_, err := c.Resolve(ctx, []string{"c1"})
	require.NoError(t, err)

	c.Put(ctx, domain.CourseRecord{CourseID: "c1", HolderID: "new", NetScore: 63})

	resolved, err := c.Resolve(ctx, []string{"c1"})
	require.NoError(t, err)
	require.NotNil(t, resolved["c1"])
	assert.Equal(t, "new", resolved["c1"].HolderID)
	assert.Equal(t, 63, resolved["c1"].NetScore)
	assert.Equal(t, 1, reader.reads, "the write-through avoids a reload")
}

func TestRecordsBeatsAgainstResolved(t *testing.T) {
	reader := &countingRecordReader{records: map[string]domain.CourseRecord{
		"c1": {CourseID: "c1", HolderID: "champ", NetScore: 64},
	}}
	c := NewRecords(reader, NewMemory(time.Minute, 100), discardLogger())

	resolved, err := c.Resolve(context.Background(), []string{"c1", "c2"})
	require.NoError(t, err)

	assert.False(t, resolved["c1"].Beats(64), "matching the record does not take it")
	assert.True(t, resolved["c1"].Beats(63))
	assert.True(t, resolved["c2"].Beats(90), "any round at an unrecorded course takes the record")
}
