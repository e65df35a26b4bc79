package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordSink struct {
	uploads int
	batches int
	flushed bool
	err     error
}

func (r *recordSink) RecordUpload(UploadEvent) error {
	r.uploads++
	return r.err
}

func (r *recordSink) RecordBatch(BatchSummary) error {
	r.batches++
	return nil
}

func (r *recordSink) Flush() error {
	r.flushed = true
	return r.err
}

type uploadOnly struct{ uploads int }

func (u *uploadOnly) RecordUpload(UploadEvent) error {
	u.uploads++
	return nil
}

func TestMultiSinkForwards(t *testing.T) {
	s1 := &recordSink{}
	s2 := &uploadOnly{}
	m := NewMultiSink(s1, s2)

	assert.NoError(t, m.RecordUpload(UploadEvent{Name: "T09A", Status: StatusCreated}))
	assert.NoError(t, m.RecordBatch(BatchSummary{Created: 1}))
	assert.NoError(t, m.Flush())

	assert.Equal(t, 1, s1.uploads)
	assert.Equal(t, 1, s1.batches)
	assert.True(t, s1.flushed)
	assert.Equal(t, 1, s2.uploads)
}

func TestMultiSinkStopsOnFirstError(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &uploadOnly{}
	m := NewMultiSink(s1, s2)

	assert.ErrorIs(t, m.RecordUpload(UploadEvent{}), boom)
	assert.Zero(t, s2.uploads)
	assert.ErrorIs(t, m.Flush(), boom)
}
