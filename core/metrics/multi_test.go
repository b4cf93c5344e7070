package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordSink struct {
	windows int
	runs    int
	err     error
}

func (r *recordSink) RecordWindow(WindowEvent) error {
	r.windows++
	return r.err
}

func (r *recordSink) RecordRun(RunEvent) error {
	r.runs++
	return nil
}

// windowOnly does not implement RunRecorder.
type windowOnly struct{ n int }

func (w *windowOnly) RecordWindow(WindowEvent) error {
	w.n++
	return nil
}

func TestMultiSinkForwards(t *testing.T) {
	s1, s2, s3 := &recordSink{}, &recordSink{}, &windowOnly{}
	m := NewMultiSink(s1, s2, s3)
	require.NoError(t, m.RecordWindow(WindowEvent{Window: 1}))
	require.NoError(t, m.RecordRun(RunEvent{RunID: "r"}))
	require.NoError(t, m.RecordSweepPoint(SweepPoint{}))
	assert.Equal(t, 1, s1.windows)
	assert.Equal(t, 1, s2.runs)
	assert.Equal(t, 1, s3.n)
}

func TestMultiSinkStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	s1, s2 := &recordSink{err: boom}, &recordSink{}
	err := NewMultiSink(s1, s2).RecordWindow(WindowEvent{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s2.windows)
}

func TestRecordRunOptional(t *testing.T) {
	assert.NoError(t, RecordRun(&windowOnly{}, RunEvent{}))
	s := &recordSink{}
	assert.NoError(t, RecordRun(s, RunEvent{}))
	assert.Equal(t, 1, s.runs)
}

type closingSink struct {
	windowOnly
	closed bool
}

func (c *closingSink) Close() { c.closed = true }

func TestMultiSinkClose(t *testing.T) {
	c := &closingSink{}
	NewMultiSink(&windowOnly{}, c).Close()
	assert.True(t, c.closed)
}
