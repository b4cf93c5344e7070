package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	errs    []error
	tags    []map[string]string
	flushed time.Duration
}

func (r *recorder) CaptureException(err error, tags map[string]string) {
	r.errs = append(r.errs, err)
	r.tags = append(r.tags, tags)
}
func (r *recorder) Recover()              {}
func (r *recorder) Flush(d time.Duration) { r.flushed = d }

func TestInitAndCapture(t *testing.T) {
	rec := &recorder{}
	prev := Init(rec)
	defer Init(prev)

	CaptureException(errors.New("boom"), Tags("window", "2"))
	CaptureException(nil, nil)
	Flush(time.Second)

	assert.Len(t, rec.errs, 1)
	assert.Equal(t, map[string]string{"window": "2"}, rec.tags[0])
	assert.Equal(t, time.Second, rec.flushed)

	assert.Same(t, rec, Init(nil))
}

func TestTags(t *testing.T) {
	assert.Equal(t, map[string]string{"a": "1"}, Tags("a", "1", "b", "", "dangling"))
	assert.Empty(t, Tags())
}
