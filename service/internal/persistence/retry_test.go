package persistence

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeJournal counts calls and can be configured to fail the first N calls
// to any method before succeeding.
type fakeJournal struct {
	failCount int32
	calls     int32
}

func (f *fakeJournal) maybeFail() error {
	atomic.AddInt32(&f.calls, 1)
	if atomic.AddInt32(&f.failCount, -1) >= 0 {
		return errors.New("fake failure")
	}
	return nil
}

func (f *fakeJournal) UpsertRoomMetadata(context.Context, RoomMetadata) error { return f.maybeFail() }
func (f *fakeJournal) WriteRoomSnapshot(context.Context, string, TransitionType, int, []byte) error {
	return f.maybeFail()
}
func (f *fakeJournal) MarkRoomDeleted(context.Context, string) error { return f.maybeFail() }
func (f *fakeJournal) StartMatch(context.Context, string) (string, error) {
	if err := f.maybeFail(); err != nil {
		return "", err
	}
	return "match-1", nil
}
func (f *fakeJournal) FinishMatch(context.Context, string, *string, MatchSummary) error {
	return f.maybeFail()
}
func (f *fakeJournal) AppendMatchEvent(context.Context, string, MatchEventType, []byte) error {
	return f.maybeFail()
}

func discardLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestRetryOnceSucceedsOnSecondAttempt(t *testing.T) {
	fake := &fakeJournal{failCount: 1}
	r := NewRetryOnce(fake, discardLogger(), time.Millisecond)

	err := r.UpsertRoomMetadata(context.Background(), RoomMetadata{RoomID: "room-1"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, fake.calls)
}

func TestRetryOnceSwallowsAfterSecondFailure(t *testing.T) {
	fake := &fakeJournal{failCount: 5}
	r := NewRetryOnce(fake, discardLogger(), time.Millisecond)

	err := r.WriteRoomSnapshot(context.Background(), "room-1", TransitionCreate, 1, []byte("{}"))
	assert.NoError(t, err)
	assert.EqualValues(t, 2, fake.calls)
}

func TestRetryOnceStartMatchPropagatesFailure(t *testing.T) {
	fake := &fakeJournal{failCount: 5}
	r := NewRetryOnce(fake, discardLogger(), time.Millisecond)

	matchID, err := r.StartMatch(context.Background(), "room-1")
	assert.Error(t, err)
	assert.Empty(t, matchID)
	assert.EqualValues(t, 2, fake.calls)
}

func TestRetryOnceStartMatchReturnsIDOnSuccess(t *testing.T) {
	fake := &fakeJournal{}
	r := NewRetryOnce(fake, discardLogger(), time.Millisecond)

	matchID, err := r.StartMatch(context.Background(), "room-1")
	require.NoError(t, err)
	assert.Equal(t, "match-1", matchID)
}
