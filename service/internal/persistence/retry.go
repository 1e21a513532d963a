package persistence

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// RetryOnce wraps a Journal so gameplay never blocks on or fails because of
// a persistence hiccup: every call attempts once, retries once after a
// short backoff on failure, and logs-and-swallows if the retry also fails.
type RetryOnce struct {
	inner   Journal
	log     *logrus.Logger
	backoff time.Duration
}

// NewRetryOnce wraps inner. backoff<=0 uses a 50ms default.
func NewRetryOnce(inner Journal, log *logrus.Logger, backoff time.Duration) *RetryOnce {
	if backoff <= 0 {
		backoff = 50 * time.Millisecond
	}
	return &RetryOnce{inner: inner, log: log, backoff: backoff}
}

func (r *RetryOnce) attempt(ctx context.Context, op string, fields logrus.Fields, fn func() error) {
	if err := fn(); err == nil {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(r.backoff):
	}
	if err := fn(); err != nil {
		r.log.WithFields(fields).WithError(err).WithField("op", op).Warn("persistence: giving up after retry")
	}
}

func (r *RetryOnce) UpsertRoomMetadata(ctx context.Context, meta RoomMetadata) error {
	r.attempt(ctx, "UpsertRoomMetadata", logrus.Fields{"roomId": meta.RoomID}, func() error {
		return r.inner.UpsertRoomMetadata(ctx, meta)
	})
	return nil
}

func (r *RetryOnce) WriteRoomSnapshot(ctx context.Context, roomID string, transition TransitionType, version int, payload []byte) error {
	r.attempt(ctx, "WriteRoomSnapshot", logrus.Fields{"roomId": roomID, "transition": transition}, func() error {
		return r.inner.WriteRoomSnapshot(ctx, roomID, transition, version, payload)
	})
	return nil
}

func (r *RetryOnce) MarkRoomDeleted(ctx context.Context, roomID string) error {
	r.attempt(ctx, "MarkRoomDeleted", logrus.Fields{"roomId": roomID}, func() error {
		return r.inner.MarkRoomDeleted(ctx, roomID)
	})
	return nil
}

// StartMatch gets the same single retry as every other call, but a failure
// after that retry is not swallowed: it is logged and the caller gets back
// an empty matchID and the error. Match-scoped writes downstream
// of a failed StartMatch simply have nowhere to attach and are dropped by
// their own log-and-swallow paths.
func (r *RetryOnce) StartMatch(ctx context.Context, roomID string) (string, error) {
	matchID, err := r.inner.StartMatch(ctx, roomID)
	if err == nil {
		return matchID, nil
	}
	select {
	case <-ctx.Done():
	case <-time.After(r.backoff):
	}
	matchID, err = r.inner.StartMatch(ctx, roomID)
	if err != nil {
		r.log.WithField("roomId", roomID).WithError(err).Warn("persistence: giving up on StartMatch after retry")
		return "", err
	}
	return matchID, nil
}

func (r *RetryOnce) FinishMatch(ctx context.Context, matchID string, winnerUserID *string, summary MatchSummary) error {
	r.attempt(ctx, "FinishMatch", logrus.Fields{"matchId": matchID}, func() error {
		return r.inner.FinishMatch(ctx, matchID, winnerUserID, summary)
	})
	return nil
}

func (r *RetryOnce) AppendMatchEvent(ctx context.Context, matchID string, eventType MatchEventType, payload []byte) error {
	r.attempt(ctx, "AppendMatchEvent", logrus.Fields{"matchId": matchID, "eventType": eventType}, func() error {
		return r.inner.AppendMatchEvent(ctx, matchID, eventType, payload)
	})
	return nil
}

var _ Journal = (*RetryOnce)(nil)
