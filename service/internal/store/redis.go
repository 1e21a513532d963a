package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/slaphard/slaphard/service/internal/models"
)

// RedisStore is the external, multi-process RoomStore implementation,
// extended with by-code and by-user-id secondary indexes alongside the
// primary by-id entry, sharing one TTL refreshed on every SaveRoom.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore wraps client. ttl<=0 uses DefaultTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

func roomIDKey(roomID string) string   { return fmt.Sprintf("slaphard:room:id:%s", roomID) }
func roomCodeKey(code string) string   { return fmt.Sprintf("slaphard:room:code:%s", code) }
func userRoomKey(userID string) string { return fmt.Sprintf("slaphard:user:room:%s", userID) }

// GetRoomByID fetches and decodes the by-id entry.
func (s *RedisStore) GetRoomByID(ctx context.Context, roomID string) (*models.RoomState, error) {
	data, err := s.client.Get(ctx, roomIDKey(roomID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: redis get room %s: %w", roomID, err)
	}
	var room models.RoomState
	if err := json.Unmarshal([]byte(data), &room); err != nil {
		return nil, fmt.Errorf("store: decode room %s: %w", roomID, err)
	}
	return &room, nil
}

// GetRoomByCode resolves the code index, then GetRoomByID.
func (s *RedisStore) GetRoomByCode(ctx context.Context, roomCode string) (*models.RoomState, error) {
	roomID, err := s.client.Get(ctx, roomCodeKey(roomCode)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: redis get room code %s: %w", roomCode, err)
	}
	return s.GetRoomByID(ctx, roomID)
}

// SaveRoom writes the by-id, by-code, and every seated member's by-user-id
// entry in one pipeline so all three indexes land with the same TTL
// atomically from the client's perspective, and every gameplay mutation
// (which calls this) refreshes the membership index along with the room.
func (s *RedisStore) SaveRoom(ctx context.Context, room *models.RoomState) error {
	data, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("store: encode room %s: %w", room.RoomID, err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, roomIDKey(room.RoomID), data, s.ttl)
	pipe.Set(ctx, roomCodeKey(room.RoomCode), room.RoomID, s.ttl)
	for _, p := range room.Players {
		pipe.Set(ctx, userRoomKey(p.UserID), room.RoomID, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: redis save room %s: %w", room.RoomID, err)
	}
	return nil
}

// DeleteRoom removes the by-id and by-code entries, along with every
// member's by-user-id entry still pointing at roomID.
func (s *RedisStore) DeleteRoom(ctx context.Context, roomID string) error {
	room, err := s.GetRoomByID(ctx, roomID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, roomIDKey(roomID))
	if room != nil {
		pipe.Del(ctx, roomCodeKey(room.RoomCode))
		for _, p := range room.Players {
			if cur, err := s.client.Get(ctx, userRoomKey(p.UserID)).Result(); err == nil && cur == roomID {
				pipe.Del(ctx, userRoomKey(p.UserID))
			}
		}
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: redis delete room %s: %w", roomID, err)
	}
	return nil
}

// SetUserRoom records userID's current room, TTL-bound like the room
// entries themselves.
func (s *RedisStore) SetUserRoom(ctx context.Context, userID, roomID string) error {
	if err := s.client.Set(ctx, userRoomKey(userID), roomID, s.ttl).Err(); err != nil {
		return fmt.Errorf("store: redis set user room %s: %w", userID, err)
	}
	return nil
}

// GetUserRoom returns userID's current room id, or ErrNotFound.
func (s *RedisStore) GetUserRoom(ctx context.Context, userID string) (string, error) {
	roomID, err := s.client.Get(ctx, userRoomKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("store: redis get user room %s: %w", userID, err)
	}
	return roomID, nil
}

// ClearUserRoom deletes userID's membership entry.
func (s *RedisStore) ClearUserRoom(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, userRoomKey(userID)).Err(); err != nil {
		return fmt.Errorf("store: redis clear user room %s: %w", userID, err)
	}
	return nil
}

var _ RoomStore = (*RedisStore)(nil)
