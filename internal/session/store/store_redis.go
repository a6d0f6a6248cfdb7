package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"dim/internal/sentinel"
	"dim/internal/session/models"
	"dim/pkg/domain"
)

const (
	challengeKeyPrefix = "dim:auth:challenge:"
	sessionKeyPrefix   = "dim:session:"
	jtiKeyPrefix       = "dim:session:jti:"
	accountKeyPrefix   = "dim:session:account:"

	// maxSessionsPerAccount caps how many sessions ListByAccount loads.
	maxSessionsPerAccount = 100
)

// RedisStore shares challenges and sessions between agent instances. Keys
// expire with the entry they hold, so no sweeper is needed.
type RedisStore struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func sessionKey(id domain.SessionID) string { return sessionKeyPrefix + id.String() }

func accountKey(account domain.Address) string {
	return accountKeyPrefix + strings.ToLower(account.String())
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
}

func (s *RedisStore) PutChallenge(ctx context.Context, c *models.Challenge) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	ttl := time.Until(c.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("challenge already expired: %w", sentinel.ErrInvalidInput)
	}
	if err := s.client.Set(ctx, challengeKeyPrefix+c.ID.String(), data, ttl).Err(); err != nil {
		return unavailable("put challenge", err)
	}
	return nil
}

// TakeChallenge reads and deletes the challenge in one GETDEL, so two
// concurrent verifications cannot both consume it.
func (s *RedisStore) TakeChallenge(ctx context.Context, id domain.ChallengeID, now time.Time) (*models.Challenge, error) {
	data, err := s.client.GetDel(ctx, challengeKeyPrefix+id.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("challenge not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("take challenge", err)
	}
	var c models.Challenge
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("unmarshal challenge: %w", err)
	}
	if c.Expired(now) {
		return nil, fmt.Errorf("challenge expired: %w", sentinel.ErrNotFound)
	}
	return &c, nil
}

func (s *RedisStore) CreateSession(ctx context.Context, session *models.Session) error {
	if session == nil {
		return fmt.Errorf("session is required: %w", sentinel.ErrInvalidInput)
	}
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired: %w", sentinel.ErrInvalidInput)
	}

	ok, err := s.client.SetNX(ctx, sessionKey(session.ID), data, ttl).Result()
	if err != nil {
		return unavailable("create session", err)
	}
	if !ok {
		return fmt.Errorf("session exists: %w", sentinel.ErrConflict)
	}
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if session.JTI != "" {
			pipe.Set(ctx, jtiKeyPrefix+session.JTI, session.ID.String(), ttl)
		}
		pipe.SAdd(ctx, accountKey(session.Account), session.ID.String())
		pipe.Expire(ctx, accountKey(session.Account), ttl+time.Hour)
		return nil
	})
	if err != nil {
		return unavailable("index session", err)
	}
	return nil
}

func (s *RedisStore) FindSession(ctx context.Context, id domain.SessionID) (*models.Session, error) {
	return s.get(ctx, sessionKey(id))
}

func (s *RedisStore) FindByJTI(ctx context.Context, jti string) (*models.Session, error) {
	raw, err := s.client.Get(ctx, jtiKeyPrefix+jti).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("find session by jti", err)
	}
	id, err := domain.ParseSessionID(raw)
	if err != nil {
		return nil, fmt.Errorf("parse session id: %w", err)
	}
	return s.get(ctx, sessionKey(id))
}

func (s *RedisStore) get(ctx context.Context, key string) (*models.Session, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("find session", err)
	}
	return decodeSession(data)
}

func decodeSession(data []byte) (*models.Session, error) {
	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &session, nil
}

func (s *RedisStore) ListByAccount(ctx context.Context, account domain.Address) ([]*models.Session, error) {
	setKey := accountKey(account)
	ids, err := s.client.SRandMemberN(ctx, setKey, maxSessionsPerAccount).Result()
	if err != nil {
		return nil, unavailable("list session ids", err)
	}
	if len(ids) == 0 {
		return []*models.Session{}, nil
	}

	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.Get(ctx, sessionKeyPrefix+id)
	}
	// Expired members come back as redis.Nil and are pruned below.
	_, _ = pipe.Exec(ctx)

	sessions := make([]*models.Session, 0, len(ids))
	var stale []any
	for i, cmd := range cmds {
		data, err := cmd.Bytes()
		if errors.Is(err, redis.Nil) {
			stale = append(stale, ids[i])
			continue
		}
		if err != nil {
			return nil, unavailable("list sessions", err)
		}
		if session, err := decodeSession(data); err == nil {
			sessions = append(sessions, session)
		}
	}
	if len(stale) > 0 {
		s.client.SRem(ctx, setKey, stale...)
	}
	sortNewestFirst(sessions)
	return sessions, nil
}

// RevokeSession marks the session revoked under an optimistic lock on its key.
func (s *RedisStore) RevokeSession(ctx context.Context, id domain.SessionID, now time.Time) error {
	key := sessionKey(id)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return fmt.Errorf("session not found: %w", sentinel.ErrNotFound)
		}
		if err != nil {
			return unavailable("get session for revoke", err)
		}
		session, err := decodeSession(data)
		if err != nil {
			return err
		}
		if !session.Revoke(now) {
			return ErrSessionRevoked
		}
		updated, err := json.Marshal(session)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, updated, redis.KeepTTL)
			return nil
		})
		return err
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("concurrent session update: %w", sentinel.ErrConflict)
	}
	return err
}

// DeleteExpired is a no-op: Redis expires the keys itself.
func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
