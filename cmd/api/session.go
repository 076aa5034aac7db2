package main

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var errNoSession = errors.New("session not found")

// sessionStore issues and resolves login sessions.
type sessionStore interface {
	Create(ctx context.Context, user string, ttl time.Duration) (string, error)
	Lookup(ctx context.Context, sid string) (string, error)
}

const sessionKeyPrefix = "session:"

type redisSessions struct {
	client redis.UniversalClient
}

func (s redisSessions) Create(ctx context.Context, user string, ttl time.Duration) (string, error) {
	sid := uuid.NewString()
	if err := s.client.Set(ctx, sessionKeyPrefix+sid, user, ttl).Err(); err != nil {
		return "", err
	}
	return sid, nil
}

func (s redisSessions) Lookup(ctx context.Context, sid string) (string, error) {
	user, err := s.client.Get(ctx, sessionKeyPrefix+sid).Result()
	if errors.Is(err, redis.Nil) || (err == nil && user == "") {
		return "", errNoSession
	}
	return user, err
}

// memorySessions backs local runs without Redis.
type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

type memorySession struct {
	user    string
	expires time.Time
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: make(map[string]memorySession), now: time.Now}
}

func (s *memorySessions) Create(ctx context.Context, user string, ttl time.Duration) (string, error) {
	sid := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sid] = memorySession{user: user, expires: s.now().Add(ttl)}
	return sid, nil
}

func (s *memorySessions) Lookup(ctx context.Context, sid string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sid]
	if !ok {
		return "", errNoSession
	}
	if !s.now().Before(sess.expires) {
		delete(s.sessions, sid)
		return "", errNoSession
	}
	return sess.user, nil
}
