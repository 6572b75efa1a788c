package prehandlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/conduit-lang/plumber/internal/plumbing"
	"github.com/conduit-lang/plumber/internal/web/router"
)

const defaultSessionPrefix = "plumber:session:"

// ErrSessionNotFound is returned when no session exists for an ID
var ErrSessionNotFound = errors.New("session not found")

// Session is the data stored for a session ID
type Session struct {
	ID        string         `json:"id"`
	Values    map[string]any `json:"values"`
	CreatedAt time.Time      `json:"created_at"`
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// SessionStore keeps sessions in Redis as JSON under a key prefix
type SessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSessionStore connects a session store to Redis
func NewSessionStore(config RedisConfig, ttl time.Duration) *SessionStore {
	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,

		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	return NewSessionStoreFromClient(client, config.KeyPrefix, ttl)
}

// NewSessionStoreFromClient creates a session store on an existing client
func NewSessionStoreFromClient(client *redis.Client, keyPrefix string, ttl time.Duration) *SessionStore {
	if keyPrefix == "" {
		keyPrefix = defaultSessionPrefix
	}
	return &SessionStore{client: client, prefix: keyPrefix, ttl: ttl}
}

// Create stores a new session holding values and returns it
func (s *SessionStore) Create(ctx context.Context, values map[string]any) (*Session, error) {
	session := &Session{
		ID:        uuid.New().String(),
		Values:    values,
		CreatedAt: time.Now().UTC(),
	}

	data, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("json marshal error: %w", err)
	}
	if err := s.client.Set(ctx, s.key(session.ID), data, s.ttl).Err(); err != nil {
		return nil, fmt.Errorf("redis set error: %w", err)
	}
	return session, nil
}

// Get retrieves a session from Redis
func (s *SessionStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	data, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	var session Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("json unmarshal error: %w", err)
	}
	return &session, nil
}

// Delete removes a session from Redis
func (s *SessionStore) Delete(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del error: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (s *SessionStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (s *SessionStore) Close() error {
	return s.client.Close()
}

func (s *SessionStore) key(sessionID string) string {
	return s.prefix + sessionID
}

// LoadSession assigns the session named by cookieName. Requests without the
// cookie, or whose session has expired, stop with a 401.
func LoadSession(store *SessionStore, cookieName string) plumbing.PreFunc {
	return func(r *http.Request) (any, error) {
		cookie, err := r.Cookie(cookieName)
		if err != nil || cookie.Value == "" {
			return nil, router.Unauthorized("Missing session", ErrSessionNotFound)
		}

		session, err := store.Get(r.Context(), cookie.Value)
		if errors.Is(err, ErrSessionNotFound) {
			return nil, router.Unauthorized("Session expired", err)
		}
		if err != nil {
			return nil, err
		}
		return session, nil
	}
}
