// Package session keeps the per-visitor server-side state: the cart and the
// checkout confirmation token. State is keyed by an opaque session id that
// the cookie session carries.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/DaniDevGS/triven-shop/internal/cart"
)

type State struct {
	Cart          cart.Cart `json:"cart"`
	CheckoutToken string    `json:"checkout_token,omitempty"`
}

func NewState() State {
	return State{Cart: cart.New()}
}

type Store interface {
	Load(ctx context.Context, id string) (State, error)
	Save(ctx context.Context, id string, st State) error
	Delete(ctx context.Context, id string) error
}

type MemoryStore struct {
	mu     sync.Mutex
	states map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: map[string][]byte{}}
}

// Load returns a fresh state for unknown ids.
func (m *MemoryStore) Load(_ context.Context, id string) (State, error) {
	m.mu.Lock()
	raw, ok := m.states[id]
	m.mu.Unlock()
	if !ok {
		return NewState(), nil
	}
	return decode(raw)
}

func (m *MemoryStore) Save(_ context.Context, id string, st State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}
	m.mu.Lock()
	m.states[id] = raw
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.states, id)
	m.mu.Unlock()
	return nil
}

type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, prefix: "storefront:session:", ttl: ttl}
}

func (r *RedisStore) Load(ctx context.Context, id string) (State, error) {
	raw, err := r.client.Get(ctx, r.prefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return NewState(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to load session state: %w", err)
	}
	return decode(raw)
}

// Save refreshes the expiry on every write, so an abandoned session ends
// ttl after its last change.
func (r *RedisStore) Save(ctx context.Context, id string, st State) error {
	raw, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}
	if err := r.client.Set(ctx, r.prefix+id, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context, id string) error {
	if err := r.client.Del(ctx, r.prefix+id).Err(); err != nil {
		return fmt.Errorf("failed to delete session state: %w", err)
	}
	return nil
}

func decode(raw []byte) (State, error) {
	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		return State{}, fmt.Errorf("failed to decode session state: %w", err)
	}
	if st.Cart.Entries == nil {
		st.Cart = cart.New()
	}
	return st, nil
}
