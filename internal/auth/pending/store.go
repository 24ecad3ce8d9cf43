package pending

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Promise30/promise-auth/internal/auth"
	"github.com/Promise30/promise-auth/internal/utils"

	"github.com/redis/go-redis/v9"
)

// TTL bounds how long a callback identity stays valid while the user fills
// in the confirmation form.
const TTL = 10 * time.Minute

// Store keeps the normalized external identity between the provider callback
// and the user's confirmation submit. Entries are opaque, short-lived, and
// referenced from the client only by the pending cookie.
type Store struct {
	client *redis.Client
	prefix string
}

func NewStore(client *redis.Client) *Store {
	return &Store{
		client: client,
		prefix: "extlogin:",
	}
}

func (s *Store) key(id string) string {
	return s.prefix + id
}

// Save stores the identity under a fresh opaque id and returns the id.
func (s *Store) Save(ctx context.Context, identity *auth.Identity) (string, error) {
	id := utils.RandomString(32)

	data, err := json.Marshal(identity)
	if err != nil {
		return "", fmt.Errorf("pending: failed to marshal: %w", err)
	}

	if err := s.client.Set(ctx, s.key(id), data, TTL).Err(); err != nil {
		return "", fmt.Errorf("pending: failed to store: %w", err)
	}
	return id, nil
}

// Load returns the stored identity, or nil when the entry expired or never
// existed. An absent entry is a flow error for the caller, not a store error.
func (s *Store) Load(ctx context.Context, id string) (*auth.Identity, error) {
	if id == "" {
		return nil, nil
	}

	val, err := s.client.Get(ctx, s.key(id)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var identity auth.Identity
	if err := json.Unmarshal([]byte(val), &identity); err != nil {
		return nil, fmt.Errorf("pending: failed to unmarshal: %w", err)
	}
	return &identity, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, s.key(id)).Err()
}
