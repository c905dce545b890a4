package repository

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/tickerhub/stock-ticker/pkg/models"
)

const (
	accountKeyPrefix   = "account:"
	watchlistKeyPrefix = "watchlist:"
)

// Compile-time check to ensure RedisStore implements AccountStore
var _ AccountStore = (*RedisStore)(nil)

// RedisStore keeps each account in a hash (account:<email>) and its
// watchlist in a second hash (watchlist:<email>) keyed by symbol. HSET gives
// the replace-if-exists subscription semantics for free.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (r *RedisStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	fields, err := r.client.HGetAll(ctx, accountKeyPrefix+email).Result()
	if err != nil {
		return nil, fmt.Errorf("redis account lookup: %w", err)
	}
	if len(fields) == 0 {
		return nil, ErrNotFound
	}

	acct := &models.Account{
		Name:           fields["name"],
		Email:          fields["email"],
		CredentialHash: fields["credential"],
	}

	watchlist, err := r.client.HGetAll(ctx, watchlistKeyPrefix+email).Result()
	if err != nil {
		return nil, fmt.Errorf("redis watchlist lookup: %w", err)
	}
	for sym, raw := range watchlist {
		entry, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			// Corrupted entry prices are healed at reconciliation, not here.
			entry = 0
		}
		acct.Subscriptions = append(acct.Subscriptions, models.Subscription{Symbol: sym, EntryPrice: entry})
	}
	sort.Slice(acct.Subscriptions, func(i, j int) bool {
		return acct.Subscriptions[i].Symbol < acct.Subscriptions[j].Symbol
	})

	return acct, nil
}

func (r *RedisStore) Create(ctx context.Context, name, email, credentialHash string) (*models.Account, error) {
	key := accountKeyPrefix + email

	// Claim the email by setting one field only if the key is new.
	claimed, err := r.client.HSetNX(ctx, key, "email", email).Result()
	if err != nil {
		return nil, fmt.Errorf("redis account create: %w", err)
	}
	if !claimed {
		return nil, ErrDuplicateEmail
	}

	if err := r.client.HSet(ctx, key, "name", name, "credential", credentialHash).Err(); err != nil {
		return nil, fmt.Errorf("redis account create: %w", err)
	}

	return &models.Account{Name: name, Email: email, CredentialHash: credentialHash}, nil
}

func (r *RedisStore) AddSubscription(ctx context.Context, email, symbol string, entryPrice float64) error {
	raw := strconv.FormatFloat(entryPrice, 'f', 2, 64)
	if err := r.client.HSet(ctx, watchlistKeyPrefix+email, symbol, raw).Err(); err != nil {
		return fmt.Errorf("redis add subscription: %w", err)
	}
	return nil
}

func (r *RedisStore) RemoveSubscription(ctx context.Context, email, symbol string) error {
	if err := r.client.HDel(ctx, watchlistKeyPrefix+email, symbol).Err(); err != nil {
		return fmt.Errorf("redis remove subscription: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
