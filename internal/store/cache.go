package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AnshRaj112/todo-backend/internal/models"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix = "cache:"
	// DefaultAccountCacheTTL is how long a cached account lives
	DefaultAccountCacheTTL = 8 * time.Hour
)

// cachedAccount mirrors models.Account including the hash, which the public
// JSON form omits.
type cachedAccount struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash"`
	CreatedAt    time.Time `json:"created_at"`
}

// CachedAccountStore serves FindByID from Redis. Accounts never change after
// creation, so entries never need invalidating. Redis errors fall through to the
// wrapped store.
type CachedAccountStore struct {
	AccountStore
	rdb *redis.Client
	ttl time.Duration
}

func NewCachedAccountStore(inner AccountStore, rdb *redis.Client, ttl time.Duration) *CachedAccountStore {
	if ttl <= 0 {
		ttl = DefaultAccountCacheTTL
	}
	return &CachedAccountStore{AccountStore: inner, rdb: rdb, ttl: ttl}
}

func accountCacheKey(id int64) string {
	return fmt.Sprintf("%saccount:%d", CacheKeyPrefix, id)
}

func (s *CachedAccountStore) Create(ctx context.Context, username, email, passwordHash string) (*models.Account, error) {
	a, err := s.AccountStore.Create(ctx, username, email, passwordHash)
	if err != nil {
		return nil, err
	}
	s.set(ctx, a)
	return a, nil
}

func (s *CachedAccountStore) FindByID(ctx context.Context, id int64) (*models.Account, error) {
	val, err := s.rdb.Get(ctx, accountCacheKey(id)).Result()
	if err == nil {
		var c cachedAccount
		if err := json.Unmarshal([]byte(val), &c); err == nil {
			return &models.Account{
				ID:        c.ID,
				Username:  c.Username,
				Email:     c.Email,
				Password:  c.PasswordHash,
				CreatedAt: c.CreatedAt,
			}, nil
		}
	} else if err != redis.Nil {
		log.Printf("account cache read failed: %v", err)
	}

	a, err := s.AccountStore.FindByID(ctx, id)
	if err != nil || a == nil {
		return a, err
	}
	s.set(ctx, a)
	return a, nil
}

func (s *CachedAccountStore) set(ctx context.Context, a *models.Account) {
	data, err := json.Marshal(cachedAccount{
		ID:           a.ID,
		Username:     a.Username,
		Email:        a.Email,
		PasswordHash: a.Password,
		CreatedAt:    a.CreatedAt,
	})
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, accountCacheKey(a.ID), data, s.ttl).Err(); err != nil {
		log.Printf("account cache write failed: %v", err)
	}
}
