package settings

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheTTL = 24 * time.Hour

// Settings is the per-user preference record
type Settings struct {
	UserID                string    `json:"user_id"`
	NotificationThreshold float64   `json:"notification_threshold"`
	Theme                 string    `json:"theme"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Defaults returns the settings a fresh account starts with
func Defaults(userID string) Settings {
	return Settings{
		UserID:                userID,
		NotificationThreshold: 5.0,
		Theme:                 "system",
	}
}

// Store persists user settings in PostgreSQL with a Redis cache in front.
// The cache lets the client paint the stored theme immediately, before the
// database round trip resolves.
type Store struct {
	redisClient *redis.Client
	postgres    *sql.DB
}

// NewStore creates a new settings store instance
func NewStore(redisClient *redis.Client, postgres *sql.DB) *Store {
	return &Store{
		redisClient: redisClient,
		postgres:    postgres,
	}
}

// Get returns the settings for a user, trying Redis first. A user with no
// stored record gets the defaults.
func (s *Store) Get(ctx context.Context, userID string) (*Settings, error) {
	if cached := s.getFromRedis(ctx, userID); cached != nil {
		return cached, nil
	}

	var settings Settings
	err := s.postgres.QueryRowContext(ctx,
		`SELECT user_id, notification_threshold, theme, updated_at FROM user_settings WHERE user_id = $1`,
		userID,
	).Scan(&settings.UserID, &settings.NotificationThreshold, &settings.Theme, &settings.UpdatedAt)
	if err == sql.ErrNoRows {
		defaults := Defaults(userID)
		return &defaults, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}

	s.storeInRedis(ctx, settings)
	return &settings, nil
}

// Upsert stores the settings in both PostgreSQL and Redis
func (s *Store) Upsert(ctx context.Context, settings Settings) error {
	settings.UpdatedAt = time.Now().UTC()

	_, err := s.postgres.ExecContext(ctx, `
		INSERT INTO user_settings (user_id, notification_threshold, theme, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET
			notification_threshold = EXCLUDED.notification_threshold,
			theme = EXCLUDED.theme,
			updated_at = EXCLUDED.updated_at
	`, settings.UserID, settings.NotificationThreshold, settings.Theme, settings.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert settings: %w", err)
	}

	s.storeInRedis(ctx, settings)
	return nil
}

// CachedTheme returns the cached theme for a user without touching the
// database. An empty string means no cached value.
func (s *Store) CachedTheme(ctx context.Context, userID string) string {
	if cached := s.getFromRedis(ctx, userID); cached != nil {
		return cached.Theme
	}
	return ""
}

func (s *Store) getFromRedis(ctx context.Context, userID string) *Settings {
	data, err := s.redisClient.Get(ctx, cacheKey(userID)).Result()
	if err != nil {
		return nil
	}

	var settings Settings
	if err := json.Unmarshal([]byte(data), &settings); err != nil {
		return nil
	}
	return &settings
}

func (s *Store) storeInRedis(ctx context.Context, settings Settings) {
	data, err := json.Marshal(settings)
	if err != nil {
		return
	}
	s.redisClient.Set(ctx, cacheKey(settings.UserID), data, cacheTTL)
}

func cacheKey(userID string) string {
	return fmt.Sprintf("settings:%s", userID)
}
