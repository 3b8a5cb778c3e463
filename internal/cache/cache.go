package cache

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Service — обёртка над redis: скаляры с TTL, множества, хэши и
// rate-limiter на sorted set. Создаётся явно в app.Run и передаётся
// зависимостям; жизненный цикл — Connect/Close.
//
// Политика при недоступном redis — fail-open: чтения возвращают нулевое
// значение, CheckRateLimit разрешает запрос. Кэш не должен ронять основной
// поток обработки.
type Service struct {
	client *redis.Client
	logger *logrus.Logger
}

type Options struct {
	Addr     string
	Password string
	DB       int
}

func New(opts Options, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	return &Service{client: client, logger: logger}
}

func (s *Service) Connect(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (s *Service) Close() error {
	return s.client.Close()
}

// --- скаляры ---

func (s *Service) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache set failed")
		return err
	}
	return nil
}

// Get возвращает "" и ok=false как при промахе, так и при ошибке бэкенда.
func (s *Service) Get(ctx context.Context, key string) (string, bool) {
	v, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache get failed")
		return "", false
	}
	return v, true
}

func (s *Service) Delete(ctx context.Context, keys ...string) {
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		s.logger.WithError(err).Warn("cache del failed")
	}
}

// --- множества ---

func (s *Service) SAdd(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return s.client.SAdd(ctx, key, args...).Err()
}

func (s *Service) SRem(ctx context.Context, key string, members ...string) error {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return s.client.SRem(ctx, key, args...).Err()
}

func (s *Service) SIsMember(ctx context.Context, key, member string) bool {
	ok, err := s.client.SIsMember(ctx, key, member).Result()
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache sismember failed")
		return false
	}
	return ok
}

// --- хэши ---

func (s *Service) HSet(ctx context.Context, key, field, value string) error {
	return s.client.HSet(ctx, key, field, value).Err()
}

func (s *Service) HGet(ctx context.Context, key, field string) (string, bool) {
	v, err := s.client.HGet(ctx, key, field).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache hget failed")
		return "", false
	}
	return v, true
}

func (s *Service) HGetAll(ctx context.Context, key string) map[string]string {
	m, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache hgetall failed")
		return map[string]string{}
	}
	return m
}

func (s *Service) HDel(ctx context.Context, key string, fields ...string) error {
	return s.client.HDel(ctx, key, fields...).Err()
}

func (s *Service) HIncrBy(ctx context.Context, key, field string, incr int64) (int64, error) {
	return s.client.HIncrBy(ctx, key, field, incr).Result()
}

// --- rate limiter ---

type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration // сколько ждать до выхода старейшей записи из окна
}

// CheckRateLimit — скользящее окно на sorted set:
// убрать записи старше окна → посчитать → сравнить с лимитом → добавить текущую.
// При любой ошибке redis — fail-open (Allowed=true).
func (s *Service) CheckRateLimit(ctx context.Context, key string, limit int64, window time.Duration) RateLimitResult {
	now := time.Now()
	cutoff := now.Add(-window)

	if err := s.client.ZRemRangeByScore(ctx, key, "-inf",
		strconv.FormatInt(cutoff.UnixMilli(), 10)).Err(); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("rate limit trim failed, fail-open")
		return RateLimitResult{Allowed: true, Remaining: limit}
	}

	count, err := s.client.ZCard(ctx, key).Result()
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("rate limit count failed, fail-open")
		return RateLimitResult{Allowed: true, Remaining: limit}
	}

	if count >= limit {
		retry := window
		oldest, err := s.client.ZRangeWithScores(ctx, key, 0, 0).Result()
		if err == nil && len(oldest) > 0 {
			oldestAt := time.UnixMilli(int64(oldest[0].Score))
			retry = oldestAt.Add(window).Sub(now)
			if retry < 0 {
				retry = 0
			}
		}
		return RateLimitResult{Allowed: false, Remaining: 0, RetryAfter: retry}
	}

	member := strconv.FormatInt(now.UnixNano(), 10)
	if err := s.client.ZAdd(ctx, key, redis.Z{
		Score:  float64(now.UnixMilli()),
		Member: member,
	}).Err(); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("rate limit add failed, fail-open")
		return RateLimitResult{Allowed: true, Remaining: limit - count}
	}
	// ключ не должен жить дольше окна после последнего события
	_ = s.client.Expire(ctx, key, window).Err()

	return RateLimitResult{Allowed: true, Remaining: limit - count - 1}
}
