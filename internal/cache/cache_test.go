package cache

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

// redis поднят не везде, поэтому проверяем главное свойство обёртки:
// при недоступном сервере она не роняет вызывающий код.

func unreachable(t *testing.T) *Service {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel) // не шуметь в тестах
	return New(Options{Addr: "127.0.0.1:1"}, logger)
}

func TestCheckRateLimitFailsOpen(t *testing.T) {
	s := unreachable(t)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	res := s.CheckRateLimit(ctx, "otp:send:+79991234567", 5, time.Hour)
	if !res.Allowed {
		t.Fatal("лимитер закрылся при недоступном redis, ждали fail-open")
	}
}

func TestGetMissOnError(t *testing.T) {
	s := unreachable(t)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, ok := s.Get(ctx, "some-key"); ok {
		t.Fatal("Get вернул попадание при недоступном redis")
	}
	if s.SIsMember(ctx, "presence:online", "1") {
		t.Fatal("SIsMember вернул true при недоступном redis")
	}
}

func TestConnectFailsFast(t *testing.T) {
	s := unreachable(t)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := s.Connect(ctx); err == nil {
		t.Fatal("Connect к закрытому порту прошёл без ошибки")
	}
}
