package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// QueryRateLimiter acota cuántas consultas de investigación acepta un cliente
// dentro de una ventana. Una implementación nil permite todo.
type QueryRateLimiter interface {
	Allow(key string) bool
}

const redisQueryAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

type redisQueryRateLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// NewRedisQueryRateLimiter crea un limitador por ventana fija sobre Redis.
// Cada consulta dispara varias llamadas al LLM, por eso el límite vive delante
// del pipeline y no dentro.
func NewRedisQueryRateLimiter(client *redis.Client, window time.Duration, max int) QueryRateLimiter {
	if client == nil {
		return nil
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisQueryRateLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "research:rl:",
	}
}

// Allow falla abierto: ante Redis caído o error del script deja pasar.
func (l *redisQueryRateLimiter) Allow(key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	normalizedKey := strings.ToLower(strings.TrimSpace(key))
	if normalizedKey == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	redisKey := l.prefix + normalizedKey
	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	count, err := l.client.Eval(ctx, redisQueryAllowScript, []string{redisKey}, seconds).Int()
	if err != nil {
		return true
	}
	return count <= l.max
}
