// blacklist_cache.go — LRU-кэш отозванных refresh token с TTL.
// Обёртка над hashicorp/golang-lru/v2/expirable.
package service

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus-метрики кэша.
var (
	blacklistCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sd_blacklist_cache_hits_total",
		Help: "Общее количество попаданий в кэш отозванных refresh token.",
	})
	blacklistCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sd_blacklist_cache_misses_total",
		Help: "Общее количество промахов кэша отозванных refresh token.",
	})
)

// BlacklistCache — кэш jti отозванных refresh token.
// Попадание означает, что токен точно отозван; промах ничего не гарантирует,
// окончательное решение принимает БД.
type BlacklistCache struct {
	cache *expirable.LRU[string, struct{}]
}

// NewBlacklistCache создаёт кэш.
// ttl — время жизни refresh token: после него токен отклоняется по exp.
func NewBlacklistCache(maxSize int, ttl time.Duration) *BlacklistCache {
	return &BlacklistCache{
		cache: expirable.NewLRU[string, struct{}](maxSize, nil, ttl),
	}
}

// Revoked сообщает, что jti уже известен как отозванный.
func (c *BlacklistCache) Revoked(jti string) bool {
	if _, ok := c.cache.Get(jti); ok {
		blacklistCacheHitsTotal.Inc()
		return true
	}
	blacklistCacheMissesTotal.Inc()
	return false
}

// Add запоминает отозванный jti.
func (c *BlacklistCache) Add(jti string) {
	c.cache.Add(jti, struct{}{})
}

// Len возвращает число записей в кэше.
func (c *BlacklistCache) Len() int {
	return c.cache.Len()
}
