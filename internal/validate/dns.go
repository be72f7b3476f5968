package validate

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

const mxCachePrefix = "mx:v1:"

// MXResolver reports whether a domain is configured to receive mail.
type MXResolver interface {
	HasMX(ctx context.Context, domain string) (bool, error)
}

// NetResolver answers MX queries through the system resolver.
type NetResolver struct {
	resolver *net.Resolver
}

// NewNetResolver builds an MX resolver backed by net.DefaultResolver.
func NewNetResolver() *NetResolver {
	return &NetResolver{resolver: net.DefaultResolver}
}

// HasMX looks up MX records for the domain. NXDOMAIN and an empty record set
// both mean "cannot receive mail" and are not errors.
func (n *NetResolver) HasMX(ctx context.Context, domain string) (bool, error) {
	if domain == "" {
		return false, nil
	}

	records, err := n.resolver.LookupMX(ctx, domain)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return false, nil
		}
		return false, err
	}
	return len(records) > 0, nil
}

// CachedResolver memoizes MX answers in Redis to keep submissions off the DNS
// hot path. Cache trouble fails open to the wrapped resolver.
type CachedResolver struct {
	next  MXResolver
	cache *redis.Client
	ttl   time.Duration
}

// NewCachedResolver wraps a resolver with a Redis TTL cache.
func NewCachedResolver(next MXResolver, cache *redis.Client, ttl time.Duration) *CachedResolver {
	return &CachedResolver{next: next, cache: cache, ttl: ttl}
}

// HasMX serves from cache when possible and stores fresh answers best effort.
func (c *CachedResolver) HasMX(ctx context.Context, domain string) (bool, error) {
	key := mxCachePrefix + domain

	cached, err := c.cache.Get(ctx, key).Result()
	if err == nil {
		return cached == "1", nil
	}

	ok, err := c.next.HasMX(ctx, domain)
	if err != nil {
		return false, err
	}

	value := "0"
	if ok {
		value = "1"
	}
	c.cache.Set(ctx, key, value, c.ttl) // best effort

	return ok, nil
}
