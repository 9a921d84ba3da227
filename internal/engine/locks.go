package engine

import (
	"time"

	pkgredis "github.com/angelmondragon/packfinderz-inventory/pkg/redis"
)

// UnitLocker hands out per-unit locks keyed by qr code.
type UnitLocker interface {
	UnitLock(code string) (pkgredis.Lock, error)
}

type lockKeyer interface {
	pkgredis.LockStore
	LockKey(scope, id string) string
}

type redisUnitLocker struct {
	store lockKeyer
	ttl   time.Duration
}

// NewRedisUnitLocker builds locks at pf:lock:unit:<code>.
func NewRedisUnitLocker(store lockKeyer, ttl time.Duration) UnitLocker {
	return &redisUnitLocker{store: store, ttl: ttl}
}

func (l *redisUnitLocker) UnitLock(code string) (pkgredis.Lock, error) {
	return pkgredis.NewRedisLock(l.store, l.store.LockKey("unit", code), l.ttl)
}
