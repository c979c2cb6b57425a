package cache

import (
	"sync"
	"time"
)

// janitorInterval 后台清扫过期条目的周期
const janitorInterval = time.Minute

// LocalCache 进程内的短TTL结果缓存
//
// 面向"全量扫描聚合"类读路径（如余额汇总）：写路径主动失效，
// 读路径在TTL窗口内复用上一次计算结果。条目数达到上限时淘汰
// 最先到期的条目，保证内存占用有界。
type LocalCache struct {
	mu      sync.Mutex
	entries map[string]localEntry
	maxSize int
	ttl     time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

type localEntry struct {
	value     interface{}
	expiresAt time.Time
}

// NewLocalCache 创建本地缓存并启动后台清扫协程
//
// 参数:
//   - maxSize: 最大条目数（<=0 表示不限制）
//   - ttl: 默认过期时间
func NewLocalCache(maxSize int, ttl time.Duration) *LocalCache {
	c := &LocalCache{
		entries: make(map[string]localEntry),
		maxSize: maxSize,
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go c.janitor()
	return c
}

// Get 获取缓存值，过期条目当作不存在并顺手删除
func (c *LocalCache) Get(key string) (interface{}, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

// Set 写入缓存值，ttl为0时使用默认TTL
//
// 容量已满且键不存在时，先淘汰最先到期的条目再写入。
func (c *LocalCache) Set(key string, value interface{}, ttl time.Duration) {
	if ttl == 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize > 0 {
		if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
			c.evictSoonestLocked()
		}
	}

	c.entries[key] = localEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}

// Delete 删除缓存值
func (c *LocalCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear 清空所有缓存
func (c *LocalCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]localEntry)
}

// Len 当前条目数（含尚未清扫的过期条目）
func (c *LocalCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close 停止后台清扫协程，可安全重复调用
//
// 关闭后缓存仍可读写，只是不再有后台清扫。
func (c *LocalCache) Close() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}

// evictSoonestLocked 淘汰最先到期的条目，调用方必须持锁
func (c *LocalCache) evictSoonestLocked() {
	var victim string
	var soonest time.Time
	for key, entry := range c.entries {
		if victim == "" || entry.expiresAt.Before(soonest) {
			victim = key
			soonest = entry.expiresAt
		}
	}
	if victim != "" {
		delete(c.entries, victim)
	}
}

// janitor 周期性清扫过期条目，直到 Close 被调用
func (c *LocalCache) janitor() {
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case now := <-ticker.C:
			c.mu.Lock()
			for key, entry := range c.entries {
				if now.After(entry.expiresAt) {
					delete(c.entries, key)
				}
			}
			c.mu.Unlock()
		}
	}
}
