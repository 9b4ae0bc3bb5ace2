package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/patrickmn/go-cache"
)

// ResponseCache 接口响应缓存，固定 TTL
type ResponseCache struct {
	store *cache.Cache
	ttl   time.Duration
}

// NewResponseCache 创建响应缓存，清理间隔为 TTL 的两倍
func NewResponseCache(ttl time.Duration) *ResponseCache {
	return &ResponseCache{
		store: cache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

// Get 获取缓存值
func (c *ResponseCache) Get(key string) (interface{}, bool) {
	return c.store.Get(key)
}

// Set 按默认 TTL 设置缓存值
func (c *ResponseCache) Set(key string, value interface{}) {
	c.store.Set(key, value, c.ttl)
}

// Flush 清空所有缓存
func (c *ResponseCache) Flush() {
	c.store.Flush()
}

// Len 当前条数（含尚未清理的过期项）
func (c *ResponseCache) Len() int {
	return c.store.ItemCount()
}

// CacheItem 包装实际的数据，增加过期时间
type CacheItem[T any] struct {
	Value     T
	ExpiredAt time.Time
}

// SearchCache 带过期时间的 LRU 缓存
type SearchCache[T any] struct {
	storage *lru.Cache[string, CacheItem[T]]
	ttl     time.Duration
}

// NewSearchCache 初始化，size 是最大缓存条数，ttl 是数据有效期
func NewSearchCache[T any](size int, ttl time.Duration) *SearchCache[T] {
	// lru.New 是线程安全的，size <= 0 时返回错误，这里兜底为 1
	if size <= 0 {
		size = 1
	}
	c, _ := lru.New[string, CacheItem[T]](size)
	return &SearchCache[T]{
		storage: c,
		ttl:     ttl,
	}
}

// Set 写入（已存在则覆盖）
func (c *SearchCache[T]) Set(key string, value T) {
	c.storage.Add(key, CacheItem[T]{
		Value:     value,
		ExpiredAt: time.Now().Add(c.ttl),
	})
}

// Get 读取，过期的条目会被顺手删除
func (c *SearchCache[T]) Get(key string) (T, bool) {
	var zero T
	item, ok := c.storage.Get(key)
	if !ok {
		return zero, false
	}
	if time.Now().After(item.ExpiredAt) {
		c.storage.Remove(key)
		return zero, false
	}
	return item.Value, true
}

// Clear 清空
func (c *SearchCache[T]) Clear() {
	c.storage.Purge()
}

// Len 当前长度
func (c *SearchCache[T]) Len() int {
	return c.storage.Len()
}
