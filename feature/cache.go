package feature

import (
	"sync"
	"time"

	"github.com/rushteam/petmatch/core"
)

// Versioned 是带内容版本号的候选表，内容不变时版本号不变。catalog.Catalog 实现了它。
type Versioned interface {
	Version() uint64
}

// CachedEncoder 按候选表版本缓存拟合结果，查询仍然每次编码。
// 缓存按 TTL 过期，超过 MaxSize 时淘汰最久未访问的条目。
// 候选表未实现 Versioned 时每次重新拟合。
type CachedEncoder struct {
	Encoder *TabularEncoder

	mu      sync.Mutex
	entries map[uint64]*cacheEntry
	maxSize int
	ttl     time.Duration
	now     func() time.Time
}

type cacheEntry struct {
	fitted     *FittedTable
	expireTime time.Time
	accessTime time.Time
}

// NewCachedEncoder 创建带缓存的编码器，encoder 为 nil 时使用默认 Schema。
// ttl <= 0 表示不过期；maxSize <= 0 时为 8。
func NewCachedEncoder(encoder *TabularEncoder, maxSize int, ttl time.Duration) *CachedEncoder {
	if encoder == nil {
		encoder = NewTabularEncoder()
	}
	if maxSize <= 0 {
		maxSize = 8
	}
	return &CachedEncoder{
		Encoder: encoder,
		entries: make(map[uint64]*cacheEntry),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// FitAndEncode 与 TabularEncoder.FitAndEncode 语义一致
func (c *CachedEncoder) FitAndEncode(table Table, query core.Record) ([][]float64, []float64, error) {
	if err := c.Encoder.checkQuery(query); err != nil {
		return nil, nil, err
	}
	fitted, err := c.fit(table)
	if err != nil {
		return nil, nil, err
	}
	q, err := fitted.EncodeQuery(query)
	if err != nil {
		return nil, nil, err
	}
	return fitted.Matrix, q, nil
}

func (c *CachedEncoder) fit(table Table) (*FittedTable, error) {
	v, ok := table.(Versioned)
	if !ok {
		return c.Encoder.Fit(table)
	}
	key := v.Version()

	if fitted, ok := c.get(key); ok {
		return fitted, nil
	}
	fitted, err := c.Encoder.Fit(table)
	if err != nil {
		return nil, err
	}
	c.set(key, fitted)
	return fitted, nil
}

func (c *CachedEncoder) get(key uint64) (*FittedTable, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	now := c.now()
	if c.ttl > 0 && now.After(entry.expireTime) {
		delete(c.entries, key)
		return nil, false
	}
	entry.accessTime = now
	return entry.fitted, true
}

func (c *CachedEncoder) set(key uint64, fitted *FittedTable) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok && len(c.entries) >= c.maxSize {
		c.evictLRU()
	}
	now := c.now()
	c.entries[key] = &cacheEntry{
		fitted:     fitted,
		expireTime: now.Add(c.ttl),
		accessTime: now,
	}
}

func (c *CachedEncoder) evictLRU() {
	var oldestKey uint64
	var oldestTime time.Time
	first := true
	for key, entry := range c.entries {
		if first || entry.accessTime.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.accessTime
			first = false
		}
	}
	if !first {
		delete(c.entries, oldestKey)
	}
}

// Len 当前缓存条目数
func (c *CachedEncoder) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear 清空缓存
func (c *CachedEncoder) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[uint64]*cacheEntry)
}
