package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/rushteam/petmatch/core"
)

// RedisConfig Redis 连接配置
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	// Prefix 键前缀，例如 "petmatch:"
	Prefix string `koanf:"prefix"`
}

// NewRedisClient 创建客户端并 Ping 一次
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// RedisPersister 把特征库保存为两个 Redis 列表：
//
//	{prefix}file_paths -> 图片标识
//	{prefix}features   -> 小端 float64 向量
//
// 两个列表在同一个 MULTI/EXEC 事务中整体替换。
type RedisPersister struct {
	client redis.UniversalClient
	prefix string
	owned  bool
}

// NewRedisPersister 使用已有客户端，Close 不会关闭它
func NewRedisPersister(client redis.UniversalClient, prefix string) *RedisPersister {
	return &RedisPersister{client: client, prefix: prefix}
}

// OpenRedis 按配置创建客户端与持久化器
func OpenRedis(ctx context.Context, cfg RedisConfig) (*RedisPersister, error) {
	client, err := NewRedisClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &RedisPersister{client: client, prefix: cfg.Prefix, owned: true}, nil
}

func (p *RedisPersister) Name() string { return "redis" }

func (p *RedisPersister) key(dataset string) string {
	return p.prefix + dataset
}

// pushChunk 单条 RPUSH 的最大元素数
const pushChunk = 512

// Persist 覆盖写入全部记录
func (p *RedisPersister) Persist(ctx context.Context, entries []core.FeatureEntry) error {
	idsKey, featKey := p.key(core.DatasetFilePaths), p.key(core.DatasetFeatures)
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, idsKey, featKey)
		for start := 0; start < len(entries); start += pushChunk {
			end := min(start+pushChunk, len(entries))
			ids := make([]any, 0, end-start)
			vecs := make([]any, 0, end-start)
			for _, e := range entries[start:end] {
				ids = append(ids, e.ID)
				vecs = append(vecs, EncodeVector(e.Vector))
			}
			pipe.RPush(ctx, idsKey, ids...)
			pipe.RPush(ctx, featKey, vecs...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: persist feature store: %w", err)
	}
	return nil
}

// Load 读取全部记录；两个列表都不存在时返回 NOT_FOUND，长度不一致时返回 corrupt
func (p *RedisPersister) Load(ctx context.Context) ([]core.FeatureEntry, error) {
	idsKey, featKey := p.key(core.DatasetFilePaths), p.key(core.DatasetFeatures)

	var idsCmd, featCmd *redis.StringSliceCmd
	_, err := p.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		idsCmd = pipe.LRange(ctx, idsKey, 0, -1)
		featCmd = pipe.LRange(ctx, featKey, 0, -1)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis: load feature store: %w", err)
	}

	ids, vecs := idsCmd.Val(), featCmd.Val()
	if len(ids) == 0 && len(vecs) == 0 {
		return nil, fmt.Errorf("redis: keys %s, %s: %w", idsKey, featKey, core.ErrFeatureStoreNotFound)
	}
	if len(ids) != len(vecs) {
		return nil, fmt.Errorf("redis: %d ids, %d vectors: %w", len(ids), len(vecs), core.ErrFeatureStoreCorrupt)
	}

	entries := make([]core.FeatureEntry, len(ids))
	for i := range ids {
		vec, err := DecodeVector([]byte(vecs[i]))
		if err != nil {
			return nil, fmt.Errorf("redis: entry %d: %w", i, err)
		}
		entries[i] = core.FeatureEntry{ID: ids[i], Vector: vec}
	}
	return entries, nil
}

// Close 关闭由 OpenRedis 创建的客户端
func (p *RedisPersister) Close() error {
	if p.owned {
		return p.client.Close()
	}
	return nil
}

var _ core.FeatureStorePersister = (*RedisPersister)(nil)
