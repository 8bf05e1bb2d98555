package cache

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// errStale 回源期间 key 被 Invalidate 过，本次结果不回写
var errStale = errors.New("cache: generation changed during load")

type Cache struct {
	RDB *redis.Client
	sf  singleflight.Group
}

func New(addr, pass string, db int) *Cache {
	return NewWithClient(redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}))
}

func NewWithClient(rdb *redis.Client) *Cache { return &Cache{RDB: rdb} }

func (c *Cache) Ping(ctx context.Context) error { return c.RDB.Ping(ctx).Err() }

func genKey(key string) string { return key + ":gen" }

// GetOrLoad 先读缓存；未命中时 singleflight 合并回源并回写。
//
// 回写前校验 key 的代数：回源期间发生过 Invalidate 则丢弃本次回写，
// 避免把写入前读到的旧数据放回缓存。
func (c *Cache) GetOrLoad(ctx context.Context, key string, ttl time.Duration, load func(context.Context) ([]byte, error)) ([]byte, error) {
	gen, genErr := c.generation(ctx, key)
	if b, err := c.RDB.Get(ctx, key).Bytes(); err == nil {
		return b, nil
	}
	// 按代数分组：Invalidate 之后到达的请求不会并入之前那次回源
	v, err, _ := c.sf.Do(key+"@"+strconv.FormatInt(gen, 10), func() (any, error) {
		// 不跟随首个调用方取消，否则同组等待者一起失败
		ctx := context.WithoutCancel(ctx)
		b, e := load(ctx)
		if e != nil {
			return nil, e
		}
		if genErr == nil {
			_ = c.setIfGeneration(ctx, key, gen, b, ttl)
		}
		return b, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

// Invalidate 删除 key 并推进代数，进行中的回源不会再回写
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	_, err := c.RDB.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Incr(ctx, genKey(key))
		p.Del(ctx, key)
		return nil
	})
	return err
}

func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	return c.RDB.Del(ctx, keys...).Err()
}

func (c *Cache) Close() error { return c.RDB.Close() }

func (c *Cache) generation(ctx context.Context, key string) (int64, error) {
	n, err := c.RDB.Get(ctx, genKey(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// setIfGeneration WATCH 代数 key，EXEC 前被 Invalidate 则事务失败
func (c *Cache) setIfGeneration(ctx context.Context, key string, gen int64, b []byte, ttl time.Duration) error {
	return c.RDB.Watch(ctx, func(tx *redis.Tx) error {
		cur, err := tx.Get(ctx, genKey(key)).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if cur != gen {
			return errStale
		}
		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, b, ttl)
			return nil
		})
		return err
	}, genKey(key))
}
