package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// 商品一覧キャッシュ: cache:products:{querystring}
	KeyProductList = "cache:products:%s"

	// 商品詳細キャッシュ: cache:product:{id}
	KeyProductDetail = "cache:product:%d"

	// Webhook重複排除の先読み: dedup:payment:{event_id}
	// 真の冪等性はDBのunique制約。これはDBに行く前の近道。
	KeyPaymentDedup = "dedup:payment:%s"
)

var (
	TTLProductCache = 5 * time.Minute
	TTLDedup        = 48 * time.Hour
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// Client はnil許容の薄いラッパー。Redis未設定でもアプリは動く。
type Client struct {
	rdb *redis.Client
}

func NewClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

func (c *Client) Enabled() bool {
	return c != nil && c.rdb != nil
}

func (c *Client) Get(ctx context.Context, key string) (string, bool) {
	if !c.Enabled() {
		return "", false
	}
	v, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		return "", false
	}
	return v, true
}

func (c *Client) Set(ctx context.Context, key string, value string, ttl time.Duration) {
	if !c.Enabled() {
		return
	}
	//失敗してもアプリは止めない
	_ = c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *Client) Exists(ctx context.Context, key string) bool {
	if !c.Enabled() {
		return false
	}
	n, err := c.rdb.Exists(ctx, key).Result()
	return err == nil && n > 0
}

// InvalidatePrefix はprefixに一致するキーをSCANで消す。
func (c *Client) InvalidatePrefix(ctx context.Context, prefix string) {
	if !c.Enabled() {
		return
	}
	iter := c.rdb.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		_ = c.rdb.Del(ctx, iter.Val()).Err()
	}
}

func ProductListKey(query string) string {
	return fmt.Sprintf(KeyProductList, query)
}

func ProductDetailKey(id int64) string {
	return fmt.Sprintf(KeyProductDetail, id)
}

func PaymentDedupKey(eventID string) string {
	return fmt.Sprintf(KeyPaymentDedup, eventID)
}
