/*
 * @module service/rate_limiter/redis_rate_limiter
 * @description 基于Redis的分布式限流，多实例共享外部目录的请求配额
 * @architecture 工具层 - 提供分布式限流能力
 * @documentReference DESIGN.md
 * @stateFlow 检查限流规则 -> Redis计数 -> 判断是否超限 -> 超限时等待窗口重置
 * @rules 使用Redis INCR和PEXPIRE实现固定窗口限流；Redis不可用时放行
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/rate_limiter/throttled_fetcher.go, service/init.go
 */

package rate_limiter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redis/redis/v8"
)

// DefaultKeyPrefix 默认限流Key前缀
const DefaultKeyPrefix = "atlas_tracker:rate_limit:"

// 原子性限流检查：返回 {是否允许, 当前计数, 剩余毫秒}
const rateLimitScript = `
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local max_requests = tonumber(ARGV[1])
local window = tonumber(ARGV[2])

if current >= max_requests then
	local ttl = redis.call('PTTL', KEYS[1])
	if ttl < 0 then
		ttl = window
	end
	return {0, current, ttl}
end

local new_count = redis.call('INCR', KEYS[1])
if new_count == 1 then
	redis.call('PEXPIRE', KEYS[1], window)
end

local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	ttl = window
end
return {1, new_count, ttl}
`

// RateLimitResult 限流检查结果
type RateLimitResult struct {
	Allowed    bool          `json:"allowed"`
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	RetryAfter time.Duration `json:"retry_after"`
}

// RateLimitRule 限流规则
type RateLimitRule struct {
	Name        string        // 限流对象，如 crossref
	Window      time.Duration // 时间窗口
	MaxRequests int           // 窗口内最大请求数
}

// scripter Redis脚本执行接口
type scripter interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// RedisRateLimiter Redis限流器
type RedisRateLimiter struct {
	client scripter
	prefix string
	clock  func() time.Time
}

// NewRedisRateLimiter 使用已有客户端创建Redis限流器
func NewRedisRateLimiter(client *redis.Client, prefix string) *RedisRateLimiter {
	return newRedisRateLimiter(client, prefix)
}

func newRedisRateLimiter(client scripter, prefix string) *RedisRateLimiter {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisRateLimiter{
		client: client,
		prefix: prefix,
		clock:  time.Now,
	}
}

// CheckRateLimit 检查并占用一次配额
func (r *RedisRateLimiter) CheckRateLimit(ctx context.Context, rule RateLimitRule) (*RateLimitResult, error) {
	if rule.MaxRequests <= 0 || rule.Window <= 0 {
		return &RateLimitResult{Allowed: true, Limit: -1, Remaining: -1}, nil
	}

	key := r.buildRateLimitKey(rule)
	result, err := r.client.Eval(ctx, rateLimitScript, []string{key}, rule.MaxRequests, rule.Window.Milliseconds()).Result()
	if err != nil {
		return nil, fmt.Errorf("限流检查失败: %w", err)
	}

	values, ok := result.([]interface{})
	if !ok || len(values) != 3 {
		return nil, fmt.Errorf("限流脚本返回格式错误: %v", result)
	}
	allowed, _ := values[0].(int64)
	current, _ := values[1].(int64)
	ttl, _ := values[2].(int64)

	remaining := rule.MaxRequests - int(current)
	if remaining < 0 {
		remaining = 0
	}
	res := &RateLimitResult{
		Allowed:   allowed == 1,
		Limit:     rule.MaxRequests,
		Remaining: remaining,
	}
	if !res.Allowed {
		res.RetryAfter = time.Duration(ttl) * time.Millisecond
	}
	return res, nil
}

// Wait 阻塞直到获得配额或 context 结束；Redis 出错时记录日志并放行
func (r *RedisRateLimiter) Wait(ctx context.Context, rule RateLimitRule) error {
	for {
		result, err := r.CheckRateLimit(ctx, rule)
		if err != nil {
			slog.Warn("限流检查失败，直接放行", "rule", rule.Name, "error", err)
			return nil
		}
		if result.Allowed {
			return nil
		}

		delay := result.RetryAfter
		if delay <= 0 {
			delay = rule.Window
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// buildRateLimitKey 构造限流Key，窗口序号随时间递增
func (r *RedisRateLimiter) buildRateLimitKey(rule RateLimitRule) string {
	currentWindow := r.clock().UnixMilli() / rule.Window.Milliseconds()
	return fmt.Sprintf("%s%s:%d", r.prefix, rule.Name, currentWindow)
}
