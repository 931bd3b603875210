package rate_limiter

import (
	"atlas-tracker-service/catalog_client"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis 按顺序返回预设的脚本结果
type fakeRedis struct {
	mu      sync.Mutex
	results []*redis.Cmd
	keys    []string
	args    [][]interface{}
}

func (f *fakeRedis) Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, keys...)
	f.args = append(f.args, args)
	if len(f.results) == 0 {
		return redis.NewCmdResult([]interface{}{int64(1), int64(1), int64(1000)}, nil)
	}
	cmd := f.results[0]
	f.results = f.results[1:]
	return cmd
}

func allowed(count int64) *redis.Cmd {
	return redis.NewCmdResult([]interface{}{int64(1), count, int64(800)}, nil)
}

func denied(count, ttlMillis int64) *redis.Cmd {
	return redis.NewCmdResult([]interface{}{int64(0), count, ttlMillis}, nil)
}

var crossrefRule = RateLimitRule{Name: "crossref", Window: time.Second, MaxRequests: 2}

func TestCheckRateLimitAllowed(t *testing.T) {
	client := &fakeRedis{results: []*redis.Cmd{allowed(1)}}
	limiter := newRedisRateLimiter(client, "")
	limiter.clock = func() time.Time { return time.UnixMilli(5500) }

	result, err := limiter.CheckRateLimit(context.Background(), crossrefRule)
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 1, result.Remaining)
	assert.Equal(t, []string{"atlas_tracker:rate_limit:crossref:5"}, client.keys)
	assert.Equal(t, []interface{}{2, int64(1000)}, client.args[0])
}

func TestCheckRateLimitDenied(t *testing.T) {
	limiter := newRedisRateLimiter(&fakeRedis{results: []*redis.Cmd{denied(2, 300)}}, "custom:")

	result, err := limiter.CheckRateLimit(context.Background(), crossrefRule)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 0, result.Remaining)
	assert.Equal(t, 300*time.Millisecond, result.RetryAfter)
}

func TestCheckRateLimitWithoutRuleAllows(t *testing.T) {
	client := &fakeRedis{}
	result, err := newRedisRateLimiter(client, "").CheckRateLimit(context.Background(), RateLimitRule{Name: "crossref"})
	require.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Empty(t, client.keys)
}

func TestCheckRateLimitErrors(t *testing.T) {
	limiter := newRedisRateLimiter(&fakeRedis{results: []*redis.Cmd{
		redis.NewCmdResult(nil, errors.New("connection refused")),
		redis.NewCmdResult("unexpected", nil),
	}}, "")

	_, err := limiter.CheckRateLimit(context.Background(), crossrefRule)
	assert.Error(t, err)
	_, err = limiter.CheckRateLimit(context.Background(), crossrefRule)
	assert.Error(t, err)
}

func TestWaitRetriesUntilAllowed(t *testing.T) {
	client := &fakeRedis{results: []*redis.Cmd{denied(2, 20), allowed(1)}}
	limiter := newRedisRateLimiter(client, "")

	start := time.Now()
	require.NoError(t, limiter.Wait(context.Background(), crossrefRule))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
	assert.Len(t, client.keys, 2)
}

func TestWaitFailsOpenOnRedisError(t *testing.T) {
	limiter := newRedisRateLimiter(&fakeRedis{results: []*redis.Cmd{redis.NewCmdResult(nil, errors.New("down"))}}, "")
	assert.NoError(t, limiter.Wait(context.Background(), crossrefRule))
}

func TestWaitHonoursContext(t *testing.T) {
	limiter := newRedisRateLimiter(&fakeRedis{results: []*redis.Cmd{denied(2, 60000)}}, "")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, limiter.Wait(ctx, crossrefRule), context.DeadlineExceeded)
}

type fakeLimiter struct {
	err   error
	calls int
}

func (f *fakeLimiter) Wait(ctx context.Context, rule RateLimitRule) error {
	f.calls++
	return f.err
}

type fakePublications struct {
	calls int
}

func (f *fakePublications) FetchPublicationByDoi(ctx context.Context, doi string) (*catalog_client.Publication, error) {
	f.calls++
	return &catalog_client.Publication{DOI: doi, Title: "Foo"}, nil
}

func TestThrottledFetcher(t *testing.T) {
	limiter := &fakeLimiter{}
	next := &fakePublications{}
	fetcher := NewThrottledFetcher(next, limiter, crossrefRule)

	publication, err := fetcher.FetchPublicationByDoi(context.Background(), "10.1/a")
	require.NoError(t, err)
	assert.Equal(t, "Foo", publication.Title)
	assert.Equal(t, 1, limiter.calls)
	assert.Equal(t, 1, next.calls)

	limiter.err = context.Canceled
	_, err = fetcher.FetchPublicationByDoi(context.Background(), "10.1/b")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, next.calls)
}
