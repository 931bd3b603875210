package rate_limiter

import (
	"atlas-tracker-service/catalog_client"
	"context"
)

// Limiter 限流等待
type Limiter interface {
	Wait(ctx context.Context, rule RateLimitRule) error
}

// PublicationFetcher 出版物查询
type PublicationFetcher interface {
	FetchPublicationByDoi(ctx context.Context, doi string) (*catalog_client.Publication, error)
}

// ThrottledFetcher 按限流规则调用出版物查询
type ThrottledFetcher struct {
	next    PublicationFetcher
	limiter Limiter
	rule    RateLimitRule
}

// NewThrottledFetcher 创建限流的出版物查询
func NewThrottledFetcher(next PublicationFetcher, limiter Limiter, rule RateLimitRule) *ThrottledFetcher {
	return &ThrottledFetcher{next: next, limiter: limiter, rule: rule}
}

// FetchPublicationByDoi 等待配额后查询
func (f *ThrottledFetcher) FetchPublicationByDoi(ctx context.Context, doi string) (*catalog_client.Publication, error) {
	if err := f.limiter.Wait(ctx, f.rule); err != nil {
		return nil, err
	}
	return f.next.FetchPublicationByDoi(ctx, doi)
}
