/*
 * @module catalog_client/http
 * @description 外部目录HTTP客户端的公共请求工具
 * @architecture 客户端层 - HTTP JSON 请求
 * @documentReference DESIGN.md
 * @stateFlow 构造请求 -> 发送请求 -> 状态码检查 -> JSON解码
 * @rules 所有请求携带 context，非2xx响应返回 StatusError
 * @dependencies net/http, encoding/json
 * @refs hca_client.go, cellxgene_client.go, crossref_client.go
 */

package catalog_client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

var catalogHTTPClient = &http.Client{
	Timeout: 120 * time.Second,
}

// StatusError 非成功状态码错误
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("请求 %s 返回状态码 %d", e.URL, e.StatusCode)
}

// getJSON 发送GET请求并将响应解码到 out
func getJSON(ctx context.Context, client *http.Client, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	if err = json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}

// getJSONWithRetry 带重试的GET请求，context 取消时立即返回
func getJSONWithRetry(ctx context.Context, client *http.Client, rawURL string, out interface{}, retries int, delay time.Duration) error {
	var err error
	for attempt := 0; attempt <= retries; attempt++ {
		if attempt > 0 {
			slog.Warn("重试外部目录请求", "url", rawURL, "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
		if err = getJSON(ctx, client, rawURL, out); err == nil {
			return nil
		}
	}
	return err
}
