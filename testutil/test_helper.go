/*
 * @module testutil/test_helper
 * @description HTTP 接口测试辅助工具
 * @architecture 测试基础设施 - 提供请求构建与响应解析
 * @documentReference DESIGN.md
 * @stateFlow 请求构建 -> 路由参数注入 -> 响应解析与断言
 * @rules 不依赖服务初始化，控制器测试只通过接口注入服务
 * @dependencies testify, chi
 * @refs api/controllers
 */

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// APIEnvelope 统一响应结构，data 保留原始 JSON 以便按需解码
type APIEnvelope struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// CreateJSONRequest 创建JSON请求
func (h *HTTPTestHelper) CreateJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// WithURLParams 为直接调用处理函数的请求注入 chi 路由参数
func (h *HTTPTestHelper) WithURLParams(req *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

// DecodeAPIResponse 断言HTTP状态码并解析统一响应，dest 非空时解码 data
func (h *HTTPTestHelper) DecodeAPIResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, dest interface{}) APIEnvelope {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code)

	var envelope APIEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	if dest != nil {
		require.NotEmpty(t, envelope.Data)
		require.NoError(t, json.Unmarshal(envelope.Data, dest))
	}
	return envelope
}
