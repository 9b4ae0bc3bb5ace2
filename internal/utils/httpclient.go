package utils

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// ResponseError 请求已到达对端，但响应不可用（状态码异常或内容无法解析）
// 与网络层错误区分开，调用方据此决定降级还是中止
type ResponseError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *ResponseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (状态码 %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: 请求失败，状态码: %d", e.URL, e.StatusCode)
}

func (e *ResponseError) Unwrap() error { return e.Err }

// IsResponseError 判断是否为响应层错误
func IsResponseError(err error) bool {
	var re *ResponseError
	return errors.As(err, &re)
}

// HTTPClient HTTP客户端
type HTTPClient struct {
	httpClient *http.Client
	headers    map[string]string
	limiter    *rate.Limiter
}

// NewHTTPClient 创建新的HTTP客户端
// ratePerSecond <= 0 时不限速
func NewHTTPClient(timeout time.Duration, headers map[string]string, ratePerSecond float64) *HTTPClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	c := &HTTPClient{
		httpClient: &http.Client{Timeout: timeout},
		headers:    headers,
	}
	if ratePerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(ratePerSecond), 1)
	}
	return c
}

// Get 发送GET请求
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("等待限流失败: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求失败: %w", err)
	}
	return resp, nil
}

// GetJSON 发送GET请求并解析JSON响应
func (c *HTTPClient) GetJSON(ctx context.Context, url string, target interface{}) error {
	resp, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &ResponseError{URL: url, StatusCode: resp.StatusCode}
	}

	var reader io.ReadCloser
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		var err error
		reader, err = gzip.NewReader(resp.Body)
		if err != nil {
			return &ResponseError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("创建gzip读取器失败: %w", err)}
		}
		defer reader.Close()
	case "deflate":
		reader = flate.NewReader(resp.Body)
		defer reader.Close()
	default:
		reader = resp.Body
	}

	body, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}
	if err := json.Unmarshal(body, target); err != nil {
		return &ResponseError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("解析JSON失败: %w", err)}
	}
	return nil
}
