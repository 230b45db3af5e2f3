package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wfunc/feed-the-cat/internal/logger"
	"go.uber.org/zap"
)

// DefaultGeoURL ipapi 风格的地理位置接口
const DefaultGeoURL = "https://ipapi.co/json/"

// FallbackCountry 定位失败时使用，不写入本地状态
var FallbackCountry = Country{Code: "UN", Name: "Unknown"}

// CountryResolver 通过IP查询所在国家
type CountryResolver struct {
	URL        string
	HTTPClient *http.Client
}

// NewCountryResolver 创建解析器
func NewCountryResolver(url string, timeout time.Duration) *CountryResolver {
	if url == "" {
		url = DefaultGeoURL
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CountryResolver{
		URL:        url,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// geoResponse ipapi 返回格式，出错时 error=true 并带 reason
type geoResponse struct {
	CountryCode string `json:"country_code"`
	CountryName string `json:"country_name"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

// Resolve 查询国家
func (r *CountryResolver) Resolve(ctx context.Context) (Country, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return Country{}, err
	}

	resp, err := r.HTTPClient.Do(req)
	if err != nil {
		return Country{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Country{}, fmt.Errorf("geo lookup: HTTP %d", resp.StatusCode)
	}

	var geo geoResponse
	if err := json.NewDecoder(resp.Body).Decode(&geo); err != nil {
		return Country{}, fmt.Errorf("geo lookup: %w", err)
	}
	if geo.Error {
		return Country{}, fmt.Errorf("geo lookup: %s", geo.Reason)
	}
	if geo.CountryCode == "" {
		return Country{}, fmt.Errorf("geo lookup: empty country code")
	}
	return Country{Code: geo.CountryCode, Name: geo.CountryName}, nil
}

// ResolveCountry 优先使用本地已保存的国家，否则在线查询
// 查询失败返回 UN/Unknown，且不保存，下次启动会重试
func ResolveCountry(ctx context.Context, sess *Session, resolver *CountryResolver) Country {
	if c, ok := sess.Country(); ok {
		return c
	}

	c, err := resolver.Resolve(ctx)
	if err != nil {
		logger.WithModule("client").Warn("国家定位失败，使用默认值", zap.Error(err))
		return FallbackCountry
	}

	if err := sess.SetCountry(c); err != nil {
		logger.WithModule("client").Warn("保存国家失败", zap.Error(err))
	}
	return c
}
