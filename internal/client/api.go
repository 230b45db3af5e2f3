package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/wfunc/feed-the-cat/internal/errors"
	"github.com/wfunc/feed-the-cat/internal/food"
	"github.com/wfunc/feed-the-cat/internal/models"
)

// APIClient 服务端HTTP接口客户端
type APIClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewAPIClient 创建客户端
func NewAPIClient(baseURL string, timeout time.Duration) *APIClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &APIClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FeedRequest 投喂请求
type FeedRequest struct {
	GuestID     string `json:"guestId"`
	CountryCode string `json:"countryCode"`
	CountryName string `json:"countryName,omitempty"`
	Count       int    `json:"count"`
}

// FeedResponse 投喂响应
type FeedResponse struct {
	Success      bool    `json:"success"`
	FoodAmount   float64 `json:"food_amount"`
	CountryScore int64   `json:"country_score"`
}

// FoodState 服务端返回的食物状态
type FoodState struct {
	FoodAmount      float64   `json:"food_amount"`
	LastConsumedAt  time.Time `json:"last_consumed_at"`
	ConsumptionRate float64   `json:"consumption_rate"`
	ElapsedSeconds  float64   `json:"elapsed_seconds"`
}

// Snapshot 把读取时刻的实时值作为新基线
// food_amount 对应的时刻是 last_consumed_at + elapsed_seconds
func (s *FoodState) Snapshot() food.Snapshot {
	return food.Snapshot{
		FoodAmount:      s.FoodAmount,
		LastConsumedAt:  s.LastConsumedAt.Add(time.Duration(s.ElapsedSeconds * float64(time.Second))),
		ConsumptionRate: s.ConsumptionRate,
	}
}

// Feed 提交一批点击
func (c *APIClient) Feed(ctx context.Context, req *FeedRequest) (*FeedResponse, error) {
	var resp FeedResponse
	if err := c.do(ctx, http.MethodPost, "/feed", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// FoodState 读取当前食物状态
func (c *APIClient) FoodState(ctx context.Context) (*FoodState, error) {
	var resp FoodState
	if err := c.do(ctx, http.MethodGet, "/food/state", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Leaderboard 读取国家排行榜
func (c *APIClient) Leaderboard(ctx context.Context, limit int, all bool) ([]models.CountryScore, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if all {
		q.Set("all", "true")
	}
	path := "/leaderboard"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var rows []models.CountryScore
	if err := c.do(ctx, http.MethodGet, path, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// WebSocketURL 推送地址
func (c *APIClient) WebSocketURL() string {
	u := c.BaseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws/food"
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrMessageFormat, "编码请求失败")
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrInvalidParam, "创建请求失败")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrUpstream, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrUpstream, "读取响应失败")
	}

	if resp.StatusCode != http.StatusOK {
		return statusError(resp.StatusCode, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Wrap(err, apperrors.ErrMessageFormat, "解析响应失败")
	}
	return nil
}

// statusError 把非200响应转换为应用错误
func statusError(status int, body []byte) error {
	var payload struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(body, &payload)
	msg := payload.Error
	if msg == "" {
		msg = http.StatusText(status)
	}

	switch status {
	case http.StatusBadRequest:
		return apperrors.New(apperrors.ErrInvalidParam, msg)
	case http.StatusConflict:
		return apperrors.New(apperrors.ErrConflict, msg)
	case http.StatusTooManyRequests:
		return apperrors.New(apperrors.ErrRateLimitExceeded, msg)
	default:
		return apperrors.New(apperrors.ErrUpstream, fmt.Sprintf("HTTP %d: %s", status, msg))
	}
}
