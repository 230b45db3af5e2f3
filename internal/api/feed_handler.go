package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/wfunc/feed-the-cat/internal/errors"
	"github.com/wfunc/feed-the-cat/internal/logger"
	"github.com/wfunc/feed-the-cat/internal/ratelimit"
	"github.com/wfunc/feed-the-cat/internal/service"
	"go.uber.org/zap"
)

// FeedHandler 投喂处理器
type FeedHandler struct {
	feed    service.FeedService
	limiter ratelimit.Limiter
	logger  *zap.Logger
}

// NewFeedHandler 创建投喂处理器
func NewFeedHandler(feed service.FeedService, limiter ratelimit.Limiter, logger *zap.Logger) *FeedHandler {
	return &FeedHandler{
		feed:    feed,
		limiter: limiter,
		logger:  logger,
	}
}

// FeedRequest 投喂请求体，count 省略时按 1 计
type FeedRequest struct {
	GuestID     string `json:"guestId"`
	CountryCode string `json:"countryCode"`
	CountryName string `json:"countryName"`
	Count       *int   `json:"count"`
}

// FeedResponse 投喂响应
type FeedResponse struct {
	Success      bool    `json:"success"`
	FoodAmount   float64 `json:"food_amount"`
	CountryScore int64   `json:"country_score"`
}

// Feed 提交一批点击
// @Summary 投喂
// @Description 衰减到当前时刻后加上本批次数量，并累计国家积分
// @Tags Feed
// @Accept json
// @Produce json
// @Param request body FeedRequest true "投喂请求"
// @Success 200 {object} FeedResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /feed [post]
func (h *FeedHandler) Feed(c *gin.Context) {
	var body FeedRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		writeError(c, apperrors.Wrap(err, apperrors.ErrInvalidParam, msgInvalidBody))
		return
	}

	req := &service.FeedRequest{
		GuestID:     body.GuestID,
		CountryCode: body.CountryCode,
		CountryName: body.CountryName,
		Count:       1,
	}
	if body.Count != nil {
		req.Count = *body.Count
	}
	if err := req.Validate(); err != nil {
		writeError(c, err)
		return
	}

	allowed, err := h.limiter.Allow(c.Request.Context(), req.GuestID)
	if err != nil {
		// 限流后端故障时放行
		h.logger.Warn("限流检查失败", zap.String("guest_id", req.GuestID), zap.Error(err))
	} else if !allowed {
		logger.LogRateLimited(req.GuestID, c.ClientIP())
		writeError(c, apperrors.New(apperrors.ErrRateLimitExceeded))
		return
	}

	result, err := h.feed.Feed(c.Request.Context(), req)
	if err != nil {
		if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
			h.logger.Error("投喂失败",
				zap.String("guest_id", req.GuestID),
				zap.String("country", req.CountryCode),
				zap.Error(err))
		}
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, FeedResponse{
		Success:      true,
		FoodAmount:   result.FoodAmount,
		CountryScore: result.CountryScore,
	})
}
