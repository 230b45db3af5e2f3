package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/feed-the-cat/internal/service"
)

// LeaderboardHandler 国家排行榜处理器
type LeaderboardHandler struct {
	leaderboard service.LeaderboardService
}

// NewLeaderboardHandler 创建处理器
func NewLeaderboardHandler(leaderboard service.LeaderboardService) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// List 按积分倒序返回国家列表
// @Summary 国家排行榜
// @Description limit 缺省或 all=true 时返回全部
// @Tags Leaderboard
// @Produce json
// @Param limit query int false "返回条数"
// @Param all query bool false "返回全部"
// @Success 200 {array} models.CountryScore
// @Failure 500 {object} ErrorResponse
// @Router /leaderboard [get]
func (h *LeaderboardHandler) List(c *gin.Context) {
	all := c.Query("all") == "true"

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		// 非法值按不限制处理
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	scores, err := h.leaderboard.Top(c.Request.Context(), limit, all)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, scores)
}
