package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wfunc/feed-the-cat/internal/service"
)

// FoodHandler 全局食物状态处理器
type FoodHandler struct {
	food service.FoodService
}

// NewFoodHandler 创建处理器
func NewFoodHandler(food service.FoodService) *FoodHandler {
	return &FoodHandler{food: food}
}

// FoodStateResponse 食物状态响应
type FoodStateResponse struct {
	FoodAmount      float64 `json:"food_amount"`
	LastConsumedAt  string  `json:"last_consumed_at"`
	ConsumptionRate float64 `json:"consumption_rate"`
	ElapsedSeconds  float64 `json:"elapsed_seconds"`
}

// State 读取实时食物量
// @Summary 当前食物状态
// @Description 按读取时刻推算剩余食物量，不修改存储
// @Tags Food
// @Produce json
// @Success 200 {object} FoodStateResponse
// @Failure 500 {object} ErrorResponse
// @Router /food/state [get]
func (h *FoodHandler) State(c *gin.Context) {
	c.Header("Cache-Control", "no-store")

	snapshot, err := h.food.ReadState(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, FoodStateResponse{
		FoodAmount:      snapshot.FoodAmount,
		LastConsumedAt:  snapshot.LastConsumedAt.UTC().Format(time.RFC3339Nano),
		ConsumptionRate: snapshot.ConsumptionRate,
		ElapsedSeconds:  snapshot.ElapsedSeconds,
	})
}
