package food

import "time"

// Snapshot 持久化基线的传输形式，接收方自行推算实时值
type Snapshot struct {
	FoodAmount      float64   `json:"food_amount"`
	LastConsumedAt  time.Time `json:"last_consumed_at"`
	ConsumptionRate float64   `json:"consumption_rate"`
}

// Counter 转换为计数器
func (s Snapshot) Counter() Counter {
	return NewCounter(s.FoodAmount, s.LastConsumedAt, s.ConsumptionRate)
}

// Snapshot 转换为传输形式
func (c Counter) Snapshot() Snapshot {
	return Snapshot{
		FoodAmount:      c.Baseline,
		LastConsumedAt:  c.At,
		ConsumptionRate: c.Rate,
	}
}
