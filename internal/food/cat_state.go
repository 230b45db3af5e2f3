package food

// CatState 猫的状态
type CatState string

const (
	// CatHungry 碗空了，等待喂食
	CatHungry CatState = "HUNGRY"
	// CatReacting 食物刚出现时的短暂反应
	CatReacting CatState = "REACTING"
	// CatEating 正在吃
	CatEating CatState = "EATING"
)

// NextCatState 根据当前食物量和本地喂食会话计算下一个状态
// 从饥饿进入有食物时先经过 REACTING，由调用方在反应时长结束后调用 FinishReaction
func NextCatState(prev CatState, amount float64, feeding bool) CatState {
	if amount > 0 {
		if prev == CatHungry || prev == CatReacting {
			return CatReacting
		}
		return CatEating
	}
	// 本地点击后保持当前状态，等服务端数据追上
	if feeding {
		return prev
	}
	return CatHungry
}

// FinishReaction 反应动画结束
func FinishReaction(current CatState) CatState {
	if current == CatReacting {
		return CatEating
	}
	return current
}
