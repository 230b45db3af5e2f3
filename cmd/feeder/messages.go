package main

import (
	"math/rand"
	"time"

	"github.com/wfunc/feed-the-cat/internal/food"
)

var catMessages = map[food.CatState][]string{
	food.CatHungry: {
		"FEED ME...",
		"STOMACH GROWLING...",
		"IS IT DINNER TIME?",
		"I'M FAMISHED!",
		"SO HUNGRY...",
		"WHERE'S THE KIBBLE?",
		"MEOW? (FOOD?)",
	},
	food.CatEating: {
		"MUNCH MUNCH!",
		"NOM NOM NOM...",
		"SO TASTY!",
		"DE-LISH!",
		"YUMMY!",
		"CRUNCHY BITES!",
		"PURR-FECT MEAL!",
	},
	food.CatReacting: {
		"OH YES!",
		"FINALLY!",
		"FOOD IS COMING!",
		"BEST FEEDER EVER!",
		"THANK YOU!",
		"AWW YEAH!",
		"MEOWWW! (YES!)",
	},
}

// messageRotatePeriod 同一状态下换一句话的间隔
const messageRotatePeriod = 5 * time.Second

// messageRotator 状态变化或到期时换一句不同的话
type messageRotator struct {
	state   food.CatState
	current string
	changed time.Time
	rnd     *rand.Rand
}

func newMessageRotator() *messageRotator {
	return &messageRotator{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (m *messageRotator) next(state food.CatState) string {
	now := time.Now()
	if state == m.state && m.current != "" && now.Sub(m.changed) < messageRotatePeriod {
		return m.current
	}

	pool := catMessages[state]
	others := make([]string, 0, len(pool))
	for _, msg := range pool {
		if msg != m.current {
			others = append(others, msg)
		}
	}
	if len(others) == 0 {
		others = pool
	}

	m.state = state
	m.current = others[m.rnd.Intn(len(others))]
	m.changed = now
	return m.current
}
