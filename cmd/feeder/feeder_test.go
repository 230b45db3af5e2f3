package main

import (
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/wfunc/feed-the-cat/internal/food"
)

func TestBowlBar(t *testing.T) {
	assert.Equal(t, "[░░░░░░░░░░]", bowlBar(0, 10))
	assert.Equal(t, "[█████░░░░░]", bowlBar(50, 10))
	assert.Equal(t, "[██████████]", bowlBar(100, 10))
	assert.Equal(t, 12, utf8.RuneCountInString(bowlBar(250, 10)))
}

func TestMessageRotator(t *testing.T) {
	m := newMessageRotator()

	first := m.next(food.CatHungry)
	assert.Contains(t, catMessages[food.CatHungry], first)
	assert.Equal(t, first, m.next(food.CatHungry), "未到期不换")

	eating := m.next(food.CatEating)
	assert.Contains(t, catMessages[food.CatEating], eating)

	// 状态切换回来时换一句不同的话
	m.current = first
	m.state = food.CatEating
	assert.NotEqual(t, first, m.next(food.CatHungry))
}
