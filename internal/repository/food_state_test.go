package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/wfunc/feed-the-cat/internal/models"
	"gorm.io/gorm"
)

// FoodStateRepositoryTestSuite 食物状态仓储测试套件
type FoodStateRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo FoodStateRepository
	ctx  context.Context
	t0   time.Time
}

func (s *FoodStateRepositoryTestSuite) SetupTest() {
	s.db = SetupTestDB()
	s.repo = NewFoodStateRepository(s.db)
	s.ctx = context.Background()
	s.t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func (s *FoodStateRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(s.db)
}

func (s *FoodStateRepositoryTestSuite) TestGet_NotFound() {
	state, err := s.repo.Get(s.ctx)
	s.ErrorIs(err, ErrFoodStateNotFound)
	s.Nil(state)
}

func (s *FoodStateRepositoryTestSuite) TestBootstrap_Idempotent() {
	created, err := s.repo.Bootstrap(s.ctx, 0, 5, s.t0)
	s.Require().NoError(err)
	s.True(created)

	// 第二次不会覆盖已有数据
	created, err = s.repo.Bootstrap(s.ctx, 99, 1, s.t0.Add(time.Hour))
	s.Require().NoError(err)
	s.False(created)

	state, err := s.repo.Get(s.ctx)
	s.Require().NoError(err)
	s.Equal(models.GlobalFoodStateID, state.ID)
	s.Equal(0.0, state.FoodAmount)
	s.Equal(5.0, state.ConsumptionRate)
	s.True(s.t0.Equal(state.LastConsumedAt))
}

func (s *FoodStateRepositoryTestSuite) TestSaveBaseline() {
	SeedFoodState(s.T(), s.db, 10, s.t0, 5)

	at := s.t0.Add(1500 * time.Millisecond)
	s.Require().NoError(s.repo.SaveBaseline(s.ctx, 3.5, at))
	AssertFoodState(s.T(), s.db, 3.5, at)

	state, err := s.repo.Get(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), state.Version)
	s.Equal(5.0, state.ConsumptionRate)
}

func (s *FoodStateRepositoryTestSuite) TestSaveBaseline_MissingRow() {
	err := s.repo.SaveBaseline(s.ctx, 1, s.t0)
	s.ErrorIs(err, ErrFoodStateNotFound)
}

func (s *FoodStateRepositoryTestSuite) TestCompareAndSwap() {
	SeedFoodState(s.T(), s.db, 10, s.t0, 5)

	ok, err := s.repo.CompareAndSwap(s.ctx, 0, 11, s.t0.Add(time.Second))
	s.Require().NoError(err)
	s.True(ok)

	// 旧版本号写入失败，数据保持不变
	ok, err = s.repo.CompareAndSwap(s.ctx, 0, 50, s.t0.Add(2*time.Second))
	s.Require().NoError(err)
	s.False(ok)
	AssertFoodState(s.T(), s.db, 11, s.t0.Add(time.Second))

	state, err := s.repo.Get(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(1), state.Version)
}

func (s *FoodStateRepositoryTestSuite) TestSetRate() {
	s.ErrorIs(s.repo.SetRate(s.ctx, 2), ErrFoodStateNotFound)

	SeedFoodState(s.T(), s.db, 10, s.t0, 5)
	s.Require().NoError(s.repo.SetRate(s.ctx, 2))

	state, err := s.repo.Get(s.ctx)
	s.Require().NoError(err)
	s.Equal(2.0, state.ConsumptionRate)
	s.InDelta(6.0, state.Counter().AsOf(s.t0.Add(2*time.Second)), 1e-9)
}

func TestFoodStateRepositorySuite(t *testing.T) {
	suite.Run(t, new(FoodStateRepositoryTestSuite))
}
