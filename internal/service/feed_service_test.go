package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"github.com/wfunc/feed-the-cat/internal/clock"
	apperrors "github.com/wfunc/feed-the-cat/internal/errors"
	"github.com/wfunc/feed-the-cat/internal/food"
	"github.com/wfunc/feed-the-cat/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recordingNotifier struct {
	mu        sync.Mutex
	snapshots []food.Snapshot
	err       error
}

func (n *recordingNotifier) Publish(_ context.Context, s food.Snapshot) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.snapshots = append(n.snapshots, s)
	return n.err
}

// FeedServiceTestSuite 投喂服务测试套件
type FeedServiceTestSuite struct {
	suite.Suite
	ctx      context.Context
	db       *gorm.DB
	repos    *repository.Manager
	clock    *clock.Manual
	notifier *recordingNotifier
	services *Services
	t0       time.Time
}

func (suite *FeedServiceTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.db = repository.SetupTestDB()
	suite.repos = repository.NewManager(suite.db)
	suite.t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	suite.clock = clock.NewManual(suite.t0)
	suite.notifier = &recordingNotifier{}
	suite.services = NewServices(suite.repos, suite.notifier, suite.clock, DefaultConfig(), zap.NewNop())
}

func (suite *FeedServiceTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

func (suite *FeedServiceTestSuite) feed(country string, count int) (*FeedResult, error) {
	return suite.services.Feed.Feed(suite.ctx, &FeedRequest{
		GuestID:     "guest-1",
		CountryCode: country,
		CountryName: "Country " + country,
		Count:       count,
	})
}

// 基线 10@T0，速率5，T0+1s 投喂3 → 8
func (suite *FeedServiceTestSuite) TestFeed_DepletesThenAdds() {
	repository.SeedFoodState(suite.T(), suite.db, 10, suite.t0, 5)
	suite.clock.Advance(time.Second)

	result, err := suite.feed("US", 3)
	suite.Require().NoError(err)
	suite.InDelta(8.0, result.FoodAmount, 1e-9)
	suite.Equal(int64(3), result.CountryScore)

	repository.AssertFoodState(suite.T(), suite.db, 8, suite.t0.Add(time.Second))
}

// 空碗不会透支：10@T0，T0+5s 时已为0，投喂1 → 1
func (suite *FeedServiceTestSuite) TestFeed_EmptyBowlDoesNotGoNegative() {
	repository.SeedFoodState(suite.T(), suite.db, 10, suite.t0, 5)
	suite.clock.Advance(5 * time.Second)

	result, err := suite.feed("US", 1)
	suite.Require().NoError(err)
	suite.InDelta(1.0, result.FoodAmount, 1e-9)
}

// 写入后立即读取得到写入的值，之后每秒减少rate
func (suite *FeedServiceTestSuite) TestFeed_RoundTripWithRead() {
	repository.SeedFoodState(suite.T(), suite.db, 0, suite.t0, 5)

	result, err := suite.feed("US", 20)
	suite.Require().NoError(err)

	state, err := suite.services.Food.ReadState(suite.ctx)
	suite.Require().NoError(err)
	suite.InDelta(result.FoodAmount, state.FoodAmount, 1e-9)
	suite.Equal(0.0, state.ElapsedSeconds)

	suite.clock.Advance(2 * time.Second)
	state, err = suite.services.Food.ReadState(suite.ctx)
	suite.Require().NoError(err)
	suite.InDelta(10.0, state.FoodAmount, 1e-9)
	suite.InDelta(2.0, state.ElapsedSeconds, 1e-9)
}

func (suite *FeedServiceTestSuite) TestFeed_CountryInsertThenIncrement() {
	repository.SeedFoodState(suite.T(), suite.db, 0, suite.t0, 5)

	result, err := suite.feed("BR", 2)
	suite.Require().NoError(err)
	suite.Equal(int64(2), result.CountryScore)

	result, err = suite.feed("BR", 5)
	suite.Require().NoError(err)
	suite.Equal(int64(7), result.CountryScore)

	score, err := suite.repos.CountryScore().Get(suite.ctx, "BR")
	suite.Require().NoError(err)
	suite.Equal(int64(7), score.Score)
	suite.Equal("Country BR", score.CountryName)
}

func (suite *FeedServiceTestSuite) TestFeed_CountryNameDefaultsToCode() {
	repository.SeedFoodState(suite.T(), suite.db, 0, suite.t0, 5)

	_, err := suite.services.Feed.Feed(suite.ctx, &FeedRequest{GuestID: "g", CountryCode: "UN", Count: 1})
	suite.Require().NoError(err)

	score, err := suite.repos.CountryScore().Get(suite.ctx, "UN")
	suite.Require().NoError(err)
	suite.Equal("UN", score.CountryName)
}

func (suite *FeedServiceTestSuite) TestFeed_NotInitialized() {
	_, err := suite.feed("US", 1)
	suite.True(apperrors.Is(err, apperrors.ErrNotInitialized))
	suite.Empty(suite.notifier.snapshots)

	// 国家积分也不应被修改
	_, getErr := suite.repos.CountryScore().Get(suite.ctx, "US")
	suite.ErrorIs(getErr, repository.ErrCountryNotFound)
}

func (suite *FeedServiceTestSuite) TestFeed_Validation() {
	repository.SeedFoodState(suite.T(), suite.db, 0, suite.t0, 5)

	cases := []*FeedRequest{
		{GuestID: "", CountryCode: "US", Count: 1},
		{GuestID: "g", CountryCode: "", Count: 1},
		{GuestID: "g", CountryCode: "US", Count: 0},
		{GuestID: "g", CountryCode: "US", Count: -3},
	}
	for _, req := range cases {
		_, err := suite.services.Feed.Feed(suite.ctx, req)
		suite.True(apperrors.Is(err, apperrors.ErrInvalidParam), "%+v", req)
	}
	repository.AssertFoodState(suite.T(), suite.db, 0, suite.t0)
}

func (suite *FeedServiceTestSuite) TestFeed_PublishesSnapshot() {
	repository.SeedFoodState(suite.T(), suite.db, 4, suite.t0, 2)
	suite.clock.Advance(time.Second)

	_, err := suite.feed("US", 1)
	suite.Require().NoError(err)

	suite.Require().Len(suite.notifier.snapshots, 1)
	s := suite.notifier.snapshots[0]
	suite.InDelta(3.0, s.FoodAmount, 1e-9)
	suite.True(suite.t0.Add(time.Second).Equal(s.LastConsumedAt))
	suite.Equal(2.0, s.ConsumptionRate)
}

func (suite *FeedServiceTestSuite) TestFeed_PublishFailureIgnored() {
	repository.SeedFoodState(suite.T(), suite.db, 0, suite.t0, 5)
	suite.notifier.err = errors.New("redis down")

	result, err := suite.feed("US", 2)
	suite.Require().NoError(err)
	suite.Equal(2.0, result.FoodAmount)
}

// 两个请求读到同一基线后先后写入，后写覆盖先写（默认模式下有意保留的竞争）
func (suite *FeedServiceTestSuite) TestFeed_LostUpdateInOverwriteMode() {
	repository.SeedFoodState(suite.T(), suite.db, 10, suite.t0, 5)
	stale, err := suite.repos.FoodState().Get(suite.ctx)
	suite.Require().NoError(err)

	_, err = suite.feed("US", 3)
	suite.Require().NoError(err)

	// 模拟另一个请求基于旧读取结果写回
	next := stale.Counter().Add(suite.t0, 4)
	suite.Require().NoError(suite.repos.FoodState().SaveBaseline(suite.ctx, next.Baseline, suite.t0))

	repository.AssertFoodState(suite.T(), suite.db, 14, suite.t0)
}

func (suite *FeedServiceTestSuite) TestFeed_VersionedModeAppliesBoth() {
	cfg := &Config{UpdateMode: UpdateModeVersioned, MaxCASRetries: 3}
	svc := NewServices(suite.repos, suite.notifier, suite.clock, cfg, zap.NewNop())
	repository.SeedFoodState(suite.T(), suite.db, 10, suite.t0, 5)

	for i := 0; i < 2; i++ {
		_, err := svc.Feed.Feed(suite.ctx, &FeedRequest{GuestID: "g", CountryCode: "US", Count: 3})
		suite.Require().NoError(err)
	}
	repository.AssertFoodState(suite.T(), suite.db, 16, suite.t0)

	state, err := suite.repos.FoodState().Get(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal(int64(2), state.Version)
}

func (suite *FeedServiceTestSuite) TestFeed_VersionedModeConflict() {
	repository.SeedFoodState(suite.T(), suite.db, 10, suite.t0, 5)
	repo := &conflictingFoodRepo{FoodStateRepository: suite.repos.FoodState()}
	svc := NewFeedService(repo, suite.repos.CountryScore(), suite.notifier, suite.clock,
		&Config{UpdateMode: UpdateModeVersioned, MaxCASRetries: 2}, zap.NewNop())

	_, err := svc.Feed(suite.ctx, &FeedRequest{GuestID: "g", CountryCode: "US", Count: 1})
	suite.True(apperrors.Is(err, apperrors.ErrConflict))
	suite.Equal(3, repo.attempts)
	suite.Equal(409, apperrors.HTTPStatus(err))
}

func (suite *FeedServiceTestSuite) TestFeed_CountryUpdateFailure() {
	repository.SeedFoodState(suite.T(), suite.db, 0, suite.t0, 5)
	repository.SeedCountries(suite.T(), suite.db, map[string]int64{"US": 1})

	countries := &failingCountryRepo{CountryScoreRepository: suite.repos.CountryScore(), failUpdate: true}
	svc := NewFeedService(suite.repos.FoodState(), countries, suite.notifier, suite.clock, DefaultConfig(), zap.NewNop())

	_, err := svc.Feed(suite.ctx, &FeedRequest{GuestID: "g", CountryCode: "US", Count: 1})
	suite.True(apperrors.Is(err, apperrors.ErrCountryScore))
	suite.Equal(500, apperrors.HTTPStatus(err))

	// 基线已提交，订阅方仍收到新状态
	repository.AssertFoodState(suite.T(), suite.db, 1, suite.t0)
	suite.Require().Len(suite.notifier.snapshots, 1)
	suite.Equal(1.0, suite.notifier.snapshots[0].FoodAmount)
}

func (suite *FeedServiceTestSuite) TestFeed_CountryInsertFailureSwallowed() {
	repository.SeedFoodState(suite.T(), suite.db, 0, suite.t0, 5)

	countries := &failingCountryRepo{CountryScoreRepository: suite.repos.CountryScore(), failInsert: true}
	svc := NewFeedService(suite.repos.FoodState(), countries, suite.notifier, suite.clock, DefaultConfig(), zap.NewNop())

	result, err := svc.Feed(suite.ctx, &FeedRequest{GuestID: "g", CountryCode: "NZ", Count: 4})
	suite.Require().NoError(err)
	suite.Equal(int64(4), result.CountryScore)
	suite.Equal(4.0, result.FoodAmount)
}

func TestFeedServiceSuite(t *testing.T) {
	suite.Run(t, new(FeedServiceTestSuite))
}

// conflictingFoodRepo 每次条件写入都失败
type conflictingFoodRepo struct {
	repository.FoodStateRepository
	attempts int
}

func (r *conflictingFoodRepo) CompareAndSwap(context.Context, int64, float64, time.Time) (bool, error) {
	r.attempts++
	return false, nil
}

type failingCountryRepo struct {
	repository.CountryScoreRepository
	failUpdate bool
	failInsert bool
}

func (r *failingCountryRepo) UpdateScore(ctx context.Context, code string, score int64) error {
	if r.failUpdate {
		return errors.New("update failed")
	}
	return r.CountryScoreRepository.UpdateScore(ctx, code, score)
}

func (r *failingCountryRepo) Insert(ctx context.Context, code, name string, score int64) error {
	if r.failInsert {
		return errors.New("insert failed")
	}
	return r.CountryScoreRepository.Insert(ctx, code, name, score)
}

