package service

import (
	"context"
	"errors"

	"github.com/wfunc/feed-the-cat/internal/clock"
	apperrors "github.com/wfunc/feed-the-cat/internal/errors"
	"github.com/wfunc/feed-the-cat/internal/food"
	"github.com/wfunc/feed-the-cat/internal/logger"
	"github.com/wfunc/feed-the-cat/internal/notify"
	"github.com/wfunc/feed-the-cat/internal/repository"
	"go.uber.org/zap"
)

// feedService 投喂服务实现
type feedService struct {
	foodRepo    repository.FoodStateRepository
	countryRepo repository.CountryScoreRepository
	notifier    notify.Notifier
	clock       clock.Clock
	cfg         *Config
	log         *zap.Logger
}

// NewFeedService 创建投喂服务
func NewFeedService(
	foodRepo repository.FoodStateRepository,
	countryRepo repository.CountryScoreRepository,
	notifier notify.Notifier,
	clk clock.Clock,
	cfg *Config,
	log *zap.Logger,
) FeedService {
	return &feedService{
		foodRepo:    foodRepo,
		countryRepo: countryRepo,
		notifier:    notifier,
		clock:       clk,
		cfg:         cfg,
		log:         log,
	}
}

// Feed 投喂
func (s *feedService) Feed(ctx context.Context, req *FeedRequest) (*FeedResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		next food.Counter
		err  error
	)
	if s.cfg.UpdateMode == UpdateModeVersioned {
		next, err = s.addVersioned(ctx, req.Count)
	} else {
		next, err = s.addOverwrite(ctx, req.Count)
	}
	if err != nil {
		return nil, err
	}

	// 基线已写入，国家积分失败也要推送；推送失败只影响实时展示，客户端还有轮询兜底
	if err := s.notifier.Publish(ctx, next.Snapshot()); err != nil {
		s.log.Warn("发布食物状态失败", zap.Error(err))
	}

	score, err := s.addCountryScore(ctx, req)
	if err != nil {
		return nil, err
	}

	logger.LogFeed(req.GuestID, req.CountryCode, req.Count, next.Baseline, score)

	return &FeedResult{
		FoodAmount:   next.Baseline,
		CountryScore: score,
	}, nil
}

// addOverwrite 读取、衰减、加量后无条件写回
func (s *feedService) addOverwrite(ctx context.Context, count int) (food.Counter, error) {
	state, err := loadFoodState(ctx, s.foodRepo)
	if err != nil {
		return food.Counter{}, err
	}

	now := s.clock.Now()
	next := state.Counter().Add(now, float64(count))

	if err := s.foodRepo.SaveBaseline(ctx, next.Baseline, now); err != nil {
		return food.Counter{}, s.wrapWriteErr(err)
	}
	return next, nil
}

// addVersioned 版本号不匹配时重新读取，最多重试 MaxCASRetries 次
func (s *feedService) addVersioned(ctx context.Context, count int) (food.Counter, error) {
	for attempt := 0; attempt <= s.cfg.MaxCASRetries; attempt++ {
		state, err := loadFoodState(ctx, s.foodRepo)
		if err != nil {
			return food.Counter{}, err
		}

		now := s.clock.Now()
		next := state.Counter().Add(now, float64(count))

		ok, err := s.foodRepo.CompareAndSwap(ctx, state.Version, next.Baseline, now)
		if err != nil {
			return food.Counter{}, s.wrapWriteErr(err)
		}
		if ok {
			return next, nil
		}

		s.log.Debug("食物状态版本冲突，重试",
			zap.Int64("version", state.Version),
			zap.Int("attempt", attempt+1))
	}
	return food.Counter{}, apperrors.Newf(apperrors.ErrConflict, "重试 %d 次后仍然冲突", s.cfg.MaxCASRetries)
}

func (s *feedService) wrapWriteErr(err error) error {
	if errors.Is(err, repository.ErrFoodStateNotFound) {
		return apperrors.New(apperrors.ErrNotInitialized)
	}
	return apperrors.Wrap(err, apperrors.ErrDatabaseUpdate, "写入全局食物状态")
}

// addCountryScore 累计国家积分
// 更新失败返回错误；新建失败只记录日志，仍按本批次数量返回积分
func (s *feedService) addCountryScore(ctx context.Context, req *FeedRequest) (int64, error) {
	count := int64(req.Count)

	existing, err := s.countryRepo.Get(ctx, req.CountryCode)
	if err == nil {
		score := existing.Score + count
		if err := s.countryRepo.UpdateScore(ctx, req.CountryCode, score); err != nil {
			return 0, apperrors.Wrapf(err, apperrors.ErrCountryScore, "更新国家 %s", req.CountryCode)
		}
		return score, nil
	}

	if !errors.Is(err, repository.ErrCountryNotFound) {
		// 读取失败按不存在处理，交给插入路径
		s.log.Warn("读取国家积分失败", zap.String("country", req.CountryCode), zap.Error(err))
	}

	name := req.CountryName
	if name == "" {
		name = req.CountryCode
	}
	if err := s.countryRepo.Insert(ctx, req.CountryCode, name, count); err != nil {
		s.log.Warn("新建国家积分失败",
			zap.String("country", req.CountryCode),
			zap.Error(apperrors.Wrap(err, apperrors.ErrCountryScore)))
	}
	return count, nil
}

