package scheduler

import (
	"context"
	"fmt"
	"time"

	"cleanclip/utils"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// PoolRefresher 重新加载模板池缓存
type PoolRefresher interface {
	RefreshPools(ctx context.Context) error
}

// PrewarmScheduler 定时预热模板池缓存。
// 只读取模板表，不会替用户写入交付记录：交付记录只在用户首次读取当天内容时产生。
type PrewarmScheduler struct {
	cronEngine *cron.Cron
	pools      PoolRefresher
	spec       string
	timeout    time.Duration
	log        *logrus.Entry
}

func NewPrewarmScheduler(pools PoolRefresher, spec string) *PrewarmScheduler {
	log := utils.Log.WithField("component", "prewarm_scheduler")
	return &PrewarmScheduler{
		cronEngine: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(log))),
		),
		pools:   pools,
		spec:    spec,
		timeout: time.Minute,
		log:     log,
	}
}

// Start 注册任务并启动，spec 为空时不启动
func (s *PrewarmScheduler) Start() error {
	if s.spec == "" {
		s.log.Info("prewarm scheduler disabled")
		return nil
	}

	_, err := s.cronEngine.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		if err := s.RunOnce(ctx); err != nil {
			s.log.WithError(err).Error("prewarm run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid prewarm cron spec %q: %w", s.spec, err)
	}

	s.cronEngine.Start()
	s.log.WithField("spec", s.spec).Info("prewarm scheduler started")
	return nil
}

// Stop 停止调度并等待正在执行的任务
func (s *PrewarmScheduler) Stop() {
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.log.Info("prewarm scheduler stopped")
}

// RunOnce 刷新所有业务类型的模板池缓存
func (s *PrewarmScheduler) RunOnce(ctx context.Context) error {
	started := time.Now()
	if err := s.pools.RefreshPools(ctx); err != nil {
		return fmt.Errorf("failed to refresh template pools: %w", err)
	}
	s.log.WithField("elapsed", time.Since(started)).Debug("template pools refreshed")
	return nil
}
