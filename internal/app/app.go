package app

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"futures-bot/internal/config"
	"futures-bot/internal/exchange"
	"futures-bot/internal/execution"
	"futures-bot/internal/journal"
	"futures-bot/internal/store"
)

// Option 配置 App。
type Option func(*App)

// WithGateway 使用外部提供的下单网关，跳过交易所客户端构造。
func WithGateway(gw exchange.Gateway) Option {
	return func(a *App) {
		a.gateway = gw
	}
}

// WithWaiter 替换 TWAP 分段之间的等待实现。
func WithWaiter(w execution.Waiter) Option {
	return func(a *App) {
		a.waiter = w
	}
}

// WithOutput 替换结果输出位置，默认 os.Stdout。
func WithOutput(w io.Writer) Option {
	return func(a *App) {
		a.out = w
	}
}

// preparer 为需要在下单前完成预热的网关。
type preparer interface {
	Prepare(ctx context.Context) error
}

// App 聚合核心依赖并驱动单次命令的生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer
	waiter execution.Waiter

	gateway  exchange.Gateway
	paper    *exchange.PaperGateway
	store    *store.Store
	journal  *journal.Service
	recorder execution.Recorder
	executor *execution.Executor

	journalOnce sync.Once
	journalErr  error
	tradingOnce sync.Once
	tradingErr  error
}

// New 创建 App 实例，不做任何网络或磁盘操作。
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{
		cfg:      cfg,
		logger:   logger,
		out:      os.Stdout,
		recorder: execution.NopRecorder(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Close 输出模拟账户统计并释放数据库连接。
func (a *App) Close() error {
	if a.paper != nil {
		stats := a.paper.Stats()
		a.logger.Info("模拟账户统计",
			zap.Int("orders", stats.Orders),
			zap.Stringer("filled_quantity", stats.FilledQty),
		)
	}
	if a.store == nil {
		return nil
	}
	return a.store.Close()
}

// prepareTrading 构造网关并并行完成市场信息加载与日志库初始化，全部完成后才允许下单。
func (a *App) prepareTrading(ctx context.Context) error {
	a.tradingOnce.Do(func() {
		a.tradingErr = a.initTrading(ctx)
	})
	return a.tradingErr
}

func (a *App) initTrading(ctx context.Context) error {
	if a.gateway == nil {
		gw, err := a.buildGateway()
		if err != nil {
			return err
		}
		a.gateway = gw
	}

	g, gctx := errgroup.WithContext(ctx)
	if p, ok := a.gateway.(preparer); ok {
		g.Go(func() error {
			if err := p.Prepare(gctx); err != nil {
				return &exchange.InitializationError{Reason: "加载交易所市场信息失败", Err: err}
			}
			return nil
		})
	}
	g.Go(func() error {
		return a.prepareJournal(gctx)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	a.executor = execution.NewExecutor(
		execution.NewSubmitter(a.gateway, a.logger, a.recorder),
		a.logger,
		a.recorder,
	)

	a.logger.Info("交易环境已就绪",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("exchange", a.cfg.Exchange.Name),
		zap.Bool("simulation", a.cfg.Execution.Simulation),
		zap.Bool("journal", a.journal != nil),
	)
	return nil
}

func (a *App) buildGateway() (exchange.Gateway, error) {
	if a.cfg.Execution.Simulation {
		a.logger.Info("执行器处于模拟模式，订单不会发送到交易所")
		a.paper = exchange.NewPaperGateway(a.logger)
		return a.paper, nil
	}

	client, err := exchange.NewClient(a.cfg.Exchange, a.logger)
	if err != nil {
		var initErr *exchange.InitializationError
		if errors.As(err, &initErr) {
			return nil, err
		}
		return nil, &exchange.InitializationError{Reason: "初始化交易所客户端失败", Err: err}
	}

	cfg := client.Config()
	a.logger.Info("交易所客户端已创建",
		zap.String("exchange", cfg.Name),
		zap.String("base_url", cfg.BaseURL),
		zap.Bool("testnet", cfg.Testnet),
	)
	return client, nil
}

// prepareJournal 打开数据库并建表；未启用时使用空记录器。
func (a *App) prepareJournal(ctx context.Context) error {
	a.journalOnce.Do(func() {
		a.journalErr = a.initJournal(ctx)
	})
	return a.journalErr
}

func (a *App) initJournal(ctx context.Context) error {
	if !a.cfg.Journal.Enabled {
		return nil
	}

	st, err := store.NewSQLite(ctx, a.cfg.Database)
	if err != nil {
		return &exchange.InitializationError{Reason: "初始化日志数据库失败", Err: err}
	}

	svc, err := journal.NewService(ctx, st, a.logger)
	if err != nil {
		return &exchange.InitializationError{
			Reason: "初始化日志服务失败",
			Err:    multierr.Append(err, st.Close()),
		}
	}

	a.store = st
	a.journal = svc
	a.recorder = svc

	path := a.cfg.Database.Path
	if st.InMemory() {
		path = ":memory:"
	}
	a.logger.Info("订单日志已启用", zap.String("path", path))
	return nil
}
