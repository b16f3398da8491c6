package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"futures-bot/internal/app"
	"futures-bot/internal/config"
	"futures-bot/internal/log"
	"futures-bot/internal/validation"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(argv []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("bot", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "配置文件路径，默认使用 configs/config.yaml")
	fs.Usage = func() { printUsage(stderr) }
	if err := fs.Parse(argv); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 1
	}
	if fs.NArg() == 0 {
		printUsage(stderr)
		return 1
	}
	name, args := fs.Arg(0), fs.Args()[1:]

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "加载配置失败: %v\n", err)
		return 1
	}

	logger, err := log.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(stderr, "初始化日志失败: %v\n", err)
		return 1
	}
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	validator := validation.New(validation.LimitsFromConfig(cfg.Limits), logger)

	// 所有参数在连接交易所之前完成校验
	action, err := parse(validator, name, args, stderr)
	if err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintf(stderr, "错误: %v\n\n", err)
			printUsage(stderr)
			return 1
		}
		logger.Warn("参数校验失败", zap.String("command", name), zap.Error(err))
		fmt.Fprintf(stderr, "错误: 参数校验失败: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bot := app.New(cfg, logger, app.WithOutput(stdout))
	defer func() {
		if closeErr := bot.Close(); closeErr != nil {
			logger.Warn("关闭数据库失败", zap.Error(closeErr))
		}
	}()

	if err := action(ctx, bot); err != nil {
		logger.Error("命令执行失败", zap.String("command", name), zap.Error(err))
		fmt.Fprintf(stderr, "错误: %v\n", err)
		return 1
	}

	if name == cmdTWAP {
		fmt.Fprintln(stdout, "\nTWAP 执行完成，详细信息见日志文件。")
	}
	logger.Debug("命令执行完成", zap.String("command", name))
	return 0
}

type action func(ctx context.Context, bot *app.App) error

func parse(v *validation.Validator, name string, args []string, stderr io.Writer) (action, error) {
	switch name {
	case cmdMarket, cmdLimit, cmdStopLimit:
		orderArgs, err := parseOrderArgs(v, name, args)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, bot *app.App) error {
			switch name {
			case cmdLimit:
				return bot.RunLimit(ctx, orderArgs)
			case cmdStopLimit:
				return bot.RunStopLimit(ctx, orderArgs)
			default:
				return bot.RunMarket(ctx, orderArgs)
			}
		}, nil
	case cmdTWAP:
		twapArgs, err := parseTWAPArgs(v, args)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, bot *app.App) error {
			return bot.RunTWAP(ctx, twapArgs)
		}, nil
	case cmdHistory:
		historyArgs, err := parseHistoryArgs(args, stderr)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, bot *app.App) error {
			return bot.History(ctx, historyArgs)
		}, nil
	default:
		return nil, checkArity(name, args)
	}
}
