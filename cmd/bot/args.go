package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"go.uber.org/multierr"

	"futures-bot/internal/app"
	"futures-bot/internal/journal"
	"futures-bot/internal/validation"
)

const (
	cmdMarket    = "market"
	cmdLimit     = "limit"
	cmdStopLimit = "stop-limit"
	cmdTWAP      = "twap"
	cmdHistory   = "history"
)

var errUsage = errors.New("命令用法错误")

type commandUsage struct {
	args    string
	arity   int
	example string
}

var commands = map[string]commandUsage{
	cmdMarket:    {args: "SYMBOL SIDE QUANTITY", arity: 3, example: "bot market BTCUSDT BUY 0.01"},
	cmdLimit:     {args: "SYMBOL SIDE QUANTITY PRICE", arity: 4, example: "bot limit BTCUSDT SELL 0.01 45000"},
	cmdStopLimit: {args: "SYMBOL SIDE QUANTITY PRICE STOP_PRICE", arity: 5, example: "bot stop-limit BTCUSDT BUY 0.01 41500 41600"},
	cmdTWAP:      {args: "SYMBOL SIDE TOTAL_QUANTITY CHUNKS INTERVAL_SECONDS", arity: 5, example: "bot twap BTCUSDT BUY 0.05 5 10"},
	cmdHistory:   {args: "[-type order|error|twap_chunk|twap_run] [-limit N]", arity: -1, example: "bot history -type twap_run -limit 20"},
}

var commandOrder = []string{cmdMarket, cmdLimit, cmdStopLimit, cmdTWAP, cmdHistory}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "用法: bot [-config path] <command> [args]")
	fmt.Fprintln(w, "\n命令:")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "   %-11s %s\n", name, commands[name].args)
	}
	fmt.Fprintln(w, "\n示例:")
	for _, name := range commandOrder {
		fmt.Fprintf(w, "   %s\n", commands[name].example)
	}
	fmt.Fprintln(w, "\n环境变量:")
	fmt.Fprintln(w, "   BINANCE_API_KEY     Binance 期货测试网 API Key")
	fmt.Fprintln(w, "   BINANCE_API_SECRET  Binance 期货测试网 API Secret")
}

func checkArity(name string, args []string) error {
	c, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: 未知命令 %q", errUsage, name)
	}
	if c.arity >= 0 && len(args) != c.arity {
		return fmt.Errorf("%w: %s 需要 %d 个参数 (%s)，实际 %d 个", errUsage, name, c.arity, c.args, len(args))
	}
	return nil
}

// parseOrderArgs 校验单次下单参数，所有字段的错误合并返回。
func parseOrderArgs(v *validation.Validator, name string, args []string) (app.OrderArgs, error) {
	if err := checkArity(name, args); err != nil {
		return app.OrderArgs{}, err
	}

	var (
		out  app.OrderArgs
		errs error
		err  error
	)
	out.Symbol, err = v.Symbol(args[0])
	errs = multierr.Append(errs, err)
	out.Side, err = v.Side(args[1])
	errs = multierr.Append(errs, err)
	out.Quantity, err = v.Quantity(args[2])
	errs = multierr.Append(errs, err)

	if name == cmdLimit || name == cmdStopLimit {
		out.Price, err = v.Price(args[3])
		errs = multierr.Append(errs, err)
	}
	if name == cmdStopLimit {
		out.StopPrice, err = v.StopPrice(args[4])
		errs = multierr.Append(errs, err)
	}

	if errs != nil {
		return app.OrderArgs{}, errs
	}
	return out, nil
}

// parseTWAPArgs 校验 TWAP 参数，包括分段数与间隔上限。
func parseTWAPArgs(v *validation.Validator, args []string) (app.TWAPArgs, error) {
	if err := checkArity(cmdTWAP, args); err != nil {
		return app.TWAPArgs{}, err
	}

	var (
		out  app.TWAPArgs
		errs error
		err  error
	)
	out.Symbol, err = v.Symbol(args[0])
	errs = multierr.Append(errs, err)
	out.Side, err = v.Side(args[1])
	errs = multierr.Append(errs, err)
	out.TotalQuantity, err = v.TotalQuantity(args[2])
	errs = multierr.Append(errs, err)
	out.Chunks, err = v.Chunks(args[3])
	errs = multierr.Append(errs, err)
	out.IntervalSeconds, err = v.IntervalSeconds(args[4])
	errs = multierr.Append(errs, err)

	if errs != nil {
		return app.TWAPArgs{}, errs
	}
	return out, nil
}

func parseHistoryArgs(args []string, stderr io.Writer) (app.HistoryArgs, error) {
	fs := flag.NewFlagSet(cmdHistory, flag.ContinueOnError)
	fs.SetOutput(stderr)
	typ := fs.String("type", "", "事件类型: order, error, twap_chunk, twap_run")
	limit := fs.String("limit", "20", "最多返回的事件数")
	if err := fs.Parse(args); err != nil {
		return app.HistoryArgs{}, fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return app.HistoryArgs{}, fmt.Errorf("%w: history 不接受位置参数", errUsage)
	}

	var errs error
	eventType, err := journal.ParseEventType(*typ)
	errs = multierr.Append(errs, err)
	n, err := strconv.Atoi(*limit)
	if err == nil && n <= 0 {
		err = fmt.Errorf("limit 必须为正整数: %q", *limit)
	}
	errs = multierr.Append(errs, err)
	if errs != nil {
		return app.HistoryArgs{}, errs
	}
	return app.HistoryArgs{Type: eventType, Limit: n}, nil
}
