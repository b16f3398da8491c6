package journal

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"futures-bot/internal/config"
	"futures-bot/internal/exchange"
	"futures-bot/internal/execution"
	"futures-bot/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	ctx := context.Background()
	st, err := store.NewSQLite(ctx, config.DatabaseConfig{InMemory: true})
	if err != nil {
		t.Fatalf("初始化内存数据库失败: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	svc, err := NewService(ctx, st, nil)
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return svc, st
}

func TestNewService_RequiresStore(t *testing.T) {
	if _, err := NewService(context.Background(), nil, nil); err == nil {
		t.Fatalf("expected error for nil store")
	}
}

func TestService_RecordsAndListsEvents(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	qty := decimal.RequireFromString("0.01")
	price := decimal.RequireFromString("42000")
	req := exchange.NewLimitRequest("BTCUSDT", exchange.SideBuy, qty, price).WithClientOrderID("bot-abc")
	svc.RecordOrder(ctx, "LIMIT", req, exchange.OrderResponse{OrderID: "42", Status: exchange.StatusNew, ExecutedQty: "0"})

	svc.RecordError(ctx, "下单失败", errors.New("boom"), map[string]interface{}{"symbol": "BTCUSDT"})
	svc.RecordError(ctx, "没有错误对象", nil, nil)

	resp := exchange.OrderResponse{OrderID: "43", Status: exchange.StatusFilled, ExecutedQty: "0.01"}
	svc.RecordChunk(ctx, "run-1", execution.ChunkOutcome{Index: 1, Quantity: qty, ClientOrderID: "twap-run-1-01", Response: &resp})

	plan := execution.NewPlan("BTCUSDT", exchange.SideBuy, decimal.RequireFromString("0.05"), 5, 10)
	svc.RecordRun(ctx, execution.Report{
		RunID:      "run-1",
		Plan:       plan,
		Summary:    execution.Summarize(nil, plan.TotalQuantity),
		StartedAt:  time.Unix(1700000000, 0).UTC(),
		FinishedAt: time.Unix(1700000040, 0).UTC(),
	})

	all, err := svc.ListEvents(ctx, "", 10)
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(all) != 5 {
		t.Fatalf("expected 5 events, got %d", len(all))
	}
	if all[0].Type != EventTWAPRun {
		t.Errorf("expected newest event first, got %s", all[0].Type)
	}

	orders, err := svc.ListEvents(ctx, EventOrder, 10)
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("expected 1 order event, got %d", len(orders))
	}

	raw, ok := orders[0].Payload.(json.RawMessage)
	if !ok {
		t.Fatalf("expected raw payload, got %T", orders[0].Payload)
	}
	var payload OrderPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.OrderID != "42" || payload.Strategy != "LIMIT" || payload.Price == nil || *payload.Price != "42000" || payload.StopPrice != nil {
		t.Errorf("unexpected order payload %+v", payload)
	}
	if orders[0].Timestamp.IsZero() {
		t.Errorf("expected parsed timestamp")
	}

	limited, err := svc.ListEvents(ctx, EventError, 1)
	if err != nil {
		t.Fatalf("ListEvents returned error: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected limit to apply, got %d", len(limited))
	}
}

func TestService_RecordFailureIsSwallowed(t *testing.T) {
	svc, st := newTestService(t)
	_ = st.Close()

	// 数据库已关闭，记录失败只写告警日志
	svc.RecordOrder(context.Background(), "MARKET",
		exchange.NewMarketRequest("BTCUSDT", exchange.SideSell, decimal.RequireFromString("0.01")),
		exchange.OrderResponse{OrderID: "1"})

	if err := svc.Record(context.Background(), Event{Type: EventOrder, Payload: OrderPayload{}}); err == nil {
		t.Fatalf("expected error writing to closed database")
	}
}

func TestParseEventType(t *testing.T) {
	if typ, err := ParseEventType("twap_chunk"); err != nil || typ != EventTWAPChunk {
		t.Fatalf("unexpected result %q, %v", typ, err)
	}
	if typ, err := ParseEventType(""); err != nil || typ != "" {
		t.Fatalf("empty type should mean all, got %q, %v", typ, err)
	}
	if _, err := ParseEventType("market_snapshot"); err == nil {
		t.Fatalf("expected error for unknown type")
	}
}
