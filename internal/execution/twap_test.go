package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"futures-bot/internal/exchange"
)

type recordingWaiter struct {
	waits      []time.Duration
	cancelAt   int
	cancelFunc context.CancelFunc
}

func (w *recordingWaiter) Wait(ctx context.Context, d time.Duration) error {
	w.waits = append(w.waits, d)
	if w.cancelAt > 0 && len(w.waits) == w.cancelAt && w.cancelFunc != nil {
		w.cancelFunc()
	}
	return ctx.Err()
}

func newTestScheduler(gw exchange.Gateway, waiter Waiter, rec Recorder, opts ...SchedulerOption) *Scheduler {
	opts = append([]SchedulerOption{WithRunIDGenerator(func() string { return "0123456789abcdef" })}, opts...)
	return NewScheduler(newTestExecutor(gw, rec), waiter, nil, rec, opts...)
}

func TestScheduler_AllChunksSucceed(t *testing.T) {
	gw := &mockGateway{}
	waiter := &recordingWaiter{}
	rec := &mockRecorder{}
	scheduler := newTestScheduler(gw, waiter, rec)

	plan := NewPlan("BTCUSDT", exchange.SideBuy, dec("0.05"), 5, 10)
	report, err := scheduler.Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(gw.requests) != 5 {
		t.Fatalf("expected 5 submissions, got %d", len(gw.requests))
	}
	for i, req := range gw.requests {
		if req.Type != exchange.OrderTypeMarket {
			t.Errorf("chunk %d: expected market order, got %s", i+1, req.Type)
		}
		if !req.Quantity.Equal(dec("0.01")) {
			t.Errorf("chunk %d: expected quantity 0.01, got %s", i+1, req.Quantity)
		}
	}
	if gw.requests[2].ClientOrderID != "twap-01234567-03" {
		t.Errorf("unexpected client order id %q", gw.requests[2].ClientOrderID)
	}

	if len(waiter.waits) != 4 {
		t.Fatalf("expected 4 waits (none after last chunk), got %d", len(waiter.waits))
	}
	for _, d := range waiter.waits {
		if d != 10*time.Second {
			t.Errorf("expected 10s wait, got %s", d)
		}
	}

	s := report.Summary
	if s.TotalChunks != 5 || s.SuccessfulChunks != 5 || s.FailedChunks != 0 {
		t.Errorf("unexpected counts %+v", s)
	}
	if !s.TotalQuantityFilled.Equal(dec("0.05")) {
		t.Errorf("expected filled 0.05, got %s", s.TotalQuantityFilled)
	}
	if s.FillRatePercent.StringFixed(2) != "100.00" {
		t.Errorf("expected fill rate 100.00, got %s", s.FillRatePercent.StringFixed(2))
	}
	if report.Interrupted {
		t.Errorf("run should not be interrupted")
	}
	if len(rec.chunks) != 5 || len(rec.runs) != 1 {
		t.Errorf("expected 5 chunk records and 1 run record, got %d/%d", len(rec.chunks), len(rec.runs))
	}
}

func TestScheduler_ChunkFailureDoesNotAbortRun(t *testing.T) {
	gw := &mockGateway{script: map[int]scriptedResult{
		3: {err: &exchange.NetworkError{Op: "create_order", Err: errors.New("connection reset")}},
	}}
	waiter := &recordingWaiter{}
	var observed []int
	scheduler := newTestScheduler(gw, waiter, nil, WithChunkObserver(func(_ Plan, o ChunkOutcome) {
		observed = append(observed, o.Index)
	}))

	plan := NewPlan("BTCUSDT", exchange.SideSell, dec("0.10"), 5, 5)
	report, err := scheduler.Run(context.Background(), plan)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	if len(report.Outcomes) != 5 || len(gw.requests) != 5 {
		t.Fatalf("expected all 5 chunks attempted, got %d outcomes / %d requests", len(report.Outcomes), len(gw.requests))
	}
	for i, req := range gw.requests {
		if !req.Quantity.Equal(dec("0.02")) {
			t.Errorf("chunk %d: expected 0.02, got %s", i+1, req.Quantity)
		}
	}

	failed := report.Outcomes[2]
	var netErr *exchange.NetworkError
	if failed.Index != 3 || failed.Response != nil || !errors.As(failed.Err, &netErr) {
		t.Errorf("unexpected chunk 3 outcome %+v", failed)
	}
	if !report.Outcomes[4].Succeeded() {
		t.Errorf("chunk 5 should have been attempted and succeeded")
	}

	s := report.Summary
	if s.SuccessfulChunks != 4 || s.FailedChunks != 1 {
		t.Errorf("unexpected counts %+v", s)
	}
	if s.FillRatePercent.StringFixed(2) != "80.00" {
		t.Errorf("expected fill rate 80.00, got %s", s.FillRatePercent.StringFixed(2))
	}
	if s.Err() == nil {
		t.Errorf("expected aggregated chunk error")
	}
	if len(observed) != 5 {
		t.Errorf("observer should see every chunk, got %v", observed)
	}
}

func TestScheduler_RecoversPanickingChunk(t *testing.T) {
	placer := panicOnce{inner: newTestExecutor(&mockGateway{}, nil)}
	scheduler := NewScheduler(&placer, &recordingWaiter{}, nil, nil)

	report, err := scheduler.Run(context.Background(), NewPlan("BTCUSDT", exchange.SideBuy, dec("0.02"), 2, 1))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if report.Outcomes[0].Err == nil || report.Outcomes[0].Response != nil {
		t.Errorf("expected first chunk to record the panic, got %+v", report.Outcomes[0])
	}
	if !report.Outcomes[1].Succeeded() {
		t.Errorf("expected second chunk to succeed")
	}
}

func TestScheduler_InterruptedDuringWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw := &mockGateway{}
	waiter := &recordingWaiter{cancelAt: 2, cancelFunc: cancel}
	scheduler := newTestScheduler(gw, waiter, nil)

	report, err := scheduler.Run(ctx, NewPlan("BTCUSDT", exchange.SideBuy, dec("0.05"), 5, 10))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !report.Interrupted {
		t.Errorf("expected Interrupted report")
	}
	if len(report.Outcomes) != 2 || len(gw.requests) != 2 {
		t.Errorf("expected 2 chunks before interruption, got %d", len(report.Outcomes))
	}
	if report.Summary.TotalChunks != 2 || !report.Summary.TotalQuantityRequested.Equal(dec("0.05")) {
		t.Errorf("unexpected partial summary %+v", report.Summary)
	}
}

func TestScheduler_RejectsInvalidPlan(t *testing.T) {
	scheduler := newTestScheduler(&mockGateway{}, &recordingWaiter{}, nil)
	if _, err := scheduler.Run(context.Background(), NewPlan("BTCUSDT", exchange.SideBuy, dec("0.05"), 0, 10)); err == nil {
		t.Fatalf("expected error for zero chunks")
	}
}

func TestTimerWaiter(t *testing.T) {
	start := time.Now()
	if err := (TimerWaiter{}).Wait(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("returned too early after %s", elapsed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (TimerWaiter{}).Wait(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestPlan_ChunkQuantity(t *testing.T) {
	plan := NewPlan("BTCUSDT", exchange.SideBuy, dec("0.1"), 3, 1)
	if got := plan.ChunkQuantity().String(); got != "0.03333333" {
		t.Errorf("expected 0.03333333, got %s", got)
	}
	if plan.EstimatedDuration() != 2*time.Second {
		t.Errorf("expected 2s estimated duration, got %s", plan.EstimatedDuration())
	}
}

func TestPlan_ChunkQuantityNeverExceedsTotal(t *testing.T) {
	cases := []struct {
		total  string
		chunks int
		want   string
	}{
		{total: "2", chunks: 3, want: "0.66666666"},
		{total: "1000", chunks: 7, want: "142.85714285"},
		{total: "0.05", chunks: 5, want: "0.01"},
	}

	for _, tc := range cases {
		plan := NewPlan("BTCUSDT", exchange.SideBuy, dec(tc.total), tc.chunks, 1)
		chunk := plan.ChunkQuantity()
		if !chunk.Equal(dec(tc.want)) {
			t.Errorf("%s/%d: expected chunk %s, got %s", tc.total, tc.chunks, tc.want, chunk)
		}
		sum := chunk.Mul(decimal.NewFromInt(int64(tc.chunks)))
		if sum.GreaterThan(plan.TotalQuantity) {
			t.Errorf("%s/%d: chunks add up to %s, above the total", tc.total, tc.chunks, sum)
		}
	}
}

type cancelOnCallGateway struct {
	mockGateway
	cancelOn int
	cancel   context.CancelFunc
}

func (g *cancelOnCallGateway) SubmitOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResponse, error) {
	g.mu.Lock()
	call := len(g.requests) + 1
	g.mu.Unlock()
	if call == g.cancelOn {
		g.cancel()
		g.mu.Lock()
		g.requests = append(g.requests, req)
		g.mu.Unlock()
		return exchange.OrderResponse{}, ctx.Err()
	}
	return g.mockGateway.SubmitOrder(ctx, req)
}

func TestScheduler_InterruptedDuringFinalChunk(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gw := &cancelOnCallGateway{cancelOn: 3, cancel: cancel}
	scheduler := newTestScheduler(gw, &recordingWaiter{}, nil)

	report, err := scheduler.Run(ctx, NewPlan("BTCUSDT", exchange.SideBuy, dec("0.03"), 3, 1))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if !report.Interrupted {
		t.Errorf("expected Interrupted report")
	}
	if len(report.Outcomes) != 3 || report.Outcomes[2].Err == nil {
		t.Errorf("expected the final chunk to be recorded as failed, got %+v", report.Outcomes)
	}
	if report.Summary.SuccessfulChunks != 2 {
		t.Errorf("expected 2 successful chunks, got %d", report.Summary.SuccessfulChunks)
	}
}

func TestScheduler_UsesInjectedClock(t *testing.T) {
	base := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		now := base.Add(time.Duration(tick) * time.Second)
		tick++
		return now
	}
	scheduler := newTestScheduler(&mockGateway{}, &recordingWaiter{}, nil, WithClock(clock))

	report, err := scheduler.Run(context.Background(), NewPlan("BTCUSDT", exchange.SideBuy, dec("0.02"), 2, 10))
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	// 开始、两个分段提交、结束各取一次时间
	if !report.StartedAt.Equal(base) || !report.Outcomes[1].SubmittedAt.Equal(base.Add(2*time.Second)) {
		t.Errorf("unexpected timestamps start=%s chunk2=%s", report.StartedAt, report.Outcomes[1].SubmittedAt)
	}
	if report.Elapsed() != 3*time.Second {
		t.Errorf("expected elapsed 3s, got %s", report.Elapsed())
	}
}

type panicOnce struct {
	inner  MarketPlacer
	called bool
}

func (p *panicOnce) PlaceMarket(ctx context.Context, symbol string, side exchange.Side, qty decimal.Decimal, opts ...OrderOption) (exchange.OrderResponse, error) {
	if !p.called {
		p.called = true
		panic("gateway exploded")
	}
	return p.inner.PlaceMarket(ctx, symbol, side, qty, opts...)
}
