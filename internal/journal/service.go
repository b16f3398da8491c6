package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"futures-bot/internal/exchange"
	"futures-bot/internal/execution"
	"futures-bot/internal/store"
)

// Service 负责持久化下单事件。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
	now    func() time.Time
}

var _ execution.Recorder = (*Service)(nil)

// NewService 初始化日志服务，创建所需表结构。
func NewService(ctx context.Context, store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("journal: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Service{
		db:     store.DB(),
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}

	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) initSchema(ctx context.Context) error {
	stmt := `
CREATE TABLE IF NOT EXISTS order_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_order_events_type ON order_events(event_type);
`
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("journal: 初始化表失败: %w", err)
	}
	return nil
}

// Record 写入单个事件。
func (s *Service) Record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("journal: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO order_events (event_type, payload, created_at) VALUES (?, ?, ?)`,
		string(event.Type), string(payload), event.Timestamp.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("journal: 写入事件失败: %w", err)
	}

	return nil
}

func (s *Service) record(ctx context.Context, eventType EventType, payload interface{}, warn string) {
	if err := s.Record(ctx, Event{Type: eventType, Timestamp: s.now(), Payload: payload}); err != nil {
		s.logger.Warn(warn, zap.String("event_type", string(eventType)), zap.Error(err))
	}
}

// RecordOrder 记录成功下单。
func (s *Service) RecordOrder(ctx context.Context, strategy string, req exchange.OrderRequest, resp exchange.OrderResponse) {
	s.record(ctx, EventOrder, OrderPayload{
		Strategy:      strategy,
		Symbol:        req.Symbol,
		Side:          string(req.Side),
		Type:          string(req.Type),
		Quantity:      req.Quantity.String(),
		Price:         decimalString(req.Price),
		StopPrice:     decimalString(req.StopPrice),
		ClientOrderID: req.ClientOrderID,
		OrderID:       resp.OrderID,
		Status:        string(resp.Status),
		ExecutedQty:   resp.ExecutedQty,
		AvgPrice:      resp.AvgPrice,
	}, "记录下单事件失败")
}

// RecordError 记录异常。
func (s *Service) RecordError(ctx context.Context, msg string, err error, ctxMap map[string]interface{}) {
	payload := ErrorPayload{
		Message: msg,
		Context: ctxMap,
	}
	if err != nil {
		payload.Error = err.Error()
	}
	s.record(ctx, EventError, payload, "记录异常事件失败")
}

// RecordChunk 记录 TWAP 分段结果。
func (s *Service) RecordChunk(ctx context.Context, runID string, outcome execution.ChunkOutcome) {
	payload := ChunkPayload{
		RunID:         runID,
		Index:         outcome.Index,
		Quantity:      outcome.Quantity.String(),
		ClientOrderID: outcome.ClientOrderID,
	}
	if outcome.Response != nil {
		payload.OrderID = outcome.Response.OrderID
		payload.Status = string(outcome.Response.Status)
		payload.ExecutedQty = outcome.Response.ExecutedQty
	}
	if outcome.Err != nil {
		payload.Error = outcome.Err.Error()
	}
	s.record(ctx, EventTWAPChunk, payload, "记录 TWAP 分段事件失败")
}

// RecordRun 记录 TWAP 运行汇总。
func (s *Service) RecordRun(ctx context.Context, report execution.Report) {
	summary := report.Summary
	s.record(ctx, EventTWAPRun, RunPayload{
		RunID:            report.RunID,
		Symbol:           report.Plan.Symbol,
		Side:             string(report.Plan.Side),
		TotalQuantity:    report.Plan.TotalQuantity.String(),
		Chunks:           report.Plan.Chunks,
		IntervalSeconds:  report.Plan.Interval.Seconds(),
		SuccessfulChunks: summary.SuccessfulChunks,
		FailedChunks:     summary.FailedChunks,
		FilledQuantity:   summary.TotalQuantityFilled.String(),
		FillRatePercent:  summary.FillRatePercent.StringFixed(2),
		AveragePrice:     summary.AveragePrice.String(),
		Interrupted:      report.Interrupted,
		StartedAt:        report.StartedAt,
		FinishedAt:       report.FinishedAt,
	}, "记录 TWAP 汇总事件失败")
}

// ListEvents 按类型检索最近事件，eventType 为空时返回全部类型。
func (s *Service) ListEvents(ctx context.Context, eventType EventType, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `SELECT id, event_type, payload, created_at FROM order_events`
	args := make([]interface{}, 0, 2)
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("journal: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]Event, 0, limit)
	for rows.Next() {
		var (
			id      int64
			typ     string
			payload string
			created string
		)
		if scanErr := rows.Scan(&id, &typ, &payload, &created); scanErr != nil {
			return nil, fmt.Errorf("journal: 解析事件失败: %w", scanErr)
		}

		ts, parseErr := time.Parse(time.RFC3339Nano, created)
		if parseErr != nil {
			ts = time.Time{}
		}

		events = append(events, Event{
			ID:        id,
			Type:      EventType(typ),
			Timestamp: ts,
			Payload:   json.RawMessage(payload),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("journal: 读取事件失败: %w", err)
	}

	return events, nil
}

// ParseEventType 校验命令行传入的事件类型，空字符串表示全部。
func ParseEventType(raw string) (EventType, error) {
	if raw == "" {
		return "", nil
	}
	for _, known := range KnownEventTypes {
		if string(known) == raw {
			return known, nil
		}
	}
	return "", fmt.Errorf("journal: 未知事件类型 %q", raw)
}

func decimalString(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}
