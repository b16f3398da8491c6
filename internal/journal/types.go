package journal

import (
	"time"
)

// EventType 表示日志事件类型。
type EventType string

const (
	EventOrder     EventType = "order"
	EventError     EventType = "error"
	EventTWAPChunk EventType = "twap_chunk"
	EventTWAPRun   EventType = "twap_run"
)

// KnownEventTypes 为可检索的事件类型。
var KnownEventTypes = []EventType{EventOrder, EventError, EventTWAPChunk, EventTWAPRun}

// Event 封装通用日志事件。
type Event struct {
	ID        int64       `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// OrderPayload 记录一次成功下单。
type OrderPayload struct {
	Strategy      string  `json:"strategy"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"side"`
	Type          string  `json:"type"`
	Quantity      string  `json:"quantity"`
	Price         *string `json:"price,omitempty"`
	StopPrice     *string `json:"stop_price,omitempty"`
	ClientOrderID string  `json:"client_order_id"`
	OrderID       string  `json:"order_id"`
	Status        string  `json:"status"`
	ExecutedQty   string  `json:"executed_qty"`
	AvgPrice      string  `json:"avg_price,omitempty"`
}

// ErrorPayload 记录异常。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Context map[string]interface{} `json:"context,omitempty"`
}

// ChunkPayload 记录 TWAP 单个分段。
type ChunkPayload struct {
	RunID         string `json:"run_id"`
	Index         int    `json:"index"`
	Quantity      string `json:"quantity"`
	ClientOrderID string `json:"client_order_id"`
	OrderID       string `json:"order_id,omitempty"`
	Status        string `json:"status,omitempty"`
	ExecutedQty   string `json:"executed_qty,omitempty"`
	Error         string `json:"error,omitempty"`
}

// RunPayload 记录 TWAP 运行汇总。
type RunPayload struct {
	RunID            string    `json:"run_id"`
	Symbol           string    `json:"symbol"`
	Side             string    `json:"side"`
	TotalQuantity    string    `json:"total_quantity"`
	Chunks           int       `json:"chunks"`
	IntervalSeconds  float64   `json:"interval_seconds"`
	SuccessfulChunks int       `json:"successful_chunks"`
	FailedChunks     int       `json:"failed_chunks"`
	FilledQuantity   string    `json:"filled_quantity"`
	FillRatePercent  string    `json:"fill_rate_percent"`
	AveragePrice     string    `json:"average_price"`
	Interrupted      bool      `json:"interrupted"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at"`
}
