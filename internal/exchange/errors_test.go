package exchange

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	ccxt "github.com/ccxt/ccxt/go/v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassify_Rejection(t *testing.T) {
	raw := &ccxt.Error{
		Type:    ccxt.InsufficientFundsErrType,
		Message: `binanceusdm {"code":-2019,"msg":"Margin is insufficient."}`,
	}

	err := Classify("create_order", raw)

	var rejection *ExchangeRejection
	if !errors.As(err, &rejection) {
		t.Fatalf("expected ExchangeRejection, got %T: %v", err, err)
	}
	if rejection.Code != "-2019" {
		t.Errorf("expected venue code -2019, got %q", rejection.Code)
	}
	if rejection.Message != "Margin is insufficient." {
		t.Errorf("unexpected message %q", rejection.Message)
	}
}

func TestClassify_NetworkFamily(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"ccxt network", &ccxt.Error{Type: ccxt.NetworkErrorErrType, Message: "connection reset"}},
		{"ccxt timeout", &ccxt.Error{Type: ccxt.RequestTimeoutErrType, Message: "timed out"}},
		{"ccxt maintenance", &ccxt.Error{Type: ccxt.OnMaintenanceErrType, Message: "maintenance"}},
		{"net.Error", fmt.Errorf("dial: %w", timeoutErr{})},
		{"deadline", context.DeadlineExceeded},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Classify("create_order", tc.err)
			var netErr *NetworkError
			if !errors.As(err, &netErr) {
				t.Fatalf("expected NetworkError, got %T: %v", err, err)
			}
			if !errors.Is(err, tc.err) {
				t.Errorf("expected NetworkError to wrap the cause")
			}
		})
	}
}

func TestClassify_PassThrough(t *testing.T) {
	if err := Classify("op", nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}

	if err := Classify("op", context.Canceled); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled unchanged, got %v", err)
	}

	already := &ExchangeRejection{Message: "bad symbol"}
	if err := Classify("op", already); err != already {
		t.Fatalf("expected classified error to pass through, got %v", err)
	}

	plain := errors.New("boom")
	if err := Classify("op", plain); err != plain {
		t.Fatalf("expected unknown error unchanged, got %v", err)
	}
}
