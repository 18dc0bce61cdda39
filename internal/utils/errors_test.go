package utils

import (
	"errors"
	"fmt"
	"testing"
)

func TestAppErrorWrapping(t *testing.T) {
	root := errors.New("disk full")
	err := fmt.Errorf("flush: %w", NewAppError("write row", "clickhouse-app_logs", root))

	if !errors.Is(err, root) {
		t.Fatalf("expected wrapped root error")
	}
	if got := TableOf(err); got != "clickhouse-app_logs" {
		t.Fatalf("unexpected table: %q", got)
	}
	if NewAppError("noop", "", nil) != nil {
		t.Fatalf("expected nil for nil cause")
	}
}
