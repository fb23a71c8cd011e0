package types

import "testing"

func TestJSONMapScan(t *testing.T) {
	var m JSONMap
	if err := m.Scan([]byte(`{"order_snapshot":"{}","n":1}`)); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if got := m.String("order_snapshot"); got != "{}" {
		t.Fatalf("expected snapshot string, got %q", got)
	}
	if got := m.String("n"); got != "" {
		t.Fatalf("expected non-string value to read as empty, got %q", got)
	}
	if err := m.Scan(42); err == nil {
		t.Fatal("expected unsupported scan type error")
	}
}
