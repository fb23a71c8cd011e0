package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/angelmondragon/toolyard-backend/pkg/config"
	"github.com/angelmondragon/toolyard-backend/pkg/logger"
)

func testRuntime(buf *bytes.Buffer) (*Runtime, *int) {
	code := -1
	rt := New("test", &config.Config{}, logger.New(logger.Options{ServiceName: "test", Output: buf}))
	rt.exit = func(c int) { code = c }
	return rt, &code
}

func TestCloseRunsInReverseOnce(t *testing.T) {
	rt, _ := testRuntime(&bytes.Buffer{})
	var order []string
	rt.OnClose("db", func() error { order = append(order, "db"); return nil })
	rt.OnClose("redis", func() error { order = append(order, "redis"); return nil })

	rt.Close()
	rt.Close()

	if strings.Join(order, ",") != "redis,db" {
		t.Fatalf("unexpected close order %v", order)
	}
}

func TestMustExitsAndClosesOnError(t *testing.T) {
	buf := &bytes.Buffer{}
	rt, code := testRuntime(buf)
	closed := false
	rt.OnClose("db", func() error { closed = true; return nil })

	rt.Must(context.Background(), "pubsub", nil)
	if *code != -1 || closed {
		t.Fatal("nil error must not exit")
	}

	rt.Must(context.Background(), "pubsub", errors.New("no credentials"))
	if *code != 1 || !closed {
		t.Fatalf("expected exit 1 after closing, got code=%d closed=%v", *code, closed)
	}
	if !strings.Contains(buf.String(), "pubsub unavailable") {
		t.Fatalf("expected failure log, got %s", buf.String())
	}
}

func TestCloseLogsFailures(t *testing.T) {
	buf := &bytes.Buffer{}
	rt, _ := testRuntime(buf)
	rt.OnClose("bigquery", func() error { return errors.New("flush failed") })
	rt.Close()
	if !strings.Contains(buf.String(), "close bigquery") {
		t.Fatalf("expected close failure to be logged, got %s", buf.String())
	}
}
