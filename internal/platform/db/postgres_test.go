package db

import (
	"context"
	"testing"
)

func TestConnectRequiresDSN(t *testing.T) {
	if _, err := Connect(context.Background(), "", PoolOptions{}); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

func TestCloseNilIsNoop(t *testing.T) {
	var pg *Postgres
	if err := pg.Close(); err != nil {
		t.Fatalf("nil close: %v", err)
	}
}
