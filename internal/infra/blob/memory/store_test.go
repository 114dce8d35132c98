package memory

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"rosterinjector/internal/blob/core"
)

func TestStoreMissing(t *testing.T) {
	store := New()
	ctx := context.Background()
	if _, err := store.Head(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found from head, got %v", err)
	}
	if _, _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected not found from get, got %v", err)
	}
	if ok, err := store.Delete(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected delete false, got %v %v", ok, err)
	}
}

func TestStoreLifecycle(t *testing.T) {
	store := New()
	ctx := context.Background()
	md := map[string]string{"league": "Moon"}
	info, err := store.Put(ctx, "Moon_2026-01-02_03-04-05.sav", bytes.NewReader([]byte("payload")), core.PutOptions{Metadata: md})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	md["league"] = "mutated"
	if info.Size != 7 || info.ETag == "" {
		t.Fatalf("unexpected info %+v", info)
	}
	if _, err := store.Put(ctx, info.Key, bytes.NewReader([]byte("again")), core.PutOptions{}); !errors.Is(err, core.ErrExists) {
		t.Fatalf("expected exists error, got %v", err)
	}
	got, rc, err := store.Get(ctx, info.Key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(body) != "payload" || got.Metadata["league"] != "Moon" {
		t.Fatalf("unexpected blob %q %+v", body, got)
	}
	if _, err := store.Put(ctx, "Sun_2026-01-02_03-04-05.sav", bytes.NewReader(nil), core.PutOptions{}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	if list, err := store.List(ctx, "Moon"); err != nil || len(list) != 1 {
		t.Fatalf("list prefix: %v %d", err, len(list))
	}
	if list, err := store.List(ctx, ""); err != nil || len(list) != 2 || list[0].Key > list[1].Key {
		t.Fatalf("list all: %v %+v", err, list)
	}
	if ok, err := store.Delete(ctx, info.Key); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, fmt.Errorf("fail") }

func TestStorePutReadErrorAndDriver(t *testing.T) {
	store := New()
	if store.Driver() != core.DriverMemory {
		t.Fatalf("expected memory driver")
	}
	if _, err := store.Put(context.Background(), "bad", failingReader{}, core.PutOptions{}); err == nil {
		t.Fatalf("expected read error")
	}
}
