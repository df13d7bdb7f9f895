package discovery

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWriteReadRemove(t *testing.T) {
	dir := t.TempDir()

	rec := Record{Port: 17890, PID: os.Getpid(), Version: "1.1", Channel: "bridge"}
	if err := Write(dir, rec); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := Read(dir)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got.Port != 17890 || got.PID != os.Getpid() || got.Version != "1.1" {
		t.Errorf("Unexpected record %+v", got)
	}
	if got.Timestamp == 0 {
		t.Error("Expected Write to stamp the record")
	}
	if got.URL() != "ws://127.0.0.1:17890/bridge" {
		t.Errorf("Unexpected URL %s", got.URL())
	}

	if err := Remove(dir); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := Read(dir); err == nil {
		t.Error("Expected read to fail after removal")
	}
	// Removing again is not an error.
	if err := Remove(dir); err != nil {
		t.Errorf("Second remove failed: %v", err)
	}
}

func TestRecord_URLWithoutChannel(t *testing.T) {
	rec := Record{Port: 9000}
	if rec.URL() != "ws://127.0.0.1:9000" {
		t.Errorf("Unexpected URL %s", rec.URL())
	}
}

func TestRead_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir)
	os.MkdirAll(filepath.Dir(path), 0755)
	os.WriteFile(path, []byte("{truncated"), 0644)

	if _, err := Read(dir); err == nil {
		t.Error("Expected error for malformed record")
	}

	os.WriteFile(path, []byte(`{"pid":1}`), 0644)
	if _, err := Read(dir); err == nil {
		t.Error("Expected error for record without port")
	}
}

func TestRecord_Staleness(t *testing.T) {
	now := time.Now()
	fresh := Record{Port: 1, PID: os.Getpid(), Timestamp: float64(now.Unix())}
	if fresh.IsStale(now, DefaultStaleAfter) {
		t.Error("Fresh record reported stale")
	}

	old := Record{Port: 1, PID: os.Getpid(), Timestamp: float64(now.Add(-2 * time.Minute).Unix())}
	if !old.IsStale(now, DefaultStaleAfter) {
		t.Error("2-minute-old record not reported stale")
	}

	// A record advertising a dead process is stale regardless of age.
	deadPID := Record{Port: 1, PID: 1 << 29, Timestamp: float64(now.Unix())}
	if !deadPID.IsStale(now, DefaultStaleAfter) {
		t.Error("Dead-pid record not reported stale")
	}
}

func TestPoller_DeliversFreshRecord(t *testing.T) {
	dir := t.TempDir()
	if err := Write(dir, Record{Port: 4321, PID: os.Getpid(), Version: "1.1"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got := make(chan *Record, 1)
	cfg := DefaultPollerConfig(dir)
	cfg.Interval = 10 * time.Millisecond
	cfg.OnRecord = func(rec *Record) {
		select {
		case got <- rec:
		default:
		}
	}

	p := NewPoller(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	select {
	case rec := <-got:
		if rec.Port != 4321 {
			t.Errorf("Unexpected record %+v", rec)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Poller never delivered the record")
	}
}

func TestPoller_PurgesStaleRecordOnce(t *testing.T) {
	dir := t.TempDir()

	// Write a record with an ancient timestamp directly; Write would
	// refresh it.
	path := Path(dir)
	os.MkdirAll(filepath.Dir(path), 0755)
	os.WriteFile(path, []byte(`{"port":4321,"pid":0,"version":"1.1","timestamp":1}`), 0644)

	var connects atomic.Int32
	cfg := DefaultPollerConfig(dir)
	cfg.Interval = 10 * time.Millisecond
	cfg.OnRecord = func(rec *Record) { connects.Add(1) }

	p := NewPoller(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("Stale record was never purged")
	}
	if connects.Load() != 0 {
		t.Error("Poller attempted a connection for a stale record")
	}
}

func TestPoller_SuspendResume(t *testing.T) {
	dir := t.TempDir()
	if err := Write(dir, Record{Port: 4321, PID: os.Getpid(), Version: "1.1"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	var hits atomic.Int32
	cfg := DefaultPollerConfig(dir)
	cfg.Interval = 10 * time.Millisecond
	cfg.OnRecord = func(rec *Record) { hits.Add(1) }

	p := NewPoller(cfg)
	p.Suspend()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	time.Sleep(100 * time.Millisecond)
	if hits.Load() != 0 {
		t.Fatalf("Suspended poller delivered %d records", hits.Load())
	}

	p.Resume()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && hits.Load() == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	if hits.Load() == 0 {
		t.Error("Resumed poller never delivered a record")
	}
}

func TestPoller_MissingFileIsSilent(t *testing.T) {
	dir := t.TempDir()

	var hits atomic.Int32
	cfg := DefaultPollerConfig(dir)
	cfg.Interval = 10 * time.Millisecond
	cfg.OnRecord = func(rec *Record) { hits.Add(1) }

	p := NewPoller(cfg)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	p.Start(ctx)
	defer p.Stop()

	time.Sleep(100 * time.Millisecond)
	if hits.Load() != 0 {
		t.Error("Poller delivered a record from an empty project")
	}
}
