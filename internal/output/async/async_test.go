package async

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/crimson-sun/skimmer/internal/model"
)

type mockOutput struct {
	mu        sync.Mutex
	abstracts []model.ClassifiedAbstract
	closed    bool
	err       error         // if set, Write returns this
	delay     time.Duration // if >0, Write sleeps first
	block     chan struct{} // if set, Write waits on it
}

func (m *mockOutput) Write(_ context.Context, a model.ClassifiedAbstract) error {
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.block != nil {
		<-m.block
	}
	m.mu.Lock()
	m.abstracts = append(m.abstracts, a)
	m.mu.Unlock()
	return m.err
}

func (m *mockOutput) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}

func (m *mockOutput) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.abstracts)
}

func testAbstract(id string) model.ClassifiedAbstract {
	return model.ClassifiedAbstract{
		ID:       id,
		Sections: map[string][]string{model.Conclusions: {"Drug A works."}},
	}
}

func TestAbstractsFlowThroughInOrder(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(16))

	for i := 0; i < 10; i++ {
		if err := a.Write(context.Background(), testAbstract(strconv.Itoa(i))); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if inner.count() != 10 {
		t.Fatalf("got %d abstracts, want 10", inner.count())
	}
	for i, abs := range inner.abstracts {
		if abs.ID != strconv.Itoa(i) {
			t.Fatalf("abstract %d has id %q", i, abs.ID)
		}
	}
	if !inner.closed {
		t.Error("inner output not closed")
	}
}

func TestBackpressureBlocks(t *testing.T) {
	inner := &mockOutput{delay: 50 * time.Millisecond}
	a := New(inner, WithBufferSize(1))

	a.Write(context.Background(), testAbstract("first"))

	done := make(chan struct{})
	go func() {
		a.Write(context.Background(), testAbstract("second"))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Write blocked indefinitely (expected eventual unblock via drain)")
	}

	a.Close()
}

func TestBlockedWriteHonoursContext(t *testing.T) {
	release := make(chan struct{})
	inner := &mockOutput{block: release}
	a := New(inner, WithBufferSize(1))

	// One abstract is held by the drain goroutine, one fills the buffer.
	a.Write(context.Background(), testAbstract("held"))
	a.Write(context.Background(), testAbstract("queued"))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	var err error
	for i := 0; i < 3 && err == nil; i++ {
		err = a.Write(ctx, testAbstract("late"))
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context.DeadlineExceeded, got %v", err)
	}

	close(release)
	a.Close()
}

func TestDropOnFull(t *testing.T) {
	inner := &mockOutput{delay: 100 * time.Millisecond}
	a := New(inner, WithBufferSize(1), WithDropOnFull())

	for i := 0; i < 20; i++ {
		a.Write(context.Background(), testAbstract("burst"))
	}

	a.Close()

	if inner.count() == 20 {
		t.Error("expected some abstracts to be dropped in drop-on-full mode")
	}
	if inner.count() == 0 {
		t.Error("expected at least some abstracts to be delivered")
	}
}

func TestCloseDrainsRemaining(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(100))

	for i := 0; i < 50; i++ {
		a.Write(context.Background(), testAbstract("drain"))
	}

	a.Close()

	if inner.count() != 50 {
		t.Errorf("after Close, got %d abstracts, want 50 (drain incomplete)", inner.count())
	}
}

func TestCloseGivesUpAfterDrainTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	inner := &mockOutput{block: release}
	a := New(inner, WithBufferSize(4), WithDrainTimeout(20*time.Millisecond))

	a.Write(context.Background(), testAbstract("stuck"))

	start := time.Now()
	a.Close()
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Close took %v, want about the drain timeout", elapsed)
	}
}

func TestErrorCallbackInvoked(t *testing.T) {
	inner := &mockOutput{err: errors.New("write failed")}
	var errorCount atomic.Int64
	a := New(inner, WithBufferSize(16), WithOnError(func(err error) {
		errorCount.Add(1)
	}))

	for i := 0; i < 5; i++ {
		a.Write(context.Background(), testAbstract("failing"))
	}

	a.Close()

	if errorCount.Load() != 5 {
		t.Errorf("error callback called %d times, want 5", errorCount.Load())
	}
}

func TestNoGoroutineLeakAfterClose(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(16))

	a.Write(context.Background(), testAbstract("leak-check"))
	a.Close()

	select {
	case <-a.done:
	case <-time.After(time.Second):
		t.Fatal("drain goroutine did not exit after Close")
	}
}

func TestCloseIdempotent(t *testing.T) {
	inner := &mockOutput{}
	a := New(inner, WithBufferSize(16))

	a.Write(context.Background(), testAbstract("idempotent"))

	if err := a.Close(); err != nil {
		t.Fatalf("first Close error: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("second Close error: %v", err)
	}
}
