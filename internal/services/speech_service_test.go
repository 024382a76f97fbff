package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeBackend counts concurrent callers and can block until released.
type fakeBackend struct {
	mu         sync.Mutex
	inFlight   int32
	maxSeen    int32
	block      chan struct{}
	result     TranscriptionResult
	err        error
	lastLang   string
	lastAudio  []byte
	callsTotal int32
}

func (f *fakeBackend) Transcribe(ctx context.Context, audio []byte, language string) (TranscriptionResult, error) {
	atomic.AddInt32(&f.callsTotal, 1)
	n := atomic.AddInt32(&f.inFlight, 1)
	defer atomic.AddInt32(&f.inFlight, -1)
	for {
		max := atomic.LoadInt32(&f.maxSeen)
		if n <= max || atomic.CompareAndSwapInt32(&f.maxSeen, max, n) {
			break
		}
	}

	f.mu.Lock()
	f.lastLang = language
	f.lastAudio = audio
	f.mu.Unlock()

	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return TranscriptionResult{}, ctx.Err()
		}
	}
	return f.result, f.err
}

func TestSpeechService_Transcribe(t *testing.T) {
	backend := &fakeBackend{result: TranscriptionResult{Text: "hello", Language: "en", Confidence: -0.2}}
	svc := NewSpeechService(backend, 2)

	res, err := svc.Transcribe(context.Background(), []byte("RIFF"), "en")
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "hello" || res.Language != "en" {
		t.Fatalf("result mismatch: %+v", res)
	}
	if backend.lastLang != "en" || string(backend.lastAudio) != "RIFF" {
		t.Fatalf("backend inputs not forwarded: lang=%q audio=%q", backend.lastLang, backend.lastAudio)
	}
}

func TestSpeechService_EmptyAudio(t *testing.T) {
	backend := &fakeBackend{}
	svc := NewSpeechService(backend, 2)

	if _, err := svc.Transcribe(context.Background(), nil, ""); !errors.Is(err, ErrEmptyAudio) {
		t.Fatalf("Transcribe = %v, want ErrEmptyAudio", err)
	}
	if backend.callsTotal != 0 {
		t.Fatal("backend reached with empty audio")
	}
}

func TestSpeechService_BackendError(t *testing.T) {
	boom := errors.New("model unavailable")
	svc := NewSpeechService(&fakeBackend{err: boom}, 1)

	if _, err := svc.Transcribe(context.Background(), []byte("x"), ""); !errors.Is(err, boom) {
		t.Fatalf("Transcribe = %v, want backend error", err)
	}
}

func TestSpeechService_PoolBoundsConcurrency(t *testing.T) {
	backend := &fakeBackend{block: make(chan struct{})}
	svc := NewSpeechService(backend, 2)

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Transcribe(context.Background(), []byte("x"), "")
		}()
	}

	// Let two calls occupy the pool, then release everyone.
	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&backend.inFlight) < 2 {
		select {
		case <-deadline:
			t.Fatal("pool never filled")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	close(backend.block)
	wg.Wait()

	if max := atomic.LoadInt32(&backend.maxSeen); max > 2 {
		t.Fatalf("max concurrency = %d, want <= 2", max)
	}
	if backend.callsTotal != 6 {
		t.Fatalf("calls = %d, want 6", backend.callsTotal)
	}
}

func TestSpeechService_ContextCancelledWhileQueued(t *testing.T) {
	backend := &fakeBackend{block: make(chan struct{})}
	svc := NewSpeechService(backend, 1)

	// Occupy the single slot.
	go func() { _, _ = svc.Transcribe(context.Background(), []byte("x"), "") }()
	deadline := time.After(2 * time.Second)
	for atomic.LoadInt32(&backend.inFlight) < 1 {
		select {
		case <-deadline:
			t.Fatal("first call never started")
		default:
			time.Sleep(time.Millisecond)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.Transcribe(ctx, []byte("x"), ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("queued call = %v, want context.Canceled", err)
	}
	close(backend.block)
}

func TestSpeechService_WorkerDefault(t *testing.T) {
	if got := NewSpeechService(&fakeBackend{}, 0).Workers(); got != 2 {
		t.Fatalf("Workers = %d, want 2", got)
	}
	if got := NewSpeechService(&fakeBackend{}, 4).Workers(); got != 4 {
		t.Fatalf("Workers = %d, want 4", got)
	}
}
