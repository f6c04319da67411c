package wavesvc

import (
	"math"
	"sync"
	"testing"
	"time"

	"github.com/causalgo/simcore/internal/simresult"
)

func makeResult(t *testing.T, id string, n int) *simresult.SimulationResult {
	t.Helper()
	axis := make([]float64, n)
	vout := make(simresult.Signal, n)
	for i := range axis {
		axis[i] = float64(i) * 1e-6
		vout[i] = complex(math.Sin(float64(i)*0.01), 0)
	}
	data, err := simresult.NewTimeData(axis, map[string]simresult.Signal{"V(out)": vout})
	if err != nil {
		t.Fatalf("failed to build test data: %v", err)
	}
	return &simresult.SimulationResult{ID: id, Timestamp: time.Now(), Data: data, Success: true}
}

func TestInitialDataReturnsBoundedPoints(t *testing.T) {
	svc := New(DefaultConfig())
	result := makeResult(t, "r1", 100000)

	wd, err := svc.InitialData(result, "V(out)", 500)
	if err != nil {
		t.Fatalf("InitialData returned error: %v", err)
	}
	if len(wd.Axis) > 500 || len(wd.Axis) != len(wd.Values) {
		t.Errorf("unexpected shape: %d axis points", len(wd.Axis))
	}
}

func TestInitialDataMissingSignal(t *testing.T) {
	svc := New(DefaultConfig())
	result := makeResult(t, "r1", 1000)

	if _, err := svc.InitialData(result, "V(missing)", 500); err == nil {
		t.Error("expected error for missing signal")
	}
}

func TestViewportDataWindowsAndDownsamples(t *testing.T) {
	svc := New(DefaultConfig())
	result := makeResult(t, "r1", 100000)

	wd, err := svc.ViewportData(result, "V(out)", 0, 1e-3, 200)
	if err != nil {
		t.Fatalf("ViewportData returned error: %v", err)
	}
	if len(wd.Axis) == 0 {
		t.Fatal("expected non-empty window")
	}
	if wd.Axis[0] < 0 || wd.Axis[len(wd.Axis)-1] > 1e-3+1e-9 {
		t.Errorf("window escaped requested bounds: [%v, %v]", wd.Axis[0], wd.Axis[len(wd.Axis)-1])
	}
}

func TestViewportDataVerbatimWhenSmall(t *testing.T) {
	svc := New(DefaultConfig())
	result := makeResult(t, "r1", 50)

	wd, err := svc.ViewportData(result, "V(out)", 0, 50e-6, 1000)
	if err != nil {
		t.Fatalf("ViewportData returned error: %v", err)
	}
	if len(wd.Axis) != 50 {
		t.Errorf("expected verbatim window of 50 points, got %d", len(wd.Axis))
	}
}

func TestTableDataClipsToTail(t *testing.T) {
	svc := New(DefaultConfig())
	result := makeResult(t, "r1", 10)

	td, err := svc.TableData(result, 8, 100)
	if err != nil {
		t.Fatalf("TableData returned error: %v", err)
	}
	if len(td.Rows) != 2 {
		t.Errorf("expected 2 rows clipped to tail, got %d", len(td.Rows))
	}
}

func TestInvalidateDropsCacheEntry(t *testing.T) {
	svc := New(DefaultConfig())
	result := makeResult(t, "r1", 100000)

	if _, err := svc.InitialData(result, "V(out)", 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc.Invalidate("r1")
	svc.mu.Lock()
	n := len(svc.entries)
	svc.mu.Unlock()
	if n != 0 {
		t.Errorf("expected cache empty after invalidate, got %d entries", n)
	}
}

func TestConcurrentCacheMissesCoalesce(t *testing.T) {
	svc := New(DefaultConfig())
	result := makeResult(t, "r1", 100000)

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			_, err := svc.InitialData(result, "V(out)", 500)
			errs[idx] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			t.Errorf("concurrent InitialData failed: %v", err)
		}
	}
	svc.mu.Lock()
	n := len(svc.entries)
	svc.mu.Unlock()
	if n != 1 {
		t.Errorf("expected exactly one cache entry after coalesced misses, got %d", n)
	}
}
