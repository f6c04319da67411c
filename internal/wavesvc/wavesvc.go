// Package wavesvc implements the viewport-aware waveform data service: a
// façade over a SimulationResult that serves pyramid-backed low-resolution
// views, explicit axis windows, and virtually-paged tabular rows, while
// caching one resolution pyramid per (result, signal) pair with LRU
// eviction and miss coalescing.
package wavesvc

import (
	"container/list"
	"sort"
	"sync"

	"github.com/causalgo/simcore/internal/errkind"
	"github.com/causalgo/simcore/internal/lttb"
	"github.com/causalgo/simcore/internal/pyramid"
	"github.com/causalgo/simcore/internal/simresult"
)

// Config configures a Service. Zero values are replaced by defaults in New.
type Config struct {
	// CacheCapacity bounds the number of (result, signal) pyramids held at
	// once. Default 32.
	CacheCapacity int
	// Levels are the pyramid target sizes used when building a new
	// pyramid. Default pyramid.DefaultLevels.
	Levels []int
}

// DefaultConfig returns the service's default configuration.
func DefaultConfig() Config {
	return Config{CacheCapacity: 32, Levels: pyramid.DefaultLevels}
}

// WaveformData is the display-ready projection of one signal over an axis
// window: a flat (axis, value) pair of equal length, suitable for direct
// plotting. Complex signals are reduced to their real part per the data
// model's display convention.
type WaveformData struct {
	Name   string
	Axis   []float64
	Values []float64
}

// TableRow is one row of a virtually-paged tabular view.
type TableRow struct {
	Axis    float64
	Signals map[string]float64
}

// TableData is a page of tabular rows.
type TableData struct {
	Rows      []TableRow
	StartRow  int
	TotalRows int
}

type cacheKey struct {
	resultID string
	signal   string
}

type cacheEntry struct {
	key  cacheKey
	data *pyramid.Data
	elem *list.Element
}

type inflight struct {
	done chan struct{}
	data *pyramid.Data
	err  error
}

// Service mediates every request for signal data from UI consumers. Its
// pyramid cache is the only mutable shared state and is safe for
// concurrent use; cache misses for the same key coalesce into a single
// build.
type Service struct {
	cfg Config

	mu        sync.Mutex
	entries   map[cacheKey]*cacheEntry
	order     *list.List // front = most recently used
	inflights map[cacheKey]*inflight
}

// New builds a Service. A zero Config is replaced with DefaultConfig.
func New(cfg Config) *Service {
	if cfg.CacheCapacity <= 0 {
		cfg.CacheCapacity = 32
	}
	if cfg.Levels == nil {
		cfg.Levels = pyramid.DefaultLevels
	}
	return &Service{
		cfg:       cfg,
		entries:   make(map[cacheKey]*cacheEntry),
		order:     list.New(),
		inflights: make(map[cacheKey]*inflight),
	}
}

// InitialData returns a pyramid-backed low-resolution view suitable for
// first paint.
func (s *Service) InitialData(result *simresult.SimulationResult, signal string, targetPoints int) (*WaveformData, error) {
	const op = "wavesvc.InitialData"
	data, sig, err := s.lookupSignal(result, signal, op)
	if err != nil {
		return nil, err
	}

	pyr, err := s.pyramidFor(result.ID, signal, data.AxisData, sig.Real())
	if err != nil {
		return nil, errkind.Dependency(op, "failed to build pyramid", err)
	}

	ax, vals, err := pyramid.GetOptimalData(pyr, targetPoints)
	if err != nil {
		return nil, errkind.Dependency(op, "failed to read pyramid level", err)
	}
	return &WaveformData{Name: signal, Axis: ax, Values: vals}, nil
}

// ViewportData returns a windowed downsample of signal between [xMin,
// xMax]. The window is located by bisecting the axis; if the windowed
// length already satisfies targetPoints it is returned verbatim, otherwise
// LTTB reduces it.
func (s *Service) ViewportData(result *simresult.SimulationResult, signal string, xMin, xMax float64, targetPoints int) (*WaveformData, error) {
	const op = "wavesvc.ViewportData"
	if xMax < xMin {
		return nil, errkind.Invalid(op, "xMax must be >= xMin")
	}
	data, sig, err := s.lookupSignal(result, signal, op)
	if err != nil {
		return nil, err
	}

	axis := data.AxisData
	lo := sort.SearchFloat64s(axis, xMin)
	hi := sort.Search(len(axis), func(i int) bool { return axis[i] > xMax })
	if lo >= hi {
		return nil, errkind.Invalid(op, "window contains no samples")
	}

	windowX := axis[lo:hi]
	windowY := sig.Real()[lo:hi]

	if len(windowX) <= targetPoints {
		return &WaveformData{
			Name:   signal,
			Axis:   append([]float64(nil), windowX...),
			Values: append([]float64(nil), windowY...),
		}, nil
	}

	dsX, dsY, err := lttb.Downsample(windowX, windowY, targetPoints)
	if err != nil {
		return nil, errkind.Dependency(op, "windowed downsample failed", err)
	}
	return &WaveformData{Name: signal, Axis: dsX, Values: dsY}, nil
}

// TableData returns count rows starting at startRow across every signal,
// clipping to the available tail when the request runs past the end.
func (s *Service) TableData(result *simresult.SimulationResult, startRow, count int) (*TableData, error) {
	const op = "wavesvc.TableData"
	if result == nil || result.Data == nil {
		return nil, errkind.Missing(op, "result has no data")
	}
	if startRow < 0 || count < 0 {
		return nil, errkind.Invalid(op, "startRow and count must be non-negative")
	}

	axis := result.Data.AxisData
	total := len(axis)
	if startRow >= total {
		startRow = total
	}
	end := startRow + count
	if end > total {
		end = total
	}

	names := result.Data.SignalNames()
	sort.Strings(names)

	rows := make([]TableRow, 0, end-startRow)
	for i := startRow; i < end; i++ {
		row := TableRow{Axis: axis[i], Signals: make(map[string]float64, len(names))}
		for _, name := range names {
			row.Signals[name] = real(result.Data.Signals[name][i])
		}
		rows = append(rows, row)
	}
	return &TableData{Rows: rows, StartRow: startRow, TotalRows: total}, nil
}

// Invalidate drops every cached pyramid for resultID. Original data is
// untouched.
func (s *Service) Invalidate(resultID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, entry := range s.entries {
		if key.resultID == resultID {
			s.order.Remove(entry.elem)
			delete(s.entries, key)
		}
	}
}

func (s *Service) lookupSignal(result *simresult.SimulationResult, signal, op string) (*simresult.SimulationData, simresult.Signal, error) {
	if result == nil || result.Data == nil {
		return nil, nil, errkind.Missing(op, "result has no data")
	}
	sig, ok := result.Data.GetSignal(signal)
	if !ok {
		return nil, nil, errkind.Missing(op, "signal not found: "+signal)
	}
	return result.Data, sig, nil
}

// pyramidFor returns the cached pyramid for (resultID, signal), building it
// on miss. Concurrent misses for the same key coalesce into one build.
func (s *Service) pyramidFor(resultID, signal string, axis, values []float64) (*pyramid.Data, error) {
	key := cacheKey{resultID: resultID, signal: signal}

	s.mu.Lock()
	if entry, ok := s.entries[key]; ok {
		s.order.MoveToFront(entry.elem)
		s.mu.Unlock()
		return entry.data, nil
	}
	if inf, ok := s.inflights[key]; ok {
		s.mu.Unlock()
		<-inf.done
		return inf.data, inf.err
	}

	inf := &inflight{done: make(chan struct{})}
	s.inflights[key] = inf
	s.mu.Unlock()

	data, err := pyramid.Build(axis, values, s.cfg.Levels)

	s.mu.Lock()
	inf.data, inf.err = data, err
	close(inf.done)
	delete(s.inflights, key)
	if err == nil {
		s.insertLocked(key, data)
	}
	s.mu.Unlock()

	return data, err
}

func (s *Service) insertLocked(key cacheKey, data *pyramid.Data) {
	elem := s.order.PushFront(key)
	s.entries[key] = &cacheEntry{key: key, data: data, elem: elem}

	for s.order.Len() > s.cfg.CacheCapacity {
		back := s.order.Back()
		if back == nil {
			break
		}
		evictKey := back.Value.(cacheKey)
		s.order.Remove(back)
		delete(s.entries, evictKey)
	}
}
