package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Pinger is anything that can report whether the store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProbeResult is the outcome of the most recent store check. A zero
// CheckedAt means no check has completed yet.
type ProbeResult struct {
	Healthy   bool      `json:"healthy"`
	CheckedAt time.Time `json:"checked_at"`
	Error     string    `json:"error,omitempty"`
}

// StoreProbeWorker pings the store on an interval and keeps the last result
// for the health endpoint.
type StoreProbeWorker struct {
	store    Pinger
	interval time.Duration
	timeout  time.Duration
	stopChan chan struct{}
	running  bool

	mu   sync.RWMutex
	last ProbeResult
}

func NewStoreProbeWorker(store Pinger, interval time.Duration) *StoreProbeWorker {
	return &StoreProbeWorker{
		store:    store,
		interval: interval,
		timeout:  5 * time.Second,
		stopChan: make(chan struct{}),
	}
}

func (w *StoreProbeWorker) Start() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	log.Info().Dur("interval", w.interval).Msg("Store probe worker started")

	// first check right away
	w.probe()

	go w.run()
}

func (w *StoreProbeWorker) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return
	}

	close(w.stopChan)
	w.running = false
	log.Info().Msg("Store probe worker stopped")
}

// LastResult returns the outcome of the latest completed check.
func (w *StoreProbeWorker) LastResult() ProbeResult {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.last
}

func (w *StoreProbeWorker) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.probe()
		case <-w.stopChan:
			return
		}
	}
}

func (w *StoreProbeWorker) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	result := ProbeResult{Healthy: true, CheckedAt: time.Now().UTC()}
	if err := w.store.Ping(ctx); err != nil {
		result.Healthy = false
		result.Error = err.Error()
	}

	w.mu.Lock()
	wasHealthy := w.last.CheckedAt.IsZero() || w.last.Healthy
	w.last = result
	w.mu.Unlock()

	switch {
	case !result.Healthy && wasHealthy:
		log.Error().Str("error", result.Error).Msg("Store probe failed")
	case !result.Healthy:
		log.Debug().Str("error", result.Error).Msg("Store still unavailable")
	case !wasHealthy:
		log.Info().Msg("Store probe recovered")
	}
}
