// Package monitor runs the 1 Hz observability loop: a human-readable
// status file for the station operator's shell, a performance sample for
// the journal, and a point for the metrics pipeline.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/chifascan/scanner/internal/cache"
	"github.com/chifascan/scanner/internal/camera"
	"github.com/chifascan/scanner/internal/journal"
	"github.com/chifascan/scanner/internal/metrics"
	"github.com/chifascan/scanner/internal/model"
	"github.com/chifascan/scanner/internal/pipeline"
	"github.com/chifascan/scanner/internal/session"
	"github.com/chifascan/scanner/internal/status"
)

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	Pipeline  *pipeline.Pipeline
	Source    camera.Source
	Session   *session.Context
	Status    *status.Board
	Journal   journal.Backend
	Metrics   *metrics.Manager
	Outcomes  *cache.OutcomeCache
	OutputDir string
	Logger    zerolog.Logger
}

// Service manages status monitoring.
type Service struct {
	deps      Dependencies
	interval  time.Duration
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	return &Service{
		deps:     deps,
		interval: time.Second,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Sample builds one performance sample from the current loop counters.
func (s *Service) Sample() model.ScannerPerformance {
	stats := s.deps.Pipeline.Stats()
	camStats := s.deps.Source.Stats()

	return model.ScannerPerformance{
		Time:            time.Now(),
		FramesDelivered: camStats.FramesDelivered,
		FramesDropped:   camStats.FramesDropped,
		TicksProcessed:  stats.TicksProcessed,
		TicksSkipped:    stats.TicksSkipped,
		LastTickMs:      float32(stats.LastTickMs),
		LockPhase:       stats.Phase,
		DetectionMetric: stats.LastMetric,
	}
}

// statusLines renders the operator status file contents.
func (s *Service) statusLines(perf model.ScannerPerformance) []string {
	rec := s.deps.Status.Snapshot()

	lines := []string{
		fmt.Sprintf("session: %s", s.deps.Session.ID()),
		fmt.Sprintf("status: %s", rec.Message),
		fmt.Sprintf("count: %d", rec.Count),
		fmt.Sprintf("phase: %s", perf.LockPhase),
	}

	if s.deps.Outcomes != nil {
		if last, ok := s.deps.Outcomes.Last(); ok {
			if last.Succeeded() {
				lines = append(lines, "last upload: ok")
			} else {
				lines = append(lines, fmt.Sprintf("last upload: failed (%s)", last.Reason))
			}
		}
		lines = append(lines, fmt.Sprintf("failed uploads: %d", s.deps.Outcomes.Failures()))
	}

	raw, err := json.MarshalIndent(perf, "", "  ")
	if err != nil {
		raw = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
	}
	return append(lines, string(raw))
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.Logger.With().Str("component", "monitor").Logger()
		logger.Debug().Msg("Starting status monitor goroutine")

		statusFile, err := os.Create(s.deps.OutputDir + "/status.txt")
		if err != nil {
			logger.Error().Err(err).Msg("Error creating status file")
		}
		defer func() {
			if statusFile != nil {
				statusFile.Close()
			}
		}()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				perf := s.Sample()

				if statusFile != nil {
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					for _, line := range s.statusLines(perf) {
						statusFile.WriteString(line + "\n")
					}
				}

				if s.deps.Journal != nil {
					if err := s.deps.Journal.RecordPerformance(&perf); err != nil {
						logger.Error().Err(err).Msg("Error journaling performance sample")
					}
				}

				if s.deps.Metrics != nil {
					point := metrics.PerformancePoint(s.deps.Session.ID(), &perf)
					if err := s.deps.Metrics.WritePoint(context.Background(), metrics.BucketScannerPerformance, point); err != nil {
						logger.Error().Err(err).Msg("Error writing performance point")
					}
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
