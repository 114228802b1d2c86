package arena

import (
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

// Sweeper periodically removes arena directories older than MaxAge, as a
// safety net against crash-orphaned spool directories (spec.md §4.8).
type Sweeper struct {
	Root     string
	MaxAge   time.Duration
	Interval time.Duration
	Log      *log.Logger

	stop chan struct{}
}

// NewSweeper constructs a Sweeper over root.
func NewSweeper(root string, maxAge, interval time.Duration, logger *log.Logger) *Sweeper {
	return &Sweeper{Root: root, MaxAge: maxAge, Interval: interval, Log: logger, stop: make(chan struct{})}
}

// Run blocks, sweeping on Interval until Stop is called.
func (s *Sweeper) Run() {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.sweepOnce() // crash-recovery sweep on startup, per spec.md §4.8
	for {
		select {
		case <-ticker.C:
			s.sweepOnce()
		case <-s.stop:
			return
		}
	}
}

// Stop halts the sweeper.
func (s *Sweeper) Stop() { close(s.stop) }

func (s *Sweeper) sweepOnce() {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		s.Log.WithError(err).Warn("arena sweep: reading spool root failed")
		return
	}

	cutoff := time.Now().Add(-s.MaxAge)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		dir := filepath.Join(s.Root, entry.Name())
		if err := os.RemoveAll(dir); err != nil {
			s.Log.WithError(err).WithField("dir", dir).Warn("arena sweep: removal failed")
			continue
		}
		s.Log.WithField("dir", dir).Info("arena sweep: removed orphaned arena")
	}
}
