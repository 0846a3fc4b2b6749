package calendar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cabin-manager/core/metrics"
	"cabin-manager/core/reconcile"

	"go.uber.org/zap"
)

// Source supplies the reservations to render.
type Source interface {
	Snapshot(ctx context.Context) (*reconcile.ReservationSet, error)
}

// Service renders the reservation calendar and fans it out to publishers.
type Service struct {
	source     Source
	publishers []Publisher
	cfg        Config
	logger     *zap.Logger
	now        func() time.Time

	// publishMu serializes publish rounds; seq lets a round skip itself
	// when a newer commit is already queued.
	publishMu sync.Mutex
	seq       atomic.Uint64
	wg        sync.WaitGroup
}

// NewService creates a calendar service.
func NewService(source Source, publishers []Publisher, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{source: source, publishers: publishers, cfg: cfg, logger: logger, now: time.Now}
}

// SetClock overrides the DTSTAMP clock.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Publishers returns the configured publishers.
func (s *Service) Publishers() []Publisher {
	return s.publishers
}

// RenderSet renders set without touching the source.
func (s *Service) RenderSet(set *reconcile.ReservationSet) []byte {
	return Render(set.Exports(), RenderOptions{Name: s.cfg.Name, UIDDomain: s.cfg.UIDDomain, Now: s.now()})
}

// Render renders the current reservations.
func (s *Service) Render(ctx context.Context) ([]byte, error) {
	set, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}
	return s.RenderSet(set), nil
}

// Publish renders the current reservations and sends them to every publisher.
func (s *Service) Publish(ctx context.Context) error {
	body, err := s.Render(ctx)
	if err != nil {
		return err
	}
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	return s.publish(ctx, body)
}

// publish tries every publisher; one failing does not stop the others.
func (s *Service) publish(ctx context.Context, body []byte) error {
	var errs []error
	for _, p := range s.publishers {
		err := p.Publish(ctx, body)
		metrics.ObservePublish(p.Name(), err)
		if err != nil {
			s.logger.Error("Calendar publish failed", zap.String("publisher", p.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", p.Name(), err))
			continue
		}
		s.logger.Debug("Calendar published", zap.String("publisher", p.Name()), zap.Int("bytes", len(body)))
	}
	return errors.Join(errs...)
}

// OnCommit republishes set in the background. It matches reservation.Hook.
func (s *Service) OnCommit(ctx context.Context, set *reconcile.ReservationSet) {
	if len(s.publishers) == 0 {
		return
	}
	snapshot := set.Clone()
	seq := s.seq.Add(1)
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.publishMu.Lock()
		defer s.publishMu.Unlock()
		if seq != s.seq.Load() {
			return
		}

		ctx, cancel := context.WithTimeout(ctx, s.timeout())
		defer cancel()
		_ = s.publish(ctx, s.RenderSet(snapshot))
	}()
}

// Wait blocks until background publishes finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) timeout() time.Duration {
	if s.cfg.TimeoutSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(s.cfg.TimeoutSeconds) * time.Second
}
