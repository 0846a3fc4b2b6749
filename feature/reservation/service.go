package reservation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"cabin-manager/core/metrics"
	"cabin-manager/core/normalize"
	"cabin-manager/core/reconcile"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Hook runs after a mutation of the reservation set is committed.
type Hook func(ctx context.Context, set *reconcile.ReservationSet)

// BookRequest describes a manual booking. The stay is given by CheckOut or Nights.
type BookRequest struct {
	GuestName string   `json:"guest_name"`
	Cabin     string   `json:"cabin"`
	CheckIn   string   `json:"check_in"`
	CheckOut  string   `json:"check_out,omitempty"`
	Nights    int      `json:"nights,omitempty"`
	Total     *float64 `json:"total,omitempty"`
	Paid      float64  `json:"paid,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

// ModifyRequest is a partial update; nil fields are left unchanged.
type ModifyRequest struct {
	GuestName *string  `json:"guest_name,omitempty"`
	Cabin     *string  `json:"cabin,omitempty"`
	CheckIn   *string  `json:"check_in,omitempty"`
	CheckOut  *string  `json:"check_out,omitempty"`
	Nights    *int     `json:"nights,omitempty"`
	Total     *float64 `json:"total,omitempty"`
	Paid      *float64 `json:"paid,omitempty"`
	Phone     *string  `json:"phone,omitempty"`
	Notes     *string  `json:"notes,omitempty"`
}

// Service runs manual operations and sync passes over one store.
// All writers are serialized, so a sync pass never interleaves with a booking.
type Service struct {
	store  reconcile.Store
	spec   *reconcile.Spec
	source reconcile.FeedSource
	cfg    Config
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	group singleflight.Group

	hooksMu sync.RWMutex
	hooks   []Hook
}

// NewService creates a reservation service. source may be nil when sync is not used.
func NewService(store reconcile.Store, spec *reconcile.Spec, source reconcile.FeedSource, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		spec:   spec,
		source: source,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Subscribe registers a hook called after every committed mutation.
func (s *Service) Subscribe(h Hook) {
	s.hooksMu.Lock()
	defer s.hooksMu.Unlock()
	s.hooks = append(s.hooks, h)
}

func (s *Service) notify(ctx context.Context, set *reconcile.ReservationSet) {
	s.hooksMu.RLock()
	hooks := append([]Hook(nil), s.hooks...)
	s.hooksMu.RUnlock()
	for _, h := range hooks {
		h(ctx, set)
	}
}

// Book validates and stores a manual reservation.
func (s *Service) Book(ctx context.Context, req BookRequest) (*reconcile.Reservation, error) {
	guest := strings.TrimSpace(req.GuestName)
	if guest == "" {
		return nil, invalid("guest name is required")
	}
	cabin, err := s.cabin(req.Cabin)
	if err != nil {
		return nil, err
	}
	in, out, nights, err := stay(req.CheckIn, req.CheckOut, req.Nights)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	if found := reconcile.NewOverlapIndex(set.Reservations).FindConflicts(cabin, in, out, ""); len(found) > 0 {
		return nil, &ConflictError{Cabin: cabin, Conflicts: found}
	}

	total := float64(nights) * s.cfg.NightlyRate
	if req.Total != nil {
		total = *req.Total
	}
	res := reconcile.Reservation{
		ID:        s.newID(),
		GuestName: guest,
		CheckIn:   in,
		CheckOut:  out,
		Nights:    nights,
		Resource:  cabin,
		Source:    reconcile.SourceManual,
		Pricing: reconcile.Pricing{
			NightlyRate: s.cfg.NightlyRate,
			Total:       total,
			Paid:        req.Paid,
			Currency:    s.cfg.Currency,
		},
		Notes: strings.TrimSpace(req.Notes),
		Phone: strings.TrimSpace(req.Phone),
	}
	set.Reservations = append(set.Reservations, res)

	if err := s.save(ctx, set); err != nil {
		return nil, err
	}
	s.logger.Info("Reservation booked",
		zap.String("id", res.ID),
		zap.String("cabin", cabin),
		zap.String("check_in", in.String()),
		zap.Int("nights", nights),
	)
	return &res, nil
}

// Modify applies a partial update to the reservation matching key, an ID or a guest name.
// Dates stay consistent: a new check-in alone keeps the stay length.
func (s *Service) Modify(ctx context.Context, key string, req ModifyRequest) (*reconcile.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := find(set, key)
	if err != nil {
		return nil, err
	}
	res := set.Reservations[idx]

	if req.GuestName != nil {
		if res.GuestName = strings.TrimSpace(*req.GuestName); res.GuestName == "" {
			return nil, invalid("guest name cannot be empty")
		}
	}
	if req.Cabin != nil {
		if res.Resource, err = s.cabin(*req.Cabin); err != nil {
			return nil, err
		}
	}

	if req.CheckIn != nil || req.CheckOut != nil || req.Nights != nil || res.Malformed() {
		if err := reschedule(&res, req); err != nil {
			return nil, err
		}
	}
	if res.Resource == "" {
		return nil, invalid("reservation has no cabin")
	}
	if res.GuestName == "" {
		return nil, invalid("reservation has no guest name")
	}
	res.Defect = nil

	if req.Total != nil {
		res.Pricing.Total = *req.Total
	}
	if req.Paid != nil {
		res.Pricing.Paid = *req.Paid
	}
	if req.Phone != nil {
		res.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Notes != nil {
		res.Notes = strings.TrimSpace(*req.Notes)
	}

	if found := reconcile.NewOverlapIndex(set.Reservations).FindConflicts(res.Resource, res.CheckIn, res.CheckOut, res.ID); len(found) > 0 {
		return nil, &ConflictError{Cabin: res.Resource, Conflicts: found}
	}

	set.Reservations[idx] = res
	if err := s.save(ctx, set); err != nil {
		return nil, err
	}
	s.logger.Info("Reservation modified", zap.String("id", res.ID), zap.String("cabin", res.Resource))
	return &res, nil
}

// Delete removes the reservation matching key, an ID or a guest name.
func (s *Service) Delete(ctx context.Context, key string) (*reconcile.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	idx, err := find(set, key)
	if err != nil {
		return nil, err
	}
	removed := set.Reservations[idx]
	set.Reservations = append(set.Reservations[:idx:idx], set.Reservations[idx+1:]...)

	if err := s.save(ctx, set); err != nil {
		return nil, err
	}
	s.logger.Info("Reservation deleted", zap.String("id", removed.ID), zap.String("cabin", removed.Resource))
	return &removed, nil
}

// List returns every reservation ordered by check-in. Malformed rows come last.
func (s *Service) List(ctx context.Context) ([]reconcile.Reservation, error) {
	set, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	return set.Sorted(), nil
}

// Snapshot returns the stored set as is.
func (s *Service) Snapshot(ctx context.Context) (*reconcile.ReservationSet, error) {
	return s.store.Load(ctx)
}

// Upcoming returns the next n reservations checking in today or later.
// A non-positive n uses the configured limit.
func (s *Service) Upcoming(ctx context.Context, n int) ([]reconcile.Reservation, error) {
	if n <= 0 {
		n = s.cfg.UpcomingLimit
	}
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	today := s.spec.Today(s.now())

	out := make([]reconcile.Reservation, 0, n)
	for _, r := range all {
		if len(out) == n {
			break
		}
		if r.Malformed() || r.CheckIn.Before(today) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Sync runs one reconciliation pass against the cabin feeds. Concurrent calls
// with the same options share one pass.
func (s *Service) Sync(ctx context.Context, opts reconcile.ReconcileOptions) (*reconcile.ReconcilePlan, error) {
	if s.source == nil {
		return nil, fmt.Errorf("%w: no feed source configured", reconcile.ErrFetchFailed)
	}
	key := "sync"
	if opts.DryRun {
		key = "sync:dry_run"
	}
	v, err, shared := s.group.Do(key, func() (any, error) {
		return s.sync(ctx, opts)
	})
	if shared {
		s.logger.Debug("Joined running sync pass")
	}
	plan, _ := v.(*reconcile.ReconcilePlan)
	return plan, err
}

// Preview is a dry-run pass together with the feeds it was computed from.
type Preview struct {
	Plan *reconcile.ReconcilePlan

	feeds []reconcile.FeedResult
	at    time.Time
}

// Preview fetches every feed once and plans a pass without saving it.
// Hand the result to Apply to commit it against the same feed data.
func (s *Service) Preview(ctx context.Context) (*Preview, error) {
	if s.source == nil {
		return nil, fmt.Errorf("%w: no feed source configured", reconcile.ErrFetchFailed)
	}
	at := s.now()
	feeds := reconcile.FetchAll(ctx, s.spec, s.source)

	s.mu.Lock()
	defer s.mu.Unlock()

	plan, err := reconcile.ReconcileWithPlan(ctx, s.spec, s.store, feeds, s.spec.Today(at))
	if err != nil {
		metrics.ObservePass(metrics.PassOutcome{Outcome: "failed"})
		return nil, err
	}
	metrics.ObservePass(passOutcome(plan, "dry_run"))
	return &Preview{Plan: plan, feeds: feeds, at: at}, nil
}

// Apply commits a previewed pass. The plan is rebuilt under the writer lock
// from the current store and the previewed feeds, so manual edits made since
// the preview are kept. It fails with reconcile.ErrUnconfirmedRemoval when
// the rebuilt plan would remove a reservation the preview did not.
func (s *Service) Apply(ctx context.Context, p *Preview) (*reconcile.ReconcilePlan, error) {
	if p == nil || p.Plan == nil {
		return nil, invalid("no previewed plan")
	}
	return s.pass(ctx, p.feeds, p.at, reconcile.ReconcileOptions{Confirmed: p.Plan.Removals()})
}

func (s *Service) sync(ctx context.Context, opts reconcile.ReconcileOptions) (*reconcile.ReconcilePlan, error) {
	start := s.now()

	// Feeds are fetched before taking the lock so bookings are not blocked on the network.
	feeds := reconcile.FetchAll(ctx, s.spec, s.source)
	return s.pass(ctx, feeds, start, opts)
}

// pass plans and applies one reconciliation under the writer lock.
func (s *Service) pass(ctx context.Context, feeds []reconcile.FeedResult, start time.Time, opts reconcile.ReconcileOptions) (*reconcile.ReconcilePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.store.Load(ctx)
	if err != nil {
		metrics.ObservePass(metrics.PassOutcome{Outcome: "failed"})
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}
	if n := set.MigrateSources(s.spec.Classifier); n > 0 {
		s.logger.Info("Tagged legacy reservations", zap.Int("count", n))
	}

	plan := reconcile.Reconcile(s.spec, set, feeds, s.spec.Today(start))
	for _, w := range plan.Warnings {
		s.logger.Warn("Sync warning",
			zap.String("cabin", w.Resource),
			zap.String("reservation_id", w.ReservationID),
			zap.String("message", w.Message),
		)
	}

	if opts.DryRun {
		metrics.ObservePass(passOutcome(plan, "dry_run"))
		return plan, nil
	}

	if _, err := reconcile.ApplyPlan(ctx, s.store, plan, opts); err != nil {
		metrics.ObservePass(metrics.PassOutcome{Outcome: "failed"})
		s.logger.Error("Sync pass failed, store left unchanged", zap.Error(err))
		return plan, err
	}
	metrics.ObservePass(passOutcome(plan, "committed"))

	s.logger.Info("Sync pass committed",
		zap.Int("admitted", plan.Summary.Admitted),
		zap.Int("removed", plan.Summary.Removed),
		zap.Int("unchanged", plan.Summary.Unchanged),
		zap.Int("conflicts", plan.Summary.Conflicts),
		zap.Int("skipped", plan.Summary.Skipped),
		zap.Strings("failed_feeds", plan.FailedFeeds),
		zap.Duration("duration", s.now().Sub(start)),
	)
	s.notify(ctx, plan.Reservations)
	return plan, nil
}

func passOutcome(plan *reconcile.ReconcilePlan, outcome string) metrics.PassOutcome {
	o := metrics.PassOutcome{
		Outcome:   outcome,
		Admitted:  plan.Summary.Admitted,
		Removed:   plan.Summary.Removed,
		Conflicts: plan.Summary.Conflicts,
		Skipped:   make(map[string]int),
	}
	for _, sk := range plan.Skipped {
		o.Skipped[string(sk.Reason)]++
	}
	return o
}

func (s *Service) load(ctx context.Context) (*reconcile.ReservationSet, error) {
	set, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}
	set.MigrateSources(s.spec.Classifier)
	return set, nil
}

func (s *Service) save(ctx context.Context, set *reconcile.ReservationSet) error {
	if err := s.store.Save(ctx, set); err != nil {
		return fmt.Errorf("%w: %w", reconcile.ErrPersistence, err)
	}
	s.notify(ctx, set)
	return nil
}

func (s *Service) newID() string {
	if s.spec.NewID != nil {
		return s.spec.NewID()
	}
	return uuid.NewString()
}

func (s *Service) cabin(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", invalid("cabin is required")
	}
	c, ok := s.spec.Cabin(name)
	if !ok {
		return "", fmt.Errorf("%w: %q (expected one of %s)", ErrUnknownCabin, name, strings.Join(s.spec.CabinNames(), ", "))
	}
	return c.Name, nil
}

// stay resolves a check-in plus either a check-out or a night count.
func stay(checkIn, checkOut string, nights int) (in, out reconcile.Date, n int, err error) {
	if strings.TrimSpace(checkIn) == "" {
		return in, out, 0, invalid("check-in is required")
	}
	if in, err = reconcile.ParseDate(checkIn); err != nil {
		return in, out, 0, invalid("check-in: %v", err)
	}
	switch {
	case strings.TrimSpace(checkOut) != "":
		if out, err = reconcile.ParseDate(checkOut); err != nil {
			return in, out, 0, invalid("check-out: %v", err)
		}
		if nights > 0 && in.DaysUntil(out) != nights {
			return in, out, 0, invalid("check-out %s does not match %d nights", out, nights)
		}
	case nights > 0:
		out = in.AddDays(nights)
	default:
		return in, out, 0, invalid("check-out or nights is required")
	}
	if !in.Before(out) {
		return in, out, 0, invalid("check-out %s must be after check-in %s", out, in)
	}
	return in, out, in.DaysUntil(out), nil
}

func reschedule(res *reconcile.Reservation, req ModifyRequest) error {
	storedIn, storedOut := res.CheckIn.String(), res.CheckOut.String()
	if res.Malformed() {
		storedIn, storedOut = res.Defect.RawCheckIn, res.Defect.RawCheckOut
	}

	checkIn := storedIn
	if req.CheckIn != nil {
		checkIn = *req.CheckIn
	}

	checkOut, nights := "", 0
	switch {
	case req.CheckOut != nil:
		checkOut = *req.CheckOut
		if req.Nights != nil {
			nights = *req.Nights
		}
	case req.Nights != nil:
		nights = *req.Nights
	case req.CheckIn != nil && res.Nights > 0:
		// A new check-in alone shifts the stay.
		nights = res.Nights
	default:
		checkOut = storedOut
	}

	in, out, n, err := stay(checkIn, checkOut, nights)
	if err != nil {
		if res.Malformed() {
			return fmt.Errorf("%w (stored dates are unreadable: %s)", err, res.Defect.Reason)
		}
		return err
	}
	res.CheckIn, res.CheckOut, res.Nights = in, out, n
	return nil
}

// find locates key as an ID first, then as a guest name compared after folding.
func find(set *reconcile.ReservationSet, key string) (int, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return -1, invalid("reservation key is required")
	}
	for i, r := range set.Reservations {
		if r.ID == key {
			return i, nil
		}
	}

	match := -1
	folded := normalize.Fold(key)
	for i, r := range set.Reservations {
		if normalize.Fold(r.GuestName) != folded {
			continue
		}
		if match != -1 {
			return -1, fmt.Errorf("%w: %q, use the reservation id", ErrAmbiguous, key)
		}
		match = i
	}
	if match == -1 {
		return -1, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	return match, nil
}
