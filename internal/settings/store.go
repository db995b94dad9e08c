package settings

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/car-storefront-api/internal/models"
	"github.com/rs/zerolog"
)

// State is the lifecycle state of a Store
type State int

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateReadyWithDefaults
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateReadyWithDefaults:
		return "ready_with_defaults"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Fetcher loads the current site settings from the source of truth
type Fetcher interface {
	FetchSettings(ctx context.Context) (models.SiteSettings, error)
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context) (models.SiteSettings, error)

// FetchSettings calls f(ctx)
func (f FetcherFunc) FetchSettings(ctx context.Context) (models.SiteSettings, error) {
	return f(ctx)
}

// Theme receives the primary brand color after every successful fetch
type Theme interface {
	SetPrimaryColor(color string)
}

// Option configures a Store
type Option func(*Store)

// WithTheme sets the theme updated on every replacement
func WithTheme(theme Theme) Option {
	return func(s *Store) {
		s.theme = theme
	}
}

// WithDefaults overrides the settings visible before the first successful fetch
func WithDefaults(defaults models.SiteSettings) Option {
	return func(s *Store) {
		s.current = defaults
	}
}

type subscriber struct {
	id uint64
	fn func(models.SiteSettings)
}

// Store holds the one shared SiteSettings snapshot. Snapshots are replaced
// wholesale, never merged, and every replacement is broadcast to the
// subscribers in registration order.
//
// Refreshes may overlap. None is cancelled and whichever fetch completes
// last becomes the visible snapshot.
type Store struct {
	fetcher Fetcher
	theme   Theme
	log     zerolog.Logger

	mu       sync.RWMutex
	current  models.SiteSettings
	state    State
	fetched  bool
	inFlight int

	// replacements not yet broadcast, in the order they became visible;
	// guarded by mu and drained by one goroutine at a time
	pending  []models.SiteSettings
	draining bool

	subsMu sync.Mutex
	subs   []subscriber
	nextID uint64
}

// New creates a store that serves defaults until Refresh succeeds
func New(fetcher Fetcher, log zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		fetcher: fetcher,
		log:     log.With().Str("component", "settings_store").Logger(),
		current: models.DefaultSiteSettings(),
		state:   StateUninitialized,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the current snapshot. It never blocks on a fetch.
func (s *Store) Get() models.SiteSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// State returns the lifecycle state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsLoading is true until the first fetch completes and while any fetch is in flight
func (s *Store) IsLoading() bool {
	st := s.State()
	return st == StateUninitialized || st == StateLoading
}

// Subscribe registers fn to be called after every replacement. fn may call
// Refresh; the resulting replacement is delivered once the current round of
// notifications finishes. The returned func removes the subscription.
func (s *Store) Subscribe(fn func(models.SiteSettings)) (unsubscribe func()) {
	s.subsMu.Lock()
	s.nextID++
	id := s.nextID
	s.subs = append(s.subs, subscriber{id: id, fn: fn})
	s.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subsMu.Lock()
			defer s.subsMu.Unlock()
			for i, sub := range s.subs {
				if sub.id == id {
					s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Refresh fetches the settings and, on success, replaces the snapshot,
// applies the primary color to the theme and notifies subscribers. On
// failure the current snapshot stays visible and the error is returned.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.inFlight++
	s.state = StateLoading
	s.mu.Unlock()

	settings, err := s.fetcher.FetchSettings(ctx)
	if err != nil {
		s.mu.Lock()
		s.inFlight--
		if s.inFlight == 0 {
			if s.fetched {
				s.state = StateReady
			} else {
				s.state = StateReadyWithDefaults
			}
		}
		state := s.state
		s.mu.Unlock()

		s.log.Warn().Err(err).Str("state", state.String()).Msg("Failed to fetch site settings, keeping current values")
		return fmt.Errorf("failed to refresh settings: %w", err)
	}

	s.publish(settings)
	return nil
}

// publish makes settings visible and queues its broadcast. Whichever caller
// finds the queue idle delivers every queued replacement in order, so a
// Refresh from inside a subscriber only enqueues and returns.
func (s *Store) publish(settings models.SiteSettings) {
	s.mu.Lock()
	s.current = settings
	s.fetched = true
	s.inFlight--
	if s.inFlight == 0 {
		s.state = StateReady
	}
	s.pending = append(s.pending, settings)
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.draining = false
			s.mu.Unlock()
			return
		}
		next := s.pending[0]
		s.pending = s.pending[1:]
		s.mu.Unlock()

		s.notify(next)
	}
}

func (s *Store) notify(settings models.SiteSettings) {
	if s.theme != nil {
		s.theme.SetPrimaryColor(settings.PrimaryColor)
	}

	s.subsMu.Lock()
	subs := make([]subscriber, len(s.subs))
	copy(subs, s.subs)
	s.subsMu.Unlock()

	for _, sub := range subs {
		sub.fn(settings)
	}

	s.log.Debug().Str("site_name", settings.SiteName).Int("subscribers", len(subs)).Msg("Site settings replaced")
}

// Watch refreshes every interval until ctx is done. Failures are logged by
// Refresh and do not stop the loop.
func (s *Store) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.Refresh(ctx)
		}
	}
}
