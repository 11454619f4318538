package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/top3hunter/recommend-service/internal/domain"
	"github.com/top3hunter/recommend-service/internal/repository"
	"github.com/top3hunter/recommend-service/pkg/log"
)

// ErrConfigMissing is returned when a required configuration key is absent or
// still holds its seed placeholder. The wrapped message names the key.
var ErrConfigMissing = errors.New("configuration missing")

// DefaultRefreshInterval bounds configuration staleness when CACHE_TTL_CONFIG
// is absent or unparsable.
const DefaultRefreshInterval = 60 * time.Second

type entry struct {
	value string
	group string
}

// Service serves configuration reads from an in-memory snapshot of the
// configurations table. A background task refreshes the snapshot on an
// interval, so admin writes become visible within that bound. Writes made
// through Update/Delete refresh the local snapshot immediately.
type Service struct {
	repo repository.ConfigurationRepository

	mu       sync.RWMutex
	snapshot map[string]entry
	interval time.Duration

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewService creates a settings service. Call Start to load the initial
// snapshot and begin background refresh.
func NewService(repo repository.ConfigurationRepository) *Service {
	return &Service{
		repo:     repo,
		snapshot: make(map[string]entry),
		interval: DefaultRefreshInterval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start loads the initial snapshot and launches the refresh task.
func (s *Service) Start(ctx context.Context) error {
	if err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("initial configuration load: %w", err)
	}
	go s.refreshLoop()
	return nil
}

// Close stops the background refresh task.
func (s *Service) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
		<-s.done
	})
}

func (s *Service) refreshLoop() {
	defer close(s.done)

	for {
		s.mu.RLock()
		interval := s.interval
		s.mu.RUnlock()

		select {
		case <-s.stop:
			return
		case <-time.After(interval):
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := s.Refresh(ctx); err != nil {
			l := log.L()
			l.Warn().Err(err).Msg("configuration refresh failed, keeping stale snapshot")
		}
		cancel()
	}
}

// Refresh reloads the snapshot from the backing store.
func (s *Service) Refresh(ctx context.Context) error {
	configs, err := s.repo.List(ctx)
	if err != nil {
		return err
	}

	snapshot := make(map[string]entry, len(configs))
	for _, c := range configs {
		snapshot[c.Key] = entry{value: c.Value, group: c.Group}
	}

	interval := DefaultRefreshInterval
	if raw, ok := snapshot[KeyCacheTTLConfig]; ok {
		if secs, err := strconv.Atoi(strings.TrimSpace(raw.value)); err == nil && secs > 0 {
			interval = time.Duration(secs) * time.Second
		}
	}

	s.mu.Lock()
	s.snapshot = snapshot
	s.interval = interval
	s.mu.Unlock()
	return nil
}

// Get returns the value for key, or ErrConfigMissing naming the key.
func (s *Service) Get(key string) (string, error) {
	s.mu.RLock()
	e, ok := s.snapshot[key]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrConfigMissing, key)
	}
	return e.value, nil
}

// GetGroup returns all key/value pairs in a configuration group.
func (s *Service) GetGroup(group string) map[string]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string)
	for k, e := range s.snapshot {
		if e.group == group {
			out[k] = e.value
		}
	}
	return out
}

// Int returns the integer value for key, or def when absent or unparsable.
func (s *Service) Int(key string, def int) int {
	raw, err := s.Get(key)
	if err != nil {
		return def
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return n
}

// Bool returns the boolean value for key, or def when absent or unparsable.
func (s *Service) Bool(key string, def bool) bool {
	raw, err := s.Get(key)
	if err != nil {
		return def
	}
	b, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return def
	}
	return b
}

// Seconds interprets the value for key as a duration in whole seconds.
func (s *Service) Seconds(key string, def time.Duration) time.Duration {
	raw, err := s.Get(key)
	if err != nil {
		return def
	}
	secs, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || secs <= 0 {
		return def
	}
	return time.Duration(secs) * time.Second
}

// Require verifies that every key is present and not a seed placeholder.
// It fails on the first missing key, naming it.
func (s *Service) Require(keys ...string) error {
	for _, key := range keys {
		value, err := s.Get(key)
		if err != nil {
			return err
		}
		if isPlaceholder(value) {
			return fmt.Errorf("%w: %s is not configured", ErrConfigMissing, key)
		}
	}
	return nil
}

// Update persists a configuration write and refreshes the local snapshot so
// the change is visible to this process immediately. Other replicas converge
// within the refresh interval.
func (s *Service) Update(ctx context.Context, key, value, group string) (*domain.Configuration, error) {
	if group == "" {
		group = domain.GroupAPI
	}
	if !domain.IsValidGroup(group) {
		return nil, fmt.Errorf("invalid configuration group: %s", group)
	}

	cfg := &domain.Configuration{Key: key, Value: value, Group: group}
	if err := s.repo.Upsert(ctx, cfg); err != nil {
		return nil, err
	}

	if err := s.Refresh(ctx); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldConfigKey, key).Msg("snapshot refresh after write failed")
	}
	return cfg, nil
}

// Delete removes a configuration entry and refreshes the local snapshot.
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.repo.Delete(ctx, key); err != nil {
		return err
	}
	if err := s.Refresh(ctx); err != nil {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldConfigKey, key).Msg("snapshot refresh after delete failed")
	}
	return nil
}

// List returns all configuration rows straight from the backing store.
func (s *Service) List(ctx context.Context) ([]domain.Configuration, error) {
	return s.repo.List(ctx)
}

// ListGroup returns all configuration rows of one group from the backing store.
func (s *Service) ListGroup(ctx context.Context, group string) ([]domain.Configuration, error) {
	if !domain.IsValidGroup(group) {
		return nil, fmt.Errorf("invalid configuration group: %s", group)
	}
	return s.repo.GetByGroup(ctx, group)
}
