package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-activity-report/internal/config"
	"github.com/penwyp/go-activity-report/internal/core/model"
	"github.com/penwyp/go-activity-report/internal/core/normalize"
	"github.com/penwyp/go-activity-report/internal/data/codec"
	"github.com/penwyp/go-activity-report/internal/metrics"
	"github.com/penwyp/go-activity-report/internal/util"
)

const (
	kindViewState = "view_state"
	kindSnapshot  = "snapshot"
)

var storedValueAPI = sonic.Config{UseNumber: true}.Froze()

// StateStore reads and writes the view-state and snapshot of each report
// context. Reads never fail: a missing or unreadable value degrades to the
// default view-state or to no snapshot. Writes return their error.
type StateStore struct {
	backend   Backend
	cfg       config.Config
	sanitizer normalize.ContextSanitizer
	clock     func() time.Time
	metrics   *metrics.Metrics
	logger    util.LoggerInterface
}

type Option func(*StateStore)

// WithClock overrides the time source used for default view-states and
// generatedAt stamps.
func WithClock(clock func() time.Time) Option {
	return func(s *StateStore) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *StateStore) {
		s.metrics = m
	}
}

func WithLogger(logger util.LoggerInterface) Option {
	return func(s *StateStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func New(backend Backend, cfg config.Config, opts ...Option) *StateStore {
	s := &StateStore{
		backend:   backend,
		cfg:       cfg,
		sanitizer: normalize.NewContextSanitizer(cfg.DefaultContext),
		clock:     func() time.Time { return util.GetTimeProvider().Now() },
		logger:    util.Log(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the underlying key/value backend.
func (s *StateStore) Backend() Backend {
	return s.backend
}

// Sanitize canonicalizes a report context with the configured default.
func (s *StateStore) Sanitize(reportContext string) string {
	return s.sanitizer.SanitizeString(reportContext)
}

// DefaultViewState is the view-state of a context that has never been set:
// start of today until now, segmented daily.
func (s *StateStore) DefaultViewState(reportContext string) model.ViewState {
	now := s.clock()
	r := normalize.RangeValues(util.UnixSeconds(util.StartOfDay(now)), util.UnixSeconds(now))
	return model.ViewState{
		Context:      s.Sanitize(reportContext),
		From:         r.From,
		To:           r.To,
		Segmentation: model.SegmentationDaily,
	}
}

// GetViewState returns the persisted view-state for reportContext, with its
// range normalized and its segmentation parsed.
func (s *StateStore) GetViewState(ctx context.Context, reportContext string) model.ViewState {
	reportContext = s.Sanitize(reportContext)
	state := s.DefaultViewState(reportContext)

	raw, ok := s.read(ctx, kindViewState, s.cfg.ViewStateKey(reportContext))
	if !ok {
		return state
	}

	var fields map[string]any
	if err := sonic.Unmarshal(raw, &fields); err != nil || fields == nil {
		s.logger.Warn("Ignoring malformed view-state", util.F("context", reportContext))
		s.metrics.TrackStoreRead(kindViewState, metrics.ReadMalformed)
		return state
	}
	s.metrics.TrackStoreRead(kindViewState, metrics.ReadHit)

	// Fields that are missing or of the wrong type count as 0.
	from, to := 0.0, 0.0
	if v, ok := fields["from"].(float64); ok {
		from = v
	}
	if v, ok := fields["to"].(float64); ok {
		to = v
	}
	r := normalize.RangeValues(from, to)
	state.From, state.To = r.From, r.To

	if v, ok := fields["segmentation"].(string); ok {
		state.Segmentation = model.ParseSegmentation(v)
	}
	if v, ok := fields["generatedAt"].(string); ok {
		state.GeneratedAt = v
	}
	return state
}

// SetViewState persists state under reportContext. The range is normalized
// and generatedAt stamped when empty.
func (s *StateStore) SetViewState(ctx context.Context, reportContext string, state model.ViewState) error {
	reportContext = s.Sanitize(reportContext)
	r := normalize.RangeValues(state.From, state.To)

	state.Context = reportContext
	state.From, state.To = r.From, r.To
	state.Segmentation = model.ParseSegmentation(string(state.Segmentation))
	if state.GeneratedAt == "" {
		state.GeneratedAt = util.FormatISO8601(s.clock())
	}

	data, err := sonic.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode view-state: %w", err)
	}
	if err := s.backend.Set(ctx, s.cfg.ViewStateKey(reportContext), data); err != nil {
		return fmt.Errorf("failed to persist view-state for %s: %w", reportContext, err)
	}
	s.logger.Debug("View-state persisted",
		util.F("context", reportContext), util.F("from", state.From), util.F("to", state.To),
		util.F("segmentation", state.Segmentation))
	return nil
}

// GetSnapshot returns the latest snapshot for reportContext, or nil when none
// was written or the stored value cannot be decoded.
func (s *StateStore) GetSnapshot(ctx context.Context, reportContext string) *model.Snapshot {
	reportContext = s.Sanitize(reportContext)

	raw, ok := s.read(ctx, kindSnapshot, s.cfg.SnapshotKey(reportContext))
	if !ok {
		return nil
	}

	// The stored value is either the snapshot object itself or a JSON string
	// carrying the snapshot text.
	var value any
	var snapshot *model.Snapshot
	if err := storedValueAPI.Unmarshal(raw, &value); err == nil {
		snapshot = codec.DeserializeAny(value)
	}
	if snapshot == nil {
		s.logger.Warn("Ignoring malformed snapshot", util.F("context", reportContext))
		s.metrics.TrackStoreRead(kindSnapshot, metrics.ReadMalformed)
		return nil
	}
	s.metrics.TrackStoreRead(kindSnapshot, metrics.ReadHit)
	return snapshot
}

// SetSnapshot persists snapshot as canonical JSON under its own context.
func (s *StateStore) SetSnapshot(ctx context.Context, snapshot *model.Snapshot) error {
	if snapshot == nil {
		return codec.ErrNilSnapshot
	}
	reportContext := s.Sanitize(snapshot.Context)
	stored := *snapshot
	stored.Context = reportContext

	data, err := codec.Encode(&stored)
	if err == nil {
		err = s.backend.Set(ctx, s.cfg.SnapshotKey(reportContext), data)
	}
	s.metrics.TrackSnapshotWrite(err)
	if err != nil {
		return fmt.Errorf("failed to persist snapshot for %s: %w", reportContext, err)
	}
	s.logger.Debug("Snapshot persisted", util.F("context", reportContext), util.F("bytes", len(data)))
	return nil
}

// Reset deletes both the view-state and the snapshot of reportContext.
func (s *StateStore) Reset(ctx context.Context, reportContext string) error {
	reportContext = s.Sanitize(reportContext)
	for _, key := range []string{s.cfg.ViewStateKey(reportContext), s.cfg.SnapshotKey(reportContext)} {
		if err := s.backend.Delete(ctx, key); err != nil {
			return fmt.Errorf("failed to reset %s: %w", reportContext, err)
		}
	}
	return nil
}

// Contexts lists every report context that has a view-state or a snapshot.
func (s *StateStore) Contexts(ctx context.Context) ([]string, error) {
	var contexts []string
	for _, prefix := range []string{s.cfg.ViewStatePrefix + "_", s.cfg.SnapshotPrefix + "_"} {
		keys, err := s.backend.Keys(ctx, prefix)
		if err != nil {
			return nil, fmt.Errorf("failed to list keys: %w", err)
		}
		for _, key := range keys {
			contexts = append(contexts, strings.TrimPrefix(key, prefix))
		}
	}
	slices.Sort(contexts)
	return slices.Compact(contexts), nil
}

// ContextForKey maps a persisted key back to its report context.
func (s *StateStore) ContextForKey(key string) (string, bool) {
	for _, prefix := range []string{s.cfg.ViewStatePrefix + "_", s.cfg.SnapshotPrefix + "_"} {
		if strings.HasPrefix(key, prefix) {
			return strings.TrimPrefix(key, prefix), true
		}
	}
	return "", false
}

func (s *StateStore) read(ctx context.Context, kind, key string) ([]byte, bool) {
	raw, err := s.backend.Get(ctx, key)
	switch {
	case err == nil:
		return raw, true
	case errors.Is(err, ErrNotFound):
		s.metrics.TrackStoreRead(kind, metrics.ReadMiss)
	default:
		s.logger.Warn("Store read failed", util.F("key", key), util.F("error", err.Error()))
		s.metrics.TrackStoreRead(kind, metrics.ReadError)
	}
	return nil, false
}
