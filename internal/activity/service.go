package activity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Ethan041028/audacieuses-content/internal/content"
)

// CreateInput describes a new activity. Content may be any raw value the
// codec accepts: a string, a JSON document, a map or an Envelope. ID is
// optional; a UUID is generated when it is empty.
type CreateInput struct {
	ID       string
	ModuleID string
	Title    string
	Content  any
}

// UpdateInput changes an activity. A nil Title or Content keeps the current
// value.
type UpdateInput struct {
	ID      string
	Title   *string
	Content any
}

// ActivityView is an activity with its content decoded for rendering.
type ActivityView struct {
	Activity
	Content content.Envelope `json:"content"`
}

// NormalizeResult is the outcome of running raw content through the codec.
type NormalizeResult struct {
	Kind      content.Kind     `json:"kind"`
	Envelope  content.Envelope `json:"envelope"`
	Canonical string           `json:"canonical"`
	Notes     []string         `json:"notes"`
}

// Service is the write and read path for activities.
type Service struct {
	store  Store
	cache  ContentCache
	events EventLogger
}

// Option configures a Service.
type Option func(*Service)

// WithCache sets the read-through cache.
func WithCache(c ContentCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithEventLogger sets the audit event sink.
func WithEventLogger(l EventLogger) Option {
	return func(s *Service) { s.events = l }
}

// NewService creates a service over store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		cache:  NopContentCache{},
		events: NopEventLogger{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Normalize runs raw content through decode, repair and encode without
// persisting anything.
func (s *Service) Normalize(raw any) (NormalizeResult, error) {
	return normalize(raw)
}

func normalize(raw any) (NormalizeResult, error) {
	if err := content.CheckValue(raw); err != nil {
		return NormalizeResult{}, err
	}

	env, notes := content.Repair(content.Decode(raw))
	canonical, err := content.Encode(env)
	if err != nil {
		return NormalizeResult{}, err
	}
	if err := content.CheckCanonical(canonical); err != nil {
		return NormalizeResult{}, fmt.Errorf("normalize: %w", err)
	}

	if notes == nil {
		notes = []string{}
	}
	return NormalizeResult{
		Kind:      env.Kind(),
		Envelope:  env,
		Canonical: canonical,
		Notes:     notes,
	}, nil
}

// Create stores a new activity with canonical content.
func (s *Service) Create(ctx context.Context, in CreateInput) (Activity, error) {
	moduleID := strings.TrimSpace(in.ModuleID)
	title := strings.TrimSpace(in.Title)
	if moduleID == "" {
		return Activity{}, fmt.Errorf("%w: module_id is required", ErrInvalidInput)
	}
	if title == "" {
		return Activity{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}

	id := uuid.NewString()
	if in.ID != "" {
		parsed, err := uuid.Parse(in.ID)
		if err != nil {
			return Activity{}, fmt.Errorf("%w: id %q is not a UUID", ErrInvalidInput, in.ID)
		}
		id = parsed.String()
	}

	res, err := normalize(in.Content)
	if err != nil {
		return Activity{}, err
	}

	a, err := s.store.Create(ctx, Activity{
		ID:       id,
		ModuleID: moduleID,
		Title:    title,
		Kind:     res.Kind,
		Content:  res.Canonical,
	})
	if err != nil {
		return Activity{}, err
	}

	slog.Info("activity created",
		"activity_id", a.ID,
		"module_id", a.ModuleID,
		"kind", a.Kind,
	)
	s.logEvent(ctx, Event{
		ActivityID: a.ID,
		EventType:  EventContentCreated,
		Data:       map[string]any{"kind": string(a.Kind)},
	})
	s.logRepairs(ctx, a.ID, res.Notes)
	return a, nil
}

// Update changes an activity's title and/or content. The current row is
// read from the store, not the cache. Concurrent updates are not versioned:
// the last write wins.
func (s *Service) Update(ctx context.Context, in UpdateInput) (Activity, error) {
	parsed, err := uuid.Parse(in.ID)
	if err != nil {
		return Activity{}, ErrNotFound
	}
	cur, err := s.store.Get(ctx, parsed.String())
	if err != nil {
		return Activity{}, err
	}

	next := cur
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return Activity{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
		}
		next.Title = title
	}

	var notes []string
	if in.Content != nil {
		res, err := normalize(in.Content)
		if err != nil {
			return Activity{}, err
		}
		next.Kind = res.Kind
		next.Content = res.Canonical
		notes = res.Notes
	}

	a, err := s.store.Update(ctx, next)
	if err != nil {
		return Activity{}, err
	}
	if err := s.cache.Delete(ctx, a.ID); err != nil {
		slog.Warn("failed to invalidate cached activity", "activity_id", a.ID, "error", err)
	}

	slog.Info("activity updated",
		"activity_id", a.ID,
		"kind", a.Kind,
	)
	s.logEvent(ctx, Event{
		ActivityID: a.ID,
		EventType:  EventContentUpdated,
		Data: map[string]any{
			"kind":            string(a.Kind),
			"content_changed": cur.Content != a.Content,
		},
	})
	s.logRepairs(ctx, a.ID, notes)
	return a, nil
}

// Get returns the stored activity, reading through the cache.
func (s *Service) Get(ctx context.Context, id string) (Activity, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return Activity{}, ErrNotFound
	}
	id = parsed.String()

	if a, ok, err := s.cache.Get(ctx, id); err != nil {
		slog.Warn("content cache read failed", "activity_id", id, "error", err)
	} else if ok {
		return a, nil
	}

	a, err := s.store.Get(ctx, id)
	if err != nil {
		return Activity{}, err
	}
	if err := s.cache.Set(ctx, a); err != nil {
		slog.Warn("content cache write failed", "activity_id", id, "error", err)
	}
	return a, nil
}

// View returns the activity with its content decoded and repaired. Stored
// rows are decoded defensively since older rows predate canonical encoding.
func (s *Service) View(ctx context.Context, id string) (ActivityView, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return ActivityView{}, err
	}
	return ActivityView{
		Activity: a,
		Content:  content.Validate(content.Decode(a.Content)),
	}, nil
}

// ListByModule returns the module's activities, oldest first.
func (s *Service) ListByModule(ctx context.Context, moduleID string) ([]Activity, error) {
	moduleID = strings.TrimSpace(moduleID)
	if moduleID == "" {
		return nil, fmt.Errorf("%w: module_id is required", ErrInvalidInput)
	}
	return s.store.ListByModule(ctx, moduleID)
}

func (s *Service) logRepairs(ctx context.Context, id string, notes []string) {
	if len(notes) == 0 {
		return
	}
	slog.Warn("activity content repaired",
		"activity_id", id,
		"repairs", len(notes),
		"notes", notes,
	)
	s.logEvent(ctx, Event{
		ActivityID: id,
		EventType:  EventContentRepaired,
		Data:       map[string]any{"notes": notes},
	})
}

func (s *Service) logEvent(ctx context.Context, event Event) {
	if err := s.events.LogEvent(ctx, event); err != nil {
		slog.Warn("failed to log event",
			"type", event.EventType,
			"activity_id", event.ActivityID,
			"error", err,
		)
	}
}

// IsClientError reports whether err was caused by the caller's input.
func IsClientError(err error) bool {
	var encErr *content.EncodingError
	return errors.Is(err, ErrInvalidInput) || errors.As(err, &encErr)
}
