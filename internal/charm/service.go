// Package charm implements the omamori lifecycle: creation with a derived
// default title, duplication, filtered listing, the one-way draft ->
// published transition, back-message editing and soft deletion.  Every
// operation starts by verifying the bearer token and is scoped to the
// resulting owner; a charm owned by someone else is reported exactly like a
// missing one.
package charm

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/omamori-api/internal/apperr"
	"github.com/iliyamo/omamori-api/internal/metrics"
	"github.com/iliyamo/omamori-api/internal/model"
	"github.com/iliyamo/omamori-api/internal/queue"
	"github.com/iliyamo/omamori-api/internal/repository"
)

const (
	// DuplicatePrefix is prepended to the source title, with no separator.
	DuplicatePrefix = "복제"
	// DefaultTitlePrefix plus the owner's charm count + 1 names an untitled charm.
	DefaultTitlePrefix = "omamori"

	DefaultPageSize = 10
	MaxPageSize     = 50
	MaxTitleLength  = repository.TitleWidth

	SortLatest  = "latest"
	SortOldest  = "oldest"
	SortUpdated = "updated"

	msgNotFound = "Omamori not found"
)

var sortOrders = map[string][]repository.Order{
	SortLatest:  {{Column: "created_at", Desc: true}, {Column: "id", Desc: true}},
	SortOldest:  {{Column: "created_at"}, {Column: "id"}},
	SortUpdated: {{Column: "updated_at", Desc: true}, {Column: "id", Desc: true}},
}

// Repository is the storage the engine needs; *repository.CharmRepo
// satisfies it.
type Repository interface {
	CountOwned(ctx context.Context, ownerID uint64, status model.CharmStatus) (int64, error)
	InsertDraft(ctx context.Context, ownerID uint64, title string, meaning *string, at time.Time) (uint64, error)
	Duplicate(ctx context.Context, ownerID, sourceID uint64, prefix string, at time.Time) (uint64, error)
	FindOwned(ctx context.Context, ownerID, id uint64) (*model.Charm, error)
	ListOwned(ctx context.Context, ownerID uint64, status model.CharmStatus, order []repository.Order, limit, offset int) ([]*model.Charm, error)
	PublishDraft(ctx context.Context, ownerID, id uint64, at time.Time) (bool, error)
	Update(ctx context.Context, id uint64, f repository.Fields) (bool, error)
	Delete(ctx context.Context, id uint64) (bool, error)
}

// Verifier resolves a bearer token to an account id.
type Verifier interface {
	Verify(raw string) (uint64, error)
}

// EventPublisher receives charm.published events.
type EventPublisher interface {
	PublishCharmPublished(ctx context.Context, ev queue.CharmPublishedEvent) error
}

// ListMeta describes the window returned by List.
type ListMeta struct {
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
}

type ListResult struct {
	Items []*model.Charm `json:"items"`
	Meta  ListMeta       `json:"meta"`
}

type DeleteResult struct {
	ID      uint64 `json:"id"`
	Deleted bool   `json:"deleted"`
}

type Service struct {
	repo    Repository
	tokens  Verifier
	events  EventPublisher
	metrics *metrics.Metrics
	log     logrus.FieldLogger
	now     func() time.Time
}

// NewService wires the engine.  events and m may be nil.
func NewService(repo Repository, tokens Verifier, events EventPublisher, m *metrics.Metrics, log logrus.FieldLogger) *Service {
	return &Service{repo: repo, tokens: tokens, events: events, metrics: m, log: log, now: time.Now}
}

// Create inserts a draft from the title and meaning of in.  A missing or
// blank title becomes "omamori<N+1>" where N is the owner's live charm count.
// Count and insert are separate round trips, so concurrent creates by one
// owner may derive the same title.
func (s *Service) Create(ctx context.Context, token string, in Input) (*model.Charm, error) {
	owner, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	title, hasTitle, meaning, err := titleAndMeaning(in)
	if err != nil {
		return nil, err
	}
	if !hasTitle {
		n, err := s.repo.CountOwned(ctx, owner, "")
		if err != nil {
			return nil, apperr.Internal(err)
		}
		title = DefaultTitlePrefix + strconv.FormatInt(n+1, 10)
	}

	id, err := s.repo.InsertDraft(ctx, owner, title, meaning, s.stamp())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	c, err := s.load(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	s.metrics.CharmTransition(metrics.TransitionCreated)
	return c, nil
}

// Duplicate copies an owned charm into a new draft titled
// DuplicatePrefix + source title, cut to MaxTitleLength characters.  The
// source row is never written.
func (s *Service) Duplicate(ctx context.Context, token string, id uint64) (*model.Charm, error) {
	owner, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, owner, id); err != nil {
		return nil, err
	}
	newID, err := s.repo.Duplicate(ctx, owner, id, DuplicatePrefix, s.stamp())
	if err != nil {
		return nil, s.storeErr(err)
	}
	c, err := s.load(ctx, owner, newID)
	if err != nil {
		return nil, err
	}
	s.metrics.CharmTransition(metrics.TransitionDuplicated)
	return c, nil
}

// Get returns an owned, live charm.
func (s *Service) Get(ctx context.Context, token string, id uint64) (*model.Charm, error) {
	owner, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, owner, id)
}

// List returns one page of the owner's charms.  Page is clamped to >= 1 and
// size into [1, MaxPageSize] (non-positive sizes fall back to
// DefaultPageSize).  An empty status means no filter; sort defaults to
// latest.
func (s *Service) List(ctx context.Context, token string, q ListQuery) (*ListResult, error) {
	owner, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}

	page, size := q.Page, q.Size
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}

	var status model.CharmStatus
	if q.Status != nil {
		status = model.CharmStatus(strings.TrimSpace(*q.Status))
		if status != "" && !status.Valid() {
			return nil, apperr.Invalid("status", "Invalid status")
		}
	}
	sort := SortLatest
	if q.Sort != nil {
		sort = strings.TrimSpace(*q.Sort)
	}
	order, ok := sortOrders[sort]
	if !ok {
		return nil, apperr.Invalid("sort", "Invalid sort")
	}

	items := []*model.Charm{}
	if offset, ok := repository.Offset(page, size); ok {
		if items, err = s.repo.ListOwned(ctx, owner, status, order, size, offset); err != nil {
			return nil, apperr.Internal(err)
		}
	}
	total, err := s.repo.CountOwned(ctx, owner, status)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &ListResult{
		Items: items,
		Meta: ListMeta{
			Page:       page,
			Size:       size,
			Total:      total,
			TotalPages: repository.LastPage(total, size),
		},
	}, nil
}

// Publish moves a draft to published and stamps published_at.  Publishing
// an already published charm returns it unchanged.
func (s *Service) Publish(ctx context.Context, token string, id uint64) (*model.Charm, error) {
	owner, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	c, err := s.load(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	switch {
	case c.Status == model.StatusPublished:
		return c, nil
	case !c.Status.Valid():
		return nil, apperr.Internal(fmt.Errorf("charm %d: unknown status %q", c.ID, c.Status))
	case c.Status != model.StatusDraft:
		return nil, apperr.Invalid("status", "Invalid status")
	}

	moved, err := s.repo.PublishDraft(ctx, owner, id, s.stamp())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	c, err = s.load(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	// A concurrent publish won the race; its result is ours too.
	if !moved {
		return c, nil
	}
	s.metrics.CharmTransition(metrics.TransitionPublished)
	s.emitPublished(ctx, c)
	return c, nil
}

// Update replaces title and meaning.  Unlike Create both are required.
func (s *Service) Update(ctx context.Context, token string, id uint64, in Input) (*model.Charm, error) {
	owner, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	title, hasTitle, meaning, err := titleAndMeaning(in)
	if err != nil {
		return nil, err
	}
	fields := map[string][]string{}
	if !hasTitle {
		fields["title"] = []string{"title required"}
	}
	if meaning == nil {
		fields["meaning"] = []string{"meaning required"}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}

	if _, err := s.load(ctx, owner, id); err != nil {
		return nil, err
	}
	if _, err := s.repo.Update(ctx, id, repository.Fields{
		"title":      title,
		"meaning":    *meaning,
		"updated_at": s.stamp(),
	}); err != nil {
		return nil, apperr.Internal(err)
	}
	return s.load(ctx, owner, id)
}

// Delete soft-deletes an owned charm in any status.
func (s *Service) Delete(ctx context.Context, token string, id uint64) (*DeleteResult, error) {
	owner, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, owner, id); err != nil {
		return nil, err
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !ok {
		return nil, apperr.NotFound(msgNotFound)
	}
	s.metrics.CharmTransition(metrics.TransitionDeleted)
	return &DeleteResult{ID: id, Deleted: true}, nil
}

// SetBackMessage sets or clears back_message regardless of status.  Absent,
// null and blank values clear it.
func (s *Service) SetBackMessage(ctx context.Context, token string, id uint64, in Input) (*model.Charm, error) {
	owner, err := s.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, owner, id); err != nil {
		return nil, err
	}
	msg, ok, err := in.text("back_message")
	if err != nil {
		return nil, apperr.Invalid("back_message", "back_message must be string or null")
	}
	var value any
	if ok {
		value = msg
	}
	if _, err := s.repo.Update(ctx, id, repository.Fields{
		"back_message": value,
		"updated_at":   s.stamp(),
	}); err != nil {
		return nil, apperr.Internal(err)
	}
	return s.load(ctx, owner, id)
}

func titleAndMeaning(in Input) (title string, hasTitle bool, meaning *string, err error) {
	title, hasTitle, err = in.text("title")
	if err != nil {
		return "", false, nil, err
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", false, nil, apperr.Invalid("title", fmt.Sprintf("title may not be greater than %d characters", MaxTitleLength))
	}
	m, hasMeaning, err := in.text("meaning")
	if err != nil {
		return "", false, nil, err
	}
	if hasMeaning {
		meaning = &m
	}
	return title, hasTitle, meaning, nil
}

func (s *Service) load(ctx context.Context, owner, id uint64) (*model.Charm, error) {
	c, err := s.repo.FindOwned(ctx, owner, id)
	if err != nil {
		return nil, s.storeErr(err)
	}
	return c, nil
}

func (s *Service) storeErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound(msgNotFound)
	}
	return apperr.Internal(err)
}

func (s *Service) emitPublished(ctx context.Context, c *model.Charm) {
	if s.events == nil {
		return
	}
	ev := queue.CharmPublishedEvent{CharmID: c.ID, OwnerID: c.OwnerID, Title: c.Title}
	if c.PublishedAt != nil {
		ev.PublishedAt = c.PublishedAt.UTC().Format(time.RFC3339)
	}
	if err := s.events.PublishCharmPublished(ctx, ev); err != nil {
		s.log.WithError(err).WithField("charm_id", c.ID).Warn("charm.published event not delivered")
	}
}

// stamp is the current time at the precision MySQL DATETIME keeps.
func (s *Service) stamp() time.Time {
	return s.now().UTC().Truncate(time.Second)
}
