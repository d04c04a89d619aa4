package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/omamori-api/internal/model"
)

var charmTable = Table[model.Charm]{
	Name:       "charms",
	PrimaryKey: "id",
	Columns: []string{
		"id", "owner_id", "title", "meaning", "status", "back_message",
		"created_at", "updated_at", "published_at", "deleted_at",
	},
	Scan: scanCharm,
}

func scanCharm(sc Scanner) (*model.Charm, error) {
	var c model.Charm
	if err := sc.Scan(&c.ID, &c.OwnerID, &c.Title, &c.Meaning, &c.Status, &c.BackMessage,
		&c.CreatedAt, &c.UpdatedAt, &c.PublishedAt, &c.DeletedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

// CharmRepo is the charms table store plus the owner-scoped queries used by
// the charm lifecycle.
type CharmRepo struct {
	*Store[model.Charm]
}

func NewCharmRepo(db *sql.DB) *CharmRepo {
	return &CharmRepo{Store: NewStore(db, charmTable)}
}

// CountOwned counts the owner's live charms, optionally restricted to status.
func (r *CharmRepo) CountOwned(ctx context.Context, ownerID uint64, status model.CharmStatus) (int64, error) {
	return r.Count(ctx, ownedCriteria(ownerID, status))
}

// InsertDraft creates a draft charm and returns its id.
func (r *CharmRepo) InsertDraft(ctx context.Context, ownerID uint64, title string, meaning *string, at time.Time) (uint64, error) {
	return r.Create(ctx, Fields{
		"owner_id":   ownerID,
		"title":      title,
		"meaning":    meaning,
		"status":     string(model.StatusDraft),
		"created_at": at,
		"updated_at": at,
	})
}

// TitleWidth is the width of charms.title in characters.
const TitleWidth = 255

// Duplicate copies the owner's live charm sourceID into a new draft whose
// title is prefix followed by the source title, cut to TitleWidth.  The copy is made by a single
// INSERT ... SELECT; ErrNotFound means the source predicate matched nothing,
// whether the charm is missing, deleted or owned by someone else.
func (r *CharmRepo) Duplicate(ctx context.Context, ownerID, sourceID uint64, prefix string, at time.Time) (uint64, error) {
	const q = `INSERT INTO charms
		(owner_id, title, meaning, status, created_at, updated_at, published_at, deleted_at)
		SELECT owner_id, LEFT(CONCAT(?, title), ?), meaning, 'draft', ?, ?, NULL, NULL
		FROM charms
		WHERE id = ? AND owner_id = ? AND deleted_at IS NULL`
	res, err := r.DB().ExecContext(ctx, q, prefix, TitleWidth, at, at, sourceID, ownerID)
	if err != nil {
		return 0, r.wrap("duplicate", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return 0, r.wrap("duplicate", err)
	} else if n == 0 {
		return 0, ErrNotFound
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, r.wrap("duplicate", err)
	}
	return uint64(id), nil
}

// FindOwned returns the live charm id if it belongs to ownerID, else ErrNotFound.
func (r *CharmRepo) FindOwned(ctx context.Context, ownerID, id uint64) (*model.Charm, error) {
	return r.FindOneBy(ctx, Criteria{"id": id, "owner_id": ownerID})
}

// ListOwned returns a window of the owner's live charms.
func (r *CharmRepo) ListOwned(ctx context.Context, ownerID uint64, status model.CharmStatus, order []Order, limit, offset int) ([]*model.Charm, error) {
	return r.FindRange(ctx, ownedCriteria(ownerID, status), limit, offset, order...)
}

func ownedCriteria(ownerID uint64, status model.CharmStatus) Criteria {
	c := Criteria{"owner_id": ownerID}
	if status != "" {
		c["status"] = string(status)
	}
	return c
}

// PublishDraft moves the owner's live draft charm to published and stamps
// published_at.  The status predicate makes the transition happen at most
// once: false means no draft row matched.
func (r *CharmRepo) PublishDraft(ctx context.Context, ownerID, id uint64, at time.Time) (bool, error) {
	const q = `UPDATE charms SET status = 'published', published_at = ?, updated_at = ?
		WHERE id = ? AND owner_id = ? AND status = 'draft' AND deleted_at IS NULL`
	return r.exec(ctx, "publish", q, at, at, id, ownerID)
}
