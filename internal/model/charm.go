package model

import "time"

// CharmStatus is the publication state of a charm.  The only transition is
// draft -> published; published is terminal.
type CharmStatus string

const (
	StatusDraft     CharmStatus = "draft"
	StatusPublished CharmStatus = "published"
)

// Valid reports whether s is one of the known states.
func (s CharmStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// Charm (omamori) represents a row in the `charms` table.  OwnerID is fixed at
// creation and PublishedAt is stamped once, at the publish transition.
type Charm struct {
	ID          uint64      `json:"id"`           // charms.id
	OwnerID     uint64      `json:"-"`            // charms.owner_id (accounts.id)
	Title       string      `json:"title"`        // charms.title, never blank
	Meaning     *string     `json:"meaning"`      // charms.meaning (nullable)
	Status      CharmStatus `json:"status"`       // charms.status
	BackMessage *string     `json:"back_message"` // charms.back_message (nullable)
	CreatedAt   time.Time   `json:"created_at"`   // charms.created_at
	UpdatedAt   time.Time   `json:"updated_at"`   // charms.updated_at
	PublishedAt *time.Time  `json:"published_at"` // charms.published_at (nullable)
	DeletedAt   *time.Time  `json:"-"`            // charms.deleted_at (nullable)
}
