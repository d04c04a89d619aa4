// Package queue defines the charm lifecycle events exchanged over RabbitMQ,
// the publisher used by the API and the background consumer that records
// them.
package queue

// CharmPublishedQueue is the durable queue carrying CharmPublishedEvent.
const CharmPublishedQueue = "charm.published"

// CharmPublishedEvent is emitted once per charm, at its draft -> published
// transition.  It carries enough for downstream consumers to log or notify
// without querying the primary database.
type CharmPublishedEvent struct {
	CharmID     uint64 `json:"charm_id"`
	OwnerID     uint64 `json:"owner_id"`
	Title       string `json:"title"`
	PublishedAt string `json:"published_at"`
}
