package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ifuryst/herald/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")

	// ErrClaimLost is returned by a transition whose row was no longer in
	// the expected status, usually because a concurrent run got there first.
	ErrClaimLost = errors.New("claim lost: row is no longer in the expected status")
)

// InterruptedMessage is stored on items whose claim went stale.
const InterruptedMessage = "publication interrupted"

// Outcome carries the fields written together with a status transition.
// Fields that do not apply to the target status are ignored.
type Outcome struct {
	ErrorMessage   string
	ExternalPostID string
	PostURL        string
	At             time.Time
}

// Store is everything the publication pipeline reads and writes.
//
// Every Transition method is a compare-and-swap on the status column: the
// row is only updated when its current status equals from. A miss is
// reported as ErrClaimLost.
type Store interface {
	DueScheduledItems(ctx context.Context, now time.Time, limit int) ([]models.ScheduledItem, error)
	DueAuthoredItems(ctx context.Context, now time.Time, limit int) ([]models.AuthoredItem, error)
	DueCrossPostJobs(ctx context.Context, now time.Time, limit int) ([]models.CrossPostJob, error)

	TransitionScheduledItem(ctx context.Context, id uuid.UUID, from, to models.ScheduledItemStatus, out Outcome) error
	TransitionAuthoredItem(ctx context.Context, id uuid.UUID, from, to models.AuthoredItemStatus, out Outcome) error
	TransitionCrossPostJob(ctx context.Context, id uuid.UUID, from, to models.CrossPostJobStatus, out Outcome) error
	UpdateScheduledTarget(ctx context.Context, target *models.ScheduledItemTarget) error

	// RenewScheduledClaim refreshes updated_at on a processing item so a
	// long multi-account publish is not released as stale.
	RenewScheduledClaim(ctx context.Context, id uuid.UUID) error

	// Confirm*Published write the published state regardless of the current
	// status. They are for posts that are already live when the claim turns
	// out to be lost; ErrNotFound if the row is gone.
	ConfirmScheduledItemPublished(ctx context.Context, id uuid.UUID, out Outcome) error
	ConfirmAuthoredItemPublished(ctx context.Context, id uuid.UUID, out Outcome) error
	ConfirmCrossPostJobPublished(ctx context.Context, id uuid.UUID, out Outcome) error

	FindEligibleAccount(ctx context.Context, profileID uuid.UUID, provider string) (*models.PostingAccount, error)
	GetAuthoredItem(ctx context.Context, id uuid.UUID) (*models.AuthoredItem, error)
	ActiveCrossPostRules(ctx context.Context, profileID uuid.UUID) ([]models.CrossPostRule, error)

	CreatePublishedRecord(ctx context.Context, record *models.PublishedRecord) error
	CreateCrossPostJob(ctx context.Context, job *models.CrossPostJob) error

	// ReleaseStaleClaims moves rows stuck in a claim state since before
	// cutoff to their failure state and returns how many were released.
	ReleaseStaleClaims(ctx context.Context, cutoff time.Time) (int64, error)
}

// FailureMessage makes sure a failed row never ends up without a message.
func FailureMessage(msg string) string {
	if msg == "" {
		return "unknown error"
	}
	return msg
}
