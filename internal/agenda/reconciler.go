package agenda

import (
	"go.uber.org/zap"

	"github.com/podiumhq/podium-core/internal/db"
	"github.com/podiumhq/podium-core/internal/errors"
	"github.com/podiumhq/podium-core/internal/logging"
	"github.com/podiumhq/podium-core/internal/models"
)

// Reconciler fills calendar gaps with default category entries. It only ever
// inserts for dates with no entry at all: an explicit user choice and a
// reconciliation pass can race freely because the pass never touches a date
// that already has a row. Reverting a date back to the regular program is an
// in-place update for the same reason: a deleted row would look like a gap
// to the next pass and get recreated with whatever the default happens to be.
type Reconciler struct {
	repo           *db.Repository
	congregationID string
}

// NewReconciler creates a reconciler scoped to one congregation.
func NewReconciler(repo *db.Repository, congregationID string) *Reconciler {
	return &Reconciler{repo: repo, congregationID: congregationID}
}

// Reconcile inserts default entries for the candidate dates that have none.
// Dates whose default is the regular program are skipped: no row means
// regular, so inserting one would add nothing. Returns how many entries were
// inserted.
func (r *Reconciler) Reconcile(dates []string) (int, error) {
	existing, err := r.repo.ListExceptionDates(r.congregationID, dates)
	if err != nil {
		return 0, errors.Wrap(errors.ErrDatabase, "failed to list calendar entries", err)
	}

	inserted := 0
	for _, date := range dates {
		if existing[date] {
			continue
		}

		category, err := CategorizeDate(date)
		if err != nil {
			logging.Log.Warn("Skipping malformed candidate date",
				zap.String("date", date), zap.Error(err))
			continue
		}
		if category == models.CategoryRegular {
			continue
		}

		entry := &models.CalendarException{
			CongregationID: r.congregationID,
			Date:           date,
			Reason:         category,
		}
		if err := r.repo.CreateCalendarException(entry); err != nil {
			// Another writer may have claimed the date between the gap scan
			// and this insert; their entry wins.
			logging.Log.Warn("Gap-fill insert lost to a concurrent write",
				zap.String("date", date), zap.Error(err))
			continue
		}
		inserted++
	}

	if inserted > 0 {
		logging.Log.Info("Calendar gap-fill complete", zap.Int("inserted", inserted))
	}
	return inserted, nil
}

// RevertToRegular updates an entry back to the regular program in place.
func (r *Reconciler) RevertToRegular(date string) error {
	entry := &models.CalendarException{
		CongregationID: r.congregationID,
		Date:           date,
		Reason:         models.CategoryRegular,
	}
	if err := r.repo.UpdateCalendarException(entry); err != nil {
		return errors.Wrap(errors.ErrDatabase, "failed to revert calendar entry", err)
	}
	return nil
}
