package speech

import (
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/podiumhq/podium-core/internal/db"
	"github.com/podiumhq/podium-core/internal/errors"
	"github.com/podiumhq/podium-core/internal/logging"
	"github.com/podiumhq/podium-core/internal/models"
)

// Service runs validated status changes against the local store. Every write
// is validate-then-write: the current row is read first, the transition is
// checked against it, and the row returned to the caller is re-read after the
// write so the caller always sees what was actually persisted.
type Service struct {
	repo *db.Repository
}

// NewService creates a lifecycle service over the repository.
func NewService(repo *db.Repository) *Service {
	return &Service{repo: repo}
}

// ChangeStatus moves an assignment to the given status.
func (s *Service) ChangeStatus(id string, next models.SpeechStatus) (*models.SpeechAssignment, error) {
	current, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if err := s.validate(current, next); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateSpeechStatus(id, next); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to update speech status", err)
	}

	logging.Log.Info("Speech status changed",
		zap.String("id", id),
		zap.String("from", string(current.Status)),
		zap.String("to", string(next)))
	return s.load(id)
}

// AssignSpeaker puts a speaker on an open slot, moving it into the
// assigned-not-invited stage.
func (s *Service) AssignSpeaker(id string, speakerID models.UUID) (*models.SpeechAssignment, error) {
	current, err := s.load(id)
	if err != nil {
		return nil, err
	}
	next := models.StatusAssignedNotInvited
	if err := s.validate(current, next); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateSpeechSpeaker(id, speakerID, next); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to assign speaker", err)
	}

	logging.Log.Info("Speaker assigned",
		zap.String("id", id),
		zap.String("speaker", string(speakerID)))
	return s.load(id)
}

// Unassign withdraws the speaker and returns the slot to the open pool.
func (s *Service) Unassign(id string) (*models.SpeechAssignment, error) {
	current, err := s.load(id)
	if err != nil {
		return nil, err
	}
	next := models.StatusNotAssigned
	if err := s.validate(current, next); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateSpeechSpeaker(id, "", next); err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to unassign speaker", err)
	}

	logging.Log.Info("Speaker unassigned", zap.String("id", id))
	return s.load(id)
}

func (s *Service) load(id string) (*models.SpeechAssignment, error) {
	current, err := s.repo.GetSpeechAssignment(id)
	if err == sql.ErrNoRows {
		return nil, errors.New(errors.ErrNotFound, fmt.Sprintf("speech assignment %s not found", id))
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrDatabase, "failed to load speech assignment", err)
	}
	return current, nil
}

func (s *Service) validate(current *models.SpeechAssignment, next models.SpeechStatus) error {
	if !IsKnownStatus(next) {
		return errors.New(errors.ErrInvalid, fmt.Sprintf("unknown speech status %q", next))
	}
	if !IsValidTransition(current.Status, next) {
		return errors.New(errors.ErrInvalidTransition,
			fmt.Sprintf("cannot move speech from %s to %s", current.Status, next))
	}
	return nil
}
