package services

import "time"

// SettingsStore holds the singleton evaluation window document.
type SettingsStore interface {
	GetWindow() (*EvaluationWindow, error)
	SaveWindow(w *EvaluationWindow) error
}

// SettingsService manages the admin-configured evaluation period.
type SettingsService struct {
	store SettingsStore
}

func NewSettingsService(store SettingsStore) *SettingsService {
	return &SettingsService{store: store}
}

func (s *SettingsService) Window() (*EvaluationWindow, error) {
	return s.store.GetWindow()
}

// SaveWindow validates and persists the evaluation period. Both bounds are
// required and start must be strictly before end.
func (s *SettingsService) SaveWindow(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return NewInvalidError("both start and end dates are required")
	}
	if !start.Before(end) {
		return NewInvalidError("start date must be before end date")
	}
	return s.store.SaveWindow(&EvaluationWindow{Start: start.UTC(), End: end.UTC()})
}

// IsOpenAt reports whether scored evaluations may be started at the given
// instant. An unset window leaves evaluation open: the admin has not
// restricted the period yet.
func (s *SettingsService) IsOpenAt(now time.Time) (bool, error) {
	w, err := s.store.GetWindow()
	if err != nil {
		return false, err
	}
	if w == nil {
		return true, nil
	}
	return !now.Before(w.Start) && !now.After(w.End), nil
}

// CheckOpen returns a refusal error when the window is closed, with the
// message distinguishing "not yet open" from "ended".
func (s *SettingsService) CheckOpen(now time.Time) error {
	w, err := s.store.GetWindow()
	if err != nil {
		return err
	}
	if w == nil {
		return nil
	}
	if now.Before(w.Start) {
		return NewForbiddenError("the evaluation period has not started yet")
	}
	if now.After(w.End) {
		return NewForbiddenError("the evaluation period has ended")
	}
	return nil
}
