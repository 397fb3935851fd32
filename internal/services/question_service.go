package services

import (
	"sort"
	"strings"
	"time"
)

// QuestionStore abstracts the read-only question source sets.
type QuestionStore interface {
	ListQuestions(source QuestionSource) ([]*Question, error)
	ListPrequalQuestions() ([]*PrequalQuestion, error)
}

// QuestionService merges the evaluation question sets: the primary set for
// the requested context plus the shared set applicable to both, grouped by
// criteria with groups sorted ascending (case-insensitive) and the original
// fetch order preserved within each group.
type QuestionService struct {
	store QuestionStore
	sleep func(time.Duration)

	// retryWait is the pause before the single retry of an unavailable
	// store read. A second failure surfaces to the caller.
	retryWait time.Duration
}

func NewQuestionService(store QuestionStore) *QuestionService {
	return &QuestionService{
		store:     store,
		sleep:     time.Sleep,
		retryWait: 250 * time.Millisecond,
	}
}

func primarySource(ctx EvalContext) QuestionSource {
	if ctx == ContextNew {
		return SourceNew
	}
	return SourceExisting
}

// LoadQuestions returns the merged, criteria-grouped question list for the
// given evaluation context.
func (s *QuestionService) LoadQuestions(ctx EvalContext) ([]*Question, error) {
	primary, err := s.listWithRetry(primarySource(ctx))
	if err != nil {
		return nil, err
	}
	shared, err := s.listWithRetry(SourceShared)
	if err != nil {
		return nil, err
	}

	merged := make([]*Question, 0, len(primary)+len(shared))
	merged = append(merged, primary...)
	merged = append(merged, shared...)
	for _, q := range merged {
		applyQuestionDefaults(q)
	}

	// Stable sort on the criteria key alone: groups end up in ascending
	// order while the merged fetch order survives within each group.
	sort.SliceStable(merged, func(i, j int) bool {
		return strings.ToLower(merged[i].Criteria) < strings.ToLower(merged[j].Criteria)
	})
	return merged, nil
}

// LoadPrequalQuestions returns the compliance screening questions, dropping
// rows with blank criteria or text and sorting by criteria.
func (s *QuestionService) LoadPrequalQuestions() ([]*PrequalQuestion, error) {
	qs, err := s.listPrequalWithRetry()
	if err != nil {
		return nil, err
	}
	valid := make([]*PrequalQuestion, 0, len(qs))
	for _, q := range qs {
		if strings.TrimSpace(q.Criteria) == "" || strings.TrimSpace(q.Text) == "" {
			continue
		}
		valid = append(valid, q)
	}
	sort.SliceStable(valid, func(i, j int) bool {
		return strings.ToLower(valid[i].Criteria) < strings.ToLower(valid[j].Criteria)
	})
	return valid, nil
}

func (s *QuestionService) listWithRetry(source QuestionSource) ([]*Question, error) {
	qs, err := s.store.ListQuestions(source)
	if !isUnavailable(err) {
		return qs, err
	}
	s.sleep(s.retryWait)
	return s.store.ListQuestions(source)
}

func (s *QuestionService) listPrequalWithRetry() ([]*PrequalQuestion, error) {
	qs, err := s.store.ListPrequalQuestions()
	if !isUnavailable(err) {
		return qs, err
	}
	s.sleep(s.retryWait)
	return s.store.ListPrequalQuestions()
}

func isUnavailable(err error) bool {
	se, ok := AsServiceError(err)
	return ok && se.Code == ErrorUnavailable
}

func applyQuestionDefaults(q *Question) {
	if q.Weight <= 0 {
		q.Weight = 1
	}
	if strings.TrimSpace(q.Criteria) == "" {
		q.Criteria = "Uncategorized"
	}
	if q.AnswerType == "" {
		q.AnswerType = AnswerScale
	}
}
