package inmemdb

import (
	"sort"

	"github.com/tailwebs/classwork/core/submission"
)

type SubmissionRepository struct {
	db *submissionTable
}

func NewSubmissionRepository(db *DB) *SubmissionRepository {
	return &SubmissionRepository{db: db.submission}
}

func uniqueKey(assignmentID, studentID string) string {
	return assignmentID + ":" + studentID
}

// CreateSubmission stores sub. A Student has at most one submission per assignment.
func (repo *SubmissionRepository) CreateSubmission(sub submission.Submission) (submission.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	key := uniqueKey(sub.AssignmentID, sub.StudentID)
	if _, ok := repo.db.unique[key]; ok {
		return submission.Submission{}, ErrAlreadySubmitted
	}
	sub.ID = newID()
	sub.SubmittedAt = now()
	sub.Reviewed = false
	sub.Mark = nil
	repo.db.table[sub.ID] = &sub
	repo.db.unique[key] = sub.ID
	return sub, nil
}

func (repo *SubmissionRepository) GetSubmissionByID(id string) (submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if sub, ok := repo.db.table[id]; ok {
		return *sub, nil
	}
	return submission.Submission{}, ErrNotFound
}

func (repo *SubmissionRepository) GetStudentSubmission(assignmentID, studentID string) (submission.Submission, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if id, ok := repo.db.unique[uniqueKey(assignmentID, studentID)]; ok {
		return *repo.db.table[id], nil
	}
	return submission.Submission{}, ErrNotFound
}

// FilterSubmissions returns newest first the submissions of the given assignments.
func (repo *SubmissionRepository) FilterSubmissions(assignmentIDs ...string) []submission.Submission {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	wanted := make(map[string]bool, len(assignmentIDs))
	for _, id := range assignmentIDs {
		wanted[id] = true
	}
	res := make([]submission.Submission, 0)
	for _, sub := range repo.db.table {
		if wanted[sub.AssignmentID] {
			res = append(res, *sub)
		}
	}
	sort.SliceStable(res, func(i, j int) bool {
		if !res[i].SubmittedAt.Equal(res[j].SubmittedAt) {
			return res[i].SubmittedAt.After(res[j].SubmittedAt)
		}
		return res[i].ID > res[j].ID
	})
	return res
}

// UpdateReview changes the review fields of a submission. The answer is immutable.
func (repo *SubmissionRepository) UpdateReview(id string, reviewed *bool, mark *float64) (submission.Submission, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	sub, ok := repo.db.table[id]
	if !ok {
		return submission.Submission{}, ErrNotFound
	}
	if reviewed != nil {
		sub.Reviewed = *reviewed
	}
	if mark != nil {
		m := *mark
		sub.Mark = &m
	}
	return *sub, nil
}

// DeleteAssignmentSubmissions drops every submission of assignmentID.
func (repo *SubmissionRepository) DeleteAssignmentSubmissions(assignmentID string) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for id, sub := range repo.db.table {
		if sub.AssignmentID == assignmentID {
			delete(repo.db.unique, uniqueKey(sub.AssignmentID, sub.StudentID))
			delete(repo.db.table, id)
		}
	}
}
