package inmemdb

import (
	"sort"

	"github.com/tailwebs/classwork/core/assignment"
)

type AssignmentRepository struct {
	db *assignmentTable
}

func NewAssignmentRepository(db *DB) *AssignmentRepository {
	return &AssignmentRepository{db: db.assignment}
}

// CreateAssignment stores a under a new id with the current time as CreatedAt.
func (repo *AssignmentRepository) CreateAssignment(a assignment.Assignment) assignment.Assignment {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	a.ID = newID()
	a.CreatedAt = now()
	repo.db.seq++
	repo.db.table[a.ID] = &assignmentRow{Assignment: a, seq: repo.db.seq}
	return a
}

func (repo *AssignmentRepository) GetAssignmentByID(id string) (assignment.Assignment, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if row, ok := repo.db.table[id]; ok {
		return row.Assignment, nil
	}
	return assignment.Assignment{}, ErrNotFound
}

// FilterAssignments returns newest first the assignments matching ownerID (any owner when empty)
// and one of statuses (any status when none are given).
func (repo *AssignmentRepository) FilterAssignments(ownerID string, statuses ...assignment.Status) []assignment.Assignment {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	rows := make([]*assignmentRow, 0, len(repo.db.table))
	for _, row := range repo.db.table {
		if ownerID != "" && row.OwnerID != ownerID {
			continue
		}
		if len(statuses) > 0 && !hasStatus(statuses, row.Status) {
			continue
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].CreatedAt.After(rows[j].CreatedAt)
		}
		return rows[i].seq > rows[j].seq
	})

	res := make([]assignment.Assignment, len(rows))
	for i, row := range rows {
		res[i] = row.Assignment
	}
	return res
}

func (repo *AssignmentRepository) UpdateAssignment(a assignment.Assignment) (assignment.Assignment, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	row, ok := repo.db.table[a.ID]
	if !ok {
		return assignment.Assignment{}, ErrNotFound
	}
	a.CreatedAt = row.CreatedAt
	a.OwnerID = row.OwnerID
	row.Assignment = a
	return a, nil
}

func (repo *AssignmentRepository) DeleteAssignment(id string) error {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func hasStatus(statuses []assignment.Status, st assignment.Status) bool {
	for _, s := range statuses {
		if s == st {
			return true
		}
	}
	return false
}
