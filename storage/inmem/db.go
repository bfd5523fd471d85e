package inmemdb

import (
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/tailwebs/classwork/core/assignment"
	"github.com/tailwebs/classwork/core/session"
	"github.com/tailwebs/classwork/core/submission"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrEmailExists      = errors.New("a user with this email already exists")
	ErrAlreadySubmitted = errors.New("assignment already submitted")
)

var now = func() time.Time { return time.Now().UTC() } // mockable

type (
	// DB is a process-local database. Every table has its own lock.
	DB struct {
		user       *userTable
		assignment *assignmentTable
		submission *submissionTable
	}

	userTable struct {
		table map[string]*User
		mutex sync.RWMutex
	}

	assignmentRow struct {
		assignment.Assignment
		seq int // insertion order; breaks CreatedAt ties
	}

	assignmentTable struct {
		table map[string]*assignmentRow
		seq   int
		mutex sync.RWMutex
	}

	submissionTable struct {
		table  map[string]*submission.Submission
		unique map[string]string // assignmentID:studentID -> submissionID
		mutex  sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		user:       &userTable{table: make(map[string]*User)},
		assignment: &assignmentTable{table: make(map[string]*assignmentRow)},
		submission: &submissionTable{
			table:  make(map[string]*submission.Submission),
			unique: make(map[string]string),
		},
	}
}

func newID() string {
	return primitive.NewObjectID().Hex()
}

// User is a registered account.
type User struct {
	ID           string
	Name         string
	Email        string
	Role         session.Role
	PasswordHash []byte
	CreatedAt    time.Time
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u User) Identity() session.Identity {
	return session.Identity{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}
