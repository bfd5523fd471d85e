package session

import (
	"fmt"

	"github.com/tailwebs/classwork/core"
)

// Role is closed: a Role is either Teacher or Student.
type Role int

const (
	RoleUnknown Role = iota
	RoleTeacher
	RoleStudent
)

var (
	roleValues = map[Role]string{RoleTeacher: "teacher", RoleStudent: "student"}
	roleNames  = map[Role]string{RoleTeacher: "Teacher", RoleStudent: "Student"}
)

// ParseRole accepts the wire value, case-insensitively.
func ParseRole(s string) (Role, error) {
	s = core.CleanString(s, true /* lower */)
	for r, v := range roleValues {
		if v == s {
			return r, nil
		}
	}
	return RoleUnknown, fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "Unknown"
}

func (r Role) MarshalText() ([]byte, error) {
	v, ok := roleValues[r]
	if !ok {
		return nil, fmt.Errorf("cannot marshal role %d", int(r))
	}
	return []byte(v), nil
}

func (r *Role) UnmarshalText(b []byte) error {
	role, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Identity is immutable once registered.
type Identity struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

func (id Identity) IsTeacher() bool { return id.Role == RoleTeacher }
func (id Identity) IsStudent() bool { return id.Role == RoleStudent }

// Person is the logging view of the Identity.
func (id Identity) Person() core.Person {
	return core.Person{ID: id.ID, Name: id.Name, Email: id.Email}
}

// Session is the authenticated identity and its opaque bearer token.
type Session struct {
	Identity Identity
	Token    string
}

// Credentials are exchanged for a Session.
type Credentials struct {
	Email    string `json:"email" validate:"notblank"`
	Password string `json:"password" validate:"notblank"`
}

func (c *Credentials) Validate() error {
	c.Email = core.CleanString(c.Email, true /* lower */)
	return core.Validate(c)
}

// Profile contains information needed to register a new Identity.
type Profile struct {
	Name     string `json:"name" validate:"notblank"`
	Email    string `json:"email" validate:"notblank,email"`
	Password string `json:"password" validate:"notblank"`
	Role     string `json:"role" validate:"notblank,oneof=teacher student"`
}

func (p *Profile) Validate() error {
	p.Name = core.CleanString(p.Name)
	p.Email = core.CleanString(p.Email, true /* lower */)
	p.Role = core.CleanString(p.Role, true /* lower */)
	return core.Validate(p)
}

type loginResponse struct {
	Token string    `json:"token"`
	User  *Identity `json:"user"`
	Identity
}

func (lr loginResponse) session() Session {
	if lr.User != nil {
		return Session{Identity: *lr.User, Token: lr.Token}
	}
	return Session{Identity: lr.Identity, Token: lr.Token}
}
