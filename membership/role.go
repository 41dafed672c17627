// Package membership registers library users and decides how many books each may borrow.
package membership

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidRole is returned for a role tag that names no known role.
var ErrInvalidRole = errors.New("invalid role")

// Role is the closed set of user roles. The zero value is not a valid role.
type Role int

const (
	Student Role = iota + 1
	Teacher
	Librarian
)

var roleNames = map[Role]string{
	Student:   "Student",
	Teacher:   "Teacher",
	Librarian: "Librarian",
}

// Roles lists every role.
func Roles() []Role {
	return []Role{Student, Teacher, Librarian}
}

// ParseRole maps a tag such as "Student" or "teacher" to its Role.
func ParseRole(tag string) (Role, error) {
	for role, name := range roleNames {
		if strings.EqualFold(strings.TrimSpace(tag), name) {
			return role, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidRole, tag)
}

func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}

	return "Role(" + strconv.Itoa(int(r)) + ")"
}

// Valid reports whether r is one of the declared roles.
func (r Role) Valid() bool {
	_, ok := roleNames[r]
	return ok
}

// Quota is the number of books a user may hold at once, or unbounded.
type Quota struct {
	limit     int
	unbounded bool
}

// Unbounded allows any number of loans.
var Unbounded = Quota{unbounded: true}

// Limit returns a quota allowing at most n loans.
func Limit(n int) Quota {
	return Quota{limit: n}
}

// Allows reports whether a user holding current books may borrow one more.
func (q Quota) Allows(current int) bool {
	return q.unbounded || current < q.limit
}

func (q Quota) IsUnbounded() bool {
	return q.unbounded
}

// Max returns the limit and false for an unbounded quota.
func (q Quota) Max() (int, bool) {
	return q.limit, !q.unbounded
}

func (q Quota) String() string {
	if q.unbounded {
		return "unbounded"
	}

	return strconv.Itoa(q.limit)
}

// QuotaFor returns the lending quota of a role: Student 3, Teacher 10, Librarian unbounded.
// Roles outside the closed set get a zero quota.
func QuotaFor(role Role) Quota {
	switch role {
	case Student:
		return Limit(3)
	case Teacher:
		return Limit(10)
	case Librarian:
		return Unbounded
	default:
		return Limit(0)
	}
}

// Permissions are the capabilities granted by a role.
type Permissions struct {
	MaxBooks         Quota
	CanManageLibrary bool
}

func PermissionsFor(role Role) Permissions {
	return Permissions{
		MaxBooks:         QuotaFor(role),
		CanManageLibrary: role == Librarian,
	}
}
