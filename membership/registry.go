package membership

import (
	"errors"
	"fmt"
	"iter"
	"strings"
	"sync"
)

var (
	// ErrUnknownUser is returned for a name that is not registered.
	ErrUnknownUser = errors.New("unknown user")

	// ErrEmptyName is returned when registering a blank name.
	ErrEmptyName = errors.New("user name must not be empty")

	// ErrUserAlreadyRegistered is returned when the name is taken.
	ErrUserAlreadyRegistered = errors.New("user already registered")
)

// User is a registered library user. The role never changes after registration.
type User struct {
	Name string
	Role Role
}

func (u User) Quota() Quota {
	return QuotaFor(u.Role)
}

func (u User) Permissions() Permissions {
	return PermissionsFor(u.Role)
}

// Registry is the set of registered users, kept in registration order.
type Registry struct {
	mu    sync.RWMutex
	users map[string]User
	order []string
}

func NewRegistry() *Registry {
	return &Registry{users: make(map[string]User)}
}

// Register creates a user from a role tag. On error nothing is registered.
func (r *Registry) Register(roleTag, name string) (User, error) {
	role, err := ParseRole(roleTag)
	if err != nil {
		return User{}, err
	}

	if strings.TrimSpace(name) == "" {
		return User{}, ErrEmptyName
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.users[name]; exists {
		return User{}, fmt.Errorf("%w: %q", ErrUserAlreadyRegistered, name)
	}

	user := User{Name: name, Role: role}
	r.users[name] = user
	r.order = append(r.order, name)

	return user, nil
}

// QuotaOf returns the lending quota of a registered user.
func (r *Registry) QuotaOf(name string) (Quota, error) {
	user, err := r.Lookup(name)
	if err != nil {
		return Quota{}, err
	}

	return user.Quota(), nil
}

func (r *Registry) Lookup(name string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users[name]
	if !ok {
		return User{}, fmt.Errorf("%w: %q", ErrUnknownUser, name)
	}

	return user, nil
}

// Remove unregisters a user.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[name]; !ok {
		return fmt.Errorf("%w: %q", ErrUnknownUser, name)
	}

	delete(r.users, name)
	for i, registered := range r.order {
		if registered == name {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}

	return nil
}

// All yields the users in registration order, from a snapshot taken when the iteration starts.
func (r *Registry) All() iter.Seq[User] {
	return func(yield func(User) bool) {
		for _, user := range r.snapshot() {
			if !yield(user) {
				return
			}
		}
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.users)
}

func (r *Registry) snapshot() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]User, 0, len(r.order))
	for _, name := range r.order {
		users = append(users, r.users[name])
	}

	return users
}
