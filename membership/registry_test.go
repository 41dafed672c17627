package membership_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/lending-ledger-go/membership"
)

func Test_Registry_Register(t *testing.T) {
	// arrange
	registry := membership.NewRegistry()

	// act
	user, err := registry.Register("Student", "alice")

	// assert
	require.NoError(t, err)
	assert.Equal(t, membership.User{Name: "alice", Role: membership.Student}, user)
	assert.Equal(t, 1, registry.Len())
}

func Test_Registry_Register_InvalidRole_CreatesNothing(t *testing.T) {
	registry := membership.NewRegistry()

	_, err := registry.Register("Janitor", "bob")

	assert.ErrorIs(t, err, membership.ErrInvalidRole)
	assert.Zero(t, registry.Len())
	_, err = registry.Lookup("bob")
	assert.ErrorIs(t, err, membership.ErrUnknownUser)
}

func Test_Registry_Register_EmptyName(t *testing.T) {
	registry := membership.NewRegistry()

	_, err := registry.Register("Teacher", "  ")

	assert.ErrorIs(t, err, membership.ErrEmptyName)
	assert.Zero(t, registry.Len())
}

func Test_Registry_Register_Duplicate_KeepsOriginal(t *testing.T) {
	// arrange
	registry := membership.NewRegistry()
	_, err := registry.Register("Student", "alice")
	require.NoError(t, err)

	// act
	_, err = registry.Register("Librarian", "alice")

	// assert
	assert.ErrorIs(t, err, membership.ErrUserAlreadyRegistered)
	user, lookupErr := registry.Lookup("alice")
	require.NoError(t, lookupErr)
	assert.Equal(t, membership.Student, user.Role)
}

func Test_Registry_QuotaOf(t *testing.T) {
	registry := membership.NewRegistry()
	_, err := registry.Register("Teacher", "carol")
	require.NoError(t, err)

	quota, err := registry.QuotaOf("carol")

	require.NoError(t, err)
	assert.Equal(t, membership.QuotaFor(membership.Teacher), quota)
}

func Test_Registry_QuotaOf_UnknownUser(t *testing.T) {
	_, err := membership.NewRegistry().QuotaOf("nobody")

	assert.ErrorIs(t, err, membership.ErrUnknownUser)
	assert.ErrorContains(t, err, "nobody")
}

func Test_Registry_Remove(t *testing.T) {
	// arrange
	registry := membership.NewRegistry()
	for _, name := range []string{"alice", "bob", "carol"} {
		_, err := registry.Register("Student", name)
		require.NoError(t, err)
	}

	// act
	err := registry.Remove("bob")

	// assert
	require.NoError(t, err)
	assert.ErrorIs(t, registry.Remove("bob"), membership.ErrUnknownUser)
	assert.Equal(t, []string{"alice", "carol"}, names(registry))

	_, err = registry.Register("Teacher", "bob")
	require.NoError(t, err, "a removed name can be registered again")
	assert.Equal(t, []string{"alice", "carol", "bob"}, names(registry))
}

func Test_Registry_All_YieldsRegistrationOrder(t *testing.T) {
	registry := membership.NewRegistry()
	for _, name := range []string{"zoe", "adam", "mia"} {
		_, err := registry.Register("Librarian", name)
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"zoe", "adam", "mia"}, names(registry))
	assert.Equal(t, []string{"zoe", "adam", "mia"}, names(registry), "iteration is restartable")
}

func Test_Registry_ConcurrentRegistration_OfSameName_HasOneWinner(t *testing.T) {
	registry := membership.NewRegistry()
	const contenders = 20

	var wg sync.WaitGroup
	errs := make(chan error, contenders)
	for i := range contenders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := registry.Register([]string{"Student", "Teacher"}[i%2], "alice")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	winners := 0
	for err := range errs {
		if err == nil {
			winners++
		}
	}
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, registry.Len())
}

func Test_Registry_ConcurrentRegistration_OfDistinctNames(t *testing.T) {
	registry := membership.NewRegistry()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := registry.Register("Student", fmt.Sprintf("user-%d", i))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, registry.Len())
	assert.Len(t, names(registry), 50)
}

func names(registry *membership.Registry) []string {
	var out []string
	for user := range registry.All() {
		out = append(out, user.Name)
	}

	return out
}
