package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/petrijr/approvo/pkg/api"
)

func TestResolverUnionsRolesAndAssignees(t *testing.T) {
	t.Parallel()

	r := Resolver{Directory: api.StaticRoles{
		"finance": {"fin-1", "fin-2"},
		"audit":   {"aud-1", "fin-2"},
	}}

	got, err := r.Resolve(api.Step{
		Order:     1,
		Roles:     []api.Role{"finance", "audit"},
		Assignees: []api.PrincipalID{"extra-1", "fin-1"},
	})
	require.NoError(t, err)
	// Deduplicated and sorted.
	require.Equal(t, []api.PrincipalID{"aud-1", "extra-1", "fin-1", "fin-2"}, got)
}

func TestResolverEmptyPool(t *testing.T) {
	t.Parallel()

	r := Resolver{Directory: api.StaticRoles{}}

	got, err := r.Resolve(api.Step{Order: 1, Roles: []api.Role{"ghost"}})
	require.NoError(t, err)
	require.Empty(t, got)

	got, err = r.Resolve(api.Step{Order: 1})
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestResolverIgnoresBlankPrincipals(t *testing.T) {
	t.Parallel()

	r := Resolver{Directory: api.StaticRoles{"finance": {"", "fin-1"}}}
	got, err := r.Resolve(api.Step{
		Roles:     []api.Role{"finance"},
		Assignees: []api.PrincipalID{""},
	})
	require.NoError(t, err)
	require.Equal(t, []api.PrincipalID{"fin-1"}, got)
}

func TestResolverRequiresDirectoryForRoles(t *testing.T) {
	t.Parallel()

	r := Resolver{}
	_, err := r.Resolve(api.Step{Order: 3, Roles: []api.Role{"finance"}})
	require.Error(t, err)

	// Assignee-only steps never need a directory.
	got, err := r.Resolve(api.Step{Assignees: []api.PrincipalID{"bob"}})
	require.NoError(t, err)
	require.Equal(t, []api.PrincipalID{"bob"}, got)
}

func TestResolverPropagatesDirectoryErrors(t *testing.T) {
	t.Parallel()

	dirErr := errors.New("directory offline")
	r := Resolver{Directory: api.RoleDirectoryFunc(func(role api.Role) ([]api.PrincipalID, error) {
		return nil, dirErr
	})}

	_, err := r.Resolve(api.Step{Roles: []api.Role{"finance"}})
	require.ErrorIs(t, err, dirErr)
}
