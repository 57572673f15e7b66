package users_test

import (
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-marketplace-client/internal/errors"
	"github.com/jrsteele09/go-marketplace-client/users"
	fakeuserrepo "github.com/jrsteele09/go-marketplace-client/users/repofake"
	"github.com/stretchr/testify/require"
)

// TestRegistration_Validate reports field errors like the backend serializer
func TestRegistration_Validate(t *testing.T) {
	tests := []struct {
		name   string
		reg    users.Registration
		fields []string
	}{
		{"valid", users.Registration{Username: "alice", Password: "correctpw", Email: "a@example.com"}, nil},
		{"missing username", users.Registration{Password: "correctpw"}, []string{"username"}},
		{"short password", users.Registration{Username: "bob", Password: "short"}, []string{"password"}},
		{"bad email", users.Registration{Username: "bob", Password: "correctpw", Email: "nope"}, []string{"email"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.reg.Validate()
			if tt.fields == nil {
				require.Nil(t, errs)
				return
			}
			for _, f := range tt.fields {
				require.Contains(t, errs, f)
			}
		})
	}
}

// TestUser_JSONHidesPassword ensures the hash never leaves the process
func TestUser_JSONHidesPassword(t *testing.T) {
	hash, err := users.HashPassword("correctpw")
	require.NoError(t, err)

	u := users.User{ID: 1, Username: "alice", PasswordHash: hash}
	data, err := json.Marshal(u)
	require.NoError(t, err)
	require.NotContains(t, string(data), hash)
	require.True(t, u.CheckPassword("correctpw"))
	require.False(t, u.CheckPassword("wrong"))
}

// TestFakeUserRepo_CreateAndLookup assigns sequential ids and rejects duplicates
func TestFakeUserRepo_CreateAndLookup(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()

	alice := &users.User{Username: "alice"}
	require.NoError(t, repo.Create(alice))
	require.Equal(t, 1, alice.ID)

	bob := &users.User{Username: "bob"}
	require.NoError(t, repo.Create(bob))
	require.Equal(t, 2, bob.ID)

	require.ErrorIs(t, repo.Create(&users.User{Username: "ALICE"}), users.ErrUsernameTaken)

	got, err := repo.GetByUsername("Alice")
	require.NoError(t, err)
	require.Equal(t, 1, got.ID)

	_, err = repo.GetByID(99)
	require.True(t, errors.Is(err, errors.ErrNotFound))
	require.Equal(t, 2, repo.Count())
}

// TestFakeUserRepo_UpdateRename moves the username index
func TestFakeUserRepo_UpdateRename(t *testing.T) {
	repo := fakeuserrepo.NewFakeUserRepo()
	u := &users.User{Username: "alice"}
	require.NoError(t, repo.Create(u))

	u.Username = "alice2"
	require.NoError(t, repo.Update(u))

	_, err := repo.GetByUsername("alice")
	require.Error(t, err)
	got, err := repo.GetByUsername("alice2")
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
}
