package services

import (
	"context"
	"testing"

	"campusnet/internal/auth"
	"campusnet/internal/config"
	"campusnet/internal/docstore"
	"campusnet/internal/models"
	"campusnet/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeIdentity records identity-provider deletions.
type fakeIdentity struct {
	deleted []string
}

func (f *fakeIdentity) DeleteUser(ctx context.Context, uid string) error {
	f.deleted = append(f.deleted, uid)
	return nil
}
func (f *fakeIdentity) SetRoleClaims(ctx context.Context, uid string, roles []string) error {
	return nil
}
func (f *fakeIdentity) UIDByEmail(ctx context.Context, email string) (string, error) { return "", nil }
func (f *fakeIdentity) PasswordResetLink(ctx context.Context, email string) (string, error) {
	return "", nil
}

func newUserTestEnv(t *testing.T, identity auth.Identity) (storage.UserRepository, FriendService, UserService) {
	t.Helper()
	store := docstore.NewMemory()
	userRepo := storage.NewDocUserRepository(store)
	friendSvc := NewFriendService(store, userRepo, nil, config.KafkaConfig{})
	userSvc := NewUserService(userRepo, friendSvc, identity)
	return userRepo, friendSvc, userSvc
}

func TestGetOrCreateProfileDefaults(t *testing.T) {
	_, _, userSvc := newUserTestEnv(t, nil)
	ctx := context.Background()

	profile, err := userSvc.GetOrCreateProfile(ctx, &auth.Principal{
		UID:   "u1",
		Email: "Ada.Lovelace@UMass.edu",
	})
	require.NoError(t, err)

	assert.Equal(t, "u1", profile.UID)
	assert.Equal(t, "ada.lovelace@umass.edu", profile.Email)
	// No display name in the token: the email local part stands in.
	assert.Equal(t, "ada.lovelace", profile.Name)
	assert.Equal(t, models.RoleStudent, profile.PrimaryRole)
	assert.Equal(t, models.VisibilityCampus, profile.Visibility)
	assert.Equal(t, int64(0), profile.FriendsCount)
	assert.Equal(t, int64(0), profile.PendingCount)
	assert.False(t, profile.CreatedAt.IsZero())

	// A second call returns the stored profile unchanged.
	again, err := userSvc.GetOrCreateProfile(ctx, &auth.Principal{
		UID: "u1", Email: "ada.lovelace@umass.edu", Name: "Different Name",
	})
	require.NoError(t, err)
	assert.Equal(t, "ada.lovelace", again.Name)
}

func TestUpdateProfileFiltersFields(t *testing.T) {
	userRepo, _, userSvc := newUserTestEnv(t, nil)
	ctx := context.Background()
	_, err := userSvc.GetOrCreateProfile(ctx, &auth.Principal{UID: "u1", Email: "ada@umass.edu"})
	require.NoError(t, err)

	err = userSvc.UpdateProfile(ctx, "u1", map[string]any{
		"name":         "Ada Lovelace",
		"major":        "CS",
		"friendsCount": 999,
		"roles":        []string{"admin"},
	})
	require.NoError(t, err)

	profile, err := userRepo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", profile.Name)
	assert.Equal(t, "CS", profile.Major)
	// Server-maintained fields are untouched.
	assert.Equal(t, int64(0), profile.FriendsCount)
	assert.Equal(t, []string{"student"}, profile.Roles)

	// The search shadow field follows the name.
	snap, err := userRepo.Ref("u1").Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ada lovelace", snap.Str("nameLower"))
}

func TestUpdateProfileRejectsEmptyPatch(t *testing.T) {
	_, _, userSvc := newUserTestEnv(t, nil)
	ctx := context.Background()
	_, err := userSvc.GetOrCreateProfile(ctx, &auth.Principal{UID: "u1", Email: "ada@umass.edu"})
	require.NoError(t, err)

	err = userSvc.UpdateProfile(ctx, "u1", map[string]any{"friendsCount": 5})
	assert.ErrorIs(t, err, ErrNoWritableFields)
}

func TestDeleteAccountUnwindsFriendships(t *testing.T) {
	identity := &fakeIdentity{}
	userRepo, friendSvc, userSvc := newUserTestEnv(t, identity)
	ctx := context.Background()

	for _, u := range []string{"a", "b", "c"} {
		_, err := userSvc.GetOrCreateProfile(ctx, &auth.Principal{UID: u, Email: u + "@umass.edu"})
		require.NoError(t, err)
	}
	require.NoError(t, friendSvc.SendRequest(ctx, "a", "b"))
	require.NoError(t, friendSvc.AcceptRequest(ctx, "b", "a"))
	require.NoError(t, friendSvc.SendRequest(ctx, "a", "c"))
	require.NoError(t, friendSvc.AcceptRequest(ctx, "c", "a"))

	require.NoError(t, userSvc.DeleteAccount(ctx, "a"))

	_, err := userRepo.Get(ctx, "a")
	assert.ErrorIs(t, err, docstore.ErrNotFound)

	// Peers lost their mirrored edges and counters.
	for _, u := range []string{"b", "c"} {
		profile, err := userRepo.Get(ctx, u)
		require.NoError(t, err)
		assert.Equal(t, int64(0), profile.FriendsCount, "friendsCount of %s", u)
		edges, err := userRepo.FriendsCol(u).Documents(ctx)
		require.NoError(t, err)
		assert.Empty(t, edges)
	}

	assert.Equal(t, []string{"a"}, identity.deleted)
}
