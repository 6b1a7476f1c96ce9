package services

import (
	"context"
	"errors"
	"fmt"
	"log"

	"campusnet/internal/auth"
	"campusnet/internal/models"
	"campusnet/internal/storage"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrNoWritableFields = errors.New("no writable fields in request")
)

// UserService handles profile lifecycle: lazy creation on first
// authenticated access, allow-listed patches, and account deletion.
type UserService interface {
	GetOrCreateProfile(ctx context.Context, principal *auth.Principal) (*models.Profile, error)
	GetProfile(ctx context.Context, uid string) (*models.Profile, error)
	UpdateProfile(ctx context.Context, uid string, fields map[string]any) error
	DeleteAccount(ctx context.Context, uid string) error
}

type userService struct {
	userRepo storage.UserRepository
	friends  FriendService
	identity auth.Identity
}

// NewUserService creates a new UserService instance. identity may be
// nil in local development, in which case account deletion only
// removes store documents.
func NewUserService(userRepo storage.UserRepository, friends FriendService, identity auth.Identity) UserService {
	return &userService{userRepo: userRepo, friends: friends, identity: identity}
}

// GetOrCreateProfile returns the caller's profile, creating it with
// defaults on first access.
func (s *userService) GetOrCreateProfile(ctx context.Context, principal *auth.Principal) (*models.Profile, error) {
	profile, created, err := s.userRepo.GetOrCreate(ctx, principal)
	if err != nil {
		return nil, err
	}
	if created {
		log.Printf("Created profile for new user %s", principal.UID)
	}
	return profile, nil
}

// GetProfile returns the profile for uid.
func (s *userService) GetProfile(ctx context.Context, uid string) (*models.Profile, error) {
	profile, err := s.userRepo.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateProfile merges the writable subset of fields into the profile.
// Unknown and server-maintained fields are dropped; a patch that
// leaves nothing writable is rejected.
func (s *userService) UpdateProfile(ctx context.Context, uid string, fields map[string]any) error {
	filtered := make(map[string]any, len(fields))
	for k, v := range fields {
		if models.AllowedUserFields[k] {
			filtered[k] = v
		}
	}
	if len(filtered) == 0 {
		return ErrNoWritableFields
	}
	return s.userRepo.ApplyPatch(ctx, uid, filtered)
}

// DeleteAccount removes the user everywhere: friendships are unwound
// edge by edge so peers' counters stay accurate, then the profile and
// its subcollections go, then the identity provider account.
func (s *userService) DeleteAccount(ctx context.Context, uid string) error {
	friends, err := s.friends.ListFriends(ctx, uid)
	if err != nil {
		return fmt.Errorf("failed to enumerate friendships for %s: %w", uid, err)
	}
	for _, friend := range friends {
		if err := s.friends.Unfriend(ctx, uid, friend.UID); err != nil {
			return fmt.Errorf("failed to unfriend %s during account deletion: %w", friend.UID, err)
		}
	}

	if err := s.userRepo.DeleteAccount(ctx, uid); err != nil {
		return err
	}

	if s.identity != nil {
		if err := s.identity.DeleteUser(ctx, uid); err != nil {
			return err
		}
	}
	return nil
}
