package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"campusnet/internal/auth"
	"campusnet/internal/config"
	"campusnet/internal/docstore"
	"campusnet/internal/models"
	"campusnet/internal/storage"
)

// Administrative one-off commands run directly against the production
// store and identity provider. Not exposed over HTTP.
func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  admin grant-role <uid-or-email> [role]   - grant a role (default: admin)")
		fmt.Println("  admin backfill-users                     - repair counters and search shadow fields")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	store, err := docstore.NewFirestore(ctx, cfg.Store.ProjectID, cfg.Store.CredentialsFile)
	if err != nil {
		log.Fatalf("Failed to initialize Firestore: %v", err)
	}
	defer store.Close()

	fbAuth, err := auth.NewFirebaseAuth(ctx, cfg.Store.ProjectID, cfg.Store.CredentialsFile)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase auth: %v", err)
	}

	userRepo := storage.NewDocUserRepository(store)

	switch os.Args[1] {
	case "grant-role":
		if len(os.Args) < 3 {
			log.Fatal("grant-role requires a uid or email")
		}
		role := models.RoleAdmin
		if len(os.Args) > 3 {
			role = os.Args[3]
		}
		grantRole(ctx, fbAuth, userRepo, os.Args[2], role)

	case "backfill-users":
		backfillUsers(ctx, store, userRepo)

	default:
		log.Fatalf("Unknown command: %s", os.Args[1])
	}
}

// grantRole sets the role custom claim on the identity account and
// mirrors it into the profile document. The user must refresh their
// token to pick up the new claim.
func grantRole(ctx context.Context, fbAuth *auth.FirebaseAuth, userRepo storage.UserRepository, target, role string) {
	uid := target
	if strings.Contains(target, "@") {
		resolved, err := fbAuth.UIDByEmail(ctx, strings.ToLower(target))
		if err != nil {
			log.Fatalf("Failed to resolve %s: %v", target, err)
		}
		uid = resolved
	}

	if err := fbAuth.SetRoleClaims(ctx, uid, []string{role}); err != nil {
		log.Fatalf("Failed to set claims for %s: %v", uid, err)
	}

	if err := userRepo.Ref(uid).Merge(ctx, map[string]any{
		"primaryRole": role,
		"roles":       docstore.ArrayUnion(role),
		"updatedAt":   docstore.ServerTimestamp,
	}); err != nil {
		log.Fatalf("Failed to mirror role onto profile %s: %v", uid, err)
	}

	fmt.Printf("Granted role %q to %s. The user must sign out and back in to refresh their token.\n", role, uid)
}

// backfillUsers walks every profile and repairs the derived fields the
// application maintains incrementally: friendsCount, pendingCount, and
// the lowercase search shadow fields.
func backfillUsers(ctx context.Context, store docstore.Client, userRepo storage.UserRepository) {
	snaps, err := store.Collection("users").Documents(ctx)
	if err != nil {
		log.Fatalf("Failed to list users: %v", err)
	}

	fixed := 0
	for _, snap := range snaps {
		uid := snap.ID

		friends, err := userRepo.FriendsCol(uid).Documents(ctx)
		if err != nil {
			log.Fatalf("Failed to list friends of %s: %v", uid, err)
		}
		requests, err := userRepo.RequestsCol(uid).Documents(ctx)
		if err != nil {
			log.Fatalf("Failed to list requests of %s: %v", uid, err)
		}

		patch := map[string]any{}
		if snap.Int("friendsCount") != int64(len(friends)) {
			patch["friendsCount"] = int64(len(friends))
		}
		if snap.Int("pendingCount") != int64(len(requests)) {
			patch["pendingCount"] = int64(len(requests))
		}

		name := models.FallbackName(snap.Str("name"), snap.Str("email"))
		if snap.Str("nameLower") != strings.ToLower(name) {
			patch["nameLower"] = strings.ToLower(name)
		}
		if email := strings.ToLower(snap.Str("email")); email != "" && snap.Str("emailLower") != email {
			patch["emailLower"] = email
		}

		if len(patch) == 0 {
			continue
		}
		patch["updatedAt"] = docstore.ServerTimestamp
		if err := userRepo.Ref(uid).Merge(ctx, patch); err != nil {
			log.Fatalf("Failed to backfill %s: %v", uid, err)
		}
		fixed++
		fmt.Printf("Backfilled %s: %v\n", uid, patch)
	}

	fmt.Printf("Backfill complete: %d of %d users updated.\n", fixed, len(snaps))
}
