package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"campusnet/internal/auth"
	"campusnet/internal/docstore"
	"campusnet/internal/models"
)

const (
	usersCollection          = "users"
	friendsSubcollection     = "friends"
	requestsSubcollection    = "friendRequests"
	deleteSubcollectionBatch = 200
)

// prefixUpperBound closes a prefix range query: every string starting
// with q sorts at or below q + this rune.
const prefixUpperBound = ""

// UserRepository defines profile document operations plus the path
// helpers the friend graph engine uses to address documents inside its
// transactions.
type UserRepository interface {
	// Ref addresses the profile document users/{uid}.
	Ref(uid string) docstore.DocRef
	// EdgeRef addresses the friendship edge users/{owner}/friends/{peer}.
	EdgeRef(owner, peer string) docstore.DocRef
	// RequestRef addresses the pending invitation
	// users/{recipient}/friendRequests/{sender}.
	RequestRef(recipient, sender string) docstore.DocRef
	FriendsCol(uid string) docstore.CollectionRef
	RequestsCol(uid string) docstore.CollectionRef

	GetOrCreate(ctx context.Context, principal *auth.Principal) (*models.Profile, bool, error)
	Get(ctx context.Context, uid string) (*models.Profile, error)
	ApplyPatch(ctx context.Context, uid string, fields map[string]any) error
	Search(ctx context.Context, query, requesterUID string, limit int) ([]models.SearchResult, error)
	DeleteAccount(ctx context.Context, uid string) error
}

// docUserRepository implements UserRepository over the document store.
type docUserRepository struct {
	store docstore.Client
}

// NewDocUserRepository creates a new document-store-backed UserRepository.
func NewDocUserRepository(store docstore.Client) UserRepository {
	return &docUserRepository{store: store}
}

func (r *docUserRepository) Ref(uid string) docstore.DocRef {
	return r.store.Collection(usersCollection).Doc(uid)
}

func (r *docUserRepository) EdgeRef(owner, peer string) docstore.DocRef {
	return r.Ref(owner).Collection(friendsSubcollection).Doc(peer)
}

func (r *docUserRepository) RequestRef(recipient, sender string) docstore.DocRef {
	return r.Ref(recipient).Collection(requestsSubcollection).Doc(sender)
}

func (r *docUserRepository) FriendsCol(uid string) docstore.CollectionRef {
	return r.Ref(uid).Collection(friendsSubcollection)
}

func (r *docUserRepository) RequestsCol(uid string) docstore.CollectionRef {
	return r.Ref(uid).Collection(requestsSubcollection)
}

// defaultsForNewUser builds the initial profile document for a first
// authenticated access. nameLower and emailLower are shadow fields kept
// for case-insensitive prefix search; the counters start at zero and
// are owned by the friend graph engine afterwards.
func defaultsForNewUser(p *auth.Principal) map[string]any {
	name := models.FallbackName(p.Name, p.Email)
	email := strings.ToLower(p.Email)
	roles := p.Roles
	if len(roles) == 0 {
		roles = []string{models.RoleStudent}
	}
	return map[string]any{
		"uid":         p.UID,
		"email":       email,
		"emailLower":  email,
		"name":        name,
		"nameLower":   strings.ToLower(name),
		"photoURL":    p.Picture,
		"primaryRole": roles[0],
		"roles":       roles,
		"visibility":  string(models.VisibilityCampus),
		"notificationPrefs": map[string]bool{
			"friendRequests": true,
			"eventReminders": true,
		},
		"domainOk":        true,
		"isStaffVerified": false,
		"friendsCount":    int64(0),
		"pendingCount":    int64(0),
		"createdAt":       docstore.ServerTimestamp,
		"updatedAt":       docstore.ServerTimestamp,
	}
}

// GetOrCreate returns the profile for the principal, creating it with
// defaults on first access. The second return value reports whether a
// new document was written.
func (r *docUserRepository) GetOrCreate(ctx context.Context, principal *auth.Principal) (*models.Profile, bool, error) {
	ref := r.Ref(principal.UID)
	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read profile %s: %w", principal.UID, err)
	}
	if snap.Exists {
		return profileFromSnapshot(snap), false, nil
	}

	defaults := defaultsForNewUser(principal)
	if err := ref.Set(ctx, defaults); err != nil {
		return nil, false, fmt.Errorf("failed to create profile %s: %w", principal.UID, err)
	}
	snap, err = ref.Get(ctx)
	if err != nil || !snap.Exists {
		return nil, false, fmt.Errorf("failed to read back new profile %s: %w", principal.UID, err)
	}
	return profileFromSnapshot(snap), true, nil
}

// Get returns the profile for uid, or docstore.ErrNotFound.
func (r *docUserRepository) Get(ctx context.Context, uid string) (*models.Profile, error) {
	snap, err := r.Ref(uid).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", uid, err)
	}
	if !snap.Exists {
		return nil, docstore.ErrNotFound
	}
	return profileFromSnapshot(snap), nil
}

// ApplyPatch merges pre-filtered profile fields into users/{uid} and
// maintains the search shadow fields and the audit timestamp. The
// caller is responsible for restricting fields to the writable set.
func (r *docUserRepository) ApplyPatch(ctx context.Context, uid string, fields map[string]any) error {
	patch := make(map[string]any, len(fields)+2)
	for k, v := range fields {
		patch[k] = v
	}
	if name, ok := fields["name"].(string); ok {
		patch["nameLower"] = strings.ToLower(name)
	}
	patch["updatedAt"] = docstore.ServerTimestamp

	if err := r.Ref(uid).Merge(ctx, patch); err != nil {
		return fmt.Errorf("failed to patch profile %s: %w", uid, err)
	}
	return nil
}

// Search runs case-insensitive prefix matches over nameLower and
// emailLower, merges and dedupes the two result sets, and drops the
// requester and private profiles.
func (r *docUserRepository) Search(ctx context.Context, query, requesterUID string, limit int) ([]models.SearchResult, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	users := r.store.Collection(usersCollection)

	seen := make(map[string]docstore.Snapshot)
	for _, field := range []string{"nameLower", "emailLower"} {
		snaps, err := users.
			Where(field, ">=", q).
			Where(field, "<=", q+prefixUpperBound).
			Limit(limit).
			Documents(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to search users by %s: %w", field, err)
		}
		for _, snap := range snaps {
			seen[snap.ID] = snap
		}
	}

	results := make([]models.SearchResult, 0, len(seen))
	for id, snap := range seen {
		if id == requesterUID {
			continue
		}
		if snap.Str("visibility") == string(models.VisibilityPrivate) {
			continue
		}
		results = append(results, models.SearchResult{
			UID:      id,
			Name:     models.FallbackName(snap.Str("name"), snap.Str("email")),
			PhotoURL: snap.Str("photoURL"),
		})
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// DeleteAccount removes the profile document and both of its
// subcollections. Edges pointing at the uid from other users' friends
// subcollections are not touched here; the friend service removes them
// before calling this.
func (r *docUserRepository) DeleteAccount(ctx context.Context, uid string) error {
	for _, col := range []docstore.CollectionRef{r.FriendsCol(uid), r.RequestsCol(uid)} {
		for {
			snaps, err := col.Limit(deleteSubcollectionBatch).Documents(ctx)
			if err != nil {
				return fmt.Errorf("failed to list subcollection for %s: %w", uid, err)
			}
			if len(snaps) == 0 {
				break
			}
			for _, snap := range snaps {
				if err := col.Doc(snap.ID).Delete(ctx); err != nil {
					return fmt.Errorf("failed to delete subcollection doc %s/%s: %w", uid, snap.ID, err)
				}
			}
			if len(snaps) < deleteSubcollectionBatch {
				break
			}
		}
	}
	if err := r.Ref(uid).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete profile %s: %w", uid, err)
	}
	return nil
}

// profileFromSnapshot maps a users/{uid} document onto the Profile model.
func profileFromSnapshot(snap docstore.Snapshot) *models.Profile {
	p := &models.Profile{
		UID:             snap.ID,
		Email:           snap.Str("email"),
		Name:            snap.Str("name"),
		PhotoURL:        snap.Str("photoURL"),
		PrimaryRole:     snap.Str("primaryRole"),
		Roles:           strSlice(snap.Data["roles"]),
		Year:            snap.Str("year"),
		Major:           snap.Str("major"),
		Bio:             snap.Str("bio"),
		Pronouns:        snap.Str("pronouns"),
		Phone:           snap.Str("phone"),
		Visibility:      models.Visibility(snap.Str("visibility")),
		DomainOK:        boolField(snap, "domainOk"),
		IsStaffVerified: boolField(snap, "isStaffVerified"),
		FriendsCount:    snap.Int("friendsCount"),
		PendingCount:    snap.Int("pendingCount"),
		CreatedAt:       snap.Time("createdAt"),
		UpdatedAt:       snap.Time("updatedAt"),
	}
	if prefs, ok := snap.Data["notificationPrefs"]; ok {
		p.NotificationPrefs = boolMap(prefs)
	}
	return p
}

func boolField(snap docstore.Snapshot, key string) bool {
	v, _ := snap.Data[key].(bool)
	return v
}

// strSlice tolerates both []string (memory store) and []any (Firestore
// decoding) representations.
func strSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// boolMap tolerates both map[string]bool and map[string]any shapes.
func boolMap(v any) map[string]bool {
	switch vv := v.(type) {
	case map[string]bool:
		return vv
	case map[string]any:
		out := make(map[string]bool, len(vv))
		for k, item := range vv {
			if b, ok := item.(bool); ok {
				out[k] = b
			}
		}
		return out
	}
	return nil
}
