package auth

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// FirebaseAuth verifies ID tokens and performs administrative calls
// against Firebase Authentication. It implements both Verifier and
// Identity.
type FirebaseAuth struct {
	client *fbauth.Client
}

// NewFirebaseAuth initializes the Firebase Admin SDK once at startup.
// credentialsFile may be empty to use application default credentials.
func NewFirebaseAuth(ctx context.Context, projectID, credentialsFile string) (*FirebaseAuth, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firebase auth client: %w", err)
	}
	return &FirebaseAuth{client: client}, nil
}

// Verify validates the ID token and maps its claims onto a Principal.
func (f *FirebaseAuth) Verify(ctx context.Context, token string) (*Principal, error) {
	decoded, err := f.client.VerifyIDToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	p := &Principal{
		UID:            decoded.UID,
		SignInProvider: decoded.Firebase.SignInProvider,
	}
	if v, ok := decoded.Claims["email"].(string); ok {
		p.Email = v
	}
	if v, ok := decoded.Claims["email_verified"].(bool); ok {
		p.EmailVerified = v
	}
	if v, ok := decoded.Claims["name"].(string); ok {
		p.Name = v
	}
	if v, ok := decoded.Claims["picture"].(string); ok {
		p.Picture = v
	}
	if v, ok := decoded.Claims["roles"].([]any); ok {
		for _, r := range v {
			if s, ok := r.(string); ok {
				p.Roles = append(p.Roles, s)
			}
		}
	}
	return p, nil
}

// DeleteUser removes the account from the identity provider.
func (f *FirebaseAuth) DeleteUser(ctx context.Context, uid string) error {
	if err := f.client.DeleteUser(ctx, uid); err != nil {
		return fmt.Errorf("failed to delete identity account %s: %w", uid, err)
	}
	return nil
}

// SetRoleClaims writes the role custom claims read back by Verify and
// by the frontend security rules. Clients must refresh their token to
// observe the change.
func (f *FirebaseAuth) SetRoleClaims(ctx context.Context, uid string, roles []string) error {
	claims := map[string]any{"roles": roles}
	if len(roles) > 0 {
		claims["role"] = roles[0]
	}
	if err := f.client.SetCustomUserClaims(ctx, uid, claims); err != nil {
		return fmt.Errorf("failed to set custom claims for %s: %w", uid, err)
	}
	return nil
}

// UIDByEmail resolves an account's uid from its email address.
func (f *FirebaseAuth) UIDByEmail(ctx context.Context, email string) (string, error) {
	user, err := f.client.GetUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to look up user by email: %w", err)
	}
	return user.UID, nil
}

// PasswordResetLink generates an out-of-band password reset link for
// the given email. The provider sends no mail itself; the caller
// decides what to do with the link.
func (f *FirebaseAuth) PasswordResetLink(ctx context.Context, email string) (string, error) {
	link, err := f.client.PasswordResetLink(ctx, email)
	if err != nil {
		return "", fmt.Errorf("failed to generate password reset link: %w", err)
	}
	return link, nil
}
