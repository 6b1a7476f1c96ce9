package apiserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campusnet/internal/auth"
	"campusnet/internal/config"
	"campusnet/internal/docstore"
	"campusnet/internal/middleware"
	"campusnet/internal/services"
	"campusnet/internal/storage"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiTestEnv struct {
	router   *mux.Router
	userRepo storage.UserRepository
	authCfg  config.AuthConfig
}

func newAPITestEnv(t *testing.T) *apiTestEnv {
	t.Helper()
	authCfg := config.AuthConfig{
		JWTSecretKey:  "test-secret",
		JWTExpiry:     time.Hour,
		AllowedDomain: "umass.edu",
	}

	store := docstore.NewMemory()
	userRepo := storage.NewDocUserRepository(store)
	friendSvc := services.NewFriendService(store, userRepo, nil, config.KafkaConfig{})
	userSvc := services.NewUserService(userRepo, friendSvc, nil)

	verifier := auth.NewJWTVerifier(authCfg.JWTSecretKey)
	policy := auth.Policy{AllowedDomain: authCfg.AllowedDomain}

	r := mux.NewRouter()
	protected := r.PathPrefix("/").Subrouter()
	protected.Use(middleware.Auth(verifier, policy, nil))

	authHandler := NewAuthHandler(userSvc, nil)
	protected.HandleFunc("/me", authHandler.MeHandler).Methods(http.MethodGet)

	friendHandler := NewFriendHandler(friendSvc)
	friendHandler.RegisterRoutes(protected.PathPrefix("/friends").Subrouter())

	return &apiTestEnv{router: r, userRepo: userRepo, authCfg: authCfg}
}

func (e *apiTestEnv) seedUser(t *testing.T, uid, name string) string {
	t.Helper()
	principal := &auth.Principal{
		UID:           uid,
		Name:          name,
		Email:         uid + "@umass.edu",
		EmailVerified: true,
	}
	_, _, err := e.userRepo.GetOrCreate(context.Background(), principal)
	require.NoError(t, err)

	token, err := auth.GenerateToken(principal, e.authCfg)
	require.NoError(t, err)
	return token
}

func (e *apiTestEnv) do(t *testing.T, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestFriendEndpointsRequireAuth(t *testing.T) {
	env := newAPITestEnv(t)

	rec := env.do(t, http.MethodGet, "/friends", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSendAcceptListFlow(t *testing.T) {
	env := newAPITestEnv(t)
	adaToken := env.seedUser(t, "ada", "Ada")
	bobToken := env.seedUser(t, "bob", "Bob")

	rec := env.do(t, http.MethodPost, "/friends/requests/bob", adaToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["ok"])

	// Bob sees the request in his inbox.
	rec = env.do(t, http.MethodGet, "/friends/requests", bobToken)
	require.Equal(t, http.StatusOK, rec.Code)
	requests := decodeBody(t, rec)["requests"].([]any)
	require.Len(t, requests, 1)
	assert.Equal(t, "ada", requests[0].(map[string]any)["fromUid"])

	rec = env.do(t, http.MethodPost, "/friends/requests/ada/accept", bobToken)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/friends", adaToken)
	require.Equal(t, http.StatusOK, rec.Code)
	friends := decodeBody(t, rec)["friends"].([]any)
	require.Len(t, friends, 1)
	assert.Equal(t, "bob", friends[0].(map[string]any)["uid"])
	assert.Equal(t, "Bob", friends[0].(map[string]any)["name"])

	rec = env.do(t, http.MethodGet, "/friends/status/bob", adaToken)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decodeBody(t, rec)
	assert.Equal(t, true, status["friend"])
	assert.Equal(t, false, status["incomingPending"])
}

func TestSendRequestErrorMapping(t *testing.T) {
	env := newAPITestEnv(t)
	adaToken := env.seedUser(t, "ada", "Ada")

	rec := env.do(t, http.MethodPost, "/friends/requests/ada", adaToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodPost, "/friends/requests/ghost", adaToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAcceptMissingRequestMapsToNotFound(t *testing.T) {
	env := newAPITestEnv(t)
	adaToken := env.seedUser(t, "ada", "Ada")
	env.seedUser(t, "bob", "Bob")

	rec := env.do(t, http.MethodPost, "/friends/requests/bob/accept", adaToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodPost, "/friends/requests/bob/decline", adaToken)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUnfriendIsIdempotentOverHTTP(t *testing.T) {
	env := newAPITestEnv(t)
	adaToken := env.seedUser(t, "ada", "Ada")
	env.seedUser(t, "bob", "Bob")

	rec := env.do(t, http.MethodDelete, "/friends/bob", adaToken)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodDelete, "/friends/ada", adaToken)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchEndpoint(t *testing.T) {
	env := newAPITestEnv(t)
	adaToken := env.seedUser(t, "ada", "Ada")
	env.seedUser(t, "bob", "Bobby")

	// Short query returns an empty list, not an error.
	rec := env.do(t, http.MethodGet, "/friends/search?q=b", adaToken)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeBody(t, rec)["results"])

	rec = env.do(t, http.MethodGet, "/friends/search?q=bo", adaToken)
	require.Equal(t, http.StatusOK, rec.Code)
	results := decodeBody(t, rec)["results"].([]any)
	require.Len(t, results, 1)
	assert.Equal(t, "bob", results[0].(map[string]any)["uid"])
}

func TestMeEndpointCreatesProfile(t *testing.T) {
	env := newAPITestEnv(t)
	principal := &auth.Principal{
		UID:           "newcomer",
		Email:         "newcomer@umass.edu",
		EmailVerified: true,
	}
	token, err := auth.GenerateToken(principal, env.authCfg)
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/me", token)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "newcomer", body["uid"])
	assert.Equal(t, "newcomer", body["name"])
	assert.Equal(t, "campus", body["visibility"])
}
