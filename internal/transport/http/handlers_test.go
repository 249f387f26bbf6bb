package httptransport_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trustforge/internal/jwttoken"
	"trustforge/internal/platform/logger"
	rlservice "trustforge/internal/ratelimit/service"
	rlstate "trustforge/internal/ratelimit/store/state"
	"trustforge/internal/registry"
	regstore "trustforge/internal/registry/store"
	"trustforge/internal/submit"
	httptransport "trustforge/internal/transport/http"
	"trustforge/internal/trust"
	"trustforge/pkg/testutil"
)

type fixture struct {
	router   http.Handler
	jwt      *jwttoken.JWTService
	registry *registry.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log := logger.New()
	clock := func() time.Time { return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC) }

	limiter, err := rlservice.New(rlstate.NewMemoryStore(), rlservice.WithClock(clock))
	require.NoError(t, err)

	reg, err := registry.New(regstore.NewMemory(), registry.WithClock(clock))
	require.NoError(t, err)

	submitter, err := submit.New(limiter, reg)
	require.NoError(t, err)

	jwtService := jwttoken.NewJWTService("test-signing-key", "trustforge", "trustforge-api")

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:       log,
		JWTValidator: jwtService,
		Submitter:    submitter,
		Registry:     reg,
		RateLimiter:  limiter,
		Scorer:       trust.New(trust.WithClock(clock)),
	})

	return &fixture{router: router, jwt: jwtService, registry: reg}
}

func (f *fixture) authed(t *testing.T, req *http.Request, owner string) *http.Request {
	t.Helper()
	token, err := f.jwt.GenerateAccessToken(owner, time.Hour)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func validMetadata(name string) trust.CredentialMetadata {
	return trust.CredentialMetadata{
		Type:        trust.TypeSkill,
		Name:        name,
		Issuer:      "Example Org",
		Description: "Production experience with " + name,
		Timestamp:   "2025-01-01T00:00:00.000Z",
		Visibility:  trust.VisibilityPublic,
	}
}

func TestSubmitEndpoint(t *testing.T) {
	f := newFixture(t)

	t.Run("rejects missing token", func(t *testing.T) {
		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/credentials", map[string]any{
			"metadata": validMetadata("Go"),
		})
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("mints a credential", func(t *testing.T) {
		req := f.authed(t, testutil.NewJSONRequest(t, http.MethodPost, "/v1/credentials", map[string]any{
			"metadata": validMetadata("Go"),
		}), "alice")
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusCreated)

		resp := testutil.UnmarshalResponse[map[string]any](t, rr)
		credential, ok := (*resp)["credential"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "alice", credential["owner"])
		assert.NotEmpty(t, credential["id"])
	})

	t.Run("duplicate content conflicts", func(t *testing.T) {
		req := f.authed(t, testutil.NewJSONRequest(t, http.MethodPost, "/v1/credentials", map[string]any{
			"metadata": validMetadata("Go"),
		}), "alice")
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusConflict)
		testutil.AssertErrorCode(t, rr, "conflict")
	})

	t.Run("invalid metadata is a 400", func(t *testing.T) {
		metadata := validMetadata("Go")
		metadata.Name = ""
		req := f.authed(t, testutil.NewJSONRequest(t, http.MethodPost, "/v1/credentials", map[string]any{
			"metadata": metadata,
		}), "alice")
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rr, "invalid_input")
	})

	t.Run("executable upload is rejected", func(t *testing.T) {
		req := f.authed(t, testutil.NewJSONRequest(t, http.MethodPost, "/v1/credentials", map[string]any{
			"metadata": validMetadata("Rust"),
			"file":     map[string]any{"name": "payload.exe", "size": 1024, "mime_type": "application/pdf"},
		}), "alice")
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusUnprocessableEntity)
		testutil.AssertErrorCode(t, rr, "security_rejected")
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		req := f.authed(t, testutil.NewRequestWithBody(t, http.MethodPost, "/v1/credentials", "{not json"), "alice")
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusBadRequest)
	})
}

func TestCredentialLifecycleEndpoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	record, err := f.registry.Mint(ctx, "alice", validMetadata("Go"))
	require.NoError(t, err)

	t.Run("list own credentials", func(t *testing.T) {
		req := f.authed(t, testutil.NewRequest(t, http.MethodGet, "/v1/credentials"), "alice")
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		resp := testutil.UnmarshalResponse[map[string][]registry.Record](t, rr)
		require.Len(t, (*resp)["credentials"], 1)
		assert.Equal(t, record.ID, (*resp)["credentials"][0].ID)
	})

	t.Run("update visibility", func(t *testing.T) {
		req := f.authed(t, testutil.NewJSONRequest(t, http.MethodPatch, "/v1/credentials/"+record.ID, map[string]any{
			"visibility": "private",
		}), "alice")
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("non-owner update is forbidden", func(t *testing.T) {
		req := f.authed(t, testutil.NewJSONRequest(t, http.MethodPatch, "/v1/credentials/"+record.ID, map[string]any{
			"visibility": "public",
		}), "mallory")
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("delete", func(t *testing.T) {
		req := f.authed(t, testutil.NewRequest(t, http.MethodDelete, "/v1/credentials/"+record.ID), "alice")
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusNoContent)
	})

	t.Run("delete again is a 404", func(t *testing.T) {
		req := f.authed(t, testutil.NewRequest(t, http.MethodDelete, "/v1/credentials/"+record.ID), "alice")
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusNotFound)
	})
}

func TestScoreEndpoints(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("inline scoring", func(t *testing.T) {
		rating := 5.0
		metadata := validMetadata("Great work")
		metadata.Type = trust.TypeReview
		metadata.Rating = &rating

		req := testutil.NewJSONRequest(t, http.MethodPost, "/v1/trust-score", map[string]any{
			"credentials": []trust.Credential{{ID: "c1", Owner: "alice", CredentialMetadata: metadata}},
		})
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		score := testutil.UnmarshalResponse[trust.TrustScore](t, rr)
		assert.Equal(t, 60, score.Total)
		assert.Equal(t, trust.TierGold, score.Tier)
	})

	t.Run("owner scoring reads the registry", func(t *testing.T) {
		_, err := f.registry.Mint(ctx, "bob", validMetadata("Go"))
		require.NoError(t, err)

		req := testutil.NewRequest(t, http.MethodGet, "/v1/trust-score/bob")
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		resp := testutil.UnmarshalResponse[map[string]any](t, rr)
		assert.Equal(t, float64(1), (*resp)["credential_count"])
	})

	t.Run("unknown owner scores the empty set", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/v1/trust-score/nobody")
		rr := testutil.DoRequest(f.router, req)
		testutil.AssertStatus(t, rr, http.StatusOK)

		resp := testutil.UnmarshalResponse[map[string]any](t, rr)
		score, ok := (*resp)["score"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, float64(0), score["total"])
		assert.Equal(t, "Bronze", score["tier"])
	})
}

func TestLimitsEndpoint(t *testing.T) {
	f := newFixture(t)

	req := testutil.NewRequest(t, http.MethodGet, "/v1/limits/alice")
	rr := testutil.DoRequest(f.router, req)
	testutil.AssertStatus(t, rr, http.StatusOK)

	resp := testutil.UnmarshalResponse[map[string]any](t, rr)
	rate, ok := (*resp)["rate"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, rate["allowed"])
}

func TestHealthz(t *testing.T) {
	f := newFixture(t)

	rr := testutil.DoRequest(f.router, testutil.NewRequest(t, http.MethodGet, "/healthz"))
	testutil.AssertStatus(t, rr, http.StatusOK)
}
