// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// Tests for the octopus handlers

package handlers

import (
	"bytes"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/AleutianAI/OctoJourney/services/octopi/datatypes"
	"github.com/AleutianAI/OctoJourney/services/octopi/observability"
	"github.com/AleutianAI/OctoJourney/services/octopi/registry"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	reg     *registry.Registry
	metrics *observability.OctopiMetrics
	router  *gin.Engine
}

func newFixture(t *testing.T, opts ...registry.Option) *fixture {
	t.Helper()
	f := &fixture{
		reg:     registry.New(append([]registry.Option{registry.WithRand(rand.New(rand.NewPCG(3, 4)))}, opts...)...),
		metrics: observability.NewMetrics(prometheus.NewRegistry()),
		router:  gin.New(),
	}
	f.router.GET("/v1/spot-check", HandleSpotCheck(f.reg, f.metrics))
	f.router.POST("/v1/capture", HandleCapture(f.reg, f.metrics))
	f.router.POST("/v1/tag", HandleTag(f.reg, f.metrics))
	f.router.GET("/health", HealthCheck)
	f.router.NoRoute(HandleNotFound)
	return f
}

func (f *fixture) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) spotCheck(t *testing.T) datatypes.OctopiSnapshot {
	t.Helper()
	w := f.do(http.MethodGet, "/v1/spot-check", "")
	require.Equal(t, http.StatusOK, w.Code)
	var snap datatypes.OctopiSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	return snap
}

// =============================================================================
// Misc Tests
// =============================================================================

func TestHealthCheck_ReturnsOK(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestNotFound(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/v2/octopus-disco", "")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, NotFoundMessage, w.Body.String())
}

// =============================================================================
// SpotCheck Tests
// =============================================================================

func TestSpotCheck_Empty(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodGet, "/v1/spot-check", "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"untagged_octopi":{},"tagged_octopi":{}}`, w.Body.String())
}

func TestSpotCheck_ReportsBothSacks(t *testing.T) {
	f := newFixture(t)
	first, ok := f.reg.Capture(1)
	require.True(t, ok)
	f.reg.TagAll(t.Context())
	second, ok := f.reg.Capture(2)
	require.True(t, ok)

	snap := f.spotCheck(t)
	require.Contains(t, snap.TaggedOctopi, first.ID)
	assert.Equal(t, "Original Barry", snap.TaggedOctopi[first.ID].Name)
	assert.Equal(t, second.Octopus, snap.UntaggedOctopi[second.ID])

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Population.WithLabelValues("untagged")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.Population.WithLabelValues("tagged")))
}

// =============================================================================
// Capture Tests
// =============================================================================

func TestCapture_PinnedLowRollCreates(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/v1/capture", `{"roll": 10}`)

	require.Equal(t, http.StatusCreated, w.Code)
	var captured datatypes.CapturedOctopus
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &captured))
	assert.NotEqual(t, uuid.Nil, captured.ID)
	assert.True(t, captured.Octopus.IdentifyingFeature.Valid())

	snap := f.spotCheck(t)
	assert.Equal(t, captured.Octopus, snap.UntaggedOctopi[captured.ID])
	assert.Empty(t, snap.TaggedOctopi)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CapturesTotal.WithLabelValues("found")))
}

func TestCapture_PinnedHighRollFindsNothing(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/v1/capture", `{"roll": 90}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"message":"No octopus analyzed!"}`, w.Body.String())
	assert.Empty(t, f.spotCheck(t).UntaggedOctopi)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.CapturesTotal.WithLabelValues("missed")))
}

func TestCapture_PinnedRollLeavesRandomSourceAlone(t *testing.T) {
	f := newFixture(t)
	direct := registry.New(registry.WithRand(rand.New(rand.NewPCG(3, 4))))

	for i := 0; i < 5; i++ {
		w := f.do(http.MethodPost, "/v1/capture", `{"roll": 10}`)
		require.Equal(t, http.StatusCreated, w.Code)
		var captured datatypes.CapturedOctopus
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &captured))

		want, ok := direct.Capture(10)
		require.True(t, ok)
		assert.Equal(t, want.Octopus.IdentifyingFeature, captured.Octopus.IdentifyingFeature, "capture %d", i)
	}
}

func TestCapture_RandomRoll(t *testing.T) {
	f := newFixture(t)

	created, missed := 0, 0
	for i := 0; i < 200; i++ {
		w := f.do(http.MethodPost, "/v1/capture", "")
		switch w.Code {
		case http.StatusCreated:
			created++
		case http.StatusOK:
			missed++
		default:
			t.Fatalf("unexpected status %d: %s", w.Code, w.Body.String())
		}
	}

	assert.Positive(t, created)
	assert.Positive(t, missed)
	assert.Len(t, f.spotCheck(t).UntaggedOctopi, created)
}

func TestCapture_RejectsBadBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"roll":`},
		{"roll zero", `{"roll": 0}`},
		{"roll hundred", `{"roll": 100}`},
		{"negative roll", `{"roll": -5}`},
		{"string roll", `{"roll": "ten"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			w := f.do(http.MethodPost, "/v1/capture", tt.body)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			var resp datatypes.ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
			assert.Empty(t, f.spotCheck(t).UntaggedOctopi, "registry untouched")
			assert.Equal(t, 1.0, testutil.ToFloat64(
				f.metrics.ErrorsTotal.WithLabelValues("capture", "validation")))
		})
	}
}

func TestCapture_EmptyObjectUsesRandomRoll(t *testing.T) {
	f := newFixture(t)
	w := f.do(http.MethodPost, "/v1/capture", `{}`)
	assert.Contains(t, []int{http.StatusOK, http.StatusCreated}, w.Code)
}

// =============================================================================
// Tag Tests
// =============================================================================

func TestTag_NamesInOrder(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 3; i++ {
		w := f.do(http.MethodPost, "/v1/capture", `{"roll": 1}`)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := f.do(http.MethodPost, "/v1/tag", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp datatypes.TagResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.Count)

	var names []string
	for _, o := range resp.Tagged {
		names = append(names, o.Name)
	}
	assert.ElementsMatch(t, []string{"Original Barry", "Barry 1", "Barry 2"}, names)

	snap := f.spotCheck(t)
	assert.Empty(t, snap.UntaggedOctopi)
	assert.Equal(t, resp.Tagged, snap.TaggedOctopi)
	assert.Equal(t, 3.0, testutil.ToFloat64(f.metrics.TaggedTotal))
}

func TestTag_EmptyIsNoop(t *testing.T) {
	f := newFixture(t)

	w := f.do(http.MethodPost, "/v1/tag", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"tagged":{},"count":0}`, w.Body.String())
	assert.Zero(t, f.reg.Sequencer().Issued())
}

func TestTag_ReturnsOnlyNewBatch(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/v1/capture", `{"roll": 5}`)
	f.do(http.MethodPost, "/v1/tag", "")
	f.do(http.MethodPost, "/v1/capture", `{"roll": 5}`)

	w := f.do(http.MethodPost, "/v1/tag", "")
	var resp datatypes.TagResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Equal(t, 1, resp.Count)
	for _, o := range resp.Tagged {
		assert.Equal(t, "Barry 1", o.Name)
	}
	assert.Len(t, f.spotCheck(t).TaggedOctopi, 2)
}

func TestTag_ResponseIsValidJSONObject(t *testing.T) {
	f := newFixture(t)
	f.do(http.MethodPost, "/v1/capture", `{"roll": 5}`)
	w := f.do(http.MethodPost, "/v1/tag", "")

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	assert.True(t, bytes.HasPrefix(raw["tagged"], []byte("{")))
}
