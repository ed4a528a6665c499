package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MrEthical07/tenantauth/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSigner(t *testing.T) *token.Signer {
	t.Helper()
	s, err := token.NewSigner([]byte(strings.Repeat("k", token.MinSecretLength)))
	require.NoError(t, err)
	return s
}

func edgeConfig() EdgeConfig {
	return EdgeConfig{
		CookieName:        "session",
		LoginPath:         "/login",
		ProtectedPrefixes: []string{"/app", "/api/users"},
		PublicPaths:       []string{"/app/health", "/app/static/"},
	}
}

func serveEdge(t *testing.T, signer *token.Signer, req *http.Request) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	reached := false
	h := EdgeGuard(signer, edgeConfig())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec, reached
}

func TestEdgeGuardRedirectsWithoutCookie(t *testing.T) {
	signer := testSigner(t)
	req := httptest.NewRequest(http.MethodGet, "/app/projects?tab=open", nil)

	rec, reached := serveEdge(t, signer, req)

	assert.False(t, reached)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?next=%2Fapp%2Fprojects%3Ftab%3Dopen", rec.Header().Get("Location"))
	assert.Empty(t, rec.Result().Cookies())
}

func TestEdgeGuardAcceptsSignedCookie(t *testing.T) {
	signer := testSigner(t)
	_, value, err := signer.Issue()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/app", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: value})

	rec, reached := serveEdge(t, signer, req)
	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEdgeGuardClearsForgedCookie(t *testing.T) {
	signer := testSigner(t)
	other, err := token.NewSigner([]byte(strings.Repeat("x", token.MinSecretLength)))
	require.NoError(t, err)
	_, forged, err := other.Issue()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/users/42", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: forged})

	rec, reached := serveEdge(t, signer, req)
	assert.False(t, reached)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "session", cookies[0].Name)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestEdgeGuardPublicAndUnprotectedPaths(t *testing.T) {
	signer := testSigner(t)
	for _, path := range []string{"/app/health", "/app/static/site.css", "/login", "/api/auth/login", "/application"} {
		t.Run(path, func(t *testing.T) {
			rec, reached := serveEdge(t, signer, httptest.NewRequest(http.MethodGet, path, nil))
			assert.True(t, reached)
			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestEdgeGuardNilSignerRedirects(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/app", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: "anything"})

	rec, reached := serveEdge(t, nil, req)
	assert.False(t, reached)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestEdgeGuardResolvesDotSegments(t *testing.T) {
	signer := testSigner(t)
	for _, target := range []string{
		"/app/static/../projects",
		"/app/static/%2e%2e/projects",
		"/app/static/./../../app/projects",
		"/app/health/../projects",
		"/login/../app/projects",
		"//app/projects",
	} {
		t.Run(target, func(t *testing.T) {
			rec, reached := serveEdge(t, signer, httptest.NewRequest(http.MethodGet, target, nil))
			assert.False(t, reached)
			assert.Equal(t, http.StatusSeeOther, rec.Code)
			assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "/login?next="))
		})
	}
}

func TestEdgeGuardDotSegmentsWithSignedCookie(t *testing.T) {
	signer := testSigner(t)
	_, value, err := signer.Issue()
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/app/static/../projects", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: value})

	rec, reached := serveEdge(t, signer, req)
	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestEdgeGuardPublicSubtreeRootKeepsTrailingSlash(t *testing.T) {
	rec, reached := serveEdge(t, testSigner(t), httptest.NewRequest(http.MethodGet, "/app/static/", nil))
	assert.True(t, reached)
	assert.Equal(t, http.StatusOK, rec.Code)
}
