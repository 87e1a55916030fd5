package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthorizer(t *testing.T) *Authorizer {
	t.Helper()
	a, err := New(Config{Secret: "test-secret", Issuer: "libranexus"})
	require.NoError(t, err)
	require.NotNil(t, a)
	return a
}

func request(t *testing.T, a *Authorizer, method, path, role string) *http.Request {
	t.Helper()
	r := httptest.NewRequest(method, path, nil)
	if role != "" {
		token, err := a.Sign("user-1", role, time.Hour)
		require.NoError(t, err)
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestNewWithoutSecretDisablesAuthorization(t *testing.T) {
	a, err := New(Config{})
	require.NoError(t, err)
	assert.Nil(t, a)
	assert.NoError(t, a.Check(httptest.NewRequest(http.MethodGet, "/api/v1/reports/borrowing", nil)))
}

func TestPolicy(t *testing.T) {
	a := newAuthorizer(t)

	tests := []struct {
		name   string
		method string
		path   string
		role   string
		want   error
	}{
		{"anonymous search", http.MethodPost, "/api/v1/search/advanced", "", nil},
		{"anonymous suggestions", http.MethodGet, "/api/v1/search/suggestions", "", nil},
		{"anonymous book lookup", http.MethodGet, "/api/v1/books/categories", "", nil},
		{"anonymous recommendations", http.MethodGet, "/api/v1/search/recommendations/abc", "", ErrUnauthenticated},
		{"member recommendations", http.MethodGet, "/api/v1/search/recommendations/abc", RoleMember, nil},
		{"member inherits anonymous", http.MethodGet, "/api/v1/search/text", RoleMember, nil},
		{"member analytics", http.MethodGet, "/api/v1/analytics", RoleMember, nil},
		{"member reports", http.MethodGet, "/api/v1/reports/borrowing", RoleMember, ErrForbidden},
		{"librarian reports", http.MethodGet, "/api/v1/reports/popular-books", RoleLibrarian, nil},
		{"librarian inherits member", http.MethodGet, "/api/v1/analytics", RoleLibrarian, nil},
		{"wrong method", http.MethodGet, "/api/v1/search/advanced", RoleLibrarian, ErrForbidden},
		{"unknown role", http.MethodGet, "/api/v1/analytics", "guest", ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := a.Check(request(t, a, tt.method, tt.path, tt.role))
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestRoleRejectsBadTokens(t *testing.T) {
	a := newAuthorizer(t)
	other, err := New(Config{Secret: "other-secret", Issuer: "libranexus"})
	require.NoError(t, err)
	foreign, err := other.Sign("u", RoleLibrarian, time.Hour)
	require.NoError(t, err)
	expired, err := a.Sign("u", RoleLibrarian, -time.Minute)
	require.NoError(t, err)
	wrongIssuer, err := (&Authorizer{cfg: Config{Secret: "test-secret", Issuer: "elsewhere"}}).Sign("u", RoleLibrarian, time.Hour)
	require.NoError(t, err)

	for name, header := range map[string]string{
		"basic scheme": "Basic dXNlcjpwYXNz",
		"empty bearer": "Bearer ",
		"garbage":      "Bearer not.a.token",
		"foreign key":  "Bearer " + foreign,
		"expired":      "Bearer " + expired,
		"wrong issuer": "Bearer " + wrongIssuer,
	} {
		t.Run(name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil)
			r.Header.Set("Authorization", header)

			_, err := a.Role(r)
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.ErrorIs(t, a.Check(r), ErrUnauthenticated)
		})
	}
}

func TestRoleDefaultsWhenClaimMissing(t *testing.T) {
	a := newAuthorizer(t)
	token, err := a.Sign("u", "", time.Hour)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	role, err := a.Role(r)
	require.NoError(t, err)
	assert.Equal(t, RoleAnonymous, role)
}
