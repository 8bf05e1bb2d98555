package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newJWTer(clk *fakeClock) *JWTer {
	return &JWTer{Secret: []byte("0123456789abcdef0123456789abcdef"), TTL: time.Hour, Now: clk.Now}
}

func TestIssueVerify(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	j := newJWTer(clk)

	tok, exp, err := j.Issue("01HUSER")
	require.NoError(t, err)
	assert.Equal(t, clk.t.Add(time.Hour).Unix(), exp)
	assert.True(t, j.Verify(tok))

	c, err := j.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "01HUSER", c.UID)
	assert.Equal(t, exp, c.ExpiresAt.Unix())
}

func TestVerify_Expiry(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	j := newJWTer(clk)

	tok, _, err := j.Issue("u1")
	require.NoError(t, err)

	clk.Advance(59 * time.Minute)
	assert.True(t, j.Verify(tok))

	clk.Advance(time.Minute + time.Second)
	assert.False(t, j.Verify(tok))
}

func TestVerify_Rejects(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	j := newJWTer(clk)
	tok, _, err := j.Issue("u1")
	require.NoError(t, err)

	other := newJWTer(clk)
	other.Secret = []byte("another-secret-another-secret-00")
	assert.False(t, other.Verify(tok), "wrong secret")

	assert.False(t, j.Verify(""), "empty")
	assert.False(t, j.Verify("not.a.jwt"), "garbage")
	assert.False(t, j.Verify(tok[:len(tok)-2]+"xx"), "tampered signature")

	// alg=none
	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UID: "u1", RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(clk.t.Add(time.Hour)),
	}})
	s, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.False(t, j.Verify(s), "alg none")

	// 无 exp
	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{UID: "u1"}).SignedString(j.Secret)
	require.NoError(t, err)
	assert.False(t, j.Verify(noExp), "missing exp")
}

func TestVerify_Issuer(t *testing.T) {
	clk := &fakeClock{t: time.Unix(1_700_000_000, 0)}
	j := newJWTer(clk)
	j.Issuer = "menu-catalog"
	tok, _, err := j.Issue("u1")
	require.NoError(t, err)
	assert.True(t, j.Verify(tok))

	other := newJWTer(clk)
	other.Issuer = "someone-else"
	assert.False(t, other.Verify(tok))
}

func TestTokenFromRequest_Precedence(t *testing.T) {
	req := func(header, query, cookie string) *http.Request {
		target := "/x"
		if query != "" {
			target += "?token=" + query
		}
		r := httptest.NewRequest(http.MethodGet, target, nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		if cookie != "" {
			r.AddCookie(&http.Cookie{Name: CookieTokenName, Value: cookie})
		}
		return r
	}

	assert.Equal(t, "h", TokenFromRequest(req("Bearer h", "q", "c")))
	assert.Equal(t, "h", TokenFromRequest(req("bearer h", "", "")))
	assert.Equal(t, "q", TokenFromRequest(req("", "q", "c")))
	assert.Equal(t, "q", TokenFromRequest(req("Basic abc", "q", "")))
	assert.Equal(t, "c", TokenFromRequest(req("", "", "c")))
	assert.Equal(t, "", TokenFromRequest(req("", "", "")))
	assert.Equal(t, "", TokenFromRequest(req("Bearer ", "", "")))
}

func TestGenerateSecret(t *testing.T) {
	s, err := GenerateSecret(32)
	require.NoError(t, err)
	assert.Len(t, s, 32)
	assert.Empty(t, strings.Trim(s, secretAlphabet))

	s2, err := GenerateSecret(32)
	require.NoError(t, err)
	assert.NotEqual(t, s, s2)
}
