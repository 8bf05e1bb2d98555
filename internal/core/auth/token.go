package auth

import (
	"net/http"
	"strings"
)

const (
	QueryTokenKey   = "token"
	CookieTokenName = "jwt_token"
)

// TokenFromRequest 依次查找 Authorization 头、?token=、jwt_token cookie，
// 找不到返回空串（视为未登录）
func TokenFromRequest(r *http.Request) string {
	if ah := strings.TrimSpace(r.Header.Get("Authorization")); ah != "" {
		if len(ah) > 7 && strings.EqualFold(ah[:7], "Bearer ") {
			if tok := strings.TrimSpace(ah[7:]); tok != "" {
				return tok
			}
		}
	}
	if tok := r.URL.Query().Get(QueryTokenKey); tok != "" {
		return tok
	}
	if c, err := r.Cookie(CookieTokenName); err == nil && c.Value != "" {
		return c.Value
	}
	return ""
}
