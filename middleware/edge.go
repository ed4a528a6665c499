package middleware

import (
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/MrEthical07/tenantauth/token"
)

// EdgeConfig selects which paths the edge guard protects.
type EdgeConfig struct {
	// CookieName is the session cookie to inspect.
	CookieName string
	// LoginPath is the redirect target for unauthenticated requests.
	LoginPath string
	// ProtectedPrefixes are path prefixes that require a signed cookie.
	ProtectedPrefixes []string
	// PublicPaths always pass. An entry ending in "/" matches its whole subtree.
	PublicPaths []string
}

// EdgeGuard returns middleware that redirects requests for protected paths to
// cfg.LoginPath unless they carry a correctly signed session cookie. Whether
// the session still exists is left to the authorization gate.
func EdgeGuard(signer *token.Signer, cfg EdgeConfig) func(http.Handler) http.Handler {
	loginPath := cfg.LoginPath
	if loginPath == "" {
		loginPath = "/login"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clean := cleanPath(r.URL.Path)
			if isPublic(clean, cfg.PublicPaths) || !isProtected(clean, cfg.ProtectedPrefixes) {
				next.ServeHTTP(w, r)
				return
			}

			cookie, err := r.Cookie(cfg.CookieName)
			if err != nil || cookie.Value == "" {
				redirectToLogin(w, r, loginPath)
				return
			}

			if signer == nil {
				redirectToLogin(w, r, loginPath)
				return
			}

			if _, err := signer.Open(cookie.Value); err != nil {
				http.SetCookie(w, &http.Cookie{
					Name:     cfg.CookieName,
					Value:    "",
					Path:     "/",
					MaxAge:   -1,
					HttpOnly: true,
				})
				redirectToLogin(w, r, loginPath)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func redirectToLogin(w http.ResponseWriter, r *http.Request, loginPath string) {
	target := loginPath + "?next=" + url.QueryEscape(r.URL.RequestURI())
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// cleanPath resolves dot segments and duplicate slashes. A trailing slash is
// kept so "/app/static/" still matches its subtree entry.
func cleanPath(p string) string {
	clean := path.Clean("/" + p)
	if strings.HasSuffix(p, "/") && clean != "/" {
		clean += "/"
	}
	return clean
}

func isPublic(path string, public []string) bool {
	for _, p := range public {
		if p == path {
			return true
		}
		if strings.HasSuffix(p, "/") && strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

func isProtected(path string, prefixes []string) bool {
	for _, p := range prefixes {
		base := strings.TrimSuffix(p, "/")
		if path == base || strings.HasPrefix(path, base+"/") {
			return true
		}
	}
	return false
}
