package auth

import (
	"net/http"
	"net/url"
	"strings"

	"studentportal/internal/models"
)

// Decision is what a guard does with a request.
type Decision int

const (
	RenderLoading Decision = iota
	Redirect
	RenderChildren
)

func (d Decision) String() string {
	switch d {
	case Redirect:
		return "redirect"
	case RenderChildren:
		return "render"
	default:
		return "loading"
	}
}

// Guard protects a route with a Policy. Visitors who are not signed in, or
// who the policy rejects, are sent to RedirectTo.
type Guard struct {
	Policy     Policy
	RedirectTo string
}

var (
	// RequireAuth admits any signed-in user and sends others to /login.
	RequireAuth = Guard{Policy: AnyUser, RedirectTo: "/login"}

	// RequireStudentAuth admits students only. Everyone else, signed in or
	// not, gets the same redirect to the student login at /.
	RequireStudentAuth = Guard{Policy: RequireRole(models.RoleStudent), RedirectTo: "/"}
)

// Decide maps a session state to exactly one outcome. It never renders
// children while loading.
func (g Guard) Decide(state State, user *models.User) Decision {
	switch state {
	case StateLoading:
		return RenderLoading
	case StateAuthenticated:
		policy := g.Policy
		if policy == nil {
			policy = AnyUser
		}
		if user != nil && policy(user) {
			return RenderChildren
		}
	}
	return Redirect
}

// RedirectURL is the redirect target carrying the attempted location in
// the next parameter.
func (g Guard) RedirectURL(r *http.Request) string {
	target := g.RedirectTo
	if target == "" {
		target = "/"
	}
	return target + "?next=" + url.QueryEscape(r.URL.RequestURI())
}

// SafeNext returns next when it is a local path, otherwise fallback. Used
// after sign-in to return the visitor to the page they asked for.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return next
}
