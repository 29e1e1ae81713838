package api

import (
	"net/http"

	"github.com/sjlangley/social-golf-spa/pkg/docstore"
	"github.com/sjlangley/social-golf-spa/pkg/httputil"
	"github.com/sjlangley/social-golf-spa/pkg/middleware"
	"github.com/sjlangley/social-golf-spa/pkg/users"
)

// listUsers handles GET /api/v1/users
func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := httputil.ParseQueryInt(r, "limit", 0)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	direction := docstore.Ascending
	if raw := httputil.ParseQueryString(r, "sort_direction", ""); raw != "" {
		direction, err = docstore.ParseDirection(raw)
		if err != nil {
			httputil.WriteBadRequest(w, err.Error())
			return
		}
	}

	page, err := s.users.List(r.Context(), users.ListOptions{
		PageSize:      limit,
		SortBy:        httputil.ParseQueryString(r, "sort_by", ""),
		SortDirection: direction,
		Cursor:        httputil.ParseQueryString(r, "next_cursor", ""),
	})
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}

	httputil.WriteSuccess(w, page)
}

// currentUser handles GET /api/v1/users/current
func (s *Server) currentUser(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFrom(r.Context())
	if identity == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	httputil.WriteSuccess(w, identity)
}
