package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/strandnet/console/internal/auth"
	"github.com/strandnet/console/internal/authz"
	pkghttp "github.com/strandnet/console/pkg/http"
)

// RBACHandler exposes the resolved permission set for the authenticated
// identity. The UI gates whole feature areas on this payload.
type RBACHandler struct {
	resolver *authz.Resolver
}

func NewRBACHandler(resolver *authz.Resolver) *RBACHandler {
	return &RBACHandler{resolver: resolver}
}

// MyActionsResponse is the payload for GET /rbac/me/actions
type MyActionsResponse struct {
	Role    string   `json:"role"`
	Actions []string `json:"actions"`
}

// MyActions handles GET /rbac/me/actions.
func (h *RBACHandler) MyActions(w http.ResponseWriter, r *http.Request) {
	sc := auth.StaffFromRequest(r)
	if sc == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(&MyActionsResponse{
		Role:    sc.Role,
		Actions: h.resolver.ActionsFor(sc.Role),
	})
}
