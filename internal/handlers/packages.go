package handlers

import "net/http"

// GetPackages lists the catalog priced at live estimates.
func (h *HTTPHandler) GetPackages(w http.ResponseWriter, r *http.Request) {
	packages, err := h.packageService.ListPackages(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error listing packages", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, packages)
}
