// Package controllers handles HTTP requests for the board: server-rendered
// pages and fragments, and a JSON API over the same hooks.
package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"taskboard/app/components"
	"taskboard/app/forms"
	"taskboard/app/services"
	"taskboard/app/store"
)

// Deps are shared by the controllers.
type Deps struct {
	Hooks  *services.Hooks
	Clock  forms.Clock
	Policy components.TogglePolicy
	Logger *slog.Logger
}

// statusFor maps an error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, forms.ErrInvalid),
		errors.Is(err, components.ErrEmptyText),
		errors.Is(err, services.ErrNotEditable),
		errors.Is(err, services.ErrNothingToInsert),
		errors.Is(err, services.ErrNotInSection),
		errors.Is(err, store.ErrUnknownColumn),
		errors.Is(err, store.ErrUnknownTable),
		errors.Is(err, store.ErrMissingFilter):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrReference), errors.Is(err, store.ErrDuplicateKey):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	http.Error(w, store.Message(err), statusFor(err))
}

// isFragment reports whether the request expects an HTML fragment rather
// than a full page.
func isFragment(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
