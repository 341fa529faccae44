package routes

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"taskboard/app/controllers"
)

// RegisterRoutes sets up all routes for the application.
func RegisterRoutes(router *mux.Router, board *controllers.BoardController, api *controllers.APIController, logger *slog.Logger) {
	router.Use(recoveryMiddleware(logger), loggingMiddleware(logger))

	router.HandleFunc("/", board.Index).Methods(http.MethodGet)
	router.HandleFunc("/projects", board.CreateProject).Methods(http.MethodPost)
	router.HandleFunc("/projects/{projectID}", board.ShowProject).Methods(http.MethodGet)
	router.HandleFunc("/projects/{projectID}/delete", board.DeleteProject).Methods(http.MethodPost)
	router.HandleFunc("/projects/{projectID}/sections", board.CreateSection).Methods(http.MethodPost)
	router.HandleFunc("/sections/{sectionID}/edit", board.EditSection).Methods(http.MethodPost)
	router.HandleFunc("/sections/{sectionID}/delete", board.DeleteSection).Methods(http.MethodPost)
	router.HandleFunc("/sections/{sectionID}/tasks", board.CreateTasks).Methods(http.MethodPost)
	router.HandleFunc("/sections/{sectionID}/reorder", board.ReorderTasks).Methods(http.MethodPost)
	router.HandleFunc("/tasks/{taskID}/toggle", board.ToggleTask).Methods(http.MethodPost)
	router.HandleFunc("/tasks/{taskID}/edit", board.EditTaskForm).Methods(http.MethodGet)
	router.HandleFunc("/tasks/{taskID}/edit", board.UpdateTaskText).Methods(http.MethodPost)
	router.HandleFunc("/tasks/{taskID}/delete", board.DeleteTask).Methods(http.MethodPost)

	s := router.PathPrefix("/api").Subrouter()
	s.HandleFunc("/projects", api.GetProjects).Methods(http.MethodGet)
	s.HandleFunc("/projects", api.CreateProject).Methods(http.MethodPost)
	s.HandleFunc("/projects/{projectID}/sections", api.GetSections).Methods(http.MethodGet)
	s.HandleFunc("/projects/{projectID}/sections", api.CreateSection).Methods(http.MethodPost)
	s.HandleFunc("/sections/{sectionID}/tasks", api.GetTasks).Methods(http.MethodGet)
	s.HandleFunc("/sections/{sectionID}/tasks", api.CreateTasks).Methods(http.MethodPost)
	s.HandleFunc("/sections/{sectionID}/order", api.ReorderTasks).Methods(http.MethodPut)
	s.HandleFunc("/tasks/{taskID}", api.UpdateTask).Methods(http.MethodPatch)
	s.HandleFunc("/tasks/{taskID}", api.DeleteTask).Methods(http.MethodDelete)
	s.HandleFunc("/tables/{table}", api.DeleteRows).Methods(http.MethodDelete)
	s.HandleFunc("/tables/{table}/{id}", api.EditColumn).Methods(http.MethodPatch)
}

// recoveryMiddleware recovers from panics.
func recoveryMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("panic recovered", "error", err, "path", r.URL.Path)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(logger *slog.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration", time.Since(start),
			)
		})
	}
}
