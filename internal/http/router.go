package http

import (
	"net/http"
	"strings"
)

type RouterConfig struct {
	Subjects    *SubjectHandler
	Schedules   *ScheduleHandler
	Occurrences *OccurrenceHandler
	Middleware  []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Subjects != nil {
		mux.HandleFunc("/subjects", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Subjects.List(w, r)
			case http.MethodPost:
				cfg.Subjects.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/subjects/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/subjects/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			ctx := ContextWithSubjectID(r.Context(), id)
			r = r.WithContext(ctx)
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Subjects.Delete(w, r)
		})
	}

	if cfg.Schedules != nil {
		mux.HandleFunc("/schedules", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Schedules.List(w, r)
			case http.MethodPost:
				cfg.Schedules.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/schedules/regenerate", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				methodNotAllowed(w, http.MethodPost)
				return
			}
			cfg.Schedules.Regenerate(w, r)
		})
		mux.HandleFunc("/schedules/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/schedules/")
			if id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			ctx := ContextWithScheduleID(r.Context(), id)
			r = r.WithContext(ctx)
			if r.Method != http.MethodDelete {
				methodNotAllowed(w, http.MethodDelete)
				return
			}
			cfg.Schedules.Delete(w, r)
		})
	}

	if cfg.Occurrences != nil {
		mux.HandleFunc("/occurrences", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Occurrences.List(w, r)
		})
		mux.HandleFunc("/occurrences/today", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Occurrences.Today(w, r)
		})
		mux.HandleFunc("/occurrences/", func(w http.ResponseWriter, r *http.Request) {
			rest := strings.TrimPrefix(r.URL.Path, "/occurrences/")
			id, ok := strings.CutSuffix(rest, "/status")
			if !ok || id == "" || strings.Contains(id, "/") {
				http.NotFound(w, r)
				return
			}
			ctx := ContextWithOccurrenceID(r.Context(), id)
			r = r.WithContext(ctx)
			if r.Method != http.MethodPut {
				methodNotAllowed(w, http.MethodPut)
				return
			}
			cfg.Occurrences.MarkStatus(w, r)
		})
		mux.HandleFunc("/summary", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				methodNotAllowed(w, http.MethodGet)
				return
			}
			cfg.Occurrences.Summary(w, r)
		})
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
