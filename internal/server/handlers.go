package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/conduit-lang/mirror/runtime/decl"
	rterrors "github.com/conduit-lang/mirror/runtime/errors"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// PackageResponse describes one registered package
type PackageResponse struct {
	decl.Package
	Level int `json:"level"`
}

func renderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// renderError maps registry error codes onto HTTP statuses
func renderError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	resp := ErrorResponse{Error: "error", Message: err.Error()}

	var rtErr *rterrors.Error
	if errors.As(err, &rtErr) {
		resp.Code = string(rtErr.Code)
		switch rtErr.Code {
		case rterrors.ErrNotFound:
			status, resp.Error = http.StatusNotFound, "not_found"
		case rterrors.ErrNotInitialized:
			status, resp.Error = http.StatusServiceUnavailable, "not_initialized"
		}
	}
	renderJSON(w, status, resp)
}

func badRequest(w http.ResponseWriter, message string) {
	renderJSON(w, http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: message})
}

func declarations[T decl.Declaration](ds []T) []map[string]any {
	out := make([]map[string]any, len(ds))
	for i, d := range ds {
		out[i] = d.ToJSON()
	}
	return out
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGeneration(w http.ResponseWriter, r *http.Request) {
	generation, err := s.registry.Generation()
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]string{
		"generation": generation,
		"state":      s.registry.State().String(),
	})
}

func (s *Server) handlePackages(w http.ResponseWriter, r *http.Request) {
	pkgs, err := s.registry.AllPackages()
	if err != nil {
		renderError(w, err)
		return
	}
	out := make([]PackageResponse, 0, len(pkgs))
	for _, p := range pkgs {
		level, err := s.registry.Level(p.Name)
		if err != nil {
			renderError(w, err)
			return
		}
		out = append(out, PackageResponse{Package: p, Level: level})
	}
	renderJSON(w, http.StatusOK, out)
}

func (s *Server) handleLibraries(w http.ResponseWriter, r *http.Request) {
	libs, err := s.registry.AllLibraries()
	if err != nil {
		renderError(w, err)
		return
	}
	if uri := r.URL.Query().Get("uri"); uri != "" {
		for _, l := range libs {
			if l.URI() == uri {
				renderJSON(w, http.StatusOK, l.ToJSON())
				return
			}
		}
		renderError(w, rterrors.NewNotFound("library", uri))
		return
	}
	uris := make([]string, len(libs))
	for i, l := range libs {
		uris[i] = l.URI()
	}
	renderJSON(w, http.StatusOK, uris)
}

func (s *Server) handleFindByName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if strings.TrimSpace(name) == "" {
		badRequest(w, "name is required")
		return
	}
	d, err := s.index.FindByName(name, r.URL.Query().Get("package"))
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, d.ToJSON())
}

func (s *Server) handleFindByQualifiedName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		badRequest(w, "name is required")
		return
	}
	d, err := s.index.FindByQualifiedName(name)
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, d.ToJSON())
}

func (s *Server) handleFindAllBySimpleName(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		badRequest(w, "name is required")
		return
	}
	ds, err := s.index.FindAllBySimpleName(name, r.URL.Query().Get("package"))
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, declarations(ds))
}

// handleHierarchy resolves ?name= and answers a subtype query about it
func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		badRequest(w, "name is required")
		return
	}
	base, err := s.index.FindByName(name, r.URL.Query().Get("package"))
	if err != nil {
		renderError(w, err)
		return
	}

	var out []map[string]any
	switch chi.URLParam(r, "query") {
	case "subclasses":
		var found []*decl.ClassDeclaration
		found, err = s.index.FindSubclassesOf(base)
		out = declarations(found)
	case "implementers":
		var found []decl.TypeDeclaration
		found, err = s.index.FindImplementersOf(base)
		out = declarations(found)
	default:
		var found []decl.TypeDeclaration
		found, err = s.index.FindGenericInstantiationsOf(base)
		out = declarations(found)
	}
	if err != nil {
		renderError(w, err)
		return
	}
	renderJSON(w, http.StatusOK, out)
}

func (s *Server) handleCache(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("preload") == "true" {
		if err := s.index.PreloadCaches(); err != nil {
			renderError(w, err)
			return
		}
	}
	renderJSON(w, http.StatusOK, s.index.CacheStatistics())
}
