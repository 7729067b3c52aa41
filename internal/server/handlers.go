package server

import (
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matzehuels/libresolve/pkg/artifact"
	"github.com/matzehuels/libresolve/pkg/audit"
	errs "github.com/matzehuels/libresolve/pkg/errors"
	"github.com/matzehuels/libresolve/pkg/resolve"
)

// ResolveRequest is the body of POST /v1/resolve.
type ResolveRequest struct {
	Coordinate   string   `json:"coordinate"`
	Repositories []string `json:"repositories,omitempty"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Code       errs.Code `json:"code"`
	Message    string    `json:"message"`
	Coordinate string    `json:"coordinate,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var body ResolveRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		s.writeError(w, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid request body"))
		return
	}

	root, err := artifact.ParseCoordinate(body.Coordinate)
	if err != nil {
		s.writeError(w, errs.Wrap(errs.ErrCodeInvalidCoordinate, err, "invalid coordinate"))
		return
	}
	repos := s.repos
	if len(body.Repositories) > 0 {
		repos = make([]artifact.Repository, len(body.Repositories))
		for i, u := range body.Repositories {
			repo := artifact.NewRepository(u)
			if !s.allowed[repo.URL] {
				s.writeError(w, errs.New(errs.ErrCodeInvalidInput, "repository %s is not allowed", repo.URL))
				return
			}
			repos[i] = repo
		}
	}
	req := resolve.Request{Root: root, Repositories: repos, CacheDir: s.cacheDir}

	start := time.Now()
	res, err := s.resolver.Resolve(r.Context(), req)
	if err != nil {
		s.record(r, audit.FromFailure(uuid.NewString(), req, time.Since(start), err))
		s.writeError(w, err)
		return
	}
	s.record(r, audit.FromResult(res))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) record(r *http.Request, rec audit.Record) {
	if err := s.audit.Append(r.Context(), rec); err != nil {
		s.logger.Warn("audit append failed", "id", rec.ID, "err", err)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	group, art := chi.URLParam(r, "group"), chi.URLParam(r, "artifact")
	if err := errs.ValidateCoordinatePart("groupId", group); err != nil {
		s.writeError(w, err)
		return
	}
	if err := errs.ValidateCoordinatePart("artifactId", art); err != nil {
		s.writeError(w, err)
		return
	}
	limit := audit.DefaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.writeError(w, errs.New(errs.ErrCodeInvalidInput, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	records, err := s.audit.History(r.Context(), group, art, limit)
	if err != nil {
		s.writeError(w, errs.Wrap(errs.ErrCodeInternal, err, "read history"))
		return
	}
	if records == nil {
		records = []audit.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleRepository serves cached files in Maven layout so other tools can
// use the cache as a repository. Directories and partial downloads are
// never served.
func (s *Server) handleRepository(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	if err := errs.ValidatePath(rel); err != nil {
		s.writeError(w, err)
		return
	}
	if strings.HasPrefix(filepath.Base(rel), ".") {
		http.NotFound(w, r)
		return
	}
	p := filepath.Join(s.cacheDir, filepath.FromSlash(rel))
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, p)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	code := errs.GetCode(err)
	if code == "" {
		code = errs.ErrCodeInternal
	}
	writeJSON(w, status, ErrorResponse{
		Code:       code,
		Message:    errs.UserMessage(err),
		Coordinate: errs.CoordinateOf(err),
	})
}

func statusFor(err error) int {
	switch errs.GetCode(err) {
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidCoordinate, errs.ErrCodeUnsupported:
		return http.StatusBadRequest
	case errs.ErrCodeNotFound, errs.ErrCodeCorrupt:
		return http.StatusUnprocessableEntity
	case errs.ErrCodeTransientFetch:
		return http.StatusBadGateway
	case errs.ErrCodeCancelled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
