package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/depresolve/pkg/buildinfo"
	"github.com/matzehuels/depresolve/pkg/collect"
	errs "github.com/matzehuels/depresolve/pkg/errors"
	"github.com/matzehuels/depresolve/pkg/filter"
	"github.com/matzehuels/depresolve/pkg/report"
	"github.com/matzehuels/depresolve/pkg/repository"
	"github.com/matzehuels/depresolve/pkg/session"
	"github.com/matzehuels/depresolve/pkg/store"
	"github.com/matzehuels/depresolve/pkg/system"
	"github.com/matzehuels/depresolve/pkg/trace"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// collectBody is the body of POST /v1/collect.
type collectBody struct {
	// Coordinates lists g:a[:ext[:classifier]]:v coordinates. One
	// coordinate is the root; several share a virtual root.
	Coordinates  []string                      `json:"coordinates"`
	Repositories []repository.RemoteRepository `json:"repositories,omitempty"`
	Offline      bool                          `json:"offline,omitempty"`
}

// resolveBody is the body of POST /v1/resolve.
type resolveBody struct {
	collectBody
	Scopes  []string `json:"scopes,omitempty"`
	Exclude []string `json:"exclude,omitempty"`

	// Save stores the report when a store is configured.
	Save bool `json:"save,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": buildinfo.Version})
}

func (s *Server) handleCollect(w http.ResponseWriter, r *http.Request) {
	var body collectBody
	if err := decode(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.Timeout)
	defer cancel()

	sess, req, err := s.prepare(ctx, body)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.opts.System.CollectDependencies(ctx, sess, req)
	var cerr *collect.CollectionError
	if res == nil && errors.As(err, &cerr) {
		res = cerr.Result
	}
	if res == nil {
		if err == nil {
			err = errs.New(errs.ErrCodeInternal, "collector returned no result")
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report.BuildCollect(res))
}

func (s *Server) handleLastCollect(w http.ResponseWriter, _ *http.Request) {
	res, ok := s.opts.System.LastCollectResult()
	if !ok {
		writeError(w, errs.New(errs.ErrCodeNotFound, "nothing collected yet"))
		return
	}
	writeJSON(w, http.StatusOK, report.BuildCollect(res))
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var body resolveBody
	if err := decode(w, r, &body); err != nil {
		writeError(w, err)
		return
	}
	if body.Save && s.opts.Store == nil {
		writeError(w, errs.New(errs.ErrCodeUnsupported, "no report store configured"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), s.opts.Timeout)
	defer cancel()

	sess, req, err := s.prepare(ctx, body.collectBody)
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := s.opts.System.ResolveDependencies(ctx, sess, system.DependencyRequest{
		CollectRequest: &req,
		Filter:         filter.Select(body.Scopes, body.Exclude),
		Trace:          trace.New(r.URL.Path),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	rep := report.Build(res)
	if body.Save {
		if err := s.opts.Store.Save(ctx, rep); err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Location", "/v1/reports/"+rep.ID)
	}
	writeJSON(w, http.StatusOK, rep)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		writeError(w, errs.New(errs.ErrCodeUnsupported, "no report store configured"))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, errs.New(errs.ErrCodeInvalidInput, "invalid limit %q", v))
			return
		}
		limit = n
	}
	entries, err := s.opts.Store.List(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if entries == nil {
		entries = []store.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		writeError(w, errs.New(errs.ErrCodeUnsupported, "no report store configured"))
		return
	}
	rep, err := s.opts.Store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// prepare derives the request session and the collect request from body.
func (s *Server) prepare(ctx context.Context, body collectBody) (*session.Session, collect.Request, error) {
	req, err := collect.ParseRequest(body.Coordinates...)
	if err != nil {
		return nil, collect.Request{}, err
	}
	sess := s.opts.Session
	if body.Offline {
		sess = sess.WithOffline(true)
	}
	if len(body.Repositories) > 0 {
		req.Repositories = s.opts.System.NewResolutionRepositories(ctx, sess, body.Repositories)
		if len(req.Repositories) == 0 {
			return nil, collect.Request{}, errs.New(errs.ErrCodeInvalidInput, "no valid repository given")
		}
	}
	req.Context = "api"
	return sess, req, nil
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errs.Wrap(errs.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}

type errorBody struct {
	Error string    `json:"error"`
	Code  errs.Code `json:"code,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	code := errs.GetCode(err)
	writeJSON(w, statusFor(code), errorBody{Error: errs.UserMessage(err), Code: code})
}

// statusFor maps error codes to HTTP status codes.
func statusFor(code errs.Code) int {
	switch code {
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidRequest, errs.ErrCodeInvalidCoordinate, errs.ErrCodeInvalidPath:
		return http.StatusBadRequest
	case errs.ErrCodeNotFound, errs.ErrCodeArtifactNotFound, errs.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errs.ErrCodeUnsupported:
		return http.StatusNotImplemented
	case errs.ErrCodeOffline, errs.ErrCodeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
