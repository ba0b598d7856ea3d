package server

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/urfave/negroni"

	"github.com/agentic-research/shape/api"
	"github.com/agentic-research/shape/internal/structure"
)

// maxBodySize bounds one POST /documents payload.
const maxBodySize = 256 << 20

// Handler routes the HTTP API.
func (s *Service) Handler() http.Handler {
	r := mux.NewRouter().StrictSlash(true)
	r.HandleFunc("/documents", s.postDocuments).Methods(http.MethodPost)
	r.HandleFunc("/structure", s.getStructure).Methods(http.MethodGet)
	r.HandleFunc("/nodes", s.getNode).Methods(http.MethodGet)
	r.HandleFunc("/columns", s.getColumns).Methods(http.MethodGet)
	r.HandleFunc("/type", s.getType).Methods(http.MethodGet)
	r.HandleFunc("/headers", s.postHeaders).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.Use(s.logMiddleware)

	recovery := negroni.NewRecovery()
	recovery.Logger = s.log
	recovery.PrintStack = false
	n := negroni.New(recovery)
	n.UseHandler(r)
	return n
}

func (s *Service) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := negroni.NewResponseWriter(w)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logrus.Fields{
			"method": r.Method,
			"uri":    r.RequestURI,
			"status": ww.Status(),
		}).Debug("request")
	})
}

func (s *Service) postDocuments(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	res, err := s.Analyze(r.Context(), "body", body, isLines(r))
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// isLines reports whether the body is JSON Lines, by content type or the
// lines query parameter.
func isLines(r *http.Request) bool {
	if v := r.URL.Query().Get("lines"); v != "" {
		b, _ := strconv.ParseBool(v)
		return b
	}
	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mt {
	case "application/x-ndjson", "application/jsonl", "application/x-jsonlines":
		return true
	}
	return false
}

func (s *Service) getStructure(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Structure())
}

func (s *Service) getNode(w http.ResponseWriter, r *http.Request) {
	p, ok := pathParam(w, r)
	if !ok {
		return
	}
	node, found := s.Node(p)
	res := api.NodeResult{Path: p.Segments(), Found: found, Node: node}
	if !found {
		writeJSON(w, http.StatusNotFound, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Service) getColumns(w http.ResponseWriter, r *http.Request) {
	p, ok := pathParam(w, r)
	if !ok {
		return
	}
	if _, found := s.Node(p); !found {
		writeError(w, http.StatusNotFound, errors.New("node not found"))
		return
	}
	writeJSON(w, http.StatusOK, api.ColumnsResult{Path: p.Segments(), Columns: s.ColumnTypes(p)})
}

func (s *Service) getType(w http.ResponseWriter, r *http.Request) {
	p, ok := pathParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, api.TypeResult{Path: p.Segments(), Name: s.TypeName(p)})
}

func (s *Service) postHeaders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.GenerateHeaderNames())
}

// pathParam reads the node path from repeated path query parameters, one
// per segment.
func pathParam(w http.ResponseWriter, r *http.Request) (structure.NodePath, bool) {
	segs := r.URL.Query()["path"]
	if len(segs) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("missing path parameter"))
		return structure.NodePath{}, false
	}
	return structure.NewNodePath(segs...), true
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, structure.ErrStructure), errors.Is(err, structure.ErrInconsistentValue):
		return http.StatusUnprocessableEntity
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, api.ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v) // client went away
}
