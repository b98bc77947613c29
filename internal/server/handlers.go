package server

import (
	"encoding/json"
	stderrs "errors"
	"io"
	"net/http"

	logging "github.com/Station-Manager/weblog"
)

const maxBodyBytes = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, "OK", map[string]any{
		"env":               s.cfg.Server.Base.Env,
		"app_rotations":     s.svc.AppSink().Rotations(),
		"request_rotations": s.svc.RequestSink().Rotations(),
	})
}

// handleEcho decodes a JSON body and returns it. Malformed bodies are
// answered with 400 and logged on the catch_json channel.
func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	var body any
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(&body); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if stderrs.As(err, &syntaxErr) || stderrs.As(err, &typeErr) || stderrs.Is(err, io.ErrUnexpectedEOF) || stderrs.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			s.jsonLog.Error(err.Error())
			s.jsonLog.DebugWith().Err(err).Str("correlationId", logging.CorrelationID(r.Context())).Send()
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to read request body")
		s.appLog.ErrorWith().Err(err).Msg("Reading request body failed")
		return
	}
	writeJSON(w, http.StatusOK, "OK", body)
}

func (s *Server) handleNotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, "Resource Not Found")
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}
