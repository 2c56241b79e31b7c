package handlers

import (
	"errors"
	"log/slog"
	"net/http"
)

type errorKind int

const (
	kindClient errorKind = iota
	kindTranscription
	kindInternal
)

// requestError carries the kind of a failure so the boundary can pick the
// status code. Only client errors expose their message to the caller.
type requestError struct {
	kind errorKind
	msg  string
	err  error
}

func (e *requestError) Error() string {
	if e.err == nil {
		return e.msg
	}
	return e.msg + ": " + e.err.Error()
}

func (e *requestError) Unwrap() error { return e.err }

func clientError(msg string, err error) error {
	return &requestError{kind: kindClient, msg: msg, err: err}
}

func transcriptionError(err error) error {
	return &requestError{kind: kindTranscription, msg: "transcription failed", err: err}
}

func internalError(err error) error {
	return &requestError{kind: kindInternal, msg: "internal server error", err: err}
}

func writeError(w http.ResponseWriter, err error) {
	var re *requestError
	if !errors.As(err, &re) {
		re = &requestError{kind: kindInternal, msg: "internal server error", err: err}
	}

	switch re.kind {
	case kindClient:
		slog.Warn("request rejected", "error", re.Error())
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": re.msg})
	case kindTranscription:
		slog.Error("transcription failed", "error", re.err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": re.msg})
	default:
		slog.Error("unexpected error handling request", "error", re.err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
