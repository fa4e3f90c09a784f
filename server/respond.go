package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"

	"github.com/santiagomed/conjure/schema"
)

var errBadRequest = errors.New("bad request")

const maxBodyBytes = 4 << 20

func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	defer r.Body.Close()
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(body).Decode(v); err != nil {
		return fmt.Errorf("%w: error parsing JSON: %v", errBadRequest, err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	l := s.logger.WithField("path", r.URL.Path).WithField("error", err.Error())
	if status >= 500 {
		l.Error("Request failed")
	} else {
		l.Warn("Request rejected")
	}
	writeJSON(w, status, schema.ErrorResponse{Error: err.Error()})
}

// streamWriter flushes every write so the client sees output as it is produced.
type streamWriter struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	written int
}

func newStreamWriter(w http.ResponseWriter) *streamWriter {
	sw := &streamWriter{w: w}
	sw.flusher, _ = w.(http.Flusher)
	return sw
}

func (sw *streamWriter) Write(p []byte) (int, error) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.written == 0 {
		h := sw.w.Header()
		h.Set("Content-Type", "text/plain; charset=utf-8")
		h.Set("Cache-Control", "no-cache")
		h.Set("X-Content-Type-Options", "nosniff")
		sw.w.WriteHeader(http.StatusOK)
	}
	n, err := sw.w.Write(p)
	sw.written += n
	if sw.flusher != nil {
		sw.flusher.Flush()
	}
	return n, err
}

// stream runs fn against a flushing writer. Failures before any output become JSON errors;
// later failures abort the connection so the client cannot mistake a cut stream for a
// complete one. Without incremental delivery the output is held until fn returns and sent
// in one write.
func (s *Server) stream(w http.ResponseWriter, r *http.Request, incremental bool, fn func(io.Writer) error) {
	sw := newStreamWriter(w)
	if !incremental {
		var buf bytes.Buffer
		if err := fn(&buf); err != nil {
			s.writeError(w, r, upstream(err))
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		if buf.Len() == 0 {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			return
		}
		_, _ = sw.Write(buf.Bytes())
		return
	}

	err := fn(sw)
	if err == nil {
		if sw.written == 0 {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
		}
		return
	}
	if sw.written == 0 {
		s.writeError(w, r, upstream(err))
		return
	}
	s.logger.WithField("path", r.URL.Path).WithField("error", err.Error()).Error("Stream interrupted")
	panic(http.ErrAbortHandler)
}

// upstream marks errors without a more specific status as provider failures.
func upstream(err error) error {
	if statusFor(err) == http.StatusInternalServerError {
		return &upstreamError{err}
	}
	return err
}

// upstreamError marks a provider failure.
type upstreamError struct{ err error }

func (e *upstreamError) Error() string { return e.err.Error() }
func (e *upstreamError) Unwrap() error { return e.err }
