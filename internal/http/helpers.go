package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"analizador/internal/core"
	applog "analizador/internal/log"
	"analizador/internal/render"
	"analizador/internal/sheets/xlsx"
	"analizador/internal/storage"
)

// fileKey names an uploaded workbook in the dataset cache.
func fileKey(name string) string { return "file:" + name }

// dataset resolves the workbook a request points at: an uploaded file when
// file is set, the configured default source otherwise.
func (s *Server) dataset(ctx context.Context, file string) (*core.Dataset, error) {
	if file == "" {
		if s.source == nil {
			return nil, core.ErrNoData
		}
		src, err := s.source.Open(ctx)
		if err != nil {
			return nil, err
		}
		if c, ok := src.(io.Closer); ok {
			defer c.Close()
		}
		return s.datasets.Load(ctx, s.source.Key(), src)
	}

	path, err := s.files.Path(file)
	if err != nil {
		return nil, err
	}
	r, err := xlsx.Open(path)
	if err != nil {
		return nil, &core.LoadError{Source: file, Err: err}
	}
	defer r.Close()
	return s.datasets.Load(ctx, fileKey(file), r)
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrNoData), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrUnknownMode):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrLoad), errors.Is(err, core.ErrMissingColumn),
		errors.Is(err, storage.ErrInvalidName), errors.Is(err, storage.ErrNotWorkbook),
		errors.Is(err, render.ErrNoSeries):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the one message the user sees for err.
func messageFor(err error) string {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return "Archivo no encontrado"
	case errors.Is(err, storage.ErrInvalidName):
		return "Nombre de archivo no válido"
	case errors.Is(err, storage.ErrNotWorkbook):
		return "Solo se aceptan archivos .xlsx"
	case errors.Is(err, storage.ErrTooLarge):
		return "El archivo supera el tamaño máximo permitido"
	case errors.Is(err, render.ErrNoSeries):
		return "No hay datos suficientes para generar el gráfico"
	default:
		return core.UserMessage(err)
	}
}

// logFailure logs err at a level matching its status.
func (s *Server) logFailure(r *http.Request, op string, status int, err error) {
	logger := applog.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		applog.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err,
			applog.ComponentHTTP, op, applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", ""))
		return
	}
	logger.WarnContext(r.Context(), "Request rejected", applog.FieldOperation, op,
		applog.FieldStatusCode, status, applog.FieldError, err.Error())
}

// fail writes err as an HTML fragment for HTMX targets.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	s.logFailure(r, op, status, err)
	ErrorResponse(status, messageFor(err)).Write(w)
}

// failJSON writes err as {"error": "..."}.
func (s *Server) failJSON(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := statusFor(err)
	s.logFailure(r, op, status, err)
	writeJSON(w, status, map[string]string{"error": messageFor(err)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// attachment builds a Content-Disposition value for a download.
func attachment(filename string) string {
	return mime.FormatMediaType("attachment", map[string]string{"filename": filename})
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// formatBytes renders a file size for the file list.
func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return strconv.FormatInt(n, 10) + " B"
	}
}

var templateFuncs = template.FuncMap{
	"bytes": formatBytes,
}
