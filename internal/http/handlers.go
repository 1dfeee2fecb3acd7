package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"analizador/internal/aggregate"
	"analizador/internal/amqp"
	"analizador/internal/core"
	"analizador/internal/export"
	applog "analizador/internal/log"
	"analizador/internal/loader"
	"analizador/internal/metrics"
	"analizador/internal/render"
	"analizador/internal/storage"
)

// Multipart parts beyond this stay on disk while parsing.
const multipartMemory = 8 << 20

type modeOption struct {
	Slug     string
	Label    string
	Selected bool
}

type indexData struct {
	Files       []storage.FileInfo
	Selected    string
	Modes       []modeOption
	MaxUploadMB int64
}

type previewTab struct {
	Name   string
	Label  string
	Active bool
}

type previewData struct {
	File    string
	Table   string
	Tabs    []previewTab
	Summary loader.Summary
	Columns []core.ColumnInfo
	Header  []string
	Rows    [][]string
	Total   int
	Shown   int
	Message string
}

type chartData struct {
	File    string
	Mode    string
	Title   string
	JSON    string
	PNGURL  string
	Message string
}

type fileOptionsData struct {
	Files    []storage.FileInfo
	Selected string
}

func modeOptions(selected aggregate.Mode) []modeOption {
	out := make([]modeOption, 0, len(aggregate.Modes()))
	for _, m := range aggregate.Modes() {
		out = append(out, modeOption{Slug: m.Slug(), Label: m.Label(), Selected: m == selected})
	}
	return out
}

// render executes a template into a buffer first so that template errors
// still produce a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		InternalServerError("Plantillas no disponibles").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.FieldComponent, applog.ComponentTemplate, "template", name, applog.FieldError, err)
		InternalServerError("Error al generar la página").Write(w)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}

	files, err := s.files.List()
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	params, err := ParseChartParams(r.URL.Query())
	if err != nil {
		params.Mode = aggregate.QualityByMonth
	}
	s.render(w, r, "index.html", indexData{
		Files:       files,
		Selected:    params.File,
		Modes:       modeOptions(params.Mode),
		MaxUploadMB: s.files.MaxBytes >> 20,
	})
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that the server can render pages and store uploads.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if info, err := os.Stat(s.files.UploadDir); err != nil || !info.IsDir() {
		checks["upload_dir"] = "failed: upload directory missing"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["upload_dir"] = "ok"
	}

	stats := s.datasets.Stats()
	checks["dataset_cache"] = map[string]any{
		"entries": stats.Size,
		"hits":    stats.Hits,
		"misses":  stats.Misses,
	}
	checks["rate_limiter"] = map[string]any{"active_clients": s.limiter.ActiveClients()}
	checks["suspicious_requests"] = s.detector.Suspicious()

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleUpload stores the workbook, reloads it and tells the page to refresh.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if resp := RequirePOST(r); resp != nil {
		resp.Write(w)
		return
	}
	ctx := r.Context()
	logger := applog.FromContext(ctx)

	if limit := s.files.MaxBytes; limit > 0 {
		// Room for the multipart envelope on top of the file itself.
		limit += 1 << 20
		if r.ContentLength > limit {
			s.uploadFailed(w, r, 0, storage.ErrTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.uploadFailed(w, r, 0, storage.ErrTooLarge)
			return
		}
		s.recorder.RecordUpload(metrics.OutcomeError, 0)
		BadRequestError("Formato de solicitud no válido").Write(w)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.recorder.RecordUpload(metrics.OutcomeError, 0)
		BadRequestError("Seleccione un archivo .xlsx").
			TriggerErrorNotification("Seleccione un archivo .xlsx").
			Write(w)
		return
	}
	defer file.Close()

	path, n, err := s.files.Save(header.Filename, file)
	if err != nil {
		s.uploadFailed(w, r, n, err)
		return
	}
	name := filepath.Base(path)
	s.datasets.Invalidate(fileKey(name))

	ds, err := s.dataset(ctx, name)
	if err != nil {
		s.uploadFailed(w, r, n, err)
		return
	}
	s.recorder.RecordUpload(metrics.OutcomeSuccess, n)
	applog.NewStructuredLogger(logger).LogDatasetLoaded(ctx, name, ds.Identity, ds.Entries.Len(), ds.Families.Len(), ds.Joined.Len())

	s.publish(ctx, name, ds)

	summary := loader.Summarize(ds)
	summary.Source = name
	NewHTMXResponse().
		TriggerDatasetLoaded(name, ds.Joined.Len()).
		TriggerFormReset().
		TriggerSuccessNotification("Archivo cargado: " + name).
		BodyHTML(`<div class="success">` + template.HTMLEscapeString(summary.String()) + `</div>`).
		Write(w)
}

func (s *Server) uploadFailed(w http.ResponseWriter, r *http.Request, n int64, err error) {
	s.recorder.RecordUpload(metrics.OutcomeError, n)
	status := statusFor(err)
	s.logFailure(r, applog.OpUpload, status, err)
	msg := messageFor(err)
	ErrorResponse(status, msg).TriggerErrorNotification(msg).Write(w)
}

// publish announces a loaded dataset. Failures are logged and never reach the user.
func (s *Server) publish(ctx context.Context, name string, ds *core.Dataset) {
	// The request may be cancelled as soon as the response is written.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), amqp.DefaultPublishTimeout)
	defer cancel()
	if err := s.publisher.PublishDatasetLoaded(ctx, amqp.NewDatasetLoadedMessage(name, ds)); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Failed to publish dataset event",
			applog.FieldOperation, applog.OpPublish, applog.FieldFile, name, applog.FieldError, err)
	}
}

func (s *Server) handleFileOptions(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	files, err := s.files.List()
	if err != nil {
		s.fail(w, r, applog.OpList, err)
		return
	}
	s.render(w, r, "file_options", fileOptionsData{Files: files, Selected: ParseFile(r.URL.Query())})
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	files, err := s.files.List()
	if err != nil {
		s.failJSON(w, r, applog.OpList, err)
		return
	}
	_, hasDefault := s.files.DefaultFile()
	writeJSON(w, http.StatusOK, map[string]any{
		"files":   files,
		"default": hasDefault,
	})
}

// handlePreview renders the first rows of one table plus its column types.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	query := r.URL.Query()
	data := previewData{File: ParseFile(query), Table: ParseTable(query)}
	for _, tab := range []previewTab{
		{Name: TableEntries, Label: "Entradas"},
		{Name: TableFamilies, Label: "Familias"},
		{Name: TableJoined, Label: "Datos Combinados"},
	} {
		tab.Active = tab.Name == data.Table
		data.Tabs = append(data.Tabs, tab)
	}

	ds, err := s.dataset(r.Context(), data.File)
	if errors.Is(err, core.ErrNoData) {
		data.Message = core.UserMessage(err)
		s.render(w, r, "preview", data)
		return
	}
	if err != nil {
		s.fail(w, r, applog.OpLoad, err)
		return
	}

	t := pickTable(ds, data.Table)
	head := t.Head(PreviewRows)
	data.Summary = loader.Summarize(ds)
	data.Columns = t.ColumnTypes()
	data.Header = t.Columns
	data.Total = t.Len()
	data.Shown = head.Len()
	data.Rows = make([][]string, len(head.Rows))
	for i, row := range head.Rows {
		cells := make([]string, len(row))
		for j, v := range row {
			cells[j] = v.String()
		}
		data.Rows[i] = cells
	}
	s.render(w, r, "preview", data)
}

// chart loads the dataset and aggregates it, recording the aggregation time.
func (s *Server) chart(ctx context.Context, p ChartParams) (*aggregate.ChartData, error) {
	ds, err := s.dataset(ctx, p.File)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	cd, err := aggregate.Aggregate(ds.Joined, p.Mode)
	if err != nil {
		return nil, err
	}
	s.recorder.RecordAggregation(p.Mode.Slug(), time.Since(start))
	return cd, nil
}

// handleChartPanel renders the chart partial; the page script draws it
// from the embedded JSON.
func (s *Server) handleChartPanel(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	p, err := ParseChartParams(r.URL.Query())
	if err != nil {
		s.fail(w, r, applog.OpAggregate, err)
		return
	}
	data := chartData{File: p.File, Mode: p.Mode.Slug(), Title: p.Mode.Title()}

	cd, err := s.chart(r.Context(), p)
	switch {
	case errors.Is(err, core.ErrNoData):
		data.Message = core.UserMessage(err)
	case err != nil:
		s.fail(w, r, applog.OpAggregate, err)
		return
	default:
		raw, err := json.Marshal(cd)
		if err != nil {
			s.fail(w, r, applog.OpAggregate, err)
			return
		}
		data.JSON = string(raw)
		data.PNGURL = "/chart.png?" + chartQuery(p)
	}
	s.render(w, r, "chart", data)
}

func (s *Server) handleChartJSON(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	p, err := ParseChartParams(r.URL.Query())
	if err != nil {
		s.failJSON(w, r, applog.OpAggregate, err)
		return
	}
	cd, err := s.chart(r.Context(), p)
	if err != nil {
		s.failJSON(w, r, applog.OpAggregate, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, cd)
}

func (s *Server) handleChartPNG(w http.ResponseWriter, r *http.Request) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	p, err := ParseChartParams(r.URL.Query())
	if err != nil {
		s.fail(w, r, applog.OpRender, err)
		return
	}
	cd, err := s.chart(r.Context(), p)
	if err != nil {
		s.fail(w, r, applog.OpRender, err)
		return
	}
	var buf bytes.Buffer
	if err := render.PNG(&buf, cd, p.Width, p.Height); err != nil {
		s.fail(w, r, applog.OpRender, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.handleExport(w, r, export.CSVFileName, "text/csv; charset=utf-8", func(buf *bytes.Buffer, ds *core.Dataset) error {
		return export.WriteCSV(buf, ds.Joined)
	})
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.handleExport(w, r, export.XLSXFileName,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		func(buf *bytes.Buffer, ds *core.Dataset) error { return export.WriteXLSX(buf, ds) })
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, filename, contentType string, write func(*bytes.Buffer, *core.Dataset) error) {
	if resp := RequireGET(r); resp != nil {
		resp.Write(w)
		return
	}
	ds, err := s.dataset(r.Context(), ParseFile(r.URL.Query()))
	if err != nil {
		s.fail(w, r, applog.OpExport, err)
		return
	}
	var buf bytes.Buffer
	if err := write(&buf, ds); err != nil {
		s.fail(w, r, applog.OpExport, err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", attachment(filename))
	_, _ = buf.WriteTo(w)
}
