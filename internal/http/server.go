package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"analizador/internal/amqp"
	"analizador/internal/backend"
	applog "analizador/internal/log"
	"analizador/internal/loader"
	"analizador/internal/metrics"
	"analizador/internal/middleware/ratelimit"
	"analizador/internal/middleware/security"
	"analizador/internal/middleware/trace"
	"analizador/internal/storage"
	appweb "analizador/web"
)

// Options wires the server to its collaborators. Files and Datasets are
// required; everything else has a usable default.
type Options struct {
	Addr string

	Files    *storage.FileStore
	Default  backend.Source
	Datasets *loader.Cache

	Metrics   *metrics.Metrics
	Publisher amqp.Publisher
	Logger    *applog.Logger

	// UploadLimit throttles POST /upload per client.
	UploadLimit ratelimit.Config
}

type Server struct {
	http.Server
	templates *template.Template
	logger    *applog.Logger

	files    *storage.FileStore
	source   backend.Source
	datasets *loader.Cache

	recorder  metrics.Recorder
	metrics   *metrics.Metrics
	publisher amqp.Publisher

	limiter  *ratelimit.Limiter
	detector *security.Detector

	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentHTTP)

	s := &Server{
		Server:    http.Server{Addr: opts.Addr, ReadHeaderTimeout: 10 * time.Second},
		logger:    logger,
		files:     opts.Files,
		source:    opts.Default,
		datasets:  opts.Datasets,
		recorder:  metrics.Nop{},
		metrics:   opts.Metrics,
		publisher: opts.Publisher,
		limiter:   ratelimit.NewLimiter(opts.UploadLimit),
		detector:  security.NewDetector(),
		started:   time.Now(),
	}
	if opts.Metrics != nil {
		s.recorder = opts.Metrics
	}
	if s.publisher == nil {
		s.publisher = amqp.Nop{}
	}

	// Parse embedded templates at startup.
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Warn("Failed parsing templates", applog.FieldError, err)
		t = nil
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", applog.FieldError, err)
	}

	upload := s.limiter.Middleware(s.detector.ExtractClientIP, s.rejectUpload)

	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.Handle("/upload", upload(http.HandlerFunc(s.handleUpload)))
	// UI partials
	mux.HandleFunc("/ui/files", s.handleFileOptions)
	mux.HandleFunc("/ui/preview", s.handlePreview)
	mux.HandleFunc("/ui/chart", s.handleChartPanel)
	// Data
	mux.HandleFunc("/api/files", s.handleListFiles)
	mux.HandleFunc("/api/chart", s.handleChartJSON)
	mux.HandleFunc("/chart.png", s.handleChartPNG)
	mux.Handle("/export.csv", security.NoStore(http.HandlerFunc(s.handleExportCSV)))
	mux.Handle("/export.xlsx", security.NoStore(http.HandlerFunc(s.handleExportXLSX)))
	if opts.Metrics != nil {
		mux.Handle("/metrics", opts.Metrics.Handler())
	}

	var handler http.Handler = mux
	handler = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(handler)
	if opts.Metrics != nil {
		handler = s.detector.Middleware(opts.Metrics)(handler)
		handler = trace.NewMiddleware(logger, s.detector.ExtractClientIP, opts.Metrics).Middleware(handler)
	} else {
		handler = s.detector.Middleware(nil)(handler)
		handler = trace.NewMiddleware(logger, s.detector.ExtractClientIP, nil).Middleware(handler)
	}
	s.Handler = handler

	return s
}

// Shutdown stops background work and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) rejectUpload(w http.ResponseWriter, r *http.Request) {
	s.recorder.RecordUpload(metrics.OutcomeError, 0)
	if s.metrics != nil {
		s.metrics.RecordRejected("rate_limit")
	}
	ErrorResponse(http.StatusTooManyRequests, "Demasiadas subidas, intente de nuevo en un momento.").
		TriggerErrorNotification("Demasiadas subidas, intente de nuevo en un momento.").
		Write(w)
}
