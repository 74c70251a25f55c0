package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/icco/gutil/logging"
	"github.com/microcosm-cc/bluemonday"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/unrolled/render"
	"github.com/unrolled/secure"
	"github.com/yeomin4242/guesswhat"
	"github.com/yeomin4242/guesswhat/auth"
	"github.com/yeomin4242/guesswhat/cmd/server/docs"
	"github.com/yeomin4242/guesswhat/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// Renderer is a renderer for all occasions. These are our preferred default options.
	// See:
	//  - https://github.com/unrolled/render/blob/v1/README.md
	//  - https://godoc.org/gopkg.in/unrolled/render.v1
	Renderer = render.New(render.Options{
		Charset:                   "UTF-8",
		DisableHTTPErrorRendering: false,
		IndentJSON:                false,
		Funcs:                     []template.FuncMap{},
	})

	log       = logging.Must(logging.NewLogger(guesswhat.Service))
	ugcPolicy = bluemonday.StrictPolicy()
)

// App holds the collaborators shared by all handlers.
type App struct {
	cfg      *Config
	db       *gorm.DB
	store    storage.Store
	gateway  auth.Gateway
	promoter *guesswhat.Promoter
	uploads  *ipRateLimiter

	// rand shuffles questions on the play endpoint. Nil uses the global source.
	rand *rand.Rand
}

// NewApp wires an App. The store is wrapped so media moves are counted.
func NewApp(cfg *Config, db *gorm.DB, store storage.Store, gateway auth.Gateway) (*App, error) {
	policy, err := guesswhat.ParsePolicy(cfg.PromotionPolicy)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:     cfg,
		db:      db,
		store:   store,
		gateway: gateway,
		promoter: guesswhat.NewPromoter(countingMover{store}, guesswhat.PromoterConfig{
			Origin:      cfg.SupabaseURL,
			Bucket:      cfg.StorageBucket,
			Policy:      policy,
			Concurrency: cfg.PromoteConcurrency,
			Logger:      log,
		}),
		uploads: newIPRateLimiter(cfg.UploadRatePerMinute, cfg.UploadBurst),
	}, nil
}

// @title GuessWhat API
// @version 1.0
// @description Quiz authoring and browsing API
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Access token in format: Bearer {token}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatalw("could not load config", zap.Error(err))
	}
	log.Infow("Starting up", "port", cfg.Port, "env", cfg.Env)

	db, err := openDB(cfg, log.Desugar())
	if err != nil {
		log.Fatalw("could not get db", zap.Error(err))
	}

	store, err := newStore(cfg)
	if err != nil {
		log.Fatalw("could not set up storage", zap.Error(err))
	}

	app, err := NewApp(cfg, db, store, newGateway(cfg))
	if err != nil {
		log.Fatalw("could not build app", zap.Error(err))
	}

	shutdownMetrics, err := setupOtel()
	if err != nil {
		log.Fatalw("could not set up metrics", zap.Error(err))
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(logging.Middleware(log.Desugar()))
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Mount("/", app.Routes())

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        otelhttp.NewHandler(r, guesswhat.Service),
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	go func() {
		for range time.Tick(10 * time.Minute) {
			app.uploads.Prune(time.Hour)
		}
	}()

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalw("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Errorw("shutdown failed", zap.Error(err))
	}
	if err := shutdownMetrics(ctx); err != nil {
		log.Errorw("metrics shutdown failed", zap.Error(err))
	}
}

func newStore(cfg *Config) (storage.Store, error) {
	if cfg.StorageDriver == "memory" {
		log.Warnw("using in-memory media storage")
		return storage.NewMemory(cfg.SupabaseURL, cfg.StorageBucket), nil
	}

	return storage.NewSupabase(storage.Config{
		URL:    cfg.SupabaseURL,
		Key:    cfg.SupabaseServiceKey,
		Bucket: cfg.StorageBucket,
	})
}

// newGateway verifies tokens locally when the signing secret is known and
// asks the provider otherwise.
func newGateway(cfg *Config) auth.Gateway {
	if cfg.SupabaseJWTSecret != "" {
		return auth.NewJWT(cfg.SupabaseJWTSecret, auth.DefaultAudience)
	}

	return auth.NewSupabase(cfg.SupabaseURL, cfg.SupabaseAnonKey, nil)
}

// Routes builds the API router.
func (a *App) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Use(cors.New(cors.Options{
		AllowCredentials:   true,
		OptionsPassthrough: false,
		AllowedOrigins:     a.cfg.CORSOrigins,
		AllowedMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:     []string{"Link"},
		MaxAge:             300, // Maximum value not ignored by any of major browsers
	}).Handler)

	r.NotFound(notFoundHandler)

	r.Group(func(r chi.Router) {
		r.Use(secure.New(secure.Options{
			BrowserXssFilter:     true,
			ContentTypeNosniff:   true,
			FrameDeny:            true,
			HostsProxyHeaders:    []string{"X-Forwarded-Host"},
			IsDevelopment:        a.cfg.IsDev(),
			SSLProxyHeaders:      map[string]string{"X-Forwarded-Proto": "https"},
			SSLRedirect:          false,
			STSIncludeSubdomains: true,
			STSPreload:           true,
			STSSeconds:           315360000,
		}).Handler)
		r.Use(a.sslRedirect)
		r.Use(a.authGuard)

		r.Get("/", rootHandler)
		r.Get("/healthz", healthCheckHandler)
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))

		r.Route("/api", func(r chi.Router) {
			r.Get("/game", a.listGamesHandler)
			r.Get("/game/detail", a.gameDetailHandler)
			r.Get("/game/edit", a.editGameHandler)
			r.Post("/game/create", a.createGameHandler)
			r.Post("/game/update", a.updateGameHandler)

			r.With(middleware.ThrottleBacklog(10, 50, 30*time.Second)).
				Post("/auth/oauth/register", a.registerHandler)

			r.Get("/profile/me", a.profileHandler)
			r.Post("/profile/update", a.updateProfileHandler)

			r.Group(func(r chi.Router) {
				r.Use(a.uploads.Middleware)
				r.Post("/storage/upload", a.uploadHandler)
			})
			r.Post("/storage/remove", a.removeMediaHandler)
		})
	})

	return r
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports build information.
type HealthResponse struct {
	Healthy  string `json:"healthy"`
	Revision string `json:"revision"`
	Tag      string `json:"tag"`
	Branch   string `json:"branch"`
}

func renderJSON(w http.ResponseWriter, status int, v interface{}) {
	if err := Renderer.JSON(w, status, v); err != nil {
		log.Errorw("failed to render JSON", zap.Error(err))
	}
}

func renderError(w http.ResponseWriter, status int, msg string) {
	renderJSON(w, status, ErrorResponse{Error: msg})
}

// @Summary Get API information
// @Description Returns an HTML index of the available endpoints
// @Tags info
// @Produce html
// @Success 200 {string} string "HTML page with API information"
// @Router / [get]
func rootHandler(w http.ResponseWriter, r *http.Request) {
	html := `<html>
  <head><title>GuessWhat API</title></head>
  <body>
    <h1>GuessWhat API</h1>
    <p><a href="/swagger/">View Swagger Documentation</a></p>
    <ul>`

	spec, err := docs.GetSwaggerSpec()
	if err != nil {
		log.Errorw("failed to parse swagger spec", zap.Error(err))
	} else {
		for _, e := range spec.Endpoints() {
			html += fmt.Sprintf("\n      <li><b>%s</b> %s - %s</li>",
				e.Method, template.HTMLEscapeString(e.Path), template.HTMLEscapeString(e.Summary))
		}
	}

	html += `
    </ul>
  </body>
</html>`

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(html)); err != nil {
		log.Errorw("failed to write response", zap.Error(err))
	}
}

// @Summary Health check
// @Description Reports that the service is up along with build information
// @Tags info
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /healthz [get]
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	renderJSON(w, http.StatusOK, HealthResponse{
		Healthy:  "true",
		Revision: os.Getenv("GIT_REVISION"),
		Tag:      os.Getenv("GIT_TAG"),
		Branch:   os.Getenv("GIT_BRANCH"),
	})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	renderError(w, http.StatusNotFound, "404: This page could not be found")
}
