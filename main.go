package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"taeu.kr/invoicedesk/internal/config"
	"taeu.kr/invoicedesk/internal/extract"
	"taeu.kr/invoicedesk/internal/google"
	"taeu.kr/invoicedesk/internal/invoice"
	"taeu.kr/invoicedesk/internal/library"
	libraryhandler "taeu.kr/invoicedesk/internal/library/handler"
	librarystore "taeu.kr/invoicedesk/internal/library/store"
	"taeu.kr/invoicedesk/internal/platform/database"
	"taeu.kr/invoicedesk/internal/platform/web"
	"taeu.kr/invoicedesk/internal/session"
	"taeu.kr/invoicedesk/internal/spa"
	"taeu.kr/invoicedesk/internal/status"
)

var goEnv string = "development"

type app struct {
	handler  http.Handler
	sessions *session.Manager
}

func setupLogger() {
	zerolog.TimeFieldFormat = time.RFC3339
	if goEnv == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
		return
	}
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly})
}

func main() {
	_ = godotenv.Load()
	setupLogger()

	log.Info().Str("environment", goEnv).Msg("[Main] Starting Server...")
	config.SetConfig(goEnv)

	db, err := database.NewDB()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, db, config.Conf)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize application")
	}
	go a.sessions.Run(ctx)

	server := &http.Server{
		Addr:              ":" + config.Conf.Server.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("port", config.Conf.Server.Port).Msg("Server is running")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.Conf.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// newApp은 저장소, 서비스, 핸들러를 조립합니다
func newApp(ctx context.Context, db *sql.DB, cfg config.Config) (*app, error) {
	var extractor library.InvoiceExtractor
	if e := extract.NewFromConfig(cfg.Extraction); e != nil {
		extractor = e
	}

	libraryService := library.NewService(
		librarystore.NewFolderStore(db),
		librarystore.NewFileStore(db),
		extractor,
		library.Options{
			TrashName:          cfg.Library.TrashName,
			Locale:             cfg.Library.Locale,
			AcceptCSV:          cfg.Library.AcceptCSV,
			MaxUploadBytes:     cfg.Library.MaxUploadBytes,
			ExtractConcurrency: cfg.Extraction.Concurrency,
		},
	)
	if _, err := libraryService.EnsureTrashFolder(ctx); err != nil {
		return nil, err
	}

	googleClient := google.NewClient(cfg.Google.Endpoint)
	sessions := session.NewManager(googleClient, session.Config{
		Secret:        cfg.Session.Secret,
		Issuer:        cfg.Session.Issuer,
		TTL:           cfg.Session.TTL,
		CheckInterval: cfg.Session.CheckInterval,
	})

	invoiceService := invoice.NewService(libraryService, invoice.NewRenderer(invoice.Fonts{
		Regular: cfg.Invoice.FontRegular,
		Bold:    cfg.Invoice.FontBold,
	}))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		_ = web.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	config.NewHandler().RegisterRoutes(mux)
	libraryhandler.NewHandler(libraryService, cfg.Library.MaxUploadBytes).RegisterRoutes(mux)
	invoice.NewHandler(invoiceService).RegisterRoutes(mux)
	session.NewHandler(sessions).RegisterRoutes(mux)
	google.NewHandler(googleClient, libraryService, google.NewSheetsImporter(googleClient, libraryService)).RegisterRoutes(mux)
	status.NewHandler(db, libraryService, sessions, status.Features{
		Extraction: extractor != nil,
		Google:     cfg.Google.ClientID != "",
	}, cfg.Server.Port).RegisterRoutes(mux)

	if cfg.Server.WebDir != "" {
		spaHandler, err := spa.NewHandler(os.DirFS(cfg.Server.WebDir))
		if err != nil {
			log.Warn().Err(err).Str("dir", cfg.Server.WebDir).Msg("frontend build not found, serving API only")
		} else {
			mux.Handle("GET /", spaHandler)
		}
	}

	var handler http.Handler = mux
	handler = sessions.Middleware(handler)
	handler = web.Logger(handler)
	handler = cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept"},
		ExposedHeaders:   []string{invoice.FileIDHeader, "Content-Disposition"},
		AllowCredentials: true,
	}).Handler(handler)

	return &app{handler: handler, sessions: sessions}, nil
}
