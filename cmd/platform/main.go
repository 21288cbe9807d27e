package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/emprendopolis/Plataforma-sub001/internal/config"
	"github.com/emprendopolis/Plataforma-sub001/internal/csvio"
	"github.com/emprendopolis/Plataforma-sub001/internal/files"
	"github.com/emprendopolis/Plataforma-sub001/internal/history"
	"github.com/emprendopolis/Plataforma-sub001/internal/record"
	"github.com/emprendopolis/Plataforma-sub001/internal/schema"
	"github.com/emprendopolis/Plataforma-sub001/internal/server"
	"github.com/emprendopolis/Plataforma-sub001/internal/users"
	"github.com/emprendopolis/Plataforma-sub001/internal/usertoken"
	"github.com/emprendopolis/Plataforma-sub001/internal/util"
	"github.com/emprendopolis/Plataforma-sub001/pkg/storage"
)

func main() {
	cfg, err := config.Load(config.ConfigPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)
	jwtLeeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
	if err != nil {
		log.Fatalf("failed to parse jwt leeway: %v", err)
	}
	tokenVerifier, err := usertoken.NewVerifier(usertoken.Config{
		Secret:   cfg.JWTSecret,
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		Leeway:   jwtLeeway,
	})
	if err != nil {
		log.Fatalf("failed to init token verifier: %v", err)
	}

	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{Logger: gormLog})
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}

	objects, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		log.Fatalf("failed to init object store: %v", err)
	}

	catalog, err := schema.NewCatalog(db)
	if err != nil {
		log.Fatalf("failed to init table catalog: %v", err)
	}
	definer := schema.NewDefiner(db, catalog)
	synth := schema.NewSynthesizer(db)
	hist, err := history.NewLog(db)
	if err != nil {
		log.Fatalf("failed to init history log: %v", err)
	}
	records := record.NewService(db, synth, hist)
	csvBridge := csvio.NewBridge(db, synth)
	ledger, err := files.NewLedger(db, objects, hist, time.Duration(cfg.PresignTTLSeconds)*time.Second)
	if err != nil {
		log.Fatalf("failed to init file ledger: %v", err)
	}

	directory, err := users.NewDirectory(db)
	if err != nil {
		log.Fatalf("failed to init user directory: %v", err)
	}
	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		if err := directory.EnsureAdmin(cfg.AdminUsername, cfg.AdminPassword); err != nil {
			log.Fatalf("failed to seed admin user: %v", err)
		}
	}

	httpServer, err := server.New(server.Config{
		Schema:            definer,
		Records:           records,
		History:           hist,
		Files:             ledger,
		CSV:               csvBridge,
		Objects:           objects,
		TokenVerifier:     tokenVerifier,
		RedisAddr:         cfg.RedisAddr,
		RedisPassword:     cfg.RedisPassword,
		CsvRateLimit:      cfg.CsvUploadRateLimitPerMinute,
		BulkRateLimit:     cfg.BulkUpdateRateLimitPerMinute,
		MaxUploadBytes:    cfg.MaxUploadBytes,
		AllowedExtensions: cfg.AllowedExtensions,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("platform server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("server error", "err", err)
	}
}
