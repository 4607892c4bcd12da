package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"gradeway-backend/lib/browserutil"
	"gradeway-backend/lib/configutil"
	"gradeway-backend/lib/gradestore"
	"gradeway-backend/lib/scrapers/qconnect"
	"gradeway-backend/lib/serviceutil"
	"gradeway-backend/lib/telemetry"
	"gradeway-backend/services/gradeway"
)

type Config struct {
	Server struct {
		Port           int      `json:"port"`
		AllowedOrigins []string `json:"allowed_origins"`
	} `json:"server"`
	Qconnect struct {
		qconnect.Config
		// the portal serves an empty shell to headless signatures,
		// so the default is a real window
		Headless   bool   `json:"headless"`
		BrowserBin string `json:"browser_bin"`
	} `json:"qconnect"`
	Gradestore struct {
		Database string `json:"database"`
	} `json:"gradestore"`
}

func main() {
	verbose := flag.Bool("v", false, "enable verbose logging")
	flag.Parse()
	telemetry.InitSlog(*verbose)

	config, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config.json5", err)
	}

	ctx := serviceutil.SignalContext()

	err = telemetry.SetupFromEnv(ctx, "gradeway-server")
	if err != nil && !os.IsNotExist(err) {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer telemetry.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	session := browserutil.NewSession(browserutil.Config{
		Headless: config.Qconnect.Headless,
		Bin:      config.Qconnect.BrowserBin,
	})
	defer session.Release()
	scraper := qconnect.NewScraper(session, config.Qconnect.Config)

	var store *gradestore.Store
	if config.Gradestore.Database != "" {
		database, err := gradestore.Open(config.Gradestore.Database)
		if err != nil {
			serviceutil.Fatal("failed to open the grade store", err)
		}
		defer database.Close()
		s := gradestore.NewStore(database)
		store = &s
	}

	if !*verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	if len(config.Server.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = config.Server.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))

	gradeway.NewService(scraper, store).Register(router)

	port := config.Server.Port
	if port == 0 {
		port = 8111
	}
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: router,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	slog.Info("listening", "port", port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		serviceutil.Fatal("server exited", err)
	}
}
