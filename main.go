package main

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"attendance-tracker/internal/attendance"
	"attendance-tracker/internal/platform/config"
	"attendance-tracker/internal/platform/db"
	"attendance-tracker/internal/platform/logger"
	"attendance-tracker/internal/platform/middleware"
)

// 案内ページを埋め込む
//
//go:embed public
var embedded embed.FS

func newRootCommand() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:           "attendance-server",
		Short:         "Serve the attendance record store and landing page",
		Args:          cobra.NoArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), configPath)
		},
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "path to config.yaml")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serve(ctx context.Context, configPath string) error {
	// 設定読み込み
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	log, err := logger.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting attendance server", zap.String("mode", cfg.Mode), zap.String("backend", cfg.Store.Backend))

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer closeStore()

	r, err := newRouter(cfg, log, attendance.NewService(store, log.Named("attendance")))
	if err != nil {
		return fmt.Errorf("build router: %w", err)
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Graceful shutdown
	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore: store.backend に応じてストアを開く
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (attendance.RecordStore, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendMySQL:
		conn, err := db.Connect(ctx, cfg.Store.Database)
		if err != nil {
			return nil, nil, err
		}
		store := attendance.NewMySQLStore(conn)
		if err := store.Migrate(ctx); err != nil {
			_ = conn.Close()
			return nil, nil, err
		}
		log.Info("connected to DB", zap.String("dbname", cfg.Store.Database.DBName))
		return store, closeDB(conn, log), nil
	default:
		log.Info("using spreadsheet store", zap.String("path", cfg.Store.XLSXPath))
		return attendance.NewXLSXStore(cfg.Store.XLSXPath), func() {}, nil
	}
}

func closeDB(conn *sql.DB, log *zap.Logger) func() {
	return func() {
		if err := conn.Close(); err != nil {
			log.Warn("close db failed", zap.Error(err))
		}
	}
}

func newRouter(cfg *config.Config, log *zap.Logger, svc *attendance.Service) (*gin.Engine, error) {
	if cfg.Mode == config.ModeDev {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(log.Named("http")), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == config.ModeDev {
		// CORS（開発中のみ必要）
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.Server.CORSOrigins,
			AllowHeaders:     []string{"Origin", "Content-Type", middleware.RequestIDHeader},
			ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
			AllowMethods:     []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowCredentials: true,
		}))
	}

	// ヘルス
	r.GET("/healthz", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	api := r.Group("/api")
	attendance.RegisterRoutes(api, svc)

	sub, err := fs.Sub(embedded, "public")
	if err != nil {
		return nil, err
	}
	r.NoRoute(staticFallback(http.FS(sub)))
	return r, nil
}

// staticFallback: 実ファイルがあれば返し、なければ index.html
func staticFallback(fileFS http.FileSystem) gin.HandlerFunc {
	return func(c *gin.Context) {
		// API は対象外
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, attendance.ResultResponse{Success: false, Message: "Not found", Code: attendance.CodeNotFound})
			return
		}

		reqPath := strings.TrimPrefix(c.Request.URL.Path, "/")
		if reqPath == "" {
			reqPath = "index.html"
		}

		if serveFile(c, fileFS, reqPath) {
			return
		}
		if serveFile(c, fileFS, "index.html") {
			return
		}
		c.Status(http.StatusNotFound)
	}
}

func serveFile(c *gin.Context, fileFS http.FileSystem, name string) bool {
	f, err := fileFS.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		return false
	}
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		c.Header("Content-Type", ct)
	}
	// index.html 以外はキャッシュ
	if !strings.HasSuffix(name, "index.html") {
		c.Header("Cache-Control", "public, max-age=86400")
	}
	http.ServeContent(c.Writer, c.Request, name, info.ModTime(), f)
	return true
}
