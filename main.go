package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/logging"
	"github.com/deemkeen/kinship/db"
	"github.com/deemkeen/kinship/friends"
	"github.com/deemkeen/kinship/metrics"
	"github.com/deemkeen/kinship/middleware"
	"github.com/deemkeen/kinship/notify"
	"github.com/deemkeen/kinship/util"
	"github.com/deemkeen/kinship/web"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	admin := registerAdminFlags(flag.CommandLine)
	flag.Parse()

	conf, err := util.ReadConf()
	if err != nil {
		log.Fatalln(err)
	}

	logger, err := util.NewLogger(conf)
	if err != nil {
		log.Fatalln(err)
	}
	defer logger.Sync()

	logger.Debug("Configuration loaded", zap.String("config", util.PrettyPrint(conf)))

	database, err := db.Open(util.ResolveFilePath(conf.Conf.Database), logger)
	if err != nil {
		logger.Fatal("Could not open database", zap.Error(err))
	}
	defer database.Close()

	if admin.set() {
		if err := admin.run(context.Background(), database, os.Stdout); err != nil {
			logger.Fatal("Account command failed", zap.Error(err))
		}
		return
	}

	queue := notify.NewQueue(util.ResolveFilePath(conf.Conf.EventsFile), logger)
	if err := queue.Load(); err != nil {
		logger.Warn("Starting with an empty event queue", zap.Error(err))
	}

	m := metrics.New()
	settings := friends.SettingsFromConf(conf.Conf.Presence)
	engine := friends.NewEngine(database, queue, settings, m, logger)
	service := friends.NewService(engine, database, database, database, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go engine.RunSweeper(ctx)

	limiter := web.NewLimiter(conf)
	go limiter.RunCleanup(ctx)

	if conf.Conf.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := web.Router(conf, web.Deps{
		Engine:  engine,
		Service: service,
		Tokens:  database,
		Metrics: m,
		Limiter: limiter,
		Logger:  logger,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", conf.Conf.Host, conf.Conf.HttpPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// a long poll may hold the response for the whole poll timeout
		WriteTimeout: settings.PollTimeout + 15*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	startServing(ctx, conf, httpServer, newConsole(conf, engine, logger), logger)
}

func newConsole(conf *util.AppConfig, engine *friends.Engine, logger *zap.Logger) *ssh.Server {
	if !conf.Conf.WithConsole {
		return nil
	}

	admins, err := util.ParseAuthorizedKeys(conf.Conf.AdminKeys)
	if err != nil {
		logger.Fatal("Invalid admin keys", zap.Error(err))
	}
	if len(admins) == 0 {
		logger.Warn("Console enabled without admin keys, nobody will be able to log in")
	}

	s, err := wish.NewServer(
		wish.WithAddress(fmt.Sprintf("%s:%d", conf.Conf.Host, conf.Conf.SshPort)),
		wish.WithHostKeyPath(util.ResolveFilePath(".ssh/hostkey")),
		wish.WithPublicKeyAuth(middleware.PublicKeyHandler(admins, logger)),
		wish.WithMiddleware(
			middleware.MainTui(engine),
			middleware.AuthMiddleware(logger),
			logging.Middleware(), // last middleware executed first
		),
	)
	if err != nil {
		logger.Fatal("Could not create console server", zap.Error(err))
	}
	return s
}

func startServing(ctx context.Context, conf *util.AppConfig, httpServer *http.Server, console *ssh.Server, logger *zap.Logger) {
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	if console != nil {
		go func() {
			logger.Info("Starting SSH console", zap.String("host", conf.Conf.Host), zap.Int("port", conf.Conf.SshPort))
			if err := console.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
				logger.Fatal("SSH console failed", zap.Error(err))
			}
		}()
	}

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", zap.Error(err))
	}
	if console != nil {
		if err := console.Shutdown(shutdownCtx); err != nil {
			logger.Error("SSH console shutdown failed", zap.Error(err))
		}
	}
}
