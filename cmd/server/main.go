package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/huddlechat/huddle/internal/api"
	"github.com/huddlechat/huddle/internal/config"
	"github.com/huddlechat/huddle/internal/server"
	"github.com/huddlechat/huddle/internal/stats"
	"github.com/huddlechat/huddle/internal/store"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	historyLimit   int
	allowedOrigins stringSliceFlag
)

func main() {
	_ = godotenv.Load()

	logger := log.New(os.Stderr, "[huddle] ", log.LstdFlags)

	envCfg, err := config.FromEnv()
	if err != nil {
		logger.Fatal("config:", err)
	}

	flag.StringVar(&addr, "addr", envCfg.ServerAddr, "server address")
	flag.StringVar(&dsn, "dsn", envCfg.DatabaseDSN, "postgres connection string for the message archive (empty for memory-only)")
	flag.IntVar(&historyLimit, "history-limit", envCfg.HistoryLimit, "max in-memory messages kept per room (0 for unlimited)")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	if len(allowedOrigins) == 0 {
		allowedOrigins = envCfg.AllowedOrigins
	}

	cfg, err := config.NewConfig(addr, dsn, allowedOrigins, historyLimit)
	if err != nil {
		logger.Fatal("config:", err)
	}

	var archive store.MessageArchive
	if cfg.DatabaseDSN != "" {
		pgArchive, err := store.NewPgArchive(cfg.DatabaseDSN, logger)
		if err != nil {
			// Memory-only is a supported mode, not a startup failure.
			logger.Println("message archive unavailable, running memory-only:", err)
		} else {
			archive = pgArchive
			defer func() {
				if err := pgArchive.Close(); err != nil {
					logger.Println("archive close:", err)
				}
			}()
		}
	}

	roomStore := store.NewMemStore(logger, archive, cfg.HistoryLimit)
	defer roomStore.Close()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	chatServer, err := server.NewChatServer(logger, roomStore, statsUpdater)
	if err != nil {
		logger.Fatal("new chat server:", err)
	}

	srv := api.NewHuddleApp(mux, logger, chatServer, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go chatServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down chat server...")
	if err := chatServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("chat server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
