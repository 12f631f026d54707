package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"chat-server/config"
	"chat-server/handlers"
	"chat-server/logger"
	"chat-server/repository"
	mongorepo "chat-server/repository/mongo"
	"chat-server/services"
	"chat-server/sweep"
	"chat-server/ws"
)

type stores struct {
	users  repository.UserRepository
	msgs   repository.MessageRepository
	groups repository.GroupRepository
	words  repository.WordRepository
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Init(logger.Options{Level: cfg.LogLevel, Pretty: cfg.PrettyLogs})

	st, cleanup, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("store setup failed")
	}
	defer cleanup()

	hub := ws.NewHub(log)
	go hub.Run()

	authSvc := services.NewAuthService(st.users, hub, cfg, log)
	censorSvc := services.NewCensorService(st.words, hub, log)
	msgSvc := services.NewMessageService(st.msgs, st.users, st.groups, censorSvc, hub, cfg, log)
	groupSvc := services.NewGroupService(st.groups, hub, log)

	if err := censorSvc.Load(ctx); err != nil {
		log.Fatal().Err(err).Msg("censor word load failed")
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	sweeper := sweep.New(hub, st.users, censorSvc, cfg.SweepInterval, cfg.WordRefreshInterval, log)
	go sweeper.Run(sweepCtx)

	router := handlers.NewRouter(hub, authSvc, msgSvc, groupSvc, censorSvc, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store).Msg("chat server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

// openStores builds the repository set for the configured backend. The
// returned cleanup closes any underlying connections.
func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, func(), error) {
	if cfg.Store != "mongo" {
		log.Info().Msg("using in-memory store")
		return &stores{
			users:  repository.NewInMemoryUserRepo(),
			msgs:   repository.NewInMemoryMessageRepo(),
			groups: repository.NewInMemoryGroupRepo(),
			words:  repository.NewInMemoryWordRepo(),
		}, func() {}, nil
	}

	client, db, err := mongorepo.Connect(ctx, mongorepo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = client.Disconnect(disconnectCtx)
	}

	users := mongorepo.NewUserRepository(db)
	msgs := mongorepo.NewMessageRepository(db)
	groups := mongorepo.NewGroupRepository(db)
	words := mongorepo.NewWordRepository(db)
	for _, idx := range []interface {
		EnsureIndexes(context.Context) error
	}{users, msgs, groups, words} {
		if err := idx.EnsureIndexes(ctx); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	log.Info().Str("db", cfg.Mongo.Database).Msg("using mongo store")
	return &stores{users: users, msgs: msgs, groups: groups, words: words}, cleanup, nil
}
