package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/ava-relay/backend/internal/config"
	"github.com/zhouzirui/ava-relay/backend/internal/logging"
	"github.com/zhouzirui/ava-relay/backend/internal/model/chat"
	"github.com/zhouzirui/ava-relay/backend/internal/model/starter"
	"github.com/zhouzirui/ava-relay/backend/internal/service/conversation"
	"github.com/zhouzirui/ava-relay/backend/internal/service/relay"
	"github.com/zhouzirui/ava-relay/backend/internal/service/remote"
	"github.com/zhouzirui/ava-relay/backend/internal/service/session"
)

// app holds the services shared by every command.
type app struct {
	cfg      *config.Config
	starters starter.Store
	convSvc  *conversation.Service
	relay    *relay.Relay
	state    session.Store
}

func (a *app) Close() error {
	return a.state.Close()
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "ava-relay",
		Short:         "Relay chat UI messages to the Ava chat API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	root.AddCommand(newServeCommand(), newAskCommand(), newStartersCommand())
	return root
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the chat API (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newAskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message>",
		Short: "Send a single message and print the reply",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			conv := a.convSvc.Open(ctx)
			defer func() { _ = a.convSvc.End(ctx, conv.ID) }()

			var failed bool
			sink := a.convSvc.Sink(conv.ID, func(m chat.Message) error {
				if m.Kind == chat.KindError {
					failed = true
					_, err := fmt.Fprintln(cmd.ErrOrStderr(), m.Content)
					return err
				}
				_, err := fmt.Fprintln(cmd.OutOrStdout(), m.Content)
				return err
			})
			a.relay.OnMessage(ctx, a.convSvc.State(conv.ID), sink, strings.Join(args, " "))

			if failed {
				return errors.New("relay failed")
			}
			return nil
		},
	}
}

func newStartersCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "starters",
		Short: "List the starter prompts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range newStarterStore().List() {
				if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", s.Label, s.Message); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

// newStarterStore is the single registration point for starter prompts.
func newStarterStore() starter.Store {
	return starter.NewMemoryStore(starter.Defaults())
}

// newApp loads configuration and builds the shared services.
func newApp(ctx context.Context) (*app, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Wrap(err, "load configuration")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	state, err := newSessionStore(ctx, cfg.Session)
	if err != nil {
		return nil, err
	}

	client := remote.NewClient(cfg.Relay.Endpoint, remote.NewHTTPClient(cfg.Relay.Timeout))

	return &app{
		cfg:      cfg,
		starters: newStarterStore(),
		convSvc:  conversation.NewService(state),
		relay:    relay.New(client),
		state:    state,
	}, nil
}

func newSessionStore(ctx context.Context, cfg config.SessionConfig) (session.Store, error) {
	if session.StoreType(cfg.Driver) != session.StoreTypeRedis {
		return session.NewStore(session.StoreTypeMemory)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrapf(err, "connect to redis at %s", cfg.RedisAddr)
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("using redis session store")

	return session.NewStore(session.StoreTypeRedis, session.WithRedisClient(client), session.WithRedisTTL(cfg.TTL))
}
