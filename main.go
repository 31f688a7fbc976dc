package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/VTGare/Tally/arikawautils/middlewares"
	"github.com/VTGare/Tally/bot"
	"github.com/VTGare/Tally/commands"
	"github.com/VTGare/Tally/ctxzap"
	"github.com/VTGare/Tally/store"
	"github.com/VTGare/Tally/store/mongo"
	"github.com/VTGare/Tally/store/sqlite"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

var config = koanf.NewWithConf(koanf.Conf{
	Delim:       ".",
	StrictMerge: true,
})

func main() {
	if err := initializeConfig(); err != nil {
		log.Fatalf("failed to initialize config: %v", err)
	}

	logger, err := initializeLogger()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ctx = ctxzap.ToContext(ctx, logger)

	st, err := initializeStore(ctx)
	if err != nil {
		logger.With("error", err).Fatal("failed to initialize the store")
	}
	defer st.Close(ctx)

	if err := st.Init(ctx); err != nil {
		logger.With("error", err).Fatal("failed to initialize the store schema")
	}

	b := bot.New(logger, config, st)

	b.AddMiddleware(middlewares.CommandLog(logger))
	commands.RegisterCommands(b)

	if err := b.Start(ctx); err != nil {
		logger.With("error", err).Fatal("failed to start the bot")
	}
}

func initializeLogger() (*zap.SugaredLogger, error) {
	if config.Bool("dev.mode") {
		log, err := zap.NewDevelopment()
		if err != nil {
			return nil, err
		}

		return log.Sugar(), nil
	}

	log, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	return log.Sugar(), nil
}

func initializeStore(ctx context.Context) (store.Store, error) {
	backend := config.String("store.backend")
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "sqlite":
		path := config.String("store.sqlite.path")
		if path == "" {
			path = "tally.db"
		}

		return sqlite.New(path)
	case "mongo":
		return mongo.New(ctx, config.String("store.mongo.uri"), config.String("store.mongo.database"))
	default:
		return nil, fmt.Errorf("unknown store backend %q", backend)
	}
}

func initializeConfig() error {
	// Load JSON config
	jsonPath := "config.json"
	if fileExists(jsonPath) {
		if err := config.Load(file.Provider(jsonPath), json.Parser()); err != nil {
			return err
		}
	}

	// Load environment variables
	err := config.Load(env.Provider("TALLY_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(
			strings.TrimPrefix(s, "TALLY_")), "_", ".", -1)
	}), nil)
	if err != nil {
		return err
	}

	// Load .env file
	dotenvPath := ".env"
	if fileExists(dotenvPath) {
		dotenvParser := dotenv.ParserEnv("TALLY_", ".", func(s string) string {
			return strings.Replace(strings.ToLower(
				strings.TrimPrefix(s, "TALLY_")), "_", ".", -1)
		})

		if err := config.Load(file.Provider(".env"), dotenvParser); err != nil {
			return err
		}
	}

	return nil
}

func fileExists(filename string) bool {
	_, err := os.Stat(filename)
	return err == nil
}
