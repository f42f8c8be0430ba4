package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"mla-quiz-service/internal/config"
	"mla-quiz-service/internal/domain"
	"mla-quiz-service/internal/infra/memory"
	pgloader "mla-quiz-service/internal/infra/postgres"
	redisstore "mla-quiz-service/internal/infra/redis"
	"mla-quiz-service/internal/ingest"
	"mla-quiz-service/internal/logger"
	"mla-quiz-service/internal/quiz"
	"mla-quiz-service/internal/reference"
	transport "mla-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz attempt server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log := logger.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	// The catalog always exists: it holds the built-in sample, quizzes
	// scanned from disk and anything uploaded through the API. Postgres,
	// when configured, is consulted first.
	catalog := memory.NewCatalog(map[string]domain.Quiz{sampleQuiz.Name: sampleQuiz})
	loadQuizDir(catalog, cfg.Quiz.Dir, log)

	var loader memory.QuizLoader = catalog
	if pool != nil {
		loader = chainLoader{pgloader.NewQuizLoader(pool), catalog}
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo quiz.QuizRepository
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
	}

	var store quiz.SnapshotStore
	if redisClient != nil {
		store = redisstore.NewSnapshotStore(redisClient, redisTTL, log)
	} else {
		store = memory.NewSnapshotStore()
	}

	wsHandler := transport.NewWSHandler(quizRepo, store, log, cfg.Quiz.ShuffleQuestions)
	apiHandler := transport.NewAPIHandler(catalog, quizRepo, reference.Builtin(), log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	apiHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("port", finalPort).Msg("starting quiz service")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Info().Msg("shutting down server...")
	case <-ctx.Done():
		log.Info().Msg("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// chainLoader tries each loader in order, moving on only when the quiz is
// not found. Lets uploaded quizzes coexist with database-backed ones.
type chainLoader []memory.QuizLoader

func (c chainLoader) LoadQuiz(ctx context.Context, name string) (domain.Quiz, error) {
	for _, l := range c[:len(c)-1] {
		q, err := l.LoadQuiz(ctx, name)
		if err == nil {
			return q, nil
		}
		if !errors.Is(err, domain.ErrQuizNotFound) {
			return domain.Quiz{}, err
		}
	}
	return c[len(c)-1].LoadQuiz(ctx, name)
}

// loadQuizDir parses every markdown file in dir into the catalog.
func loadQuizDir(catalog *memory.Catalog, dir string, log zerolog.Logger) {
	if dir == "" {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("quiz dir not readable")
		return
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".md") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Warn().Err(err).Str("file", entry.Name()).Msg("quiz file not readable")
			continue
		}
		name := strings.TrimSuffix(entry.Name(), ".md")
		parsed := ingest.ParseMarkdown(name, string(data))
		if len(parsed.Questions) == 0 {
			log.Warn().Str("file", entry.Name()).Msg("no questions parsed, skipping")
			continue
		}
		catalog.Add(parsed)
		log.Info().Str("quiz", name).Int("questions", len(parsed.Questions)).Msg("quiz loaded from disk")
	}
}

// sampleQuiz ships a tiny built-in quiz so a bare deployment has something
// to serve.
var sampleQuiz = ingest.ParseMarkdown("sample-quiz", `## Cardiology

### 1. A 62-year-old man presents with central crushing chest pain radiating to the left arm, sweating and nausea for the last 40 minutes.

What is the most likely diagnosis?

A) Acute myocardial infarction ✓
B) Pericarditis
C) Gastro-oesophageal reflux
D) Musculoskeletal chest pain

## Respiratory

### 2. A 24-year-old tall, thin man develops sudden pleuritic chest pain and breathlessness while at rest.

A) Pulmonary embolism
B) Primary spontaneous pneumothorax (correct)
C) Community-acquired pneumonia
D) Asthma exacerbation
`)
