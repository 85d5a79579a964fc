package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/studyforge/examgen/internal/auth"
	"github.com/studyforge/examgen/internal/document"
	"github.com/studyforge/examgen/internal/handler"
	appI18n "github.com/studyforge/examgen/internal/i18n"
	"github.com/studyforge/examgen/internal/llm"
	"github.com/studyforge/examgen/internal/model"
	"github.com/studyforge/examgen/internal/store"
	"github.com/studyforge/examgen/internal/token"
)

func main() {
	// .env is optional; flags and EXAMGEN_* variables take precedence.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "examgen",
		Short: "AI exam paper generator",
	}

	serve := serveCmd()
	root.AddCommand(serve, encodeCmd(), decodeCmd())

	// Make "serve" the default when no subcommand is given.
	root.RunE = serve.RunE

	// Register serve flags on root so bare `examgen --addr ...` still works.
	root.Flags().AddFlagSet(serve.Flags())

	return root
}

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP exam server",
		RunE:  runServe,
	}
	f := cmd.Flags()
	f.StringP("addr", "a", ":8080", "HTTP listen address")
	f.String("users", "users.json", "Path to the user database file")
	f.String("app-url", "http://localhost:8080", "Public base URL used in shared exam links")
	f.String("gemini-key", "", "Gemini API key (or set EXAMGEN_GEMINI_KEY / GOOGLE_API_KEY)")
	f.String("gemini-model", "gemini-2.0-flash", "Gemini model name")
	f.Int("chunk-pages", 10, "Pages per PDF chunk uploaded to the AI service")
	f.String("jwt-secret", "", "Secret for signing session tokens (random per start if empty)")
	f.Duration("session-ttl", 24*time.Hour, "Session token lifetime")
	f.Duration("source-ttl", 30*time.Minute, "How long uploaded materials stay reusable for adding questions")
	f.Bool("secure-cookies", true, "Set Secure flag on session cookies")
	f.StringP("lang", "l", "en", "Response message language (en, ru)")
	f.Int64("max-upload-mb", 64, "Upload size limit per request, in MiB")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func encodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "encode [exam.json]",
		Short: "Encode an exam JSON file into a shareable token",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEncode,
	}
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func decodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode <token>",
		Short: "Decode an exam token back into JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  runDecode,
	}
	f := cmd.Flags()
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")
	return cmd
}

func setupLogging(cmd *cobra.Command) {
	v := viperForCmd(cmd)

	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("EXAMGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("examgen")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/examgen")
	v.AddConfigPath("/etc/examgen")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	return v
}

func runServe(cmd *cobra.Command, _ []string) error {
	setupLogging(cmd)
	v := viperForCmd(cmd)
	ctx := context.Background()

	userStore, err := store.Open(v.GetString("users"))
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}
	slog.Info("user store ready", "path", v.GetString("users"), "users", userStore.Count())

	apiKey := v.GetString("gemini-key")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("Gemini API key is required: set --gemini-key or GOOGLE_API_KEY")
	}
	llmClient, err := llm.New(ctx, apiKey, v.GetString("gemini-model"))
	if err != nil {
		return fmt.Errorf("create Gemini client: %w", err)
	}
	defer llmClient.Close()

	secret := v.GetString("jwt-secret")
	if secret == "" {
		secret = randomSecret()
		slog.Warn("no --jwt-secret set, sessions will not survive a restart")
	}
	authService := auth.NewService(secret, v.GetDuration("session-ttl"))

	// Uploaded source files are deleted on the service side once the
	// teacher can no longer request extra questions from them.
	materials := document.NewCache(v.GetDuration("source-ttl"), func(prep document.Prepared) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		for _, name := range prep.FileNames {
			llmClient.DeleteFile(ctx, name)
		}
	})

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return fmt.Errorf("init i18n: %w", err)
	}

	h := handler.New(userStore, llmClient, authService, materials, handler.Config{
		AppURL:        strings.TrimRight(v.GetString("app-url"), "/"),
		ChunkPages:    v.GetInt("chunk-pages"),
		SecureCookies: v.GetBool("secure-cookies"),
		MaxUploadMB:   v.GetInt64("max-upload-mb"),
	})

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(appI18n.Middleware(lang))
	h.Routes(r)

	addr := v.GetString("addr")
	slog.Info("starting server",
		"addr", addr,
		"model", v.GetString("gemini-model"),
		"app_url", v.GetString("app-url"),
		"lang", lang,
		"chunk_pages", v.GetInt("chunk-pages"),
		"session_ttl", v.GetDuration("session-ttl"),
		"source_ttl", v.GetDuration("source-ttl"),
	)
	return http.ListenAndServe(addr, r)
}

func runEncode(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)

	var data []byte
	var err error
	if len(args) == 0 || args[0] == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(args[0])
	}
	if err != nil {
		return fmt.Errorf("read exam JSON: %w", err)
	}

	var exam model.Exam
	if err := json.Unmarshal(data, &exam); err != nil {
		return fmt.Errorf("parse exam JSON: %w", err)
	}
	if exam.Empty() {
		return fmt.Errorf("exam has no questions")
	}
	exam.Normalize()

	tok, err := token.Encode(&exam)
	if err != nil {
		return fmt.Errorf("encode exam: %w", err)
	}
	fmt.Println(tok)
	return nil
}

func runDecode(cmd *cobra.Command, args []string) error {
	setupLogging(cmd)

	exam, err := token.Decode(args[0])
	if err != nil {
		return fmt.Errorf("decode token: %w", err)
	}
	out, err := json.MarshalIndent(exam, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal exam: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

func randomSecret() string {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		panic(err)
	}
	return hex.EncodeToString(buf)
}
