package main

import (
	"context"
	"embed"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"story-canvas-ai-bot/internal/gemini"
	"story-canvas-ai-bot/internal/httpclient"
	"story-canvas-ai-bot/internal/illustration"
)

//go:embed static/*
var staticFS embed.FS

// server proxies the two pipeline stages for the embedded page. It keeps
// no per-visitor state; the browser holds the story, the analysis and
// the chosen style between calls.
type server struct {
	gem         *gemini.Client
	fallbackKey string
	timeout     time.Duration
	logger      *slog.Logger
}

type apiError struct {
	Error string `json:"error"`
}

type analyzeRequest struct {
	Story string `json:"story"`
}

type analyzeResponse struct {
	VisualElements string   `json:"visualElements"`
	StyleOptions   []string `json:"styleOptions"`
	SuggestedTitle string   `json:"suggestedTitle"`
}

type generateRequest struct {
	Story          string `json:"story"`
	VisualElements string `json:"visualElements"`
	Style          string `json:"style"`
	Title          string `json:"title"`
}

type generateResponse struct {
	ImageBase64 string `json:"imageBase64"`
	MimeType    string `json:"mimeType"`
	Filename    string `json:"filename"`
}

func main() {
	_ = godotenv.Load()

	addr := strings.TrimSpace(getEnv("WEB_ADDR", ":8080"))

	httpTimeout := time.Duration(getEnvInt("HTTP_TIMEOUT_SECONDS", 180)) * time.Second
	if httpTimeout <= 0 {
		httpTimeout = 180 * time.Second
	}

	requestTimeout := time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 240)) * time.Second
	if requestTimeout <= 0 {
		requestTimeout = 240 * time.Second
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: getEnvBool("PREFER_IPV4", true),
		Timeout:    httpTimeout,
	})

	gem := gemini.New(gemini.Options{
		BaseURL:    strings.TrimSpace(getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com")),
		APIVersion: strings.TrimSpace(getEnv("GEMINI_API_VERSION", "v1beta")),
		TextModel:  strings.TrimSpace(getEnv("GEMINI_TEXT_MODEL", "")),
		ImageModel: strings.TrimSpace(getEnv("GEMINI_IMAGE_MODEL", "")),
		HTTPClient: httpClient,
		Logger:     logger,
	})

	s := &server{
		gem:         gem,
		fallbackKey: strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		timeout:     requestTimeout,
		logger:      logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/analyze", s.handleAnalyze)
	mux.HandleFunc("/api/generate", s.handleGenerate)

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	mux.Handle("/", http.FileServer(http.FS(staticSub)))

	srv := &http.Server{
		Addr:              addr,
		Handler:           withLogging(mux, logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       90 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("web started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	logger.Info("web stopped")
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}

	var req analyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid json body"})
		return
	}

	story := strings.TrimSpace(req.Story)
	if story == "" {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "story is empty"})
		return
	}

	apiKey := s.apiKeyFrom(r)
	if apiKey == "" {
		writeJSON(w, http.StatusUnauthorized, apiError{Error: "missing api key"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	raw, err := s.gem.GenerateText(ctx, apiKey, illustration.BuildAnalysisPrompt(story))
	if err != nil {
		s.logger.Error("analyze failed", "err", err)
		s.writeError(w, err)
		return
	}

	analysis := illustration.ParseAnalysis(raw)
	writeJSON(w, http.StatusOK, analyzeResponse{
		VisualElements: analysis.VisualElements,
		StyleOptions:   analysis.StyleOptions,
		SuggestedTitle: analysis.SuggestedTitle,
	})
}

func (s *server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"})
		return
	}

	var req generateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid json body"})
		return
	}

	story := strings.TrimSpace(req.Story)
	style := strings.TrimSpace(req.Style)
	title := strings.TrimSpace(req.Title)
	switch {
	case story == "":
		writeJSON(w, http.StatusBadRequest, apiError{Error: "story is empty"})
		return
	case style == "":
		writeJSON(w, http.StatusBadRequest, apiError{Error: "style is empty"})
		return
	case title == "":
		writeJSON(w, http.StatusBadRequest, apiError{Error: "title is empty"})
		return
	}

	apiKey := s.apiKeyFrom(r)
	if apiKey == "" {
		writeJSON(w, http.StatusUnauthorized, apiError{Error: "missing api key"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.timeout)
	defer cancel()

	prompt := illustration.BuildIllustrationPrompt(strings.TrimSpace(req.VisualElements), style, story)
	resp, err := s.gem.GenerateImage(ctx, apiKey, prompt)
	if err != nil {
		s.logger.Error("generate failed", "err", err)
		s.writeError(w, err)
		return
	}

	data, mimeType, err := illustration.ExtractImage(resp)
	if err != nil {
		s.logger.Error("generate returned no image", "err", err)
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, generateResponse{
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    mimeType,
		Filename:    illustration.ExportFilename(title),
	})
}

// apiKeyFrom prefers the visitor's own key over the shared fallback. The
// key never appears in logs.
func (s *server) apiKeyFrom(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-Api-Key")); key != "" {
		return key
	}
	return s.fallbackKey
}

func (s *server) writeError(w http.ResponseWriter, err error) {
	var upstream *gemini.APIError

	switch {
	case errors.Is(err, gemini.ErrBadCredentials):
		writeJSON(w, http.StatusUnauthorized, apiError{Error: "invalid api key"})
	case errors.Is(err, illustration.ErrNoImage):
		writeJSON(w, http.StatusBadGateway, apiError{Error: "model returned no image"})
	case errors.Is(err, gemini.ErrMalformedResponse):
		writeJSON(w, http.StatusBadGateway, apiError{Error: "malformed model response"})
	case errors.As(err, &upstream):
		writeJSON(w, http.StatusBadGateway, apiError{Error: upstream.Error()})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, apiError{Error: "request timed out"})
	default:
		writeJSON(w, http.StatusBadGateway, apiError{Error: "request failed"})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	const maxBodyBytes = 1 << 20
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "dur_ms", time.Since(start).Milliseconds())
	})
}
