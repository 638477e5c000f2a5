package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/climate-cli/internal/config"
	"github.com/sells-group/climate-cli/internal/engine"
	"github.com/sells-group/climate-cli/internal/feature"
	"github.com/sells-group/climate-cli/internal/share"
	"github.com/sells-group/climate-cli/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the rule-set HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		srv := newServer(st, cfg)
		httpSrv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           srv.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			zap.L().Info("http server listening", zap.Int("port", cfg.Server.Port))
			errCh <- httpSrv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		zap.L().Info("shutting down http server")
		return httpSrv.Shutdown(shutdownCtx)
	},
}

type server struct {
	store   store.Store
	cfg     *config.Config
	limiter *rate.Limiter
}

func newServer(st store.Store, cfg *config.Config) *server {
	return &server{
		store:   st,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.Server.RatePerSecond), cfg.Server.RateBurst),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(s.rateLimit)

	r.Get("/health", s.handleHealth)
	r.Route("/rules", func(r chi.Router) {
		r.Get("/", s.handleListRuleSets)
		r.Post("/", s.handleSaveRuleSet)
		r.Get("/{name}", s.handleGetRuleSet)
		r.Delete("/{name}", s.handleDeleteRuleSet)
	})
	r.Post("/classify", s.handleClassify)
	r.Post("/share/encode", s.handleShareEncode)
	r.Post("/share/decode", s.handleShareDecode)
	r.Get("/runs", s.handleListRuns)

	return r
}

func (s *server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, errors.New("rate limit exceeded"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleListRuleSets(w http.ResponseWriter, r *http.Request) {
	sets, err := s.store.ListRuleSets(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	type item struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		UpdatedAt time.Time `json:"updatedAt"`
	}
	out := make([]item, 0, len(sets))
	for _, rs := range sets {
		out = append(out, item{ID: rs.ID, Name: rs.Name, UpdatedAt: rs.UpdatedAt})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleSaveRuleSet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string          `json:"name"`
		Document json.RawMessage `json:"document"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, errors.New("name is required"))
		return
	}

	// Validate and normalize before storing.
	eng, err := engine.ImportJSON(string(req.Document))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	normalized, err := eng.ExportJSON(req.Name)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	rs, err := s.store.SaveRuleSet(r.Context(), req.Name, []byte(normalized))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": rs.ID, "name": rs.Name})
}

func (s *server) handleGetRuleSet(w http.ResponseWriter, r *http.Request) {
	rs, err := s.store.GetRuleSetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rs == nil {
		writeError(w, http.StatusNotFound, errors.New("rule set not found"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(rs.Document)
}

func (s *server) handleDeleteRuleSet(w http.ResponseWriter, r *http.Request) {
	rs, err := s.store.GetRuleSetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if rs == nil {
		writeError(w, http.StatusNotFound, errors.New("rule set not found"))
		return
	}
	if err := s.store.DeleteRuleSet(r.Context(), rs.ID); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClassify classifies an inline GeoJSON FeatureCollection against an
// inline document, a saved rule set, or the example preset.
func (s *server) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Document  json.RawMessage `json:"document"`
		RulesName string          `json:"rulesName"`
		Features  json.RawMessage `json:"features"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var (
		eng *engine.Engine
		err error
	)
	switch {
	case len(req.Document) > 0:
		eng, err = engine.ImportJSON(string(req.Document))
	case req.RulesName != "":
		var rs *store.RuleSet
		rs, err = s.store.GetRuleSetByName(r.Context(), req.RulesName)
		if err == nil && rs == nil {
			writeError(w, http.StatusNotFound, errors.New("rule set not found"))
			return
		}
		if err == nil {
			eng, err = engine.ImportJSON(string(rs.Document))
		}
	default:
		eng = engine.New(engine.ExamplePreset())
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	feats, err := feature.ReadGeoJSON(bytes.NewReader(req.Features))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	res := eng.ClassifyAll(feats)

	var buf bytes.Buffer
	all := append(append([]*feature.Feature{}, res.Classified...), res.Unclassified...)
	if err := feature.WriteGeoJSON(&buf, all); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"stats":    res.Stats,
		"features": json.RawMessage(buf.Bytes()),
	})
}

func (s *server) handleShareEncode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Document json.RawMessage `json:"document"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	doc, err := engine.ParseDocument(req.Document)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	link, err := share.EncodeURL(s.cfg.Share.BaseURL, doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	encoded, err := share.Encode(doc)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	b := share.CheckBudget(encoded)
	writeJSON(w, http.StatusOK, map[string]any{
		"url":      link,
		"length":   b.Length,
		"overWarn": b.OverWarn,
		"overMax":  b.OverMax,
	})
}

func (s *server) handleShareDecode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL     string `json:"url"`
		Payload string `json:"payload"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var (
		doc *engine.Document
		err error
	)
	switch {
	case req.URL != "":
		doc, err = share.DecodeURL(req.URL)
	case req.Payload != "":
		doc, err = share.Decode(req.Payload)
	default:
		writeError(w, http.StatusBadRequest, errors.New("url or payload is required"))
		return
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), 50)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	if status >= 500 {
		zap.L().Error("request failed", zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
