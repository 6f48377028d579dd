package sim

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"microgrid-console/internal/domain"
)

// Server exposes the backend REST surface the console consumes. Every
// handler shape matches the production API so the console cannot tell
// the two apart.
type Server struct {
	mux    *http.ServeMux
	store  Store
	engine *Engine
	auth   *Authenticator
	hub    *Hub
}

func NewServer(store Store, engine *Engine, auth *Authenticator, hub *Hub) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		store:  store,
		engine: engine,
		auth:   auth,
		hub:    hub,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /auth/login", s.handleLogin)
	s.mux.HandleFunc("GET /api/sensordata", s.handleSensorHistory)
	s.mux.HandleFunc("POST /api/sensordata", s.handleIngest)
	s.mux.HandleFunc("GET /api/sensordata/latest", s.handleLatestReading)
	s.mux.HandleFunc("GET /api/alerts", s.handleAlerts)
	s.mux.HandleFunc("GET /api/alerts/all", s.handleAllAlerts)
	s.mux.HandleFunc("POST /api/alerts/{id}/resolve", s.requireAuth(s.handleResolveAlert))
	s.mux.HandleFunc("GET /api/system/status", s.handleSystemStatus)
	s.mux.HandleFunc("GET /api/analytics/statistics", s.handleStatistics)
	s.mux.HandleFunc("GET /api/ai/solar-predictions", s.handleSolarPredictions)
	s.mux.HandleFunc("GET /api/ai/load-predictions", s.handleLoadPredictions)
	s.mux.HandleFunc("GET /api/ai/grid-switching", s.handleGridSwitching)
	s.mux.HandleFunc("GET /api/ai/fault-detection", s.handleFaultDetection)
	s.mux.HandleFunc("GET /api/ai/load-management", s.handleLoadManagement)
	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /ws", s.hub.HandleWS)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, user, err := s.auth.Login(creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
			return
		}
		log.Error().Err(err).Msg("login failed")
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"user":         user,
	})
}

func (s *Server) handleSensorHistory(w http.ResponseWriter, r *http.Request) {
	hours := hoursParam(r, 24)
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	readings, err := s.store.ReadingsSince(r.Context(), since)
	if err != nil {
		log.Error().Err(err).Msg("sensor history query failed")
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	if readings == nil {
		readings = []domain.SensorReading{}
	}
	writeJSON(w, http.StatusOK, readings)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var reading domain.SensorReading
	if err := json.NewDecoder(r.Body).Decode(&reading); err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid request body")
		return
	}

	stored, _, err := s.engine.Ingest(r.Context(), reading)
	if err != nil {
		var verr *ReadingError
		if errors.As(err, &verr) {
			writeDetail(w, http.StatusBadRequest, verr.Error())
			return
		}
		log.Error().Err(err).Msg("reading ingest failed")
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleLatestReading(w http.ResponseWriter, r *http.Request) {
	latest, err := s.store.LatestReading(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("latest reading query failed")
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	if latest == nil {
		writeDetail(w, http.StatusNotFound, "No sensor data found")
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

// handleAlerts serves the enhanced wrapper shape. The legacy bare list
// stays available on /api/alerts/all.
func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	activeOnly := true
	if v := r.URL.Query().Get("active_only"); v != "" {
		activeOnly, _ = strconv.ParseBool(v)
	}

	alerts, err := s.store.Alerts(r.Context(), activeOnly, 50)
	if err != nil {
		log.Error().Err(err).Msg("alerts query failed")
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"timestamp": domain.Now(),
		"alerts":    alerts,
	})
}

func (s *Server) handleAllAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.store.Alerts(r.Context(), false, 50)
	if err != nil {
		log.Error().Err(err).Msg("alerts query failed")
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	if alerts == nil {
		alerts = []domain.Alert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}

func (s *Server) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "invalid alert id")
		return
	}

	alert, err := s.store.ResolveAlert(r.Context(), id)
	if err != nil {
		log.Error().Err(err).Int64("alert_id", id).Msg("alert resolve failed")
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	if alert == nil {
		writeDetail(w, http.StatusNotFound, "Alert not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message":  "Alert resolved successfully",
		"alert_id": id,
	})
}

func (s *Server) handleSystemStatus(w http.ResponseWriter, r *http.Request) {
	latest, err := s.store.LatestReading(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("latest reading query failed")
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	if latest == nil {
		writeDetail(w, http.StatusNotFound, "No sensor data available")
		return
	}

	now := time.Now().UTC()
	history, err := s.store.ReadingsSince(r.Context(), now.Add(-24*time.Hour))
	if err != nil {
		log.Error().Err(err).Msg("history query failed")
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	active, err := s.store.Alerts(r.Context(), true, 50)
	if err != nil {
		log.Error().Err(err).Msg("alerts query failed")
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, BuildStatus(now, latest, active, history))
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	hours := hoursParam(r, 24)
	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	readings, err := s.store.ReadingsSince(r.Context(), since)
	if err != nil {
		log.Error().Err(err).Msg("statistics query failed")
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}

	stats := ComputeStatistics(readings)
	if stats == nil {
		writeDetail(w, http.StatusNotFound, "No data available for analysis")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSolarPredictions(w http.ResponseWriter, r *http.Request) {
	latest, err := s.store.LatestReading(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("latest reading query failed")
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, PredictSolar(time.Now().UTC(), 24, latest != nil))
}

func (s *Server) handleLoadPredictions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, PredictLoad(time.Now().UTC(), 24))
}

func (s *Server) handleGridSwitching(w http.ResponseWriter, r *http.Request) {
	latest, err := s.store.LatestReading(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("latest reading query failed")
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	if latest == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"switch_to_grid": false,
			"reason":         "no_data",
		})
		return
	}

	now := time.Now().UTC()
	solar := PredictSolar(now, 6, true)
	load := PredictLoad(now, 6)
	writeJSON(w, http.StatusOK, AnalyzeGridSwitch(*latest, solar, load, now))
}

func (s *Server) handleFaultDetection(w http.ResponseWriter, r *http.Request) {
	recent, err := s.store.Readings(r.Context(), 20)
	if err != nil {
		log.Error().Err(err).Msg("readings query failed")
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}

	// Only the last two hours count toward fault analysis.
	now := time.Now().UTC()
	cutoff := now.Add(-2 * time.Hour)
	window := recent[:0:0]
	for _, rd := range recent {
		if rd.Timestamp.After(cutoff) {
			window = append(window, rd)
		}
	}
	writeJSON(w, http.StatusOK, DetectFaults(window, now))
}

func (s *Server) handleLoadManagement(w http.ResponseWriter, r *http.Request) {
	latest, err := s.store.LatestReading(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("latest reading query failed")
		writeDetail(w, http.StatusInternalServerError, "internal error")
		return
	}
	if latest == nil {
		writeJSON(w, http.StatusOK, map[string]any{"optimization": "no_data"})
		return
	}
	writeJSON(w, http.StatusOK, PlanLoadManagement(*latest, time.Now().UTC()))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": domain.Now(),
	})
}

// requireAuth rejects requests without a valid bearer token.
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeDetail(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if _, err := s.auth.ValidateToken(token); err != nil {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next(w, r)
	}
}

func hoursParam(r *http.Request, fallback int) int {
	v := r.URL.Query().Get("hours")
	if v == "" {
		return fallback
	}
	hours, err := strconv.Atoi(v)
	if err != nil || hours <= 0 {
		return fallback
	}
	return hours
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn().Err(err).Msg("response encode failed")
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
