package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/elliottower/cogment-verse/go/internal/actors"
)

// Handler exposes the gateway's HTTP surface: the WebSocket upgrade, trial
// creation, and connection stats.
type Handler struct {
	connectionManager *ConnectionManager
	service           *Service
}

// NewHandler creates the HTTP handler for the gateway.
func NewHandler(cm *ConnectionManager, service *Service) *Handler {
	return &Handler{
		connectionManager: cm,
		service:           service,
	}
}

// HandleTrialConnection upgrades a client connection for a running trial.
func (h *Handler) HandleTrialConnection(w http.ResponseWriter, r *http.Request) {
	trialIDStr := r.URL.Query().Get("trial_id")
	if trialIDStr == "" {
		http.Error(w, "trial_id is required", http.StatusBadRequest)
		return
	}

	trialID, err := uuid.Parse(trialIDStr)
	if err != nil {
		http.Error(w, "invalid trial_id format", http.StatusBadRequest)
		return
	}

	// One human actor per trial; extra connections watch the same controls.
	actorName := r.URL.Query().Get("actor")
	if actorName == "" {
		actorName = actors.WebActorName
	}

	if err := h.connectionManager.UpgradeConnection(w, r, actorName, trialID); err != nil {
		log.Error().Err(err).
			Str("trial_id", trialID.String()).
			Msg("failed to upgrade WebSocket connection")
		http.Error(w, "failed to upgrade connection", http.StatusInternalServerError)
		return
	}
}

// HandleStartTrial starts a new trial and returns its ID.
func (h *Handler) HandleStartTrial(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	trialID, err := h.service.StartTrial()
	if err != nil {
		log.Error().Err(err).Msg("failed to start trial")
		http.Error(w, "failed to start trial", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(map[string]string{"trial_id": trialID.String()}); err != nil {
		log.Error().Err(err).Msg("failed to encode start trial response")
	}
}

// HandleStats returns statistics about active connections and trials.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	totalConnections, connectedTrials := h.connectionManager.GetConnectionStats()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]int{
		"total_connections": totalConnections,
		"connected_trials":  connectedTrials,
		"active_trials":     h.service.ActiveTrials(),
	}); err != nil {
		log.Error().Err(err).Msg("failed to encode stats response")
	}
}

// RegisterRoutes registers the gateway routes with an HTTP mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/trial", h.HandleTrialConnection)
	mux.HandleFunc("/api/trials", h.HandleStartTrial)
	mux.HandleFunc("/api/stats", h.HandleStats)
	log.Info().Msg("gateway routes registered")
}
