package api

import (
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/flow"
	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/metrics"
	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/ports"
	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/types"
	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/upstream"
)

const AdminKeyHdrName = "x-admin-key"

type Handler struct {
	Settings ports.SettingsStore
	Cache    ports.CacheStore
	Checker  *upstream.Client

	// Pub, when set together with EventsTopic, receives an event for every
	// fresh verification that came back not-WhatsApp.
	Pub         ports.Publisher
	EventsTopic string

	TokenSecret []byte
	AdminKey    string
}

func NewHandler(settings ports.SettingsStore, cache ports.CacheStore, checker *upstream.Client, tokenSecret []byte) *Handler {
	return &Handler{
		Settings:    settings,
		Cache:       cache,
		Checker:     checker,
		TokenSecret: tokenSecret,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/verify", h.handleVerify)
	mux.HandleFunc("/client-config", h.handleClientConfig)
	mux.HandleFunc("/admin/settings", h.handleAdminSettings)
	mux.HandleFunc("/admin/test-connection", h.handleTestConnection)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

type verifyRequest struct {
	Phone string `json:"phone"`
	Token string `json:"token"`
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()
	ctx := r.Context()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "read error", http.StatusBadRequest)
		return
	}
	defer func() {
		_ = r.Body.Close()
	}()
	var req verifyRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if !CheckToken(h.TokenSecret, req.Token, time.Now()) {
		metrics.Verifications.WithLabelValues("unauthorized").Inc()
		writeFailure(w, http.StatusUnauthorized, "Sessão inválida. Recarregue a página.")
		return
	}

	settings, err := h.Settings.Load(ctx)
	if err != nil {
		log.WithError(err).Error("failed to load settings")
		writeFailure(w, http.StatusInternalServerError, "Erro interno")
		return
	}

	result, cached, err := flow.Verify(ctx, settings, h.Cache, h.Checker, req.Phone)
	metrics.VerifyDuration.WithLabelValues(strconv.FormatBool(cached)).Observe(time.Since(start).Seconds())
	if err != nil {
		outcome, status, msg := classifyError(err)
		metrics.Verifications.WithLabelValues(outcome).Inc()
		log.WithError(err).WithField("outcome", outcome).Warn("verification failed")
		writeFailure(w, status, msg)
		return
	}

	if cached {
		metrics.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}
	if result.IsWhatsApp {
		metrics.Verifications.WithLabelValues("whatsapp").Inc()
	} else {
		metrics.Verifications.WithLabelValues("not_whatsapp").Inc()
		if !cached {
			h.publishEvent(r, result)
		}
	}
	if err := writeJSON(w, http.StatusOK, result); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

// publishEvent emits a fresh not-WhatsApp verification for follow-up
// automation. Advisory: a publish failure is logged, never surfaced.
func (h *Handler) publishEvent(r *http.Request, result types.VerificationResult) {
	if h.Pub == nil || h.EventsTopic == "" {
		return
	}
	payload, err := json.Marshal(map[string]any{
		"number":      result.Number,
		"is_whatsapp": result.IsWhatsApp,
		"name":        result.Name,
		"checked_at":  time.Now().Unix(),
	})
	if err != nil {
		return
	}
	if err := h.Pub.PublishRaw(r.Context(), h.EventsTopic, payload); err != nil {
		log.WithError(err).Warn("failed to publish verification event")
	}
}

func (h *Handler) handleClientConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	settings, err := h.Settings.Load(r.Context())
	if err != nil {
		log.WithError(err).Error("failed to load settings")
		writeFailure(w, http.StatusInternalServerError, "Erro interno")
		return
	}
	msgs := settings.ResolvedMessages()
	payload := map[string]any{
		"verify_url":      "/verify",
		"token":           NewToken(h.TokenSecret, time.Now()),
		"intl_prefix":     settings.Prefix(),
		"show_modal":      settings.ShowModal,
		"i18n":            msgs,
		"nonwhatsapp_msg": msgs.NonWhatsAppWarning,
	}
	if err := writeJSON(w, http.StatusOK, payload); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

func (h *Handler) handleAdminSettings(w http.ResponseWriter, r *http.Request) {
	if !h.authorizeAdmin(w, r) {
		return
	}
	ctx := r.Context()
	switch r.Method {
	case http.MethodGet:
		settings, err := h.Settings.Load(ctx)
		if err != nil {
			log.WithError(err).Error("failed to load settings")
			writeFailure(w, http.StatusInternalServerError, "Erro interno")
			return
		}
		if err := writeJSON(w, http.StatusOK, settings); err != nil {
			http.Error(w, "failed to write response", http.StatusInternalServerError)
		}

	case http.MethodPut:
		body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "read error", http.StatusBadRequest)
			return
		}
		defer func() {
			_ = r.Body.Close()
		}()
		incoming := types.DefaultSettings()
		if err := json.Unmarshal(body, &incoming); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		if err := h.Settings.Save(ctx, incoming); err != nil {
			writeFailure(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := writeJSON(w, http.StatusOK, map[string]any{"status": "saved"}); err != nil {
			http.Error(w, "failed to write response", http.StatusInternalServerError)
		}

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTestConnection is the explicit connectivity check. Saving settings
// never calls the network; this endpoint is the only place the instance
// state is probed.
func (h *Handler) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !h.authorizeAdmin(w, r) {
		return
	}
	ctx := r.Context()
	settings, err := h.Settings.Load(ctx)
	if err != nil {
		log.WithError(err).Error("failed to load settings")
		writeFailure(w, http.StatusInternalServerError, "Erro interno")
		return
	}
	connected, state, err := h.Checker.ConnectionState(ctx, settings)
	if err != nil {
		if errors.Is(err, types.ErrNotConfigured) {
			writeFailure(w, http.StatusConflict, "API não configurada corretamente")
			return
		}
		log.WithError(err).Warn("connection test failed")
		writeFailure(w, http.StatusBadGateway, "Não foi possível validar a conexão.")
		return
	}
	msg := "Instância encontrada, porém desconectada."
	if connected {
		msg = "Conexão ativa com a Evolution API."
	}
	payload := map[string]any{"connected": connected, "state": state, "message": msg}
	if err := writeJSON(w, http.StatusOK, payload); err != nil {
		http.Error(w, "failed to write response", http.StatusInternalServerError)
	}
}

func (h *Handler) authorizeAdmin(w http.ResponseWriter, r *http.Request) bool {
	key := r.Header.Get(AdminKeyHdrName)
	if h.AdminKey == "" || key == "" ||
		subtle.ConstantTimeCompare([]byte(key), []byte(h.AdminKey)) != 1 {
		writeFailure(w, http.StatusUnauthorized, "unauthorized")
		return false
	}
	return true
}

// classifyError maps a verification error onto a metrics outcome, an HTTP
// status and a user-facing message. A failure to verify must stay
// distinguishable from a genuine negative result, so every branch here
// reports "could not verify" and lets the client keep the form submittable.
func classifyError(err error) (outcome string, status int, msg string) {
	switch {
	case errors.Is(err, types.ErrBadInput):
		return "bad_input", http.StatusBadRequest, "Número de telefone não fornecido"
	case errors.Is(err, types.ErrNotConfigured):
		return "not_configured", http.StatusServiceUnavailable, "API não configurada corretamente"
	case errors.Is(err, types.ErrUpstreamUnreachable):
		return "upstream_unreachable", http.StatusBadGateway, "Erro ao conectar com a API"
	case errors.Is(err, types.ErrUpstreamHTTP):
		return "upstream_http", http.StatusBadGateway, "API retornou um status inesperado"
	case errors.Is(err, types.ErrUpstreamMalformed):
		return "upstream_malformed", http.StatusBadGateway, "Resposta inválida da API (JSON)"
	case errors.Is(err, types.ErrUpstreamShape):
		return "upstream_shape", http.StatusBadGateway, "Resposta inesperada da API"
	default:
		return "internal", http.StatusInternalServerError, "Erro interno"
	}
}

func writeFailure(w http.ResponseWriter, code int, msg string) {
	_ = writeJSON(w, code, map[string]any{"message": msg})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
