package httpapi

import (
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"tokobot/internal/order"
)

// Server is the HTTP surface of the storefront: the payment webhook, the
// informational checkout-finished page and a health probe. The webhook is
// the only authoritative input for order state.
type Server struct {
	orders    *order.Service
	serverKey []byte
	logger    *slog.Logger
	mux       *http.ServeMux
}

// NewServer builds the server. serverKey is the pre-shared Midtrans server
// key used to verify webhook signatures.
func NewServer(orders *order.Service, serverKey string, logger *slog.Logger) *Server {
	s := &Server{
		orders:    orders,
		serverKey: []byte(serverKey),
		logger:    logger,
		mux:       http.NewServeMux(),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /webhook", s.handleWebhook)
	s.mux.HandleFunc("GET /checkout_finished", s.handleCheckoutFinished)
	s.mux.HandleFunc("GET /healthz", s.handleHealth)
}

// HandleFunc registers an extra route on the underlying mux.
func (s *Server) HandleFunc(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cannot read body")
		return
	}

	if !s.validSignature(body, r.Header.Get("X-Midtrans-Signature")) {
		s.logger.Warn("webhook signature mismatch, rejecting")
		writeError(w, http.StatusForbidden, "invalid signature")
		return
	}

	var n order.Notification
	if err := json.Unmarshal(body, &n); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if n.OrderID == "" {
		writeError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	s.logger.Info("payment notification", "order_id", n.OrderID, "transaction_status", n.TransactionStatus)

	if err := s.orders.Reconcile(r.Context(), n); err != nil {
		if errors.Is(err, order.ErrNotFound) {
			s.logger.Warn("notification for unknown order", "order_id", n.OrderID)
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		s.logger.Error("reconcile failed", "order_id", n.OrderID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// validSignature checks the HMAC-SHA512 of the raw body against the hex
// digest the provider sent. The comparison is constant-time.
func (s *Server) validSignature(body []byte, header string) bool {
	mac := hmac.New(sha512.New, s.serverKey)
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(want), []byte(header)) == 1
}

// handleCheckoutFinished is where the provider redirects the buyer after a
// payment attempt. Informational only: state transitions come exclusively
// through the webhook.
func (s *Server) handleCheckoutFinished(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	o, err := s.orders.Order(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		s.logger.Error("get order", "order_id", orderID, "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"order_id": o.ID,
		"status":   o.Status,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
