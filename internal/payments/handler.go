package payments

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/teemow/tripbooker/internal/events"
	"github.com/teemow/tripbooker/internal/logging"
	"github.com/teemow/tripbooker/internal/store"
)

const (
	PathCheckout = "/api/checkout"
	PathPayments = "/api/payments"

	maxBodyBytes = 64 << 10
)

// Config configures a Handler.
type Config struct {
	// BaseURL is the public origin used for checkout success/cancel pages.
	BaseURL string

	Store store.Store

	// Sessions is nil when Stripe is not configured; /api/checkout then
	// answers 500.
	Sessions SessionCreator

	// Events defaults to events.NopPublisher.
	Events events.Publisher

	Logger *slog.Logger
}

// Handler serves the payments endpoints.
type Handler struct {
	baseURL  string
	store    store.Store
	sessions SessionCreator
	events   events.Publisher
	logger   *slog.Logger
	now      func() time.Time
}

// NewHandler returns a Handler. Store is required.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Store == nil {
		return nil, errors.New("payments: store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pub := cfg.Events
	if pub == nil {
		pub = events.NopPublisher{}
	}
	if cfg.BaseURL == "" {
		logger.Warn("No base URL configured; checkout redirect URLs will be relative")
	}
	return &Handler{
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		store:    cfg.Store,
		sessions: cfg.Sessions,
		events:   pub,
		logger:   logging.WithComponent(logger, "payments"),
		now:      time.Now,
	}, nil
}

// Mount registers the endpoints on mux, each wrapped by wrap when non-nil.
func (h *Handler) Mount(mux *http.ServeMux, wrap func(http.Handler) http.Handler) {
	if wrap == nil {
		wrap = func(next http.Handler) http.Handler { return next }
	}
	mux.Handle(PathCheckout, wrap(http.HandlerFunc(h.ServeCheckout)))
	mux.Handle(PathPayments, wrap(http.HandlerFunc(h.ServePayments)))
}

type checkoutRequest struct {
	Price        any    `json:"price"`
	Currency     string `json:"currency"`
	Quantity     any    `json:"quantity"`
	Email        string `json:"email"`
	HotelName    string `json:"hotelName"`
	CheckinDate  string `json:"checkinDate"`
	CheckoutDate string `json:"checkoutDate"`
	PhotoURL     string `json:"photoUrl"`
}

// ServeCheckout creates a Stripe Checkout session for one booking.
func (h *Handler) ServeCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed.", http.StatusMethodNotAllowed)
		return
	}
	if h.sessions == nil {
		writeError(w, "Stripe is not configured. Ensure STRIPE_KEY is set on the server.", http.StatusInternalServerError)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, "Invalid JSON body.", http.StatusBadRequest)
		return
	}

	price, ok := parseNumber(req.Price)
	unitAmount := int64(math.Round(price))
	if !ok || unitAmount <= 0 {
		writeError(w, "Invalid price supplied for checkout session.", http.StatusBadRequest)
		return
	}

	quantity := 1.0
	if req.Quantity != nil {
		quantity, ok = parseNumber(req.Quantity)
		if !ok {
			quantity = 0
		}
	}
	if quantity <= 0 || quantity != math.Trunc(quantity) {
		writeError(w, "Quantity must be a positive integer.", http.StatusBadRequest)
		return
	}

	if req.Currency == "" {
		writeError(w, "Currency is required.", http.StatusBadRequest)
		return
	}

	params := url.Values{
		"amount":       {strconv.FormatFloat(price, 'f', -1, 64)},
		"currency":     {req.Currency},
		"quantity":     {strconv.FormatInt(int64(quantity), 10)},
		"email":        {req.Email},
		"hotelName":    {req.HotelName},
		"checkinDate":  {req.CheckinDate},
		"checkoutDate": {req.CheckoutDate},
		"photoUrl":     {req.PhotoURL},
		"timestamp":    {h.now().UTC().Format(time.RFC3339)},
	}.Encode()

	sessionURL, err := h.sessions.CreateCheckoutSession(r.Context(), CheckoutSession{
		Currency:   strings.ToLower(req.Currency),
		UnitAmount: unitAmount,
		Quantity:   int64(quantity),
		SuccessURL: h.baseURL + "/success?" + params,
		CancelURL:  h.baseURL + "/cancel?" + params,
	})
	if err != nil {
		h.logger.Error("Failed to create checkout session", logging.Err(err))
		writeError(w, "Unable to create checkout session. Please try again later.", http.StatusInternalServerError)
		return
	}

	h.logger.Info("Checkout session created", logging.UserHash(req.Email))
	writeJSON(w, http.StatusOK, map[string]string{"url": sessionURL})
}

type paymentRequest struct {
	Email        string   `json:"email"`
	Price        *float64 `json:"price"`
	Currency     string   `json:"currency"`
	HotelName    string   `json:"hotelName"`
	CheckinDate  string   `json:"checkinDate"`
	CheckoutDate string   `json:"checkoutDate"`
	PhotoURL     string   `json:"photoUrl"`
}

// ServePayments records a completed booking for an existing user.
func (h *Handler) ServePayments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, "Method not allowed.", http.StatusMethodNotAllowed)
		return
	}

	var req paymentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, "Invalid JSON body.", http.StatusBadRequest)
		return
	}

	if req.Email == "" || req.Price == nil || req.Currency == "" ||
		req.HotelName == "" || req.CheckinDate == "" || req.CheckoutDate == "" {
		writeError(w, "Missing required fields. Ensure email, price, currency, hotelName, checkinDate, and checkoutDate are provided.", http.StatusBadRequest)
		return
	}

	checkin, err1 := parseDate(req.CheckinDate)
	checkout, err2 := parseDate(req.CheckoutDate)
	if err1 != nil || err2 != nil {
		writeError(w, "Invalid check-in or check-out date.", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	user, err := h.store.GetUserByEmail(ctx, req.Email)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, "User not found for the provided email.", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("Failed to look up user", logging.UserHash(req.Email), logging.Err(err))
		writeError(w, "Failed to record payment.", http.StatusInternalServerError)
		return
	}

	payment := &store.Payment{
		UserID:       user.ID,
		Price:        *req.Price,
		Currency:     req.Currency,
		HotelName:    req.HotelName,
		CheckinDate:  checkin,
		CheckoutDate: checkout,
		PhotoURL:     req.PhotoURL,
	}
	if err := h.store.CreatePayment(ctx, payment); err != nil {
		h.logger.Error("Failed to record payment", logging.UserHash(req.Email), logging.Err(err))
		writeError(w, "Failed to record payment.", http.StatusInternalServerError)
		return
	}

	event := events.New(events.TypePaymentRecorded, events.PaymentRecorded{
		PaymentID: payment.ID,
		UserID:    user.ID,
		Price:     payment.Price,
		Currency:  payment.Currency,
		HotelName: payment.HotelName,
	})
	if err := h.events.Publish(ctx, event); err != nil {
		h.logger.Warn("Failed to publish payment event", logging.Err(err))
	}

	h.logger.Info("Payment recorded", logging.UserHash(req.Email), slog.String("payment_id", payment.ID.String()))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "id": payment.ID.String()})
}

// parseNumber accepts JSON numbers and numeric strings.
func parseNumber(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseDate accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
