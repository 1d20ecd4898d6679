package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"ostello/internal/config"
	"ostello/internal/export"
	"ostello/internal/metrics"
	"ostello/internal/models"
	"ostello/internal/service"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// HTTPServer exposes the booking flow over HTTP: search, holds, cart, quote,
// checkout and the admin surface.
type HTTPServer struct {
	cfg      config.APIConfig
	booking  *service.BookingService
	cart     *service.CartService
	exporter *export.Exporter
	server   *http.Server
	auth     *HTTPAuth
	logger   *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, booking *service.BookingService, cart *service.CartService, exporter *export.Exporter, logger *zerolog.Logger) *HTTPServer {
	mux := http.NewServeMux()
	srv := &HTTPServer{
		cfg:      cfg,
		booking:  booking,
		cart:     cart,
		exporter: exporter,
		logger:   logger,
	}
	srv.auth = NewHTTPAuth(cfg)

	mux.HandleFunc("/api/v1/search", srv.handleSearch)
	mux.HandleFunc("/api/v1/rooms", srv.handleRooms)
	mux.HandleFunc("/api/v1/holds", srv.handleHolds)
	mux.HandleFunc("/api/v1/holds/", srv.handleHoldSubtree)
	mux.HandleFunc("/api/v1/reservations/", srv.handleReservationSubtree)
	mux.HandleFunc("/api/v1/blocked-days", srv.handleBlockedDays)
	mux.HandleFunc("/api/v1/occupancy", srv.handleOccupancy)
	mux.HandleFunc("/api/v1/occupancy/export", srv.handleOccupancyExport)

	handler := srv.loggingMiddleware(srv.auth.Wrap(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the root handler, пригодно для httptest.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	checkIn, checkOut, ok := parseRange(w, r)
	if !ok {
		return
	}

	guests, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("guests")))
	if err != nil || guests < 1 {
		writeError(w, http.StatusBadRequest, "guests must be a positive integer")
		return
	}

	result, err := s.booking.Search(r.Context(), checkIn, checkOut, guests)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *HTTPServer) handleRooms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"rooms": s.booking.Rooms()})
}

func (s *HTTPServer) handleHolds(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var body struct {
		CheckIn  string `json:"check_in"`
		CheckOut string `json:"check_out"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	checkIn, err := time.Parse("2006-01-02", body.CheckIn)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid check_in; expected YYYY-MM-DD")
		return
	}
	checkOut, err := time.Parse("2006-01-02", body.CheckOut)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid check_out; expected YYYY-MM-DD")
		return
	}

	hold, err := s.booking.StartBooking(r.Context(), checkIn, checkOut)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, hold)
}

// handleHoldSubtree dispatches /api/v1/holds/{id}[/action...] by hand; the
// hold id is a UUID and never contains slashes.
func (s *HTTPServer) handleHoldSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/holds/")
	parts := strings.Split(rest, "/")
	holdID := strings.TrimSpace(parts[0])
	if holdID == "" {
		writeError(w, http.StatusBadRequest, "hold id is required")
		return
	}

	action := strings.Join(parts[1:], "/")
	ctx := r.Context()

	switch {
	case action == "" && r.Method == http.MethodGet:
		hold, err := s.booking.GetHold(ctx, holdID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, hold)

	case action == "heartbeat" && r.Method == http.MethodPost:
		if err := s.booking.Heartbeat(ctx, holdID); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})

	case action == "cancel" && r.Method == http.MethodPost:
		if err := s.booking.Abandon(ctx, holdID); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})

	case action == "payment" && r.Method == http.MethodPost:
		if err := s.booking.EnterPayment(ctx, holdID); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": models.HoldStatusEnteredPayment})

	case action == "quote" && r.Method == http.MethodGet:
		quote, err := s.booking.Quote(ctx, holdID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, quote)

	case action == "checkout" && r.Method == http.MethodPost:
		s.handleCheckout(w, r, holdID)

	case strings.HasPrefix(action, "cart"):
		s.handleCart(w, r, holdID, strings.TrimPrefix(action, "cart"))

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleCheckout(w http.ResponseWriter, r *http.Request, holdID string) {
	var body struct {
		GuestName string `json:"guest_name"`
		Email     string `json:"email"`
		Phone     string `json:"phone"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if strings.TrimSpace(body.GuestName) == "" {
		writeError(w, http.StatusBadRequest, "guest_name is required")
		return
	}

	res, err := s.booking.Finalize(r.Context(), holdID, body.GuestName, body.Email, body.Phone)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

func (s *HTTPServer) handleCart(w http.ResponseWriter, r *http.Request, holdID, sub string) {
	sub = strings.TrimPrefix(sub, "/")
	ctx := r.Context()

	switch {
	case sub == "" && r.Method == http.MethodGet:
		cart, err := s.cart.GetCart(ctx, holdID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cart)

	case sub == "party" && r.Method == http.MethodPut:
		var body struct {
			Guests []string `json:"guests"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		cart, err := s.cart.SetParty(ctx, holdID, body.Guests)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cart)

	case sub == "assign" && r.Method == http.MethodPost:
		var body struct {
			GuestID int64 `json:"guest_id"`
			RoomID  int64 `json:"room_id"`
			BedID   int64 `json:"bed_id"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		cart, err := s.cart.AssignBed(ctx, holdID, body.GuestID, body.RoomID, body.BedID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cart)

	case sub == "unassign" && r.Method == http.MethodPost:
		var body struct {
			GuestID int64 `json:"guest_id"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		cart, err := s.cart.UnassignBed(ctx, holdID, body.GuestID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cart)

	case sub == "pension" && r.Method == http.MethodPut:
		var body struct {
			Pension string `json:"pension"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		cart, err := s.cart.SetPension(ctx, holdID, body.Pension)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cart)

	case sub == "privacy" && r.Method == http.MethodPut:
		var body struct {
			Selections []privacySelection `json:"selections"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		selections, err := toPrivacySelections(body.Selections)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		cart, err := s.cart.SetPrivacyBlocks(ctx, holdID, selections)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cart)

	case sub == "services" && r.Method == http.MethodPut:
		var body struct {
			Cost float64 `json:"cost"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		cart, err := s.cart.SetServices(ctx, holdID, body.Cost)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cart)

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleReservationSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/reservations/")
	parts := strings.Split(rest, "/")

	id, err := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid reservation id")
		return
	}

	action := strings.Join(parts[1:], "/")
	ctx := r.Context()

	switch {
	case action == "" && r.Method == http.MethodGet:
		res, err := s.booking.GetReservation(ctx, id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)

	case action == "cancel" && r.Method == http.MethodPost:
		if err := s.booking.CancelReservation(ctx, id); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": models.ReservationStatusCancelled})

	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *HTTPServer) handleBlockedDays(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	switch r.Method {
	case http.MethodGet:
		start, end, ok := parseRange(w, r)
		if !ok {
			return
		}
		days, err := s.booking.ListBlockedDays(ctx, start, end)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"blocked_days": days})

	case http.MethodPost:
		var body struct {
			Day    string `json:"day"`
			Reason string `json:"reason"`
		}
		if !decodeBody(w, r, &body) {
			return
		}
		day, err := time.Parse("2006-01-02", body.Day)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid day; expected YYYY-MM-DD")
			return
		}
		blocked := &models.BlockedDay{Day: day, Reason: body.Reason}
		if err := s.booking.CreateBlockedDay(ctx, blocked); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, blocked)

	case http.MethodDelete:
		day, err := time.Parse("2006-01-02", strings.TrimSpace(r.URL.Query().Get("day")))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid day; expected YYYY-MM-DD")
			return
		}
		if err := s.booking.DeleteBlockedDay(ctx, day); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	start, days, ok := parseOccupancyParams(w, r)
	if !ok {
		return
	}

	occupancy, err := s.booking.GetOccupancy(r.Context(), start, days)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"occupancy": occupancy})
}

func (s *HTTPServer) handleOccupancyExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "exports are disabled")
		return
	}

	start, days, ok := parseOccupancyParams(w, r)
	if !ok {
		return
	}

	path, err := s.exporter.OccupancyReport(r.Context(), start, days)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"file_path": path})
}

// privacySelection is the wire form; nights come in as YYYY-MM-DD.
type privacySelection struct {
	RoomID int64   `json:"room_id"`
	Night  string  `json:"night"`
	BedIDs []int64 `json:"bed_ids"`
}

func toPrivacySelections(in []privacySelection) ([]models.PrivacyBlockSelection, error) {
	out := make([]models.PrivacyBlockSelection, 0, len(in))
	for _, sel := range in {
		night, err := time.Parse("2006-01-02", sel.Night)
		if err != nil {
			return nil, fmt.Errorf("invalid night %q; expected YYYY-MM-DD", sel.Night)
		}
		out = append(out, models.PrivacyBlockSelection{
			RoomID: sel.RoomID,
			Night:  night,
			BedIDs: sel.BedIDs,
		})
	}
	return out, nil
}

func parseRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	checkIn, err := time.Parse("2006-01-02", strings.TrimSpace(r.URL.Query().Get("check_in")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid check_in; expected YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	checkOut, err := time.Parse("2006-01-02", strings.TrimSpace(r.URL.Query().Get("check_out")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid check_out; expected YYYY-MM-DD")
		return time.Time{}, time.Time{}, false
	}
	return checkIn, checkOut, true
}

func parseOccupancyParams(w http.ResponseWriter, r *http.Request) (time.Time, int, bool) {
	start, err := time.Parse("2006-01-02", strings.TrimSpace(r.URL.Query().Get("start")))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid start; expected YYYY-MM-DD")
		return time.Time{}, 0, false
	}

	days, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get("days")))
	if err != nil || days < 1 || days > 366 {
		writeError(w, http.StatusBadRequest, "days must be between 1 and 366")
		return time.Time{}, 0, false
	}
	return start, days, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// HTTPAuth provides API-key auth and per-key rate limiting for HTTP endpoints.
type HTTPAuth struct {
	cfg      config.APIConfig
	clients  map[string]config.APIClientKey
	limiters sync.Map // map[string]*rate.Limiter
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	m := make(map[string]config.APIClientKey, len(cfg.Auth.APIKeys))
	for _, k := range cfg.Auth.APIKeys {
		m[k.Key] = k
	}
	return &HTTPAuth{cfg: cfg, clients: m}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.cfg.Enabled || !a.cfg.HTTP.Enabled {
			next.ServeHTTP(w, r)
			return
		}

		if a.cfg.Auth.Enabled {
			if err := a.checkAuth(r); err != nil {
				statusCode := http.StatusUnauthorized
				if err == errPermissionDenied {
					statusCode = http.StatusForbidden
				}
				writeError(w, statusCode, err.Error())
				return
			}
		}

		if err := a.checkRateLimit(r); err != nil {
			writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}

		next.ServeHTTP(w, r)
	})
}

var errPermissionDenied = fmt.Errorf("permission denied")

func (a *HTTPAuth) checkAuth(r *http.Request) error {
	apiKeyHeader := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if apiKeyHeader == "" {
		apiKeyHeader = "x-api-key"
	}
	extraHeader := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderExtra))
	if extraHeader == "" {
		extraHeader = "x-api-extra"
	}

	apiKey := strings.TrimSpace(r.Header.Get(apiKeyHeader))
	extra := strings.TrimSpace(r.Header.Get(extraHeader))
	if apiKey == "" || extra == "" {
		return fmt.Errorf("missing api key headers")
	}

	client, ok := a.clients[apiKey]
	if !ok {
		return fmt.Errorf("invalid api key")
	}
	if subtle.ConstantTimeCompare([]byte(client.Extra), []byte(extra)) != 1 {
		return fmt.Errorf("invalid extra header")
	}

	if err := a.checkPermissions(client, r); err != nil {
		return err
	}

	return nil
}

func (a *HTTPAuth) checkPermissions(client config.APIClientKey, r *http.Request) error {
	required := requiredPermissionHTTP(r)
	if required == "" {
		return nil
	}
	if len(client.Permissions) == 0 {
		return nil
	}
	for _, p := range client.Permissions {
		if strings.TrimSpace(p) == required {
			return nil
		}
	}
	return errPermissionDenied
}

func requiredPermissionHTTP(r *http.Request) string {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, "/api/v1/search"), path == "/api/v1/rooms":
		return "read:availability"
	case strings.HasPrefix(path, "/api/v1/holds"):
		return "write:bookings"
	case strings.HasPrefix(path, "/api/v1/reservations"):
		return "write:bookings"
	case strings.HasPrefix(path, "/api/v1/blocked-days"), strings.HasPrefix(path, "/api/v1/occupancy"):
		return "admin"
	}
	return ""
}

func (a *HTTPAuth) checkRateLimit(r *http.Request) error {
	if a.cfg.RateLimit.RPS <= 0 {
		return nil
	}

	key := a.clientKey(r)
	lim := a.getLimiter(key)
	if !lim.Allow() {
		return fmt.Errorf("rate limit exceeded")
	}
	return nil
}

func (a *HTTPAuth) clientKey(r *http.Request) string {
	apiKeyHeader := strings.TrimSpace(strings.ToLower(a.cfg.Auth.HeaderAPIKey))
	if apiKeyHeader == "" {
		apiKeyHeader = "x-api-key"
	}

	if apiKey := strings.TrimSpace(r.Header.Get(apiKeyHeader)); apiKey != "" {
		return apiKey
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	return "unknown"
}

func (a *HTTPAuth) getLimiter(key string) *rate.Limiter {
	if v, ok := a.limiters.Load(key); ok {
		return v.(*rate.Limiter)
	}

	burst := a.cfg.RateLimit.Burst
	if burst <= 0 {
		burst = 5
	}

	lim := rate.NewLimiter(rate.Limit(a.cfg.RateLimit.RPS), burst)
	actual, loaded := a.limiters.LoadOrStore(key, lim)
	if loaded {
		return actual.(*rate.Limiter)
	}
	return lim
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("dur", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
