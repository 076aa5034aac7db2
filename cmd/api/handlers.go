package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/otel/trace"

	"dineflow/pkg/catalog"
	"dineflow/pkg/logger"
	"dineflow/pkg/metrics"
	"dineflow/pkg/order"
	"dineflow/pkg/otel"
	"dineflow/pkg/recommend"
)

type ctxKey int

const userKey ctxKey = 1

// server holds the collaborators shared by all handlers.
type server struct {
	log          *logger.Logger
	tracer       trace.Tracer
	orders       order.Repository
	items        catalog.Repository
	recs         *recommend.Service
	sessions     sessionStore
	sessionTTL   time.Duration
	defaultLimit int
	maxLimit     int
}

func (s *server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.traceMiddleware)
	r.Use(metrics.Middleware)
	r.Use(memoMiddleware)

	r.HandleFunc("/login", s.loginHandler).Methods(http.MethodPost)

	recs := r.PathPrefix("/recommendations").Subrouter()
	recs.HandleFunc("", s.recommendHandler).Methods(http.MethodGet)
	recs.HandleFunc("/also-bought", s.alsoBoughtHandler).Methods(http.MethodGet)
	recs.HandleFunc("/personalized", s.personalizedHandler).Methods(http.MethodGet)

	orders := r.PathPrefix("/orders").Subrouter()
	orders.Use(s.authMiddleware)
	orders.HandleFunc("", s.createOrderHandler).Methods(http.MethodPost)
	orders.HandleFunc("", s.listOrdersHandler).Methods(http.MethodGet)
	orders.HandleFunc("/{id}", s.getOrderHandler).Methods(http.MethodGet)
	orders.HandleFunc("/{id}", s.deleteOrderHandler).Methods(http.MethodDelete)

	items := r.PathPrefix("/items").Subrouter()
	items.Use(s.authMiddleware)
	items.HandleFunc("", s.createItemHandler).Methods(http.MethodPost)
	items.HandleFunc("/{id}", s.getItemHandler).Methods(http.MethodGet)
	items.HandleFunc("/{id}", s.updateItemHandler).Methods(http.MethodPut)
	items.HandleFunc("/{id}", s.deleteItemHandler).Methods(http.MethodDelete)
	items.HandleFunc("/{id}/availability", s.availabilityHandler).Methods(http.MethodPatch)

	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)
	return r
}

// loginHandler handles user login and session creation.
// @Summary Login
// @Description Authenticates user and sets session cookie
// @Accept json
// @Produce json
// @Param creds body loginRequest true "Credentials"
// @Success 200
// @Router /login [post]
func (s *server) loginHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "loginHandler")
	defer span.End()

	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
		http.Error(w, "invalid credentials", http.StatusBadRequest)
		return
	}
	sid, err := s.sessions.Create(ctx, req.Username, s.sessionTTL)
	if err != nil {
		s.log.Error(ctx, "create session", "error", err)
		http.Error(w, "session error", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "session_id", Value: sid, Path: "/", Expires: time.Now().Add(s.sessionTTL), HttpOnly: true})
	w.WriteHeader(http.StatusOK)
}

// authMiddleware ensures a valid session exists.
func (s *server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie("session_id")
		if err != nil {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		user, err := s.sessions.Lookup(r.Context(), c.Value)
		if err != nil {
			if !errors.Is(err, errNoSession) {
				s.log.Warn(r.Context(), "session lookup", "error", err)
			}
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// recommendHandler returns recommendations for an arbitrary request.
// @Summary Recommend items
// @Description Runs the configured strategies in order and fills up with random items
// @Produce json
// @Param limit query int false "Maximum number of items"
// @Param exclude query string false "Comma separated item ids to leave out"
// @Param cart query string false "Comma separated item ids in the cart"
// @Param category query string false "Restrict to a category id"
// @Param customer query string false "Customer id for history based picks"
// @Param source query string false "Comma separated strategy names"
// @Success 200 {array} recommend.Item
// @Failure 400 {string} string
// @Failure 503 {string} string
// @Router /recommendations [get]
func (s *server) recommendHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "recommendHandler")
	defer span.End()

	q := r.URL.Query()
	limit, err := s.parseLimit(q.Get("limit"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	source, err := recommend.ParseSource(q["source"]...)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	items, err := s.recs.Compute(ctx, recommend.Request{
		Limit:       limit,
		ExcludeIDs:  splitList(q["exclude"]),
		CartItemIDs: splitList(q["cart"]),
		CategoryID:  q.Get("category"),
		CustomerID:  q.Get("customer"),
		SourceOrder: source,
	})
	s.writeRecommendations(ctx, w, items, err)
}

// alsoBoughtHandler returns items frequently ordered with the cart.
// @Summary People also bought
// @Produce json
// @Param cart query string true "Comma separated item ids in the cart"
// @Param limit query int false "Maximum number of items"
// @Success 200 {array} recommend.Item
// @Failure 400 {string} string
// @Failure 503 {string} string
// @Router /recommendations/also-bought [get]
func (s *server) alsoBoughtHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "alsoBoughtHandler")
	defer span.End()

	q := r.URL.Query()
	limit, err := s.parseLimit(q.Get("limit"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	items, err := s.recs.PeopleAlsoBought(ctx, splitList(q["cart"]), limit)
	s.writeRecommendations(ctx, w, items, err)
}

// personalizedHandler returns the customer's usual items.
// @Summary Personalized recommendations
// @Produce json
// @Param customer query string true "Customer id"
// @Param limit query int false "Maximum number of items"
// @Success 200 {array} recommend.Item
// @Failure 400 {string} string
// @Failure 503 {string} string
// @Router /recommendations/personalized [get]
func (s *server) personalizedHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "personalizedHandler")
	defer span.End()

	q := r.URL.Query()
	limit, err := s.parseLimit(q.Get("limit"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	customer := strings.TrimSpace(q.Get("customer"))
	if customer == "" {
		http.Error(w, "customer is required", http.StatusBadRequest)
		return
	}
	items, err := s.recs.Personalized(ctx, customer, limit)
	s.writeRecommendations(ctx, w, items, err)
}

func (s *server) writeRecommendations(ctx context.Context, w http.ResponseWriter, items []recommend.Item, err error) {
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, items)
	case errors.Is(err, recommend.ErrUnknownStrategy):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, recommend.ErrBackendUnavailable):
		s.log.Error(ctx, "recommendations unavailable", "error", err)
		http.Error(w, "recommendations unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.log.Error(ctx, "compute recommendations", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// createOrderHandler places a new order.
// @Summary Create order
// @Accept json
// @Produce json
// @Param order body order.Order true "Order"
// @Success 201 {object} order.Order
// @Security ApiKeyAuth
// @Router /orders [post]
func (s *server) createOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "createOrderHandler")
	defer span.End()

	var o order.Order
	if err := json.NewDecoder(r.Body).Decode(&o); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := o.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.PlacedAt.IsZero() {
		o.PlacedAt = time.Now().UTC()
	}
	if err := s.orders.Create(ctx, o); err != nil {
		s.log.Error(ctx, "create order", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.invalidate(ctx)
	writeJSON(w, http.StatusCreated, o)
}

// listOrdersHandler lists orders.
// @Summary List orders
// @Produce json
// @Success 200 {array} order.Order
// @Security ApiKeyAuth
// @Router /orders [get]
func (s *server) listOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "listOrdersHandler")
	defer span.End()

	orders, err := s.orders.List(ctx)
	if err != nil {
		s.log.Error(ctx, "list orders", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

// getOrderHandler retrieves an order by ID.
// @Summary Get order
// @Produce json
// @Param id path string true "Order ID"
// @Success 200 {object} order.Order
// @Security ApiKeyAuth
// @Router /orders/{id} [get]
func (s *server) getOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "getOrderHandler")
	defer span.End()

	o, err := s.orders.Get(ctx, mux.Vars(r)["id"])
	if err != nil {
		s.writeStoreError(ctx, w, r, "get order", err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// deleteOrderHandler removes an order.
// @Summary Delete order
// @Param id path string true "Order ID"
// @Success 204
// @Security ApiKeyAuth
// @Router /orders/{id} [delete]
func (s *server) deleteOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "deleteOrderHandler")
	defer span.End()

	if err := s.orders.Delete(ctx, mux.Vars(r)["id"]); err != nil {
		s.writeStoreError(ctx, w, r, "delete order", err)
		return
	}
	s.invalidate(ctx)
	w.WriteHeader(http.StatusNoContent)
}

// createItemHandler adds a menu item.
// @Summary Create item
// @Accept json
// @Produce json
// @Param item body catalog.Item true "Item"
// @Success 201 {object} catalog.Item
// @Security ApiKeyAuth
// @Router /items [post]
func (s *server) createItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "createItemHandler")
	defer span.End()

	var it catalog.Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(it.Name) == "" {
		http.Error(w, "name is required", http.StatusBadRequest)
		return
	}
	if it.ID == "" {
		it.ID = uuid.NewString()
	}
	if err := s.items.Create(ctx, it); err != nil {
		s.log.Error(ctx, "create item", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.invalidate(ctx)
	writeJSON(w, http.StatusCreated, it)
}

// getItemHandler retrieves a menu item.
// @Summary Get item
// @Produce json
// @Param id path string true "Item ID"
// @Success 200 {object} catalog.Item
// @Security ApiKeyAuth
// @Router /items/{id} [get]
func (s *server) getItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "getItemHandler")
	defer span.End()

	it, err := s.items.Get(ctx, mux.Vars(r)["id"])
	if err != nil {
		s.writeStoreError(ctx, w, r, "get item", err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

// updateItemHandler replaces a menu item.
// @Summary Update item
// @Accept json
// @Produce json
// @Param id path string true "Item ID"
// @Param item body catalog.Item true "Item"
// @Success 200 {object} catalog.Item
// @Security ApiKeyAuth
// @Router /items/{id} [put]
func (s *server) updateItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "updateItemHandler")
	defer span.End()

	var it catalog.Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	it.ID = mux.Vars(r)["id"]
	if err := s.items.Update(ctx, it); err != nil {
		s.writeStoreError(ctx, w, r, "update item", err)
		return
	}
	s.invalidate(ctx)
	writeJSON(w, http.StatusOK, it)
}

// deleteItemHandler removes a menu item.
// @Summary Delete item
// @Param id path string true "Item ID"
// @Success 204
// @Security ApiKeyAuth
// @Router /items/{id} [delete]
func (s *server) deleteItemHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "deleteItemHandler")
	defer span.End()

	if err := s.items.Delete(ctx, mux.Vars(r)["id"]); err != nil {
		s.writeStoreError(ctx, w, r, "delete item", err)
		return
	}
	s.invalidate(ctx)
	w.WriteHeader(http.StatusNoContent)
}

// availabilityHandler marks an item as sold out or back in stock.
// @Summary Set item availability
// @Accept json
// @Param id path string true "Item ID"
// @Param body body availabilityRequest true "Availability"
// @Success 204
// @Security ApiKeyAuth
// @Router /items/{id}/availability [patch]
func (s *server) availabilityHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.AddSpan(r.Context(), "availabilityHandler")
	defer span.End()

	var req availabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Available == nil {
		http.Error(w, "available is required", http.StatusBadRequest)
		return
	}
	if err := s.items.SetAvailability(ctx, mux.Vars(r)["id"], *req.Available); err != nil {
		s.writeStoreError(ctx, w, r, "set availability", err)
		return
	}
	s.invalidate(ctx)
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) writeStoreError(ctx context.Context, w http.ResponseWriter, r *http.Request, op string, err error) {
	if errors.Is(err, order.ErrNotFound) || errors.Is(err, catalog.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	s.log.Error(ctx, op, "error", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

// invalidate drops cached recommendations after a menu or order write.
// Failures are logged by the service and the entries age out at their TTL.
func (s *server) invalidate(ctx context.Context) {
	_ = s.recs.Invalidate(ctx, s.recs.Prefix())
}

func (s *server) parseLimit(raw string) (int, error) {
	if raw == "" {
		return s.defaultLimit, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New("limit must be an integer")
	}
	if s.maxLimit > 0 && limit > s.maxLimit {
		limit = s.maxLimit
	}
	return limit, nil
}

// splitList accepts repeated and comma separated query values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (s *server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.InjectTracing(r.Context(), s.tracer)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// memoMiddleware scopes recommendation memoization to one request.
func memoMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(recommend.WithMemo(r.Context())))
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// loginRequest represents login credentials.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// availabilityRequest toggles whether an item can be ordered.
type availabilityRequest struct {
	Available *bool `json:"available"`
}
