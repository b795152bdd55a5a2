// Package httpapi exposes the marketplace over REST. Routes are grouped
// into a public subrouter (register, login, health, metrics) and an
// authenticated subrouter carrying the bearer-token middleware.
package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	app "github.com/rewear/service_layer/internal/app"
	"github.com/rewear/service_layer/internal/app/domain/errs"
	"github.com/rewear/service_layer/internal/app/domain/item"
	"github.com/rewear/service_layer/internal/app/domain/rating"
	"github.com/rewear/service_layer/internal/app/domain/swap"
	"github.com/rewear/service_layer/internal/app/domain/user"
	"github.com/rewear/service_layer/internal/app/metrics"
	"github.com/rewear/service_layer/internal/app/services/items"
	"github.com/rewear/service_layer/internal/app/services/ratings"
	"github.com/rewear/service_layer/internal/app/services/swaps"
	"github.com/rewear/service_layer/internal/app/services/users"
	"github.com/rewear/service_layer/internal/middleware"
	"github.com/rewear/service_layer/pkg/logger"
)

// handler bundles HTTP endpoints for the application services.
type handler struct {
	app *app.Application
}

// NewHandler returns the router exposing the REST API.
func NewHandler(application *app.Application, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{app: application}

	r := mux.NewRouter()
	r.Use(middleware.CORS())
	r.Use(middleware.Logging(log))
	r.Use(middleware.Metrics())

	r.HandleFunc("/healthz", h.healthz).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	r.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)
	r.HandleFunc("/items", h.listItems).Methods(http.MethodGet)
	r.HandleFunc("/items/{id}", h.getItem).Methods(http.MethodGet)

	private := r.NewRoute().Subrouter()
	private.Use(middleware.Auth(application.Tokens, log))

	private.HandleFunc("/items", h.createItem).Methods(http.MethodPost)
	private.HandleFunc("/items/{id}", h.updateItem).Methods(http.MethodPut)
	private.HandleFunc("/items/{id}", h.deleteItem).Methods(http.MethodDelete)

	private.HandleFunc("/users/{id}", h.getUser).Methods(http.MethodGet)
	private.HandleFunc("/users/{id}/items", h.listUserItems).Methods(http.MethodGet)
	private.HandleFunc("/users/{id}/points", h.getPoints).Methods(http.MethodGet)
	private.HandleFunc("/users/{id}/swaps", h.listUserSwaps).Methods(http.MethodGet)
	private.HandleFunc("/users/{id}/swaps/pending", h.listPendingSwaps).Methods(http.MethodGet)
	private.HandleFunc("/users/{id}/redemptions", h.listUserRedemptions).Methods(http.MethodGet)
	private.HandleFunc("/users/{id}/ratings/given", h.listRatingsGiven).Methods(http.MethodGet)
	private.HandleFunc("/users/{id}/ratings/received", h.listRatingsReceived).Methods(http.MethodGet)

	private.HandleFunc("/swaps", h.createSwap).Methods(http.MethodPost)
	private.HandleFunc("/swaps/{id}", h.getSwap).Methods(http.MethodGet)
	private.HandleFunc("/swaps/{id}", h.transitionSwap).Methods(http.MethodPut)

	private.HandleFunc("/redemptions", h.createRedemption).Methods(http.MethodPost)
	private.HandleFunc("/redemptions/{id}", h.getRedemption).Methods(http.MethodGet)

	private.HandleFunc("/ratings", h.createRating).Methods(http.MethodPost)
	private.HandleFunc("/ratings/{id}", h.getRating).Methods(http.MethodGet)

	private.HandleFunc("/ai/description", h.aiDescription).Methods(http.MethodPost)
	private.HandleFunc("/ai/tags", h.aiTags).Methods(http.MethodPost)
	private.HandleFunc("/ai/suggestions", h.aiSuggestions).Methods(http.MethodPost)
	private.HandleFunc("/ai/impact", h.aiImpact).Methods(http.MethodPost)

	return r
}

func (h *handler) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth ------------------------------------------------------------------------

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email     string `json:"email"`
		Password  string `json:"password"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		City      string `json:"city"`
		Country   string `json:"country"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	profile, err := h.app.Users.Register(r.Context(), users.RegisterParams{
		Email:     payload.Email,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		City:      payload.City,
		Country:   payload.Country,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, profile)
}

func (h *handler) login(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	profile, token, err := h.app.Users.Authenticate(r.Context(), payload.Email, payload.Password)
	if err != nil {
		if errors.Is(err, errs.ErrForbidden) {
			writeError(w, http.StatusUnauthorized, err)
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": profile})
}

// users -----------------------------------------------------------------------

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	profile, err := h.app.Users.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *handler) getPoints(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	if !selfOrAdmin(r, userID) {
		writeError(w, http.StatusForbidden, errs.ErrForbidden)
		return
	}
	balance, err := h.app.Points.Balance(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"balance": balance})
}

// items -----------------------------------------------------------------------

type itemPayload struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Condition   string   `json:"condition"`
	Size        string   `json:"size"`
	Tags        []string `json:"tags"`
	ImageURLs   []string `json:"image_urls"`
	PointsValue int64    `json:"points_value"`
}

func (h *handler) createItem(w http.ResponseWriter, r *http.Request) {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, errs.ErrForbidden)
		return
	}
	var payload itemPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.app.Items.Create(r.Context(), p.UserID, items.CreateParams{
		Title:       payload.Title,
		Description: payload.Description,
		Category:    item.Category(payload.Category),
		Condition:   item.Condition(payload.Condition),
		Size:        payload.Size,
		Tags:        payload.Tags,
		ImageURLs:   payload.ImageURLs,
		PointsValue: payload.PointsValue,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	listed, err := h.app.Items.ListAvailable(r.Context(), item.Filter{
		Category:  item.Category(q.Get("category")),
		Size:      q.Get("size"),
		Condition: item.Condition(q.Get("condition")),
		Search:    q.Get("search"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listed)
}

func (h *handler) getItem(w http.ResponseWriter, r *http.Request) {
	it, err := h.app.Items.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (h *handler) updateItem(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())
	var payload itemPayload
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.app.Items.Update(r.Context(), p.UserID, item.Item{
		ID:          mux.Vars(r)["id"],
		Title:       payload.Title,
		Description: payload.Description,
		Category:    item.Category(payload.Category),
		Condition:   item.Condition(payload.Condition),
		Size:        payload.Size,
		Tags:        payload.Tags,
		ImageURLs:   payload.ImageURLs,
		PointsValue: payload.PointsValue,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())
	if err := h.app.Items.Delete(r.Context(), p.UserID, mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listUserItems(w http.ResponseWriter, r *http.Request) {
	listed, err := h.app.Items.ListByUser(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listed)
}

// swaps -----------------------------------------------------------------------

func (h *handler) createSwap(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())
	var payload struct {
		ReceiverID      string `json:"receiver_id"`
		InitiatorItemID string `json:"initiator_item_id"`
		ReceiverItemID  string `json:"receiver_item_id"`
		Message         string `json:"message"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, err := h.app.Swaps.Create(r.Context(), p.UserID, swaps.CreateParams{
		ReceiverID:      payload.ReceiverID,
		InitiatorItemID: payload.InitiatorItemID,
		ReceiverItemID:  payload.ReceiverItemID,
		Message:         payload.Message,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *handler) getSwap(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())
	sw, err := h.app.Swaps.Get(r.Context(), p.UserID, mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sw)
}

func (h *handler) transitionSwap(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())
	var payload struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	updated, err := h.app.Swaps.Transition(r.Context(), p.UserID, mux.Vars(r)["id"], swap.Status(payload.Status))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *handler) listUserSwaps(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	if !selfOrAdmin(r, userID) {
		writeError(w, http.StatusForbidden, errs.ErrForbidden)
		return
	}
	listed, err := h.app.Swaps.ListForUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listed)
}

func (h *handler) listPendingSwaps(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	if !selfOrAdmin(r, userID) {
		writeError(w, http.StatusForbidden, errs.ErrForbidden)
		return
	}
	listed, err := h.app.Swaps.ListPendingForUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listed)
}

// redemptions -----------------------------------------------------------------

func (h *handler) createRedemption(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())
	var payload struct {
		ItemID     string `json:"item_id"`
		PointsUsed int64  `json:"points_used"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	rec, balance, err := h.app.Redemptions.Redeem(r.Context(), p.UserID, payload.ItemID, payload.PointsUsed)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"redemption": rec, "balance": balance})
}

func (h *handler) getRedemption(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())
	rec, err := h.app.Redemptions.Get(r.Context(), p.UserID, user.Role(p.Role), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) listUserRedemptions(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	if !selfOrAdmin(r, userID) {
		writeError(w, http.StatusForbidden, errs.ErrForbidden)
		return
	}
	listed, err := h.app.Redemptions.ListForUser(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listed)
}

// ratings ---------------------------------------------------------------------

func (h *handler) createRating(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())
	var payload struct {
		RatedUserID     string `json:"rated_user_id"`
		Score           int    `json:"score"`
		Comment         string `json:"comment"`
		TransactionType string `json:"transaction_type"`
		TransactionID   string `json:"transaction_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	created, agg, err := h.app.Ratings.Rate(r.Context(), p.UserID, ratings.RateParams{
		RatedUserID:     payload.RatedUserID,
		Score:           payload.Score,
		Comment:         payload.Comment,
		TransactionType: rating.TransactionType(payload.TransactionType),
		TransactionID:   payload.TransactionID,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"rating": created, "aggregate": agg})
}

func (h *handler) getRating(w http.ResponseWriter, r *http.Request) {
	p, _ := middleware.PrincipalFrom(r.Context())
	got, err := h.app.Ratings.Get(r.Context(), p.UserID, user.Role(p.Role), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, got)
}

func (h *handler) listRatingsGiven(w http.ResponseWriter, r *http.Request) {
	listed, err := h.app.Ratings.ListGiven(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listed)
}

func (h *handler) listRatingsReceived(w http.ResponseWriter, r *http.Request) {
	listed, err := h.app.Ratings.ListReceived(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listed)
}

// ai --------------------------------------------------------------------------

func (h *handler) aiDescription(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ItemID string `json:"item_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	it, err := h.app.Items.Get(r.Context(), payload.ItemID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	text, err := h.app.AIText.Description(r.Context(), it)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"description": text})
}

func (h *handler) aiTags(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	sug, err := h.app.AIText.TagsAndCategory(r.Context(), payload.Title, payload.Description)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, sug)
}

func (h *handler) aiSuggestions(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ItemID string `json:"item_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	mine, err := h.app.Items.Get(r.Context(), payload.ItemID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	candidates, err := h.app.Items.ListAvailable(r.Context(), item.Filter{Category: mine.Category})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	text, err := h.app.AIText.SwapSuggestions(r.Context(), mine, candidates)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"suggestions": text})
}

func (h *handler) aiImpact(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ItemID string `json:"item_id"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	it, err := h.app.Items.Get(r.Context(), payload.ItemID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	text, err := h.app.AIText.SustainabilityImpact(r.Context(), it)
	if err != nil {
		writeError(w, http.StatusBadGateway, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"impact": text})
}

// helpers ---------------------------------------------------------------------

// selfOrAdmin reports whether the caller is the named user or an admin.
func selfOrAdmin(r *http.Request, userID string) bool {
	p, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		return false
	}
	return p.UserID == userID || user.Role(p.Role) == user.RoleAdmin
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, errs.ErrConflict),
		errors.Is(err, errs.ErrDuplicateRating),
		errors.Is(err, errs.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, errs.ErrInvalidState),
		errors.Is(err, errs.ErrInvalidTransition),
		errors.Is(err, errs.ErrInsufficientFunds),
		errors.Is(err, errs.ErrPointsMismatch),
		errors.Is(err, errs.ErrItemUnavailable),
		errors.Is(err, errs.ErrSelfRating),
		errors.Is(err, errs.ErrInvalidRating):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

func decodeJSON(body io.ReadCloser, dst interface{}) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
