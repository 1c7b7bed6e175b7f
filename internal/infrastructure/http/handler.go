package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	appInventory "github.com/synexstock/orderflow/internal/application/inventory"
	appOrder "github.com/synexstock/orderflow/internal/application/order"
	appUser "github.com/synexstock/orderflow/internal/application/user"
	"github.com/synexstock/orderflow/internal/auth"
	domainInventory "github.com/synexstock/orderflow/internal/domain/inventory"
	domainOrder "github.com/synexstock/orderflow/internal/domain/order"
	domainUser "github.com/synexstock/orderflow/internal/domain/user"
)

type Handler struct {
	orderService     *appOrder.Service
	inventoryService *appInventory.Service
	userService      *appUser.Service
	defaultPageSize  int
}

func NewHandler(orderSvc *appOrder.Service, inventorySvc *appInventory.Service, userSvc *appUser.Service, defaultPageSize int) *Handler {
	if defaultPageSize < 1 {
		defaultPageSize = 10
	}
	return &Handler{
		orderService:     orderSvc,
		inventoryService: inventorySvc,
		userService:      userSvc,
		defaultPageSize:  defaultPageSize,
	}
}

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/auth/signup", h.handleSignup)
	mux.HandleFunc("POST /api/auth/login", h.handleLogin)
	mux.HandleFunc("GET /api/auth/email/{username}", requireRoles(h.handleEmailLookup))

	staff := []string{domainUser.RoleAdmin, domainUser.RoleManager, domainUser.RoleWarehouseStaff}
	managers := []string{domainUser.RoleAdmin, domainUser.RoleManager}
	admin := []string{domainUser.RoleAdmin}

	mux.HandleFunc("POST /api/orders", requireRoles(h.handlePlaceOrder, staff...))
	mux.HandleFunc("GET /api/orders", requireRoles(h.handleListOrders, managers...))
	mux.HandleFunc("GET /api/orders/{id}", requireRoles(h.handleGetOrder, managers...))
	mux.HandleFunc("PUT /api/orders/{id}", requireRoles(h.handleUpdateOrder, admin...))
	mux.HandleFunc("DELETE /api/orders/{id}", requireRoles(h.handleDeleteOrder, admin...))

	mux.HandleFunc("POST /api/inventory/deduct", requireRoles(h.handleDeduct, staff...))
	mux.HandleFunc("GET /api/inventory", requireRoles(h.handleListInventory, staff...))
	mux.HandleFunc("POST /api/inventory", requireRoles(h.handleCreateItem, managers...))
	mux.HandleFunc("GET /api/inventory/{id}", requireRoles(h.handleGetItem, staff...))
	mux.HandleFunc("PUT /api/inventory/{id}", requireRoles(h.handleUpdateItem, managers...))
	mux.HandleFunc("DELETE /api/inventory/{id}", requireRoles(h.handleDeleteItem, managers...))
	mux.HandleFunc("GET /api/inventory/sku/{sku}", requireRoles(h.handleGetItemBySKU, staff...))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return mux
}

type signupRequest struct {
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
	Roles    []string `json:"roles"`
}

type userResponse struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	u, err := h.userService.Signup(r.Context(), appUser.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{ID: u.ID, Username: u.Username, Email: u.Email, Roles: u.Roles})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string   `json:"token"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	token, u, err := h.userService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Username: u.Username, Roles: u.Roles})
}

func (h *Handler) handleEmailLookup(w http.ResponseWriter, r *http.Request) {
	email, err := h.userService.EmailOf(r.Context(), r.PathValue("username"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": email})
}

type orderRequest struct {
	SKUCode  string `json:"skuCode"`
	Quantity int    `json:"quantity"`
	PlacedBy string `json:"placedBy"`
}

type orderResponse struct {
	ID       string    `json:"id"`
	SKUCode  string    `json:"skuCode"`
	Quantity int       `json:"quantity"`
	Status   string    `json:"status"`
	PlacedBy string    `json:"placedBy"`
	PlacedAt time.Time `json:"placedAt"`
}

func toOrderResponse(o *domainOrder.Order) orderResponse {
	return orderResponse{
		ID:       o.ID,
		SKUCode:  o.SKUCode,
		Quantity: o.Quantity,
		Status:   string(o.Status),
		PlacedBy: o.PlacedBy,
		PlacedAt: o.PlacedAt,
	}
}

func (h *Handler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	order, err := h.orderService.Place(r.Context(), auth.CredentialFrom(r.Context()), appOrder.PlaceOrderInput{
		SKUCode:  req.SKUCode,
		Quantity: req.Quantity,
		PlacedBy: req.PlacedBy,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderService.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) handleUpdateOrder(w http.ResponseWriter, r *http.Request) {
	var req orderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	order, err := h.orderService.Update(r.Context(), r.PathValue("id"), appOrder.UpdateOrderInput{
		SKUCode:  req.SKUCode,
		Quantity: req.Quantity,
		PlacedBy: req.PlacedBy,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) handleDeleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orderService.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type orderPageResponse struct {
	Orders     []orderResponse `json:"orders"`
	Page       int             `json:"page"`
	Size       int             `json:"size"`
	TotalItems int             `json:"totalItems"`
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 0)
	size := queryInt(r, "size", h.defaultPageSize)

	result, err := h.orderService.List(r.Context(), page, size)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := orderPageResponse{
		Orders:     make([]orderResponse, 0, len(result.Orders)),
		Page:       result.Page,
		Size:       result.Size,
		TotalItems: result.TotalItems,
	}
	for _, o := range result.Orders {
		resp.Orders = append(resp.Orders, toOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

type deductRequest struct {
	SKUCode  string `json:"skuCode"`
	Quantity int    `json:"quantity"`
}

func (h *Handler) handleDeduct(w http.ResponseWriter, r *http.Request) {
	var req deductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	ok, err := h.inventoryService.Deduct(r.Context(), req.SKUCode, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, errors.New("deduction rejected"))
		return
	}
	w.WriteHeader(http.StatusOK)
}

type itemRequest struct {
	SKUCode           string     `json:"skuCode"`
	Name              string     `json:"name"`
	QuantityAvailable *int       `json:"quantityAvailable"`
	QuantityReserved  *int       `json:"quantityReserved"`
	ReorderLevel      *int       `json:"reorderLevel"`
	Location          string     `json:"location"`
	ExpiryDate        *time.Time `json:"expiryDate"`
}

type itemResponse struct {
	ID                string     `json:"id"`
	SKUCode           string     `json:"skuCode"`
	Name              string     `json:"name"`
	QuantityAvailable *int       `json:"quantityAvailable"`
	QuantityReserved  *int       `json:"quantityReserved"`
	ReorderLevel      *int       `json:"reorderLevel"`
	Location          string     `json:"location"`
	ExpiryDate        *time.Time `json:"expiryDate"`
}

func toItemResponse(i *domainInventory.Item) itemResponse {
	return itemResponse{
		ID:                i.ID,
		SKUCode:           i.SKUCode,
		Name:              i.Name,
		QuantityAvailable: i.QuantityAvailable,
		QuantityReserved:  i.QuantityReserved,
		ReorderLevel:      i.ReorderLevel,
		Location:          i.Location,
		ExpiryDate:        i.ExpiryDate,
	}
}

func (r itemRequest) toInput() appInventory.ItemInput {
	return appInventory.ItemInput{
		SKUCode:           r.SKUCode,
		Name:              r.Name,
		QuantityAvailable: r.QuantityAvailable,
		QuantityReserved:  r.QuantityReserved,
		ReorderLevel:      r.ReorderLevel,
		Location:          r.Location,
		ExpiryDate:        r.ExpiryDate,
	}
}

func (h *Handler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	item, err := h.inventoryService.Create(r.Context(), req.toInput())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemResponse(item))
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req itemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	item, err := h.inventoryService.Update(r.Context(), r.PathValue("id"), req.toInput())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (h *Handler) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.inventoryService.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.inventoryService.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (h *Handler) handleGetItemBySKU(w http.ResponseWriter, r *http.Request) {
	item, err := h.inventoryService.GetBySKU(r.Context(), r.PathValue("sku"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(item))
}

func (h *Handler) handleListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventoryService.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	resp := make([]itemResponse, 0, len(items))
	for _, i := range items {
		resp = append(resp, toItemResponse(i))
	}
	writeJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainOrder.ErrNotFound),
		errors.Is(err, domainInventory.ErrNotFound),
		errors.Is(err, domainUser.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, domainOrder.ErrConflict),
		errors.Is(err, domainInventory.ErrConflict),
		errors.Is(err, domainUser.ErrUsernameTaken),
		errors.Is(err, domainUser.ErrEmailTaken):
		writeError(w, http.StatusConflict, err)
	case errors.Is(err, domainUser.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err)
	case errors.Is(err, domainOrder.ErrInvalidSKU),
		errors.Is(err, domainOrder.ErrInvalidQuantity),
		errors.Is(err, domainOrder.ErrInvalidPlacedBy),
		errors.Is(err, domainInventory.ErrInvalidSKU),
		errors.Is(err, domainInventory.ErrInvalidQuantity),
		errors.Is(err, domainUser.ErrInvalidRole),
		errors.Is(err, domainUser.ErrInvalidPassword):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
