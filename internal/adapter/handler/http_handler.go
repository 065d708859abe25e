package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/vhoang/agritrace/internal/core/domain"
	"github.com/vhoang/agritrace/internal/core/service"
)

// HTTPHandler exposes one endpoint per ledger operation. Caller identity is
// taken from the request body; authentication is the transport layer's
// concern and sits in front of this handler.
type HTTPHandler struct {
	ledger *service.Ledger
}

func NewHTTPHandler(ledger *service.Ledger) *HTTPHandler {
	return &HTTPHandler{ledger: ledger}
}

// Register wires every route onto the mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HealthCheck)

	mux.HandleFunc("/api/admission/request", h.RequestAdmission)
	mux.HandleFunc("/api/admission/approve", h.ApproveAdmission)
	mux.HandleFunc("/api/admission/revoke", h.RevokeAdmission)
	mux.HandleFunc("/api/admission/pending", h.PendingRequests)
	mux.HandleFunc("/api/roster", h.Roster)
	mux.HandleFunc("/api/role", h.Role)

	mux.HandleFunc("/api/production/create", h.CreateProduction)
	mux.HandleFunc("/api/production/update", h.UpdateProduction)
	mux.HandleFunc("/api/production/own", h.OwnProductions)
	mux.HandleFunc("/api/production/public", h.PublicProductions)

	mux.HandleFunc("/api/distribution/acquire", h.Acquire)
	mux.HandleFunc("/api/distribution/split", h.SplitDistribution)
	mux.HandleFunc("/api/distribution/own", h.OwnDistributions)
	mux.HandleFunc("/api/pack/list", h.ListPack)
	mux.HandleFunc("/api/pack/visible", h.PacksVisibleTo)

	mux.HandleFunc("/api/transfer/open", h.OpenTransfer)
	mux.HandleFunc("/api/transfer/resolve", h.ResolveTransfer)

	mux.HandleFunc("/api/unit/split", h.SplitUnit)
	mux.HandleFunc("/api/unit/list", h.ListUnitForBuyers)
	mux.HandleFunc("/api/unit/sell", h.Sell)
	mux.HandleFunc("/api/unit/own", h.OwnUnits)
	mux.HandleFunc("/api/unit/listed", h.UnitsListedForBuyers)
	mux.HandleFunc("/api/history", h.PurchaseHistory)

	mux.HandleFunc("/api/settlement/withdraw", h.Withdraw)
	mux.HandleFunc("/api/settlement/credit", h.PendingCredit)

	mux.HandleFunc("/api/trace/unit", h.TraceUnit)
	mux.HandleFunc("/api/trace/pack", h.PackOrigin)
	mux.HandleFunc("/api/trace/batch", h.BatchTrace)
}

type admissionRequest struct {
	Address  string `json:"address"`
	Role     string `json:"role"`
	Target   string `json:"target,omitempty"`
	Metadata string `json:"metadata,omitempty"`
}

type productionCreateRequest struct {
	Address      string `json:"address"`
	Name         string `json:"name"`
	Period       string `json:"period"`
	MaturityDays int64  `json:"maturity_days"`
	Quantity     int64  `json:"quantity"`
	UnitPrice    int64  `json:"unit_price"`
	Location     string `json:"location"`
	Visibility   string `json:"visibility"`
	ContentRef   string `json:"content_ref"`
}

type productionUpdateRequest struct {
	Address    string `json:"address"`
	ID         uint64 `json:"id"`
	Quantity   int64  `json:"quantity"`
	UnitPrice  int64  `json:"unit_price"`
	Visibility string `json:"visibility"`
	ContentRef string `json:"content_ref"`
	SetActive  bool   `json:"set_active"`
}

type acquireRequest struct {
	Address      string `json:"address"`
	ProductionID uint64 `json:"production_id"`
	Quantity     int64  `json:"quantity"`
	Payment      int64  `json:"payment"`
}

type splitRequest struct {
	Address     string   `json:"address"`
	ID          uint64   `json:"id"`
	Quantities  []int64  `json:"quantities"`
	Prices      []int64  `json:"prices"`
	ContentRefs []string `json:"content_refs"`
}

type listPackRequest struct {
	Address         string `json:"address"`
	PackID          uint64 `json:"pack_id"`
	Visibility      string `json:"visibility"`
	RestrictedBuyer string `json:"restricted_buyer"`
}

type openTransferRequest struct {
	Address          string `json:"address"`
	PackID           uint64 `json:"pack_id"`
	Quantity         int64  `json:"quantity"`
	WantsRoleUpgrade bool   `json:"wants_role_upgrade"`
	Payment          int64  `json:"payment"`
}

type resolveTransferRequest struct {
	Address   string `json:"address"`
	RequestID uint64 `json:"request_id"`
	Accept    bool   `json:"accept"`
}

type unitOpRequest struct {
	Address  string `json:"address"`
	UnitID   uint64 `json:"unit_id"`
	Quantity int64  `json:"quantity"`
	Payment  int64  `json:"payment"`
}

type idResponse struct {
	ID uint64 `json:"id"`
}

type idsResponse struct {
	IDs []uint64 `json:"ids"`
}

type okResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) RequestAdmission(w http.ResponseWriter, r *http.Request) {
	var req admissionRequest
	if !decode(w, r, &req) {
		return
	}
	err := h.ledger.RequestAdmission(r.Context(), req.Address, domain.Role(req.Role), []byte(req.Metadata))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

func (h *HTTPHandler) ApproveAdmission(w http.ResponseWriter, r *http.Request) {
	var req admissionRequest
	if !decode(w, r, &req) {
		return
	}
	err := h.ledger.ApproveAdmission(r.Context(), req.Address, req.Target, domain.Role(req.Role))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

func (h *HTTPHandler) RevokeAdmission(w http.ResponseWriter, r *http.Request) {
	var req admissionRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.ledger.RevokeAdmission(r.Context(), req.Address, req.Target); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

func (h *HTTPHandler) PendingRequests(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ledger.PendingRequests())
}

func (h *HTTPHandler) Roster(w http.ResponseWriter, r *http.Request) {
	if role := r.URL.Query().Get("role"); role != "" {
		writeJSON(w, http.StatusOK, h.ledger.AddressesWithRole(domain.Role(role)))
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"size": h.ledger.RosterSize()})
}

func (h *HTTPHandler) Role(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	writeJSON(w, http.StatusOK, map[string]string{"role": string(h.ledger.RoleOf(address))})
}

func (h *HTTPHandler) CreateProduction(w http.ResponseWriter, r *http.Request) {
	var req productionCreateRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := h.ledger.CreateProduction(r.Context(), req.Address, service.ProductionInput{
		Name:         req.Name,
		Period:       req.Period,
		MaturityDays: req.MaturityDays,
		Quantity:     req.Quantity,
		UnitPrice:    req.UnitPrice,
		Location:     req.Location,
		Visibility:   domain.Visibility(req.Visibility),
		ContentRef:   req.ContentRef,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

func (h *HTTPHandler) UpdateProduction(w http.ResponseWriter, r *http.Request) {
	var req productionUpdateRequest
	if !decode(w, r, &req) {
		return
	}
	err := h.ledger.UpdateProduction(r.Context(), req.Address, req.ID, service.ProductionUpdate{
		Quantity:   req.Quantity,
		UnitPrice:  req.UnitPrice,
		Visibility: domain.Visibility(req.Visibility),
		ContentRef: req.ContentRef,
		SetActive:  req.SetActive,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

func (h *HTTPHandler) OwnProductions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ledger.OwnProductions(r.URL.Query().Get("address")))
}

func (h *HTTPHandler) PublicProductions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ledger.PublicProductions())
}

func (h *HTTPHandler) Acquire(w http.ResponseWriter, r *http.Request) {
	var req acquireRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := h.ledger.Acquire(r.Context(), req.Address, req.ProductionID, req.Quantity, req.Payment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

func (h *HTTPHandler) SplitDistribution(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if !decode(w, r, &req) {
		return
	}
	ids, err := h.ledger.SplitDistribution(r.Context(), req.Address, req.ID, req.Quantities, req.Prices, req.ContentRefs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idsResponse{IDs: ids})
}

func (h *HTTPHandler) OwnDistributions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ledger.OwnDistributions(r.URL.Query().Get("address")))
}

func (h *HTTPHandler) ListPack(w http.ResponseWriter, r *http.Request) {
	var req listPackRequest
	if !decode(w, r, &req) {
		return
	}
	err := h.ledger.ListPack(r.Context(), req.Address, req.PackID, domain.Visibility(req.Visibility), req.RestrictedBuyer)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

func (h *HTTPHandler) PacksVisibleTo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ledger.PacksVisibleTo(r.URL.Query().Get("address")))
}

func (h *HTTPHandler) OpenTransfer(w http.ResponseWriter, r *http.Request) {
	var req openTransferRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := h.ledger.OpenTransfer(r.Context(), req.Address, req.PackID, req.Quantity, req.WantsRoleUpgrade, req.Payment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

func (h *HTTPHandler) ResolveTransfer(w http.ResponseWriter, r *http.Request) {
	var req resolveTransferRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.ledger.ResolveTransfer(r.Context(), req.Address, req.RequestID, req.Accept); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

func (h *HTTPHandler) SplitUnit(w http.ResponseWriter, r *http.Request) {
	var req splitRequest
	if !decode(w, r, &req) {
		return
	}
	ids, err := h.ledger.SplitUnit(r.Context(), req.Address, req.ID, req.Quantities, req.Prices, req.ContentRefs)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idsResponse{IDs: ids})
}

func (h *HTTPHandler) ListUnitForBuyers(w http.ResponseWriter, r *http.Request) {
	var req unitOpRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.ledger.ListUnitForBuyers(r.Context(), req.Address, req.UnitID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{Success: true})
}

func (h *HTTPHandler) Sell(w http.ResponseWriter, r *http.Request) {
	var req unitOpRequest
	if !decode(w, r, &req) {
		return
	}
	id, err := h.ledger.Sell(r.Context(), req.Address, req.UnitID, req.Quantity, req.Payment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idResponse{ID: id})
}

func (h *HTTPHandler) OwnUnits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ledger.OwnUnits(r.URL.Query().Get("address")))
}

func (h *HTTPHandler) UnitsListedForBuyers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ledger.UnitsListedForBuyers())
}

func (h *HTTPHandler) PurchaseHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ledger.PurchaseHistory(r.URL.Query().Get("address")))
}

func (h *HTTPHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req admissionRequest
	if !decode(w, r, &req) {
		return
	}
	amount, err := h.ledger.Withdraw(r.Context(), req.Address)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"amount": amount})
}

func (h *HTTPHandler) PendingCredit(w http.ResponseWriter, r *http.Request) {
	address := r.URL.Query().Get("address")
	writeJSON(w, http.StatusOK, map[string]int64{"amount": h.ledger.PendingCredit(address)})
}

func (h *HTTPHandler) TraceUnit(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	trace, err := h.ledger.TraceUnit(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trace)
}

func (h *HTTPHandler) PackOrigin(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	origin, err := h.ledger.PackOrigin(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, idResponse{ID: origin})
}

func (h *HTTPHandler) BatchTrace(w http.ResponseWriter, r *http.Request) {
	id, ok := queryID(w, r)
	if !ok {
		return
	}
	trace, err := h.ledger.BatchTraceOf(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, trace)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, okResponse{Success: false, Message: "invalid request body"})
		return false
	}
	return true
}

func queryID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, okResponse{Success: false, Message: "invalid id"})
		return 0, false
	}
	return id, true
}

// writeError maps the engine's error categories onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrAuthorization):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrPayment):
		status = http.StatusPaymentRequired
	case errors.Is(err, service.ErrConservation):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, service.ErrState):
		status = http.StatusConflict
	}
	writeJSON(w, status, okResponse{Success: false, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
