package handler

import (
	"net/http"

	"github.com/lberndt/galaxytrade/internal/domain"
	"github.com/lberndt/galaxytrade/internal/service"
)

// TransferHandler serves the direct ledger routes used by non-market
// flows.
type TransferHandler struct {
	transfers *service.TransferService
}

// NewTransferHandler creates a TransferHandler.
func NewTransferHandler(transfers *service.TransferService) *TransferHandler {
	return &TransferHandler{transfers: transfers}
}

type transferRequest struct {
	Changes map[string]map[string]int64 `json:"changes"`
}

// Transfer handles POST /transfers: an atomic multi-account move of goods.
func (h *TransferHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := h.transfers.Transfer(r.Context(), domain.ChangeSet(req.Changes)); err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Holdings handles GET /holdings?account=. The account id is a query
// parameter because ids contain slashes ("user/alice", "cargo/bob/sol").
func (h *TransferHandler) Holdings(w http.ResponseWriter, r *http.Request) {
	holdings, err := h.transfers.Holdings(r.Context(), r.URL.Query().Get("account"))
	if err != nil {
		WriteDomainError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, holdings)
}
