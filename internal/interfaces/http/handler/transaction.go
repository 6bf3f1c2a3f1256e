package http_handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/equitas-foundation/multisigd/internal/core/application"
	"github.com/equitas-foundation/multisigd/internal/core/domain"
)

type TransactionHandler struct {
	txSvc *application.TransactionService
}

func NewTransactionHandler(txSvc *application.TransactionService) *TransactionHandler {
	return &TransactionHandler{txSvc}
}

type createTransactionRequest struct {
	Payload     string   `json:"payload"`
	Description string   `json:"description"`
	AccountId   string   `json:"account_id"`
	Network     string   `json:"network"`
	KeyList     []string `json:"key_list"`
	Threshold   int      `json:"threshold"`
}

type signTransactionRequest struct {
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

type transactionResponse struct {
	Id          string    `json:"id"`
	Payload     string    `json:"payload"`
	Description string    `json:"description,omitempty"`
	AccountId   string    `json:"account_id"`
	Network     string    `json:"network"`
	KeyList     []string  `json:"key_list"`
	Threshold   int       `json:"threshold"`
	SignedKeys  []string  `json:"signed_keys"`
	Signatures  []string  `json:"signatures"`
	Status      string    `json:"status"`
	StartDate   time.Time `json:"start_date"`
}

type listTransactionsResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	Page         int                   `json:"page"`
	TotalPages   int                   `json:"total_pages"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	info, err := h.txSvc.CreateTransaction(
		r.Context(), req.Payload, req.Description, req.AccountId, req.Network,
		req.KeyList, req.Threshold,
	)
	if err != nil {
		renderDomainError(w, err)
		return
	}

	renderJSON(w, http.StatusCreated, toTransactionResponse(info))
}

func (h *TransactionHandler) Sign(w http.ResponseWriter, r *http.Request) {
	txId := chi.URLParam(r, "id")

	var req signTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	info, err := h.txSvc.SignTransaction(
		r.Context(), txId, req.PublicKey, req.Signature,
	)
	if err != nil {
		renderDomainError(w, err)
		return
	}

	renderJSON(w, http.StatusOK, toTransactionResponse(info))
}

func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	txId := chi.URLParam(r, "id")

	info, err := h.txSvc.GetTransaction(r.Context(), txId)
	if err != nil {
		renderDomainError(w, err)
		return
	}

	renderJSON(w, http.StatusOK, toTransactionResponse(info))
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	filters := application.ListFilters{
		PublicKey: r.URL.Query().Get("public_key"),
		Status:    r.URL.Query().Get("status"),
		Network:   r.URL.Query().Get("network"),
	}
	page := application.Page{
		Number: parseIntParam(r, "page", 1),
		Size:   parseIntParam(r, "page_size", application.DefaultPageSize),
	}

	txs, totalPages, err := h.txSvc.ListTransactions(r.Context(), filters, page)
	if err != nil {
		renderDomainError(w, err)
		return
	}

	list := make([]transactionResponse, 0, len(txs))
	for i := range txs {
		list = append(list, toTransactionResponse(&txs[i]))
	}
	renderJSON(w, http.StatusOK, listTransactionsResponse{
		Transactions: list,
		Page:         page.Number,
		TotalPages:   totalPages,
	})
}

func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	txId := chi.URLParam(r, "id")

	if err := h.txSvc.DeleteTransaction(r.Context(), txId); err != nil {
		renderDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func toTransactionResponse(info *application.TransactionInfo) transactionResponse {
	tx := (*domain.Transaction)(info)
	return transactionResponse{
		Id:          tx.Id,
		Payload:     tx.Payload,
		Description: tx.Description,
		AccountId:   tx.AccountId,
		Network:     tx.Network,
		KeyList:     tx.KeyList,
		Threshold:   tx.Threshold,
		SignedKeys:  tx.SignedKeys(),
		Signatures:  tx.Signatures(),
		Status:      string(tx.Status),
		StartDate:   tx.StartDate,
	}
}

func renderDomainError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch err {
	case domain.ErrTransactionNotFound:
		status = http.StatusNotFound
	case domain.ErrTransactionUnauthorizedKey:
		status = http.StatusForbidden
	case domain.ErrTransactionExpired:
		status = http.StatusConflict
	case domain.ErrTransactionInvalidId,
		domain.ErrTransactionInvalidSignature,
		domain.ErrTransactionMissingPayload,
		domain.ErrTransactionMissingAccount,
		domain.ErrTransactionMissingKeyList,
		domain.ErrTransactionInvalidThreshold,
		domain.ErrTransactionInvalidNetwork,
		domain.ErrTransactionInvalidStatus:
		status = http.StatusBadRequest
	}
	renderError(w, status, err.Error())
}

func renderError(w http.ResponseWriter, status int, msg string) {
	renderJSON(w, status, errorResponse{msg})
}

func renderJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint
	json.NewEncoder(w).Encode(data)
}

func parseIntParam(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed < 1 {
		return defaultVal
	}
	return parsed
}
