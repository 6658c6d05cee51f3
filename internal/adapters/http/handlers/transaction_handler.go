package handlers

import (
	"btg-funds/internal/adapters/http/middleware"
	"btg-funds/internal/core/domain"
	"btg-funds/internal/core/services"
	"btg-funds/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// TransactionHandler serves the ledger history
type TransactionHandler struct {
	ledger *services.LedgerService
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(ledger *services.LedgerService) *TransactionHandler {
	return &TransactionHandler{ledger: ledger}
}

// History lists a client's transactions newest first
// @Summary Transaction history
// @Tags Transactions
// @Produce json
// @Security BearerAuth
// @Param clientId path string true "Client ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/transacciones/historial/{clientId} [get]
func (h *TransactionHandler) History(c *fiber.Ctx) error {
	clientID := c.Params("clientId")
	if middleware.Role(c) != domain.RoleAdmin && middleware.UserID(c) != clientID {
		return response.FromError(c, domain.ErrForbidden)
	}

	txs, err := h.ledger.History(c.Context(), clientID)
	if err != nil {
		return response.FromError(c, err)
	}

	data := make([]TransactionResponse, 0, len(txs))
	for _, t := range txs {
		data = append(data, toTransactionResponse(t))
	}
	return response.Success(c, "Transactions retrieved successfully", data)
}
