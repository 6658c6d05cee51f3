package handlers

import (
	"strings"

	"btg-funds/internal/adapters/http/middleware"
	"btg-funds/internal/core/services"
	"btg-funds/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// FundHandler handles the fund catalog and subscriptions
type FundHandler struct {
	clientService *services.ClientService
	ledger        *services.LedgerService
}

// NewFundHandler creates a new fund handler
func NewFundHandler(clientService *services.ClientService, ledger *services.LedgerService) *FundHandler {
	return &FundHandler{clientService: clientService, ledger: ledger}
}

// List returns the fund catalog
// @Summary List funds
// @Tags Funds
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Router /api/fondos [get]
func (h *FundHandler) List(c *fiber.Ctx) error {
	funds, err := h.clientService.ListFunds(c.Context())
	if err != nil {
		return response.FromError(c, err)
	}

	data := make([]FundResponse, 0, len(funds))
	for _, f := range funds {
		data = append(data, toFundResponse(f))
	}
	return response.Success(c, "Funds retrieved successfully", data)
}

// Subscribe subscribes the caller to a fund
// @Summary Subscribe to fund
// @Description Commit amount (or the fund minimum when omitted) from the caller's balance
// @Tags Funds
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.SubscribeInput true "Subscription"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/fondos/suscribirse [post]
func (h *FundHandler) Subscribe(c *fiber.Ctx) error {
	var req services.SubscribeInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	fundID := strings.TrimSpace(req.FundID)
	if fundID == "" {
		return response.BadRequest(c, "fund_id is required")
	}

	tx, err := h.ledger.Subscribe(c.Context(), middleware.UserID(c), fundID, req.Amount)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Subscription completed", toTransactionResponse(*tx))
}

// Cancel cancels the caller's subscription to a fund
// @Summary Cancel subscription
// @Description Return the subscribed amount to the caller's balance
// @Tags Funds
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CancelInput true "Cancellation"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/fondos/cancelar [post]
func (h *FundHandler) Cancel(c *fiber.Ctx) error {
	var req services.CancelInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}
	fundID := strings.TrimSpace(req.FundID)
	if fundID == "" {
		return response.BadRequest(c, "fund_id is required")
	}

	tx, err := h.ledger.Cancel(c.Context(), middleware.UserID(c), fundID)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Subscription cancelled", toTransactionResponse(*tx))
}
