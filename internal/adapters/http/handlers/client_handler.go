package handlers

import (
	"btg-funds/internal/adapters/http/middleware"
	"btg-funds/internal/core/services"
	"btg-funds/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// ClientHandler handles client profile endpoints
type ClientHandler struct {
	clientService *services.ClientService
}

// NewClientHandler creates a new client handler
func NewClientHandler(clientService *services.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

// Create creates the caller's client profile
// @Summary Create client profile
// @Description Create the profile of the authenticated client. The client id is the user id.
// @Tags Clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body services.CreateClientInput true "Profile data"
// @Success 201 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/clientes [post]
func (h *ClientHandler) Create(c *fiber.Ctx) error {
	var req services.CreateClientInput
	if err := c.BodyParser(&req); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	client, err := h.clientService.CreateProfile(c.Context(), middleware.UserID(c), &req)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Client created successfully", toClientResponse(client))
}

// Get returns a client profile
// @Summary Get client
// @Description Clients can read their own profile; admins can read any
// @Tags Clients
// @Produce json
// @Security BearerAuth
// @Param id path string true "Client ID"
// @Success 200 {object} response.Response
// @Failure 403 {object} response.Response
// @Failure 404 {object} response.Response
// @Router /api/clientes/{id} [get]
func (h *ClientHandler) Get(c *fiber.Ctx) error {
	requester := services.Requester{UserID: middleware.UserID(c), Role: middleware.Role(c)}
	client, err := h.clientService.Get(c.Context(), requester, c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Client retrieved successfully", toClientResponse(client))
}
