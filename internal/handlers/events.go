package handlers

import (
	"errors"
	"net/http"

	"eventify-payments/internal/logger"
	"eventify-payments/internal/storage"
	"eventify-payments/internal/utils"

	"github.com/gin-gonic/gin"
)

// EventHandler exposes the local event catalog view and the administrative
// inventory reset. Inventory is otherwise only ever mutated by the
// reconciler's decrement.
type EventHandler struct {
	store storage.Store
	log   *logger.Logger
}

func NewEventHandler(store storage.Store, log *logger.Logger) *EventHandler {
	return &EventHandler{store: store, log: log}
}

func (h *EventHandler) GetEvent(c *gin.Context) {
	eventID := c.Param("id")

	event, err := h.store.FindEventByID(eventID)
	if err != nil {
		if errors.Is(err, storage.ErrEventNotFound) {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Event not found", err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to retrieve event", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Event retrieved", event))
}

type resetInventoryRequest struct {
	AvailableTickets *int `json:"availableTickets" binding:"required"`
}

func (h *EventHandler) ResetInventory(c *gin.Context) {
	eventID := c.Param("id")

	var req resetInventoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	if err := h.store.ResetEventInventory(eventID, *req.AvailableTickets); err != nil {
		switch {
		case errors.Is(err, storage.ErrEventNotFound):
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Event not found", err.Error()))
		case errors.Is(err, storage.ErrInvalidInventory):
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Available tickets out of range", err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to reset inventory", err.Error()))
		}
		return
	}

	h.log.Info("EVENT", "Inventory reset for event "+eventID)
	c.JSON(http.StatusOK, utils.SuccessResponse("Inventory reset", gin.H{
		"eventId":          eventID,
		"availableTickets": *req.AvailableTickets,
	}))
}
