package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/hotelbooking/internal/domain"
	"github.com/Domenick1991/hotelbooking/internal/service/booking"
	"github.com/Domenick1991/hotelbooking/internal/service/rooms"
	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	service  rooms.RoomUseCase
	bookings booking.BookingUseCase
}

func NewRoomHandler(service rooms.RoomUseCase, bookings booking.BookingUseCase) *RoomHandler {
	return &RoomHandler{service: service, bookings: bookings}
}

func (h *RoomHandler) Register(router *gin.RouterGroup, staff gin.HandlerFunc) {
	router.GET("/", h.list)
	router.GET("/:id", h.get)
	router.GET("/:id/availability", h.availability)
	router.PATCH("/:id/status", staff, h.setStatus)
}

func (h *RoomHandler) list(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *RoomHandler) get(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	room, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, room)
}

func (h *RoomHandler) availability(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}

	available, err := h.bookings.CheckAvailability(c.Request.Context(), id, c.Query("check_in"), c.Query("check_out"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": available})
}

func (h *RoomHandler) setStatus(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	status, err := domain.ParseRoomStatus(req.Status)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.SetStatus(c.Request.Context(), id, status); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func roomID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}
