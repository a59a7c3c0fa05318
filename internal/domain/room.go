package domain

import (
	"fmt"
	"time"
)

type RoomStatus string

const (
	RoomStatusAvailable   RoomStatus = "available"
	RoomStatusOccupied    RoomStatus = "occupied"
	RoomStatusCleaning    RoomStatus = "cleaning"
	RoomStatusMaintenance RoomStatus = "maintenance"
)

func ParseRoomStatus(s string) (RoomStatus, error) {
	switch RoomStatus(s) {
	case RoomStatusAvailable, RoomStatusOccupied, RoomStatusCleaning, RoomStatusMaintenance:
		return RoomStatus(s), nil
	}
	return "", fmt.Errorf("unknown room status %q", s)
}

type Room struct {
	ID         int64
	RoomNumber string
	RoomTypeID int64
	Status     RoomStatus
	PriceCents int64
	MaxGuests  int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
