package domain

import "errors"

var ErrNegativeRate = errors.New("price per night must not be negative")

// TotalPriceCents computes the booking total as nights times the per-night
// rate. The rate is whatever the room charges at creation time; the server
// always recomputes this and never trusts a client-supplied price.
func TotalPriceCents(pricePerNightCents int64, rng DateRange) (int64, error) {
	if pricePerNightCents < 0 {
		return 0, ErrNegativeRate
	}
	return pricePerNightCents * int64(rng.Nights()), nil
}
