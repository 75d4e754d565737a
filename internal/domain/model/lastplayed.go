package model

import (
	"errors"
	"time"
)

// UnknownPlaceName is the sentinel game name used whenever metadata cannot
// be resolved.
const UnknownPlaceName = "Unknown"

// ErrInvalidPlaceID is returned when no place identifier can be extracted
// from user input.
var ErrInvalidPlaceID = errors.New("invalid place id")

// LastPlayed records the most recent launch of a place by an account.
// There is at most one entry per (Username, PlaceID).
type LastPlayed struct {
	Username string
	PlaceID  string
	Name     string
	IconURL  string
	PlayedAt time.Time
}

// PlaceInfo is game metadata resolved for a place.
type PlaceInfo struct {
	Name       string
	UniverseID string // Empty when unknown; needed for the icon lookup.
	IconURL    string
}

// ExtractPlaceID returns the first run of ASCII digits in input, so that
// a pasted game URL like "https://www.roblox.com/games/1818/Classic" yields
// "1818".
func ExtractPlaceID(input string) (string, error) {
	start := -1
	for i, r := range input {
		isDigit := r >= '0' && r <= '9'
		if isDigit && start < 0 {
			start = i
		}
		if !isDigit && start >= 0 {
			return input[start:i], nil
		}
	}
	if start >= 0 {
		return input[start:], nil
	}
	return "", ErrInvalidPlaceID
}
