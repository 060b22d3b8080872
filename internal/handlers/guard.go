package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// guard is an authorization predicate over the caller, evaluated before a
// handler mutates state.
type guard func(callerID uint) error

// authenticated rejects unauthenticated callers.
func authenticated() guard {
	return func(callerID uint) error {
		if callerID == 0 {
			return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
		}
		return nil
	}
}

// ownerOnly restricts a mutation to the owner of the target.
func ownerOnly(ownerID uint, message string) guard {
	return func(callerID uint) error {
		if callerID != ownerID {
			return echo.NewHTTPError(http.StatusForbidden, message)
		}
		return nil
	}
}

// allOf combines guards; the first failure wins.
func allOf(guards ...guard) guard {
	return func(callerID uint) error {
		for _, g := range guards {
			if err := g(callerID); err != nil {
				return err
			}
		}
		return nil
	}
}
