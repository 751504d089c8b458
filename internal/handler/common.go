package handler

import (
	"errors"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/imanzi/transit-seat-booking/internal/ledger"
)

// getUserID extracts the authenticated user's id from the Echo
// context. The JWT middleware stores the raw `sub` claim, whose Go
// type depends on how the token was decoded, so every plausible
// representation is handled.
func getUserID(c echo.Context) (uint64, error) {
	v := c.Get("user_id")
	switch t := v.(type) {
	case uint64:
		return t, nil
	case int:
		return uint64(t), nil
	case int64:
		return uint64(t), nil
	case float64:
		return uint64(t), nil
	case string:
		if n, err := strconv.ParseUint(t, 10, 64); err == nil {
			return n, nil
		}
	}
	return 0, errors.New("invalid user_id in context")
}

// currentActor builds the ledger actor from the request context set
// by the JWT middleware.
func currentActor(c echo.Context) (ledger.Actor, error) {
	uid, err := getUserID(c)
	if err != nil {
		return ledger.Actor{}, err
	}
	role, _ := c.Get("role").(string)
	return ledger.Actor{UserID: uid, Role: role}, nil
}
