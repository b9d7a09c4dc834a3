package core

import (
	"fmt"
	"strings"
)

// CheckPortalResponse is the one rule deciding whether a portal page was served
// to a logged in session: the status must be 200 and the exchange must end on the
// portal's own origin. Anything else is NOT_LOGINED with res attached.
func CheckPortalResponse(res *Response, endpoints Endpoints) error {
	if res.Status != 200 {
		return NewError(KindNotLogined, res, fmt.Errorf("unexpected status %d", res.Status))
	}
	origin := strings.TrimRight(endpoints.PortalOrigin, "/")
	if res.Origin() != origin {
		return NewError(KindNotLogined, res, fmt.Errorf("landed on %s", res.Origin()))
	}
	return nil
}

// CannotConnect wraps a transport failure.
func CannotConnect(res *Response, cause error) error {
	return NewError(KindCannotConnect, res, cause)
}
