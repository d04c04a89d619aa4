// Package response writes the JSON envelope shared by every endpoint.
package response

import "github.com/labstack/echo/v4"

// Envelope is {success, message, data} on success and
// {success:false, message, errors?} on failure.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Errors  any    `json:"errors,omitempty"`
}

// Success writes data with the given status.  A nil data is sent as an
// empty object so that clients can always read the data key.
func Success(c echo.Context, status int, message string, data any) error {
	if data == nil {
		data = struct{}{}
	}
	return c.JSON(status, Envelope{Success: true, Message: message, Data: data})
}

// Failure writes an error envelope.  errs is omitted when nil.
func Failure(c echo.Context, status int, message string, errs any) error {
	return c.JSON(status, Envelope{Success: false, Message: message, Errors: errs})
}
