// Package handler adapts HTTP requests to the account and charm services.
// Handlers only parse input and shape responses; every failure is returned
// to the dispatcher's error handler.
package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/omamori-api/internal/apperr"
)

// pathID reads the :id path parameter, which must be a positive integer.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Invalid("id", "The id must be a positive integer.")
	}
	return id, nil
}

// bindBody decodes the JSON request body into dst.  Path and query values
// are never mixed in.  An empty body leaves dst untouched.
func bindBody(c echo.Context, dst any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dst); err != nil {
		return &apperr.Error{
			Kind:    apperr.KindValidation,
			Message: "Validation failed",
			Fields:  map[string][]string{"body": {"The request body must be a JSON object."}},
			Err:     err,
		}
	}
	return nil
}

// queryInt parses an integer query parameter; anything unparsable is 0 and
// left to the service's clamping.
func queryInt(c echo.Context, name string) int {
	n, _ := strconv.Atoi(c.QueryParam(name))
	return n
}

// queryOptional distinguishes an absent parameter (nil) from an empty one.
func queryOptional(c echo.Context, name string) *string {
	vals, ok := c.QueryParams()[name]
	if !ok || len(vals) == 0 {
		return nil
	}
	v := vals[0]
	return &v
}
