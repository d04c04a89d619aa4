package charm

import (
	"strings"

	"github.com/iliyamo/omamori-api/internal/apperr"
)

// Input is a decoded JSON object body.  Values keep their JSON types so the
// engine can tell an absent field from a null or a non-string one.
type Input map[string]any

// text returns the trimmed string under key.  ok is false when the key is
// absent, null or blank after trimming.  Any other JSON type is a
// validation failure.
func (in Input) text(key string) (val string, ok bool, err error) {
	raw, present := in[key]
	if !present || raw == nil {
		return "", false, nil
	}
	s, isString := raw.(string)
	if !isString {
		return "", false, apperr.Invalid(key, key+" must be a string")
	}
	s = strings.TrimSpace(s)
	return s, s != "", nil
}

// ListQuery carries the raw list parameters.  Status and Sort are nil when
// the query string omits them.
type ListQuery struct {
	Page   int
	Size   int
	Status *string
	Sort   *string
}
