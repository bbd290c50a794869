package helpers

import (
	"encoding/json"
	"net/http"

	"github.com/gatehouse-dev/gatehouse/internal/apperr"
)

// DecodeJSON decodes a request body with strict validation: unknown fields
// are rejected so payload pollution fails loudly.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return apperr.Validation("Invalid JSON body")
	}
	return nil
}
