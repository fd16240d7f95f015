package webhook

import (
	"encoding/json"
	"fmt"
)

// bindJSON unmarshals a raw delivery body the adapter has already read for
// signature verification; gin's body binders cannot be reused at that
// point.
func bindJSON(rawBody []byte, out any) error {
	if err := json.Unmarshal(rawBody, out); err != nil {
		return fmt.Errorf("malformed payload: %w", err)
	}
	return nil
}
