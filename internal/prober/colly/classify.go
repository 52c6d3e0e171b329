package collyprober

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JakeFAU/experience-hoarder/internal/crawler"
)

var errEmptyBody = errors.New("empty body")

// lookupResponse holds the two fields of the lookup answer that matter.
type lookupResponse struct {
	Errors             json.RawMessage `json:"errors"`
	OriginalPlayground json.RawMessage `json:"originalPlayground"`
}

// Classify maps a lookup response body to a status. A truthy "errors" field
// means not found; otherwise a non-null "originalPlayground" means found.
// Anything else is crawler.ErrUnexpectedResponse.
func Classify(body []byte) (crawler.Status, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return "", fmt.Errorf("%w: %w", crawler.ErrUnexpectedResponse, errEmptyBody)
	}
	var resp lookupResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decode body: %w", crawler.ErrUnexpectedResponse, err)
	}
	hasErrors, err := truthy(resp.Errors)
	if err != nil {
		return "", fmt.Errorf("%w: decode errors field: %w", crawler.ErrUnexpectedResponse, err)
	}
	if hasErrors {
		return crawler.StatusNotFound, nil
	}
	if present(resp.OriginalPlayground) {
		return crawler.StatusFound, nil
	}
	return "", fmt.Errorf("%w: neither errors nor originalPlayground set", crawler.ErrUnexpectedResponse)
}

func present(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// truthy follows the usual JSON truthiness: null, false, 0, "", [] and {} are false.
func truthy(raw json.RawMessage) (bool, error) {
	if !present(raw) {
		return false, nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, fmt.Errorf("unmarshal: %w", err)
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case float64:
		return t != 0, nil
	case string:
		return t != "", nil
	case []any:
		return len(t) > 0, nil
	case map[string]any:
		return len(t) > 0, nil
	default:
		return false, nil
	}
}
