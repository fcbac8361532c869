package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CardConfig is the configuration of a single UI card. It is an opaque JSON
// object; no structure is validated beyond being an object.
type CardConfig = map[string]any

// CardConfigTable maps a card identifier to its configuration. It is the
// unit of persistence: loaded and saved whole. Values written through the
// API are objects; anything else found in storage is returned as stored.
type CardConfigTable = map[string]any

// Card configuration storage identity.
const (
	CardConfigStoreKey     = "yinkun_ui_card_config"
	CardConfigStoreVersion = 1
)

// GetResult is returned by a card configuration lookup. Exactly one of the
// two shapes is populated: CardID/Config for a single card, or Configs for
// the whole table.
type GetResult struct {
	CardID  string
	Config  any
	Configs CardConfigTable
	single  bool
}

// SingleResult builds the {cardId, config} shape. A nil config marks an
// unknown card.
func SingleResult(cardID string, config any) GetResult {
	return GetResult{CardID: cardID, Config: config, single: true}
}

// TableResult builds the {configs} shape.
func TableResult(table CardConfigTable) GetResult {
	if table == nil {
		table = CardConfigTable{}
	}
	return GetResult{Configs: table}
}

// IsSingle reports whether r describes a single card.
func (r GetResult) IsSingle() bool { return r.single }

// Body returns the JSON response body for r.
func (r GetResult) Body() map[string]any {
	if r.single {
		return map[string]any{"cardId": r.CardID, "config": r.Config}
	}
	return map[string]any{"configs": r.Configs}
}

// MarshalJSON encodes r as its response body.
func (r GetResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Body())
}

// UpsertResult acknowledges a durable card configuration write.
type UpsertResult struct {
	OK     bool   `json:"ok"`
	CardID string `json:"cardId"`
}

// Validation messages returned to clients.
const (
	MsgCardIDRequired = "cardId required"
	MsgConfigObject   = "config must be an object"
	MsgBodyObject     = "body must be an object"
)

// ValidationError reports a malformed request. It is recovered by the
// handler and surfaced as HTTP 400 with Message as the error text.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError returns a ValidationError with the given message.
func NewValidationError(format string, args ...any) *ValidationError {
	if len(args) == 0 {
		return &ValidationError{Message: format}
	}
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is or wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// AsObject reports whether v is a JSON object as decoded by encoding/json
// and returns it. A nil map is not an object.
func AsObject(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	if !ok || m == nil {
		return nil, false
	}
	return m, true
}
