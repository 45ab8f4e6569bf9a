package security

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Payload limits for inbound webhook bodies.
const (
	DefaultMaxPayloadSize = 1 << 20 // 1 MiB
	DefaultMaxJSONDepth   = 32
)

// Validation errors.
var (
	ErrPayloadTooLarge = errors.New("payload exceeds maximum size")
	ErrJSONTooDeep     = errors.New("JSON nesting exceeds maximum depth")
	ErrInvalidJSON     = errors.New("invalid JSON")
)

// ValidatePayload checks an untrusted JSON body against a size limit and a
// nesting limit. Non-positive limits select the defaults.
func ValidatePayload(data []byte, maxSize, maxDepth int) error {
	if maxSize <= 0 {
		maxSize = DefaultMaxPayloadSize
	}
	if maxDepth <= 0 {
		maxDepth = DefaultMaxJSONDepth
	}
	if len(data) > maxSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(data), maxSize)
	}
	if len(data) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	depth := 0
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidJSON, err)
		}
		switch tok {
		case json.Delim('{'), json.Delim('['):
			depth++
			if depth > maxDepth {
				return fmt.Errorf("%w: depth %d (max %d)", ErrJSONTooDeep, depth, maxDepth)
			}
		case json.Delim('}'), json.Delim(']'):
			depth--
		}
	}
}
