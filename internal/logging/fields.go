package logging

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields are added to every record logged with a context carrying them.
type LogFields struct {
	ConversationID *int64
	MessageID      *string
	Channel        string
}

// WithLogFields enriches ctx with fields. Non-empty values in fields
// replace those already present.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	merged := GetLogFields(ctx)
	if fields.ConversationID != nil {
		merged.ConversationID = fields.ConversationID
	}
	if fields.MessageID != nil {
		merged.MessageID = fields.MessageID
	}
	if fields.Channel != "" {
		merged.Channel = fields.Channel
	}
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields returns the fields stored in ctx, or the zero value.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
