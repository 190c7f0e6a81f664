package logger

// WithKV returns a logger carrying a single extra metadata field.
func WithKV(logger Logger, key string, value interface{}) Logger {
	return logger.With(map[string]interface{}{key: value})
}
