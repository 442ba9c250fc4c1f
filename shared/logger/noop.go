package logger

// noOpLogger discards everything (for tests)
type noOpLogger struct{}

// NewNoOpLogger creates a logger that does nothing
func NewNoOpLogger() Logger {
	return &noOpLogger{}
}

func (n *noOpLogger) Info(msg string, fields ...Field)  {}
func (n *noOpLogger) Error(msg string, fields ...Field) {}
func (n *noOpLogger) Debug(msg string, fields ...Field) {}
func (n *noOpLogger) Warn(msg string, fields ...Field)  {}
func (n *noOpLogger) Fatal(msg string, fields ...Field) {
	panic("fatal log message: " + msg)
}
func (n *noOpLogger) With(fields ...Field) Logger { return n }
