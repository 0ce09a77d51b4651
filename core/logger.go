package core

// Logger is any leveled logging service.
// Implementations may inspect args for context objects (an account, an error)
// in addition to plain formatting values.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
