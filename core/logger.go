package core

// Logger logs messages with optional context args.
// expected args: error, map[string]interface{}, user.User (the authenticated user)
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
