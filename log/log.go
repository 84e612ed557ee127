package log

import (
	"log"
	"strings"
)

// AllowDebug включает сообщения с префиксом [DEBUG].
var AllowDebug = false

func Printf(format string, v ...any) {
	if !allowed(format) {
		return
	}
	log.Printf(format, v...)
}

func Fatalf(format string, v ...any) {
	if !allowed(format) {
		return
	}
	log.Fatalf(format, v...)
}

// Std - стандартный логгер с тем же выводом, для middleware, которым нужен *log.Logger.
// Сообщения без префикса уровня выводятся как [INFO].
func Std() *log.Logger {
	return log.New(writer{}, "", 0)
}

type writer struct{}

func (writer) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	if !strings.HasPrefix(msg, "[") {
		msg = "[INFO] " + msg
	}
	if allowed(msg) {
		log.Print(msg)
	}
	return len(p), nil
}

func allowed(s string) bool {
	if AllowDebug {
		return true
	}
	return !strings.HasPrefix(s, "[DEBUG]")
}
