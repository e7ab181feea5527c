// internal/middleware/logging.go

package middleware

import (
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// statusRecorder captures the status code a handler writes so the request
// log can include it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// LogMiddleware logs every HTTP request with its method, path, status, and
// duration. The websocket endpoint is not wrapped with this (the recorder
// does not support hijacking); sockets log through the room socket helpers
// below instead.
func LogMiddleware(logger *logrus.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			logger.WithFields(logrus.Fields{
				"method":   r.Method,
				"path":     r.URL.Path,
				"status":   rec.status,
				"duration": time.Since(start),
				"remote":   r.RemoteAddr,
			}).Info("http request")
		})
	}
}

// LogRoomSocketOpen records a websocket that completed its join handshake
// and is now attached to a room.
func LogRoomSocketOpen(logger *logrus.Logger, remoteAddr, roomCode, username string) {
	logger.WithFields(logrus.Fields{
		"remote":    remoteAddr,
		"room_code": roomCode,
		"username":  username,
	}).Info("room socket opened")
}

// LogRoomSocketClose records a room socket going away, with the read error
// that ended it when there was one.
func LogRoomSocketClose(logger *logrus.Logger, remoteAddr, roomCode, username string, err error) {
	fields := logrus.Fields{
		"remote":    remoteAddr,
		"room_code": roomCode,
		"username":  username,
	}
	if err != nil {
		fields["error"] = err
	}
	logger.WithFields(fields).Info("room socket closed")
}
