package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Gabrial-8467/karan-homeo-pharmacy/utils"
)

// Recover converts panics into the standard 500 envelope. In development mode
// the panic value is surfaced in the message; in production the client sees
// only "Server Error".
func Recover(dev bool) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logrus.WithFields(logrus.Fields{
						"panic": rec,
						"path":  r.URL.Path,
					}).Error(string(debug.Stack()))

					message := "Server Error"
					if dev {
						message = fmt.Sprintf("panic: %v", rec)
					}
					utils.WriteError(w, http.StatusInternalServerError, message)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
