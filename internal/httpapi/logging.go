package httpapi

import (
	"net/http"
	"os"

	"github.com/rs/zerolog"
)

// zlog is the structured logger for the HTTP layer. Defaults to Nop so
// the package is quiet until SetLogger is called.
var zlog = zerolog.Nop()

// SetLogger installs the structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = l }

var defaultLogLevel = func() zerolog.Level {
	lvl, err := zerolog.ParseLevel(os.Getenv("CLASSD_LOG_LEVEL"))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}()

// requestLogLevel resolves the effective log level for one request. The
// `log` query parameter and the X-Log-Level header override the process
// default, which lets a caller turn on debug output for a single
// submission without restarting the server.
func requestLogLevel(r *http.Request) zerolog.Level {
	for _, v := range []string{r.URL.Query().Get("log"), r.Header.Get("X-Log-Level")} {
		if v == "" {
			continue
		}
		if v == "1" {
			return zerolog.DebugLevel
		}
		if lvl, err := zerolog.ParseLevel(v); err == nil && lvl != zerolog.NoLevel {
			return lvl
		}
	}
	return defaultLogLevel
}
