package middleware

import (
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	mosscontext "github.com/Ramsey-B/moss/pkg/context"
)

// HeaderRunID carries the id of the run a request started.
const HeaderRunID = "X-Run-ID"

// Logger writes one line per request with the request and run scoped fields.
// Health checks and metric scrapes log at debug level.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			start := time.Now()
			if err = next(c); err != nil {
				c.Error(err)
			}

			// read after next so identities set further down the chain are seen
			req := c.Request()
			res := c.Response()
			ctx := req.Context()

			fields := mosscontext.Fields(ctx)
			if userID := mosscontext.GetUserID(ctx); userID != "" {
				fields["user_id"] = userID
			}
			if runID := res.Header().Get(HeaderRunID); runID != "" {
				fields["run_id"] = runID
			}
			fields["method"] = req.Method
			fields["uri"] = req.RequestURI
			fields["route"] = c.Path()
			fields["status"] = res.Status
			fields["remote_ip"] = c.RealIP()
			fields["response_time"] = time.Since(start).Round(time.Millisecond).String()
			fields["request_size"] = req.ContentLength
			fields["response_size"] = res.Size

			log := logger.WithContext(ctx).WithFields(fields)
			switch {
			case res.Status >= 500:
				log.Error("request failed")
			case res.Status >= 400:
				log.Warn("request rejected")
			case quiet(c.Path()):
				log.Debug("request")
			default:
				log.Info("request")
			}
			return nil
		}
	}
}

func quiet(route string) bool {
	return route == "/metrics" || strings.HasPrefix(route, "/api/v1/health")
}
