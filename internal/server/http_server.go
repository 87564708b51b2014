package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"

	"github.com/gridquery/gridquery/gridquery"
	"github.com/gridquery/gridquery/internal/gologger"
)

var logger = gologger.NewLogger()

type HTTPServer struct {
	Echo  *echo.Echo
	grids map[string]gridquery.Runner
	names []string
}

type CustomValidator struct {
	validator *validator.Validate
}

// New returns a server routing requests to grids by name. It does not
// listen until Start.
func New(grids ...gridquery.Runner) (*HTTPServer, error) {
	s := &HTTPServer{
		Echo:  echo.New(),
		grids: make(map[string]gridquery.Runner, len(grids)),
	}
	for _, g := range grids {
		if _, dup := s.grids[g.Name()]; dup {
			return nil, gridquery.ConfigError("grids", fmt.Sprintf("duplicate grid %q", g.Name()))
		}
		s.grids[g.Name()] = g
		s.names = append(s.names, g.Name())
	}
	sort.Strings(s.names)

	s.Echo.HideBanner = true
	s.Echo.HidePort = true
	s.Echo.JSONSerializer = &NoEscapeJSONSerializer{}

	s.Echo.Use(CreateReqContext)
	s.Echo.Use(LoggerMiddleware)
	s.Echo.Use(middleware.CORS())
	s.Echo.Validator = &CustomValidator{validator: validator.New()}

	// technical - no auth
	s.Echo.GET("/hc", s.HealthCheck)

	grid := s.Echo.Group("/grids")
	grid.GET("", ccHandler(s.ListGrids))
	grid.GET("/:name", ccHandler(s.QueryGrid))
	grid.POST("/:name", ccHandler(s.QueryGrid))
	grid.POST("/:name/explain", ccHandler(s.ExplainGrid))
	grid.GET("/:name/columns", ccHandler(s.GridColumns))

	return s, nil
}

// Start listens on port and serves h2c in the background
func (s *HTTPServer) Start(port int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("error creating tcp listener: %w", err)
	}
	s.Echo.Listener = listener
	go func() {
		logger.Info().Msg("starting h2c server on " + listener.Addr().String())
		err := s.Echo.StartH2CServer("", &http2.Server{})
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("h2c server stopped")
		}
	}()
	return nil
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func ValidateRequest(c echo.Context, s interface{}) error {
	if err := c.Bind(s); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(s); err != nil {
		return err
	}
	return nil
}

func (*HTTPServer) HealthCheck(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	err := s.Echo.Shutdown(ctx)
	return err
}

// LoggerMiddleware writes one access log event per request: debug for
// successes, warn for client errors and error for server errors
func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		if err := next(c); err != nil {
			c.Error(err)
		}
		req := c.Request()
		res := c.Response()

		logger := zerolog.Ctx(req.Context())
		var ev *zerolog.Event
		switch {
		case res.Status >= http.StatusInternalServerError:
			ev = logger.Error()
		case res.Status >= http.StatusBadRequest:
			ev = logger.Warn()
		default:
			ev = logger.Debug()
		}
		if grid := c.Param("name"); grid != "" {
			ev = ev.Str("grid", grid)
		}
		ev.Str("method", req.Method).
			Str("remote_ip", c.RealIP()).
			Str("handler_path", c.Path()).
			Str("req_uri", req.RequestURI).
			Int("status", res.Status).
			Dur("latency", time.Since(start)).
			Str("protocol", req.Proto).
			Int64("bytes_in", req.ContentLength).
			Int64("bytes_out", res.Size).
			Msg("request handled")
		return nil
	}
}
