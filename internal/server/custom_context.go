package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/gridquery/gridquery/gridquery"
	"github.com/gridquery/gridquery/internal/gologger"
)

const HeaderRequestID = "X-Request-Id"

type CustomContext struct {
	echo.Context
	RequestID string
}

func CreateReqContext(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		reqID := uuid.NewString()
		ctx := context.WithValue(c.Request().Context(), gologger.ReqIDKey, reqID)
		ctx = logger.WithContext(ctx)
		c.SetRequest(c.Request().WithContext(ctx))
		logger := zerolog.Ctx(ctx)
		logger.UpdateContext(func(c zerolog.Context) zerolog.Context {
			return c.Str("reqID", reqID)
		})
		c.Response().Header().Set(HeaderRequestID, reqID)
		cc := &CustomContext{
			Context:   c,
			RequestID: reqID,
		}
		return next(cc)
	}
}

// Casts to custom context for the handler, so this doesn't have to be done per handler
func ccHandler(h func(*CustomContext) error) echo.HandlerFunc {
	return func(c echo.Context) error {
		return h(c.(*CustomContext))
	}
}

func (c *CustomContext) internalErrorMessage() string {
	return "internal error, request id: " + c.RequestID
}

// GridError writes a grid response carrying err. Request errors are
// reported as sent; anything else is logged and hidden behind the request id.
func (c *CustomContext) GridError(draw int, err error) error {
	resp := &gridquery.Response{Draw: draw, Data: []any{}}
	if gridquery.IsKind(err, gridquery.ErrInvalidArgument) || gridquery.IsKind(err, gridquery.ErrToken) {
		resp.Error = err.Error()
		return c.JSON(http.StatusBadRequest, resp)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		zerolog.Ctx(c.Request().Context()).Warn().CallerSkipFrame(1).Msg(err.Error())
	} else {
		zerolog.Ctx(c.Request().Context()).Error().CallerSkipFrame(1).Err(err).Msg("grid request failed")
	}
	resp.Error = c.internalErrorMessage()
	return c.JSON(http.StatusInternalServerError, resp)
}
