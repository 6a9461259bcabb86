package facilitator

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/vitwit/x402-transfer/logger"
)

// Server serves the mock facilitator REST contract: GET /list plus the three
// unconditionally successful POST endpoints.
type Server struct {
	echo     *echo.Echo
	networks []string
	log      logger.Logger
}

func NewServer(networks []string, log logger.Logger) *Server {
	if len(networks) == 0 {
		networks = DefaultNetworks
	}
	if log == nil {
		log = logger.NoopLogger{}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, networks: networks, log: log}

	e.GET("/list", s.list)
	e.POST("/create_payment", s.createPayment)
	e.POST("/verify", s.verify)
	e.POST("/settle", s.settle)

	return s
}

// Start blocks serving on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info("mock facilitator listening", map[string]any{"addr": addr})
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routes for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) list(c echo.Context) error {
	return c.JSON(http.StatusOK, ListResponse{Networks: s.networks})
}

func (s *Server) createPayment(c echo.Context) error {
	var req PaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	id := newTxID()
	c.Response().Header().Set(PaymentResponseHeader, id)
	return c.JSON(http.StatusOK, PaymentResponse{ID: id, Status: "success", Received: req})
}

func (s *Server) verify(c echo.Context) error {
	var req PaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, VerifyResponse{OK: true, Message: "verified", Received: req})
}

func (s *Server) settle(c echo.Context) error {
	var req PaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	id := newTxID()
	c.Response().Header().Set(PaymentResponseHeader, id)
	return c.JSON(http.StatusOK, PaymentResponse{ID: id, Status: "settled", Received: req})
}

// newTxID mints ids of the form "tx_" + 12 hex chars.
func newTxID() string {
	return "tx_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
