package server

import (
	"context"
	"net/http"
	"payment-reconciliation/internal/handler"
	"payment-reconciliation/internal/logger"
	authMiddleware "payment-reconciliation/internal/middleware"
	"payment-reconciliation/internal/service"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type Server struct {
	echo           *echo.Echo
	paymentHandler *handler.PaymentHandler
	jwtSecret      string
}

func NewServer(
	reconciliationService service.ReconciliationService,
	paymentService service.PaymentService,
	refundService service.RefundService,
	jwtSecret string,
	l logger.LoggerV1,
) *Server {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestLogger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{
		echo:           e,
		paymentHandler: handler.NewPaymentHandler(reconciliationService, paymentService, refundService, l),
		jwtSecret:      jwtSecret,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")

	api.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// -------- gateway callbacks --------
	api.POST("/notify", s.paymentHandler.Notify)
	api.GET("/paypal/success", s.paymentHandler.HandleSuccess)

	// -------- authenticated --------
	auth := api.Group("", authMiddleware.AuthMiddleware(s.jwtSecret))
	auth.POST("/orders/:id/pay", s.paymentHandler.PayOrder)
	auth.POST("/orders/:id/refund", s.paymentHandler.Refund, authMiddleware.RequireRole(authMiddleware.RoleOperator))
	auth.POST("/installments/:no/pay", s.paymentHandler.PayInstallment)
}

func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
