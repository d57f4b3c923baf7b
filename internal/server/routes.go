// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"codeberg.org/oliverandrich/account-service/internal/handlers"
	"codeberg.org/oliverandrich/account-service/internal/metrics"
	appmw "codeberg.org/oliverandrich/account-service/internal/middleware"
	"github.com/labstack/echo/v4"
)

// Echo builds the HTTP server with all middleware and routes.
func (a *App) Echo() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, a.Config)
	setupRoutes(e, handlers.New(a.Accounts, a.Config.OpenRegistration()), a.JWT)

	return e
}

func setupRoutes(e *echo.Echo, h *handlers.Handlers, verifier appmw.Verifier) {
	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(metrics.Handler()))

	// Public account flows
	pub := e.Group("/auth")
	pub.POST("/register", h.Register)
	pub.POST("/verify-email/:token", h.VerifyEmail)
	pub.POST("/forgot-password", h.ForgotPassword)
	pub.POST("/reset-password/:token", h.ResetPassword)

	// Authenticated
	users := e.Group("/users", appmw.Authenticate(verifier))
	users.GET("", h.ListUsers, appmw.RequireAdmin)
	users.POST("", h.CreateUser, appmw.RequireAdmin)
	users.GET("/me", h.GetMe)
	users.PUT("/me", h.UpdateMe)
	users.PUT("/me/password", h.ChangeMyPassword)
	users.POST("/me/verify-email", h.ResendVerification)
	users.GET("/:id", h.GetUser)
	users.PUT("/:id", h.UpdateUser)
	users.DELETE("/:id", h.DeleteUser, appmw.RequireAdmin)
	users.PUT("/:id/password", h.ChangePassword)
}
