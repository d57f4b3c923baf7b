// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// PasswordHashDuration observes argon2id computations.
	PasswordHashDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "password_hash_duration_seconds",
		Help:    "Time spent computing argon2id hashes.",
		Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
	})

	// TokensIssued counts issued single-use tokens by type.
	TokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tokens_issued_total",
		Help: "Single-use tokens issued.",
	}, []string{"type"})

	// TokenRedemptions counts redemption attempts by type and outcome.
	TokenRedemptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "token_redemptions_total",
		Help: "Token redemption attempts.",
	}, []string{"type", "outcome"})

	// EmailsSent counts detached email deliveries by template and outcome
	// (sent, failed, dropped).
	EmailsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "emails_total",
		Help: "Outbound email deliveries.",
	}, []string{"template", "outcome"})

	// EmailQueueDepth tracks jobs waiting for a mail worker.
	EmailQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "email_queue_depth",
		Help: "Email jobs waiting for delivery.",
	})
)

// Handler serves the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latencies per route.
func Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok { //nolint:errorlint // echo returns the bare type
					status = he.Code
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			httpRequestsTotal.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
			httpRequestDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
