package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"
)

// requestLogger logs each request and feeds the HTTP metrics.
func (h *Handler) requestLogger(c fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	elapsed := time.Since(start)

	status := c.Response().StatusCode()
	route := c.Route().Path
	h.metrics.HTTPRequests.WithLabelValues(c.Method(), route, strconv.Itoa(status)).Inc()
	h.metrics.HTTPDuration.WithLabelValues(c.Method(), route).Observe(elapsed.Seconds())

	h.log.Info("HTTP Request",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.String("route", route),
		zap.Int("status", status),
		zap.Duration("duration", elapsed),
		zap.String("remoteAddr", c.IP()),
	)
	return err
}
