package web

import (
	"net"
	"net/http"
	"time"

	"futsal-club/internal/models/config"
)

func NewServer(cfg *config.Config, h *Handler) *http.Server {
	return &http.Server{
		Addr:              net.JoinHostPort("", cfg.HTTPPort),
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
