package handler

import (
	"anonchat/backend/internal/chathub"
	"anonchat/backend/internal/ratelimit"
	"anonchat/backend/internal/storage"
)

// Handler bundles the dependencies of the HTTP surface.
type Handler struct {
	Hub            *chathub.ManagerService
	Storage        storage.Storage
	RequestLimiter *ratelimit.Limiter
	JWTSecret      []byte
}

func NewHandler(hub *chathub.ManagerService, s storage.Storage, limiter *ratelimit.Limiter, jwtSecret []byte) *Handler {
	return &Handler{
		Hub:            hub,
		Storage:        s,
		RequestLimiter: limiter,
		JWTSecret:      jwtSecret,
	}
}
