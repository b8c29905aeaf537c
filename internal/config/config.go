package config

import "time"

const (
	// Message rate limiting (per participant)
	MessageRateWindow    = 60 * time.Second
	MaxMessagesPerWindow = 30
	MinMessageInterval   = 500 * time.Millisecond
	MessageBlockDuration = 30 * time.Second

	// Request rate limiting (per client IP, HTTP + connection admission)
	RequestRateWindow    = 60 * time.Second
	MaxRequestsPerWindow = 100
	RequestBlockDuration = 300 * time.Second

	// Rate-limit store eviction
	RateStoreCleanupInterval = 15 * time.Minute

	// Idle sessions
	IdleTimeout       = 60 * time.Second
	IdleCheckInterval = 10 * time.Second

	// Matchmaking
	MatchSweepInterval   = 3 * time.Second
	DisconnectSweepDelay = 500 * time.Millisecond

	// Stats broadcast
	StatsInterval = 10 * time.Second

	// Content
	MaxMessageLength = 1000
)
