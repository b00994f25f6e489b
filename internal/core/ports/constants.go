package ports

import "time"

const (
	SignatureHeader     = "x-nowpayments-sig" // HMAC-SHA512 of the canonical callback body
	MaxWebhookBodyBytes = 1 << 20

	ShutdownTimeout   = 10 * time.Second
	ReadHeaderTimeout = 5 * time.Second
	ReadTimeout       = 15 * time.Second
	WriteTimeout      = 60 * time.Second // order placement waits on up to two processor calls
	IdleTimeout       = 60 * time.Second
)
