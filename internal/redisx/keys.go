package redisx

import "time"

const (
	// Webhook event dedup fast path: dedup:webhook:{event_id} -> order_id
	KeyWebhookDedup = "dedup:webhook:%s"

	// Stockwatch consumer dedup: dedup:stockwatch:{event_id}
	KeyStockwatchDedup = "dedup:stockwatch:%s"

	// Cache of the order payment projection: order_status:{order_id}
	KeyOrderStatus = "order_status:%s"

	// Fixed-window rate limit counter: rl:{scope}:{client_id}
	KeyRateLimit = "rl:%s:%s"
)

var (
	TTLDedup       = 48 * time.Hour
	TTLStatusCache = 5 * time.Minute
)
