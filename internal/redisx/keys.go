package redisx

import "time"

const (
	// Cached order (header + items) JSON: order:{order_id}
	KeyOrder = "order:%s"
)

var (
	TTLOrderCache = 5 * time.Minute
)
