package orders

const (
	TopicOrderCreated      = "order.created"
	TopicStockAdjustFailed = "order.stock.adjust_failed"
)

// Partition key = order_id so all events for one order stay ordered.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
