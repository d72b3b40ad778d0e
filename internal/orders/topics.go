package orders

const (
	TopicCheckoutCreated  = "shop.checkout.created"
	TopicOrderPaid        = "shop.order.paid"
	TopicStockDiscrepancy = "shop.stock.discrepancy"
)

// Partition key = order_id, so all events for one order keep their order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
