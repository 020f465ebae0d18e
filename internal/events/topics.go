package events

// Topic names for domain events. Keep them stable: persisted events and
// queued tasks reference them by value.
const (
	TopicOrderPlaced       = "order.placed"
	TopicInventoryAdjusted = "inventory.adjusted"
	TopicDiscountCreated   = "discount.created"
	TopicDiscountUpdated   = "discount.updated"
	TopicProductCreated    = "product.created"
)
