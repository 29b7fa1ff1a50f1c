package enum

// ── Order lifecycle (wire values of the upstream order service) ──

const (
	OrderStatusPending  = "pending"
	OrderStatusAccepted = "accepted"
	OrderStatusCooking  = "cooking"
	OrderStatusReady    = "ready"
	OrderStatusRejected = "rejected"
)

// ── Countdown kinds ──

const (
	TimerCooking   = "cooking"
	TimerRejection = "rejection"
)

// ── Feed event actions ──

const (
	EventActionCreate       = "create"
	EventActionStatusUpdate = "statusUpdate"
)

// ── Board events pushed to UI clients ──

const (
	BoardEventOrderCreated = "order.created"
	BoardEventOrderUpdated = "order.updated"
	BoardEventOrderRemoved = "order.removed"
)

// ── Staff roles ──

const (
	UserRoleManager = "MANAGER"
	UserRoleKitchen = "KITCHEN"
)

// ── Table statuses (upstream table service) ──

const (
	TableStatusOccupied = "Occupied"
)
