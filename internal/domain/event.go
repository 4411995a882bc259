package domain

// EventType names a state change published by the engine.
type EventType string

const (
	EventPoolCreated     EventType = "pool_created"
	EventScheduleCreated EventType = "schedule_created"
	EventDeposit         EventType = "deposit"
	EventClaim           EventType = "claim"
)

// Event is a committed state change, published after the storage transaction.
type Event struct {
	Type            EventType `json:"type"`
	PoolAddress     string    `json:"pool_address"`
	CompanyName     string    `json:"company_name,omitempty"`
	ScheduleAddress string    `json:"schedule_address,omitempty"`
	Mint            string    `json:"mint"`
	Actor           string    `json:"actor"`
	Amount          uint64    `json:"amount,string,omitempty"`
	TotalAllocation uint64    `json:"total_allocation,string,omitempty"` // schedule events only
	CustodyBalance  uint64    `json:"custody_balance,string"`
	Timestamp       int64     `json:"timestamp"`

	Claim *ClaimRecord `json:"claim,omitempty"`
}
