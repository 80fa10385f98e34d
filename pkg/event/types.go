package event

// Action identifies what happened to a record.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Change describes a single mutation of a record. It carries just enough
// for an observer to refresh its view; it is not a durable event log.
type Change struct {
	Action   Action `json:"action"`
	Resource string `json:"resource"`
	ID       string `json:"id"`
}
