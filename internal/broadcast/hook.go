package broadcast

// Event describes a single store mutation, emitted after the mutex has been
// released (spec §5's data-flow step "release mutex -> (optionally) emit a
// broadcast message"). Fields beyond Level/Op/TS are populated depending on
// which kind of mutation fired the event; the zero value of an unused field
// just means "not applicable to this op".
type Event struct {
	Level   string  `json:"level"`
	Op      string  `json:"op"`
	NodeID  string  `json:"node_id,omitempty"`
	EdgeKey string  `json:"edge_key,omitempty"`
	TS      float64 `json:"ts"`
}

const (
	OpPutNode    = "put_node"
	OpPutEdge    = "put_edge"
	OpDeleteNode = "delete_node"
	OpDeleteEdge = "delete_edge"
	OpRecall     = "recall"
	OpArchive    = "archive"
	OpPrune      = "prune"
)

// Hook is the optional mutation-notification callback from spec §2. A Store
// holds at most one Hook; nil means no notification is configured.
type Hook interface {
	Publish(Event)
}

// NopHook discards every event. It is the Store's default Hook so callers
// never need a nil check before invoking Publish.
type NopHook struct{}

func (NopHook) Publish(Event) {}
