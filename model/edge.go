package model

// Edge is one hop used during a round, from sender to receiver. Edges are
// diagnostic output for rendering and are never fed back into routing.
type Edge struct {
	From Point `json:"from"`
	To   Point `json:"to"`
}
