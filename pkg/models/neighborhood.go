package models

const (
	EdgeKindConnection = "connection"
	EdgeKindFamily     = "family"
)

// NeighborhoodEdge is one edge around a customer. Family edges point parent to
// child; connection edges keep the canonical pair order.
type NeighborhoodEdge struct {
	From     int64  `json:"from"`
	To       int64  `json:"to"`
	Kind     string `json:"kind"`
	Strength int    `json:"strength,omitempty"`
	Label    string `json:"label,omitempty"`
}

// Neighborhood is the customers reachable from Root within some depth.
type Neighborhood struct {
	Root        int64              `json:"root"`
	CustomerIDs []int64            `json:"customer_ids"`
	Edges       []NeighborhoodEdge `json:"edges"`
}
