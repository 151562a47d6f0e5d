package models

// Confidence is the tier used to pick a winner when sources disagree.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Rank orders tiers so that a higher rank wins. Unknown tiers rank 0.
func (c Confidence) Rank() int {
	switch c {
	case ConfidenceHigh:
		return 3
	case ConfidenceMedium:
		return 2
	case ConfidenceLow:
		return 1
	default:
		return 0
	}
}

// RelationshipParentChild is the only family relationship type produced.
const RelationshipParentChild = "parent_child"

// FamilyLink is a directed parent to child edge.
type FamilyLink struct {
	ParentCustomerID int64      `json:"parent_customer_id" db:"parent_customer_id"`
	ChildCustomerID  int64      `json:"child_customer_id" db:"child_customer_id"`
	RelationshipType string     `json:"relationship_type" db:"relationship_type"`
	Confidence       Confidence `json:"confidence" db:"confidence"`
	Source           string     `json:"source" db:"source"`
}

// RelationCode is the upstream relationship code on a relation record.
type RelationCode string

const (
	// RelationChild means the related customer is a child of the customer.
	RelationChild RelationCode = "CHI"
	// RelationParent means the related customer is a parent of the customer.
	RelationParent RelationCode = "PRE"
	RelationSibling RelationCode = "SIB"
)

// Relation is an explicit relation record from the upstream system.
type Relation struct {
	CustomerID        int64        `json:"customer_id" db:"customer_id"`
	RelatedCustomerID int64        `json:"related_customer_id" db:"related_customer_id"`
	Code              RelationCode `json:"relationship" db:"relationship"`
}
