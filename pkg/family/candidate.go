package family

import (
	"sort"

	"github.com/Ramsey-B/fern/pkg/models"
)

// SourceKind names the signal that produced a candidate link.
type SourceKind string

const (
	SourceRelations        SourceKind = "relations"
	SourceSharedMembership SourceKind = "shared_membership"
	SourceYouthMembership  SourceKind = "youth_membership"
)

// Candidate is one proposed parent to child link and where it came from.
type Candidate struct {
	Kind SourceKind
	Link models.FamilyLink
}

type linkKey struct {
	parent int64
	child  int64
}

// Reduce keeps one link per (parent, child), preferring the highest confidence.
// Among equal confidences the first candidate wins. Output is ordered by
// confidence descending, then parent and child id.
func Reduce(candidates []Candidate) []models.FamilyLink {
	best := make(map[linkKey]models.FamilyLink, len(candidates))
	for _, c := range candidates {
		key := linkKey{parent: c.Link.ParentCustomerID, child: c.Link.ChildCustomerID}
		current, ok := best[key]
		if !ok || c.Link.Confidence.Rank() > current.Confidence.Rank() {
			best[key] = c.Link
		}
	}

	links := make([]models.FamilyLink, 0, len(best))
	for _, link := range best {
		links = append(links, link)
	}
	sort.Slice(links, func(i, j int) bool {
		a, b := links[i], links[j]
		if a.Confidence.Rank() != b.Confidence.Rank() {
			return a.Confidence.Rank() > b.Confidence.Rank()
		}
		if a.ParentCustomerID != b.ParentCustomerID {
			return a.ParentCustomerID < b.ParentCustomerID
		}
		return a.ChildCustomerID < b.ChildCustomerID
	})
	return links
}

func newCandidate(kind SourceKind, parent, child int64, confidence models.Confidence, source string) (Candidate, bool) {
	if parent == child {
		return Candidate{}, false
	}
	return Candidate{
		Kind: kind,
		Link: models.FamilyLink{
			ParentCustomerID: parent,
			ChildCustomerID:  child,
			RelationshipType: models.RelationshipParentChild,
			Confidence:       confidence,
			Source:           source,
		},
	}, true
}
