package out

import (
	"plugdir/internal/modules/discovery/domain"
	discoveryout "plugdir/internal/modules/discovery/port/out"
)

// DescriptorFinder is the default type finder: it evaluates criteria over
// a read-only type view, nothing more.
type DescriptorFinder struct{}

func NewDescriptorFinder() discoveryout.TypeFinder {
	return &DescriptorFinder{}
}

func (DescriptorFinder) Find(criteria domain.SearchCriteria, view domain.TypeView) []domain.TypeDescriptor {
	var out []domain.TypeDescriptor
	for _, t := range view.Types() {
		if _, ok := criteria.MatchAny(view, t); ok {
			out = append(out, t)
		}
	}
	return out
}

// FindAny stops at the first satisfied criterion, the short-circuit the
// probe relies on.
func (DescriptorFinder) FindAny(criteria domain.SearchCriteria, view domain.TypeView) (domain.TypeDescriptor, bool) {
	for _, t := range view.Types() {
		if _, ok := criteria.MatchAny(view, t); ok {
			return t, true
		}
	}
	return domain.TypeDescriptor{}, false
}
