package feed

import "github.com/ryyparr-art/swingthoughts-sub007/internal/domain"

// BoostFunc adjusts a base relevance score based on the content
// author's category and the viewer's category. Kept as a swappable
// policy so ranking changes never touch retrieval code.
type BoostFunc func(target, viewer domain.UserCategory) int

// CategoryBoost is the default boost policy: junior viewers see peer
// and role-model content lifted, everyone else gets no adjustment.
func CategoryBoost(target, viewer domain.UserCategory) int {
	if viewer != domain.CategoryJunior {
		return 0
	}
	switch target {
	case domain.CategoryJunior:
		return 10
	case domain.CategoryInstructor:
		return 7
	case domain.CategoryCourse:
		return 4
	default:
		return 0
	}
}
