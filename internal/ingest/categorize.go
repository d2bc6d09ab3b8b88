package ingest

import (
	"strings"

	"github.com/HendryAvila/casespine/internal/spine"
)

// categoryKeywords is checked in order; the first set with a match wins.
var categoryKeywords = []struct {
	category spine.Category
	keywords []string
}{
	{spine.CategoryAccessDenied, []string{"denied", "refuse", "won't let"}},
	{spine.CategoryFinancialStrain, []string{"money", "payment", "bill", "financial"}},
	{spine.CategoryCustodyDispute, []string{"custody", "visitation", "parenting time"}},
	{spine.CategoryCommunicationBlocked, []string{"blocked", "can't reach", "not responding"}},
	{spine.CategoryMedicalConcern, []string{"medical", "doctor", "health"}},
	{spine.CategorySafetyIssue, []string{"safety", "danger", "police"}},
	{spine.CategoryProcedural, []string{"court", "hearing", "filing"}},
}

// Categorize assigns content a category by case-insensitive keyword match.
func Categorize(content string) spine.Category {
	lower := strings.ToLower(content)
	for _, set := range categoryKeywords {
		for _, kw := range set.keywords {
			if strings.Contains(lower, kw) {
				return set.category
			}
		}
	}
	return spine.CategoryOther
}
