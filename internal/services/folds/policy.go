package folds

import (
	"fmt"
	"strings"

	"TFoldSV/internal/domain/models"
)

// Policy selects how a table is cut into folds.
type Policy string

const (
	PolicyQuarter  Policy = "quarter"
	PolicySemester Policy = "semester"
	PolicyYear     Policy = "year"
	PolicyHoldout  Policy = "holdout-80-20"
)

var policyAliases = map[string]Policy{
	"quarter": PolicyQuarter, "q": PolicyQuarter,
	"semester": PolicySemester, "s": PolicySemester,
	"year": PolicyYear, "y": PolicyYear,
	"holdout-80-20": PolicyHoldout, "80-20": PolicyHoldout, "holdout": PolicyHoldout,
}

// Policies returns the supported policies.
func Policies() []Policy {
	return []Policy{PolicyQuarter, PolicySemester, PolicyYear, PolicyHoldout}
}

// ParsePolicy converts a raw policy name or alias into a Policy.
func ParsePolicy(s string) (Policy, error) {
	if p, ok := policyAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return p, nil
	}
	return "", fmt.Errorf("%w: unsupported fold size %q", models.ErrConfig, s)
}

// Holdout fold keys.
const (
	HoldoutTrainKey      = "h_8"
	HoldoutValidationKey = "h_2"
)

// HoldoutSizes returns how many of n distinct years go to the train and validation
// folds: floor(0.8n) and floor(0.2n). Any remainder is not assigned.
func HoldoutSizes(n int) (train, validation int) {
	if n <= 0 {
		return 0, 0
	}
	return n * 8 / 10, n * 2 / 10
}
