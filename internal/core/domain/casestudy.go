package domain

import (
	"fmt"
	"strings"
)

// DefaultSelectionBudget is the number of items handed to the model.
const DefaultSelectionBudget = 50

// CaseStudyRequest is everything needed to generate one case study.
type CaseStudyRequest struct {
	UserID             string
	ProjectName        string
	Scope              ProjectScope
	ModelName          string
	Template           Template
	CustomInstructions string
	// Budget caps the items passed to the model. Zero selects DefaultSelectionBudget.
	Budget int
}

// Validate checks the request before any work starts.
func (r CaseStudyRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(r.ModelName) == "" {
		return fmt.Errorf("%w: model name is required", ErrInvalidInput)
	}
	if r.Budget < 0 {
		return fmt.Errorf("%w: budget must not be negative", ErrInvalidInput)
	}
	if r.Template == TemplateCustom && strings.TrimSpace(r.CustomInstructions) == "" {
		return fmt.Errorf("%w: custom template requires instructions", ErrInvalidInput)
	}
	return r.Scope.Validate()
}
