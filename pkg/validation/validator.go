package validation

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var (
	// validate is a shared validator instance
	validate *validator.Validate

	// Validation constants
	MaxPayloadFields  = 100
	MaxCollectionName = 64

	// Collection names are lowercase identifiers, optionally dotted
	collectionPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*(\.[a-z][a-z0-9_]*)?$`)
)

func init() {
	validate = validator.New()
}

// MutationRequest represents a create/update/delete request against a collection
type MutationRequest struct {
	Collection string         `json:"collection" validate:"required,min=1,max=64"`
	Kind       string         `json:"kind" validate:"required,oneof=create update delete"`
	Payload    map[string]any `json:"payload" validate:"omitempty,max=100"`
}

// SkillRequest represents a skill entry in a student portfolio
type SkillRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=100"`
	Level string `json:"level" validate:"required,oneof=beginner intermediate advanced expert"`
}

// ProjectRequest represents a project entry in a student portfolio
type ProjectRequest struct {
	Title       string   `json:"title" validate:"required,min=1,max=200"`
	Description string   `json:"description" validate:"omitempty,max=5000"`
	Tags        []string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	URL         string   `json:"url" validate:"omitempty,url"`
}

// ValidateCollectionName validates a collection name
func ValidateCollectionName(name string) error {
	if name == "" {
		return errors.New("collection name cannot be empty")
	}
	if len(name) > MaxCollectionName {
		return fmt.Errorf("collection name exceeds %d characters", MaxCollectionName)
	}
	if !collectionPattern.MatchString(name) {
		return fmt.Errorf("invalid collection name %q", name)
	}
	return nil
}

// ValidateMutationRequest validates a mutation before it reaches the fallback router
func ValidateMutationRequest(req *MutationRequest) error {
	if req == nil {
		return errors.New("mutation request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return ValidateCollectionName(req.Collection)
}

// ValidateSkillRequest validates a skill payload
func ValidateSkillRequest(req *SkillRequest) error {
	if req == nil {
		return errors.New("skill request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// ValidateProjectRequest validates a project payload
func ValidateProjectRequest(req *ProjectRequest) error {
	if req == nil {
		return errors.New("project request cannot be nil")
	}
	if err := validate.Struct(req); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors into readable messages
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		first := validationErrors[0]
		return fmt.Errorf("field %s failed %s validation", first.Field(), first.Tag())
	}
	return err
}
