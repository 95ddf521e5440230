package handlers

import (
	"fmt"
	"strings"

	appErrors "github.com/charlesng35/orgcache/pkg/errors"
	appValidator "github.com/charlesng35/orgcache/pkg/validator"
)

func validateOrgID(orgID string) error {
	if err := appValidator.ValidateVar("orgId", orgID, "required,"+appValidator.OrgIDTag); err != nil {
		return appErrors.NewBadRequest(formatValidationError(err))
	}
	return nil
}

func formatValidationError(err error) string {
	if err == nil {
		return "invalid request"
	}

	if ve, ok := err.(appValidator.ValidationErrors); ok {
		if len(ve) == 0 {
			return "invalid request"
		}

		messages := make([]string, 0, len(ve))
		for _, failure := range ve {
			field := prettifyFieldName(failure.Field)
			switch failure.Tag {
			case "required":
				messages = append(messages, fmt.Sprintf("%s is required", field))
			case appValidator.OrgIDTag:
				messages = append(messages, fmt.Sprintf("%s must be a nine digit organization number", field))
			default:
				if failure.Param != "" {
					messages = append(messages, fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param))
				} else {
					messages = append(messages, fmt.Sprintf("%s failed validation: %s", field, failure.Tag))
				}
			}
		}
		return strings.Join(messages, "; ")
	}

	return "invalid request"
}

func prettifyFieldName(name string) string {
	if name == "" {
		return "field"
	}
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ToLower(name)
}
