package access

import (
	"context"
	"fmt"

	"github.com/acganger/ganger-platform-sub002/internal/audit"
	dErrors "github.com/acganger/ganger-platform-sub002/pkg/domain-errors"
)

// MinimizationResult partitions a requested field set into the fields the
// role and purpose justify and the fields they do not.
type MinimizationResult struct {
	AuthorizedFields []string `json:"authorizedFields"`
	DeniedFields     []string `json:"deniedFields"`
	Compliant        bool     `json:"compliant"`
	Justification    string   `json:"justification"`
}

// CheckDataMinimization applies the minimum-necessary principle to a field
// request: a field is authorized if the role's permitted set or the purpose's
// required set contains it, or if the role holds the field wildcard.
func (v *Validator) CheckDataMinimization(ctx context.Context, requestedFields []string, role, purpose string) (MinimizationResult, error) {
	if role == "" || purpose == "" {
		return MinimizationResult{}, dErrors.New(dErrors.CodeValidation, "role and purpose are required")
	}
	purposeFields, ok := v.cfg.PurposeFields[purpose]
	if !ok {
		return MinimizationResult{}, dErrors.Newf(dErrors.CodeValidation, "unknown access purpose %q", purpose)
	}

	roleFields := v.cfg.RoleFields[role]
	wildcard := v.cfg.roleHasFieldWildcard(role)

	result := MinimizationResult{
		AuthorizedFields: []string{},
		DeniedFields:     []string{},
	}
	for _, field := range requestedFields {
		if wildcard || contains(roleFields, field) || contains(purposeFields, field) {
			result.AuthorizedFields = append(result.AuthorizedFields, field)
		} else {
			result.DeniedFields = append(result.DeniedFields, field)
		}
	}
	result.Compliant = len(result.DeniedFields) == 0
	if result.Compliant {
		result.Justification = fmt.Sprintf("all requested fields are necessary for %s by role %s", purpose, role)
	} else {
		result.Justification = fmt.Sprintf("%d of %d requested fields exceed the minimum necessary for %s",
			len(result.DeniedFields), len(requestedFields), purpose)
	}

	v.recordMinimization(ctx, role, purpose, result)
	return result, nil
}

func (v *Validator) recordMinimization(ctx context.Context, role, purpose string, result MinimizationResult) {
	err := v.recorder.Log(ctx, audit.Record{
		Action:        audit.ActionDataMinimizationCheck,
		ResourceType:  "data_minimization",
		ProtectedData: true,
		AccessReason:  purpose,
		Details: map[string]any{
			"role":              role,
			"purpose":           purpose,
			"authorized_fields": result.AuthorizedFields,
			"denied_fields":     result.DeniedFields,
			"compliant":         result.Compliant,
		},
	})
	if err != nil && v.logger != nil {
		v.logger.ErrorContext(ctx, "failed to audit data minimization check", "error", err)
	}
}
