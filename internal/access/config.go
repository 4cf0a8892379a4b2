package access

// Wildcard grants a role every resource type or field.
const Wildcard = "*"

// Purposes recognized by the data minimization check.
const (
	PurposeTreatment  = "treatment"
	PurposePayment    = "payment"
	PurposeOperations = "operations"
	PurposeResearch   = "research"
	PurposeAudit      = "audit"
)

// Config is the rule surface of the access validator. Everything is injected
// so deployments can tighten or extend the matrices without a code change.
type Config struct {
	// RolePermissions maps a role to the resource types it may access. The
	// wildcard entry permits everything.
	RolePermissions map[string][]string
	// SensitiveResources require a business justification on every request.
	SensitiveResources []string
	// RoleFields maps a role to the record fields it may read during a
	// minimized disclosure.
	RoleFields map[string][]string
	// PurposeFields maps an access purpose to the fields that purpose
	// requires.
	PurposeFields map[string][]string
	// TimeRestrictedRoles are limited to the business-hours window; outside
	// it their access is annotated, not denied.
	TimeRestrictedRoles []string
	// BusinessHoursStart and BusinessHoursEnd delimit the unrestricted
	// window for time-restricted roles, in local hours.
	BusinessHoursStart int
	BusinessHoursEnd   int
}

// DefaultConfig returns the production rule matrices.
func DefaultConfig() Config {
	return Config{
		RolePermissions: map[string][]string{
			"admin":              {Wildcard},
			"provider":           {"patient_records", "medication_history", "diagnosis_data", "lab_results", "appointments"},
			"nurse":              {"patient_records", "medication_history", "appointments", "vitals"},
			"medical_assistant":  {"appointments", "patient_records", "insurance_info"},
			"pharmacy_tech":      {"medication_history", "prescriptions", "inventory"},
			"compliance_officer": {"audit_logs", "compliance_reports", "patient_records"},
			"billing":            {"billing_records", "insurance_info", "appointments"},
		},
		SensitiveResources: []string{
			"patient_records",
			"medication_history",
			"diagnosis_data",
		},
		RoleFields: map[string][]string{
			"admin":              {Wildcard},
			"provider":           {"name", "date_of_birth", "medications", "allergies", "diagnoses", "lab_results", "insurance_plan"},
			"nurse":              {"name", "date_of_birth", "medications", "allergies", "vitals"},
			"medical_assistant":  {"name", "date_of_birth", "appointment_history", "insurance_plan"},
			"pharmacy_tech":      {"name", "date_of_birth", "medications", "allergies"},
			"compliance_officer": {"name", "access_history"},
			"billing":            {"name", "date_of_birth", "insurance_plan", "billing_history"},
		},
		PurposeFields: map[string][]string{
			PurposeTreatment:  {"name", "date_of_birth", "medications", "allergies", "diagnoses", "vitals", "lab_results"},
			PurposePayment:    {"name", "insurance_plan", "billing_history"},
			PurposeOperations: {"name", "appointment_history"},
			PurposeResearch:   {"date_of_birth", "diagnoses"},
			PurposeAudit:      {"name", "access_history"},
		},
		TimeRestrictedRoles: []string{"medical_assistant", "billing"},
		BusinessHoursStart:  6,
		BusinessHoursEnd:    22,
	}
}

func (c Config) roleCanAccess(role, resourceType string) bool {
	permitted, ok := c.RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range permitted {
		if p == Wildcard || p == resourceType {
			return true
		}
	}
	return false
}

func (c Config) isSensitive(resourceType string) bool {
	for _, s := range c.SensitiveResources {
		if s == resourceType {
			return true
		}
	}
	return false
}

func (c Config) isTimeRestricted(role string) bool {
	for _, r := range c.TimeRestrictedRoles {
		if r == role {
			return true
		}
	}
	return false
}

func (c Config) roleHasFieldWildcard(role string) bool {
	for _, f := range c.RoleFields[role] {
		if f == Wildcard {
			return true
		}
	}
	return false
}
