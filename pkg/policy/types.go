package policy

// Severity classifies how a violation affects the run.
type Severity string

const (
	// SeverityError blocks provisioning.
	SeverityError Severity = "error"

	// SeverityWarning is logged but does not block.
	SeverityWarning Severity = "warning"
)

// Policy is a named Rego policy evaluated against the provisioning input.
type Policy struct {
	Name        string
	Description string
	Severity    Severity
	Enabled     bool
	Rego        string
}

// Input is the document policies are evaluated against. It describes what
// the run is about to do, before any side effects happen.
type Input struct {
	Packages    []string `json:"packages"`
	ServiceUser string   `json:"service_user"`
	Port        int      `json:"port"`
	AppDir      string   `json:"app_dir"`
}

// Violation is a single policy denial.
type Violation struct {
	Policy   string `json:"policy"`
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// Result is the outcome of evaluating all policies against one input.
type Result struct {
	Allowed    bool
	Violations []Violation
}
