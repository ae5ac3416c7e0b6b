package policy

// builtinPolicies returns the policies every installation enforces.
func builtinPolicies() []Policy {
	return []Policy{
		serviceUserPolicy(),
		packageSetPolicy(),
	}
}

// serviceUserPolicy forbids running the main service as root.
func serviceUserPolicy() Policy {
	return Policy{
		Name:        "service-user",
		Description: "The main service must run under a dedicated unprivileged account",
		Severity:    SeverityError,
		Enabled:     true,
		Rego: `package bringup.policies.service_user

import rego.v1

deny contains violation if {
	input.service_user == "root"
	violation := {
		"message": "main service must not run as root",
		"severity": "error",
	}
}

deny contains violation if {
	input.service_user == ""
	violation := {
		"message": "service user must be set",
		"severity": "error",
	}
}
`,
	}
}

// packageSetPolicy requires a non-empty, sane package list.
func packageSetPolicy() Policy {
	return Policy{
		Name:        "package-set",
		Description: "OS dependency installation must name at least one package",
		Severity:    SeverityError,
		Enabled:     true,
		Rego: `package bringup.policies.package_set

import rego.v1

deny contains violation if {
	count(input.packages) == 0
	violation := {
		"message": "no OS packages requested",
		"severity": "error",
	}
}

deny contains violation if {
	some pkg in input.packages
	pkg == ""
	violation := {
		"message": "package list contains an empty name",
		"severity": "error",
	}
}
`,
	}
}
