// Package permission defines the permission vocabulary: the closed set of
// global permission keys and the open set of project-scoped permission keys.
package permission

import (
	"fmt"
	"strings"
)

// Global is a platform-wide permission drawn from a closed set of keys.
// The key doubles as the storage value and the wire-level filter value.
type Global string

// Global permission keys.
const (
	Administer                Global = "admin"
	AdministerQualityGates    Global = "gateadmin"
	AdministerQualityProfiles Global = "profileadmin"
	ProvisionProjects         Global = "provisioning"
	Scan                      Global = "scan"
)

// all lists every global permission, in key order.
var all = []Global{
	Administer,
	AdministerQualityGates,
	AdministerQualityProfiles,
	ProvisionProjects,
	Scan,
}

// All returns every global permission.
func All() []Global {
	out := make([]Global, len(all))
	copy(out, all)
	return out
}

// Key returns the stable string key of the permission.
func (g Global) Key() string { return string(g) }

// FromKey resolves a global permission from its key.
// Unknown keys are a caller error, not an empty result.
func FromKey(key string) (Global, error) {
	for _, g := range all {
		if string(g) == key {
			return g, nil
		}
	}
	return "", fmt.Errorf("permission: unknown global permission key %q", key)
}

// ContainsKey reports whether key names a global permission.
func ContainsKey(key string) bool {
	_, err := FromKey(key)
	return err == nil
}

// Project-scoped permission keys conventionally used by callers. The set is
// open: any non-empty string is a valid project permission key.
const (
	ProjectUser       = "user"
	ProjectCodeViewer = "codeviewer"
	ProjectAdmin      = "admin"
	ProjectIssueAdmin = "issueadmin"
	ProjectScan       = "scan"
)

// publicKeys are the two project permission keys every principal holds
// implicitly on a public project.
var publicKeys = []string{ProjectUser, ProjectCodeViewer}

// PublicKeys returns the project permission keys granted implicitly on
// public projects.
func PublicKeys() []string {
	out := make([]string, len(publicKeys))
	copy(out, publicKeys)
	return out
}

// IsPublicKey reports whether key is granted implicitly on public projects.
func IsPublicKey(key string) bool {
	return key == ProjectUser || key == ProjectCodeViewer
}

// ValidKey reports whether key is usable as a project permission key.
func ValidKey(key string) bool {
	return strings.TrimSpace(key) != "" && key == strings.TrimSpace(key)
}
