package permission_test

import (
	"testing"

	"github.com/xraph/hallpass/permission"
)

func TestFromKey(t *testing.T) {
	for _, g := range permission.All() {
		got, err := permission.FromKey(g.Key())
		if err != nil {
			t.Fatalf("FromKey(%q) failed: %v", g.Key(), err)
		}
		if got != g {
			t.Errorf("FromKey(%q) = %q", g.Key(), got)
		}
	}
}

func TestFromKeyUnknown(t *testing.T) {
	if _, err := permission.FromKey("root"); err == nil {
		t.Fatal("expected error for unknown global permission key")
	}
	if permission.ContainsKey("root") {
		t.Error("ContainsKey should reject unknown key")
	}
	if !permission.ContainsKey("admin") {
		t.Error("ContainsKey should accept admin")
	}
}

func TestPublicKeys(t *testing.T) {
	if !permission.IsPublicKey(permission.ProjectUser) {
		t.Error("user should be a public key")
	}
	if !permission.IsPublicKey(permission.ProjectCodeViewer) {
		t.Error("codeviewer should be a public key")
	}
	if permission.IsPublicKey(permission.ProjectAdmin) {
		t.Error("admin must not be a public key")
	}
	if permission.IsPublicKey(permission.ProjectScan) {
		t.Error("scan must not be a public key")
	}
	if got := len(permission.PublicKeys()); got != 2 {
		t.Errorf("expected 2 public keys, got %d", got)
	}
}

func TestValidKey(t *testing.T) {
	valid := []string{"user", "codeviewer", "issueadmin", "my-custom-role"}
	for _, k := range valid {
		if !permission.ValidKey(k) {
			t.Errorf("ValidKey(%q) = false, want true", k)
		}
	}

	invalid := []string{"", "  ", " user", "user "}
	for _, k := range invalid {
		if permission.ValidKey(k) {
			t.Errorf("ValidKey(%q) = true, want false", k)
		}
	}
}
