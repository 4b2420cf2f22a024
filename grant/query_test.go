package grant_test

import (
	"errors"
	"testing"

	"github.com/xraph/hallpass/grant"
	"github.com/xraph/hallpass/id"
)

func TestQueryDefaults(t *testing.T) {
	q, err := grant.NewQueryBuilder().SetWithAtLeastOnePermission().Build()
	if err != nil {
		t.Fatal(err)
	}
	if q.PageSize() != grant.DefaultPageSize {
		t.Errorf("expected page size %d, got %d", grant.DefaultPageSize, q.PageSize())
	}
	if q.PageIndex() != grant.DefaultPageIndex {
		t.Errorf("expected page index %d, got %d", grant.DefaultPageIndex, q.PageIndex())
	}
	if q.PageOffset() != 0 {
		t.Errorf("expected offset 0, got %d", q.PageOffset())
	}
	if !q.GlobalScope() {
		t.Error("expected global scope by default")
	}
}

func TestQueryPageOffset(t *testing.T) {
	q, err := grant.NewQueryBuilder().SetWithAtLeastOnePermission().SetPageIndex(3).SetPageSize(25).Build()
	if err != nil {
		t.Fatal(err)
	}
	if q.PageOffset() != 50 {
		t.Errorf("expected offset 50, got %d", q.PageOffset())
	}
}

func TestQueryEmptyPermissionIsFatal(t *testing.T) {
	_, err := grant.NewQueryBuilder().SetPermission("").Build()
	if !errors.Is(err, grant.ErrEmptyPermission) {
		t.Fatalf("expected ErrEmptyPermission, got %v", err)
	}
}

func TestQueryRequiresPermissionOrAtLeastOne(t *testing.T) {
	_, err := grant.NewQueryBuilder().Build()
	if !errors.Is(err, grant.ErrPermissionRequired) {
		t.Fatalf("expected ErrPermissionRequired, got %v", err)
	}

	// A permission filter alone is enough, and does not force the
	// holders-only mode.
	q, err := grant.NewQueryBuilder().SetPermission("admin").Build()
	if err != nil {
		t.Fatal(err)
	}
	if q.WithAtLeastOnePermission() {
		t.Error("expected at-least-one-permission off with a bare permission filter")
	}
	if q.Permission() != "admin" {
		t.Errorf("expected permission admin, got %q", q.Permission())
	}

	// Opting into at-least-one-permission mode is the other valid form.
	q, err = grant.NewQueryBuilder().SetWithAtLeastOnePermission().Build()
	if err != nil {
		t.Fatal(err)
	}
	if !q.WithAtLeastOnePermission() {
		t.Error("expected at-least-one-permission on")
	}
}

func TestQuerySearchTooShort(t *testing.T) {
	_, err := grant.NewQueryBuilder().SetWithAtLeastOnePermission().SetSearchQuery("ab").Build()
	if !errors.Is(err, grant.ErrSearchTooShort) {
		t.Fatalf("expected ErrSearchTooShort, got %v", err)
	}

	// Trimming applies before the length check.
	_, err = grant.NewQueryBuilder().SetWithAtLeastOnePermission().SetSearchQuery("  ab  ").Build()
	if !errors.Is(err, grant.ErrSearchTooShort) {
		t.Fatalf("expected ErrSearchTooShort after trim, got %v", err)
	}

	q, err := grant.NewQueryBuilder().SetWithAtLeastOnePermission().SetSearchQuery(" abc ").Build()
	if err != nil {
		t.Fatal(err)
	}
	if q.SearchQuery() != "abc" {
		t.Errorf("expected trimmed search %q, got %q", "abc", q.SearchQuery())
	}
}

func TestQueryProjectScope(t *testing.T) {
	projectID := id.NewProjectID()
	q, err := grant.NewQueryBuilder().SetWithAtLeastOnePermission().SetProject(projectID).Build()
	if err != nil {
		t.Fatal(err)
	}
	if q.GlobalScope() {
		t.Error("expected entity scope")
	}
	if q.ProjectID() != projectID {
		t.Errorf("expected project %s, got %s", projectID, q.ProjectID())
	}
}

func TestQueryInvalidPagination(t *testing.T) {
	if _, err := grant.NewQueryBuilder().SetWithAtLeastOnePermission().SetPageSize(0).Build(); err == nil {
		t.Error("expected error for zero page size")
	}
	if _, err := grant.NewQueryBuilder().SetWithAtLeastOnePermission().SetPageIndex(0).Build(); err == nil {
		t.Error("expected error for zero page index")
	}
}
