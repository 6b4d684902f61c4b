package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/mattn/go-sqlite3"
)

func TestMetadataStatusAndDetails(t *testing.T) {
	tests := map[Code]struct {
		status    int
		detailsOK bool
	}{
		CodeValidation:    {status: http.StatusBadRequest, detailsOK: true},
		CodeNotFound:      {status: http.StatusNotFound},
		CodeConflict:      {status: http.StatusConflict, detailsOK: true},
		CodeStateConflict: {status: http.StatusUnprocessableEntity, detailsOK: true},
		CodeInternal:      {status: http.StatusInternalServerError},
		CodeDependency:    {status: http.StatusServiceUnavailable, detailsOK: true},
	}
	for code, want := range tests {
		meta := MetadataFor(code)
		if meta.HTTPStatus != want.status {
			t.Errorf("%s: expected status %d got %d", code, want.status, meta.HTTPStatus)
		}
		if meta.DetailsAllowed != want.detailsOK {
			t.Errorf("%s: expected details allowed %v", code, want.detailsOK)
		}
		if meta.PublicMessage == "" {
			t.Errorf("%s: missing public message", code)
		}
	}
	if MetadataFor("SHED_ON_FIRE").HTTPStatus != http.StatusInternalServerError {
		t.Fatal("unknown codes must map to internal")
	}
}

func TestHasCodeSeesThroughWrapping(t *testing.T) {
	gate := New(CodeStateConflict, "item already removed")
	wrapped := fmt.Errorf("update TENT-004: %w", gate)

	if !HasCode(wrapped, CodeStateConflict) {
		t.Fatal("expected state conflict through fmt wrapping")
	}
	if HasCode(wrapped, CodeConflict) {
		t.Fatal("unexpected conflict code")
	}
	if HasCode(stdErrors.New("plain"), CodeInternal) {
		t.Fatal("untyped errors carry no code")
	}
	if As(nil) != nil {
		t.Fatal("As(nil) should return nil")
	}
}

func TestWrapKeepsCauseAndDetails(t *testing.T) {
	cause := stdErrors.New("sheet quota exceeded")
	err := Wrap(CodeDependency, cause, "append transactions").WithDetails(map[string]any{"op": "append"})

	if !stdErrors.Is(err, cause) {
		t.Fatal("Wrap must preserve the cause")
	}
	if err.Message() != "append transactions" {
		t.Fatalf("unexpected message %q", err.Message())
	}
	details, ok := err.Details().(map[string]any)
	if !ok || details["op"] != "append" {
		t.Fatalf("unexpected details %#v", err.Details())
	}
	if Wrap(CodeInternal, nil, "no cause").Unwrap() != nil {
		t.Fatal("nil cause should not be wrapped")
	}
}

func TestDumpWalksChainAndSQLiteFields(t *testing.T) {
	lite := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintPrimaryKey}
	err := Wrap(CodeInternal, fmt.Errorf("insert transaction: %w", lite), "checkout TENT-001")

	dump := Dump(err)
	if dump.Code != CodeInternal {
		t.Fatalf("expected internal code got %s", dump.Code)
	}
	if len(dump.Chain) < 3 {
		t.Fatalf("expected at least 3 chain entries got %d: %v", len(dump.Chain), dump.Chain)
	}
	if dump.SQLiteCode == "" || dump.SQLiteExtended == "" {
		t.Fatalf("expected sqlite fields, got %+v", dump)
	}
	if !IsUniqueViolation(err) {
		t.Fatal("primary key violation should count as unique")
	}
	if IsUniqueViolation(stdErrors.New("nope")) {
		t.Fatal("plain error is not a unique violation")
	}
	if empty := Dump(nil); empty.TopMessage != "" || empty.Chain != nil {
		t.Fatal("Dump(nil) should be empty")
	}
}
