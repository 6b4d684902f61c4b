package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/gearshed-backend/pkg/errors"
)

type checkoutBody struct {
	ItemIDs    []string `json:"itemIds" validate:"required,min=1,dive,required"`
	OutingName string   `json:"outingName" validate:"required,max=10"`
}

func TestDecodeJSONBody(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantErr bool
		field   string
	}{
		{name: "valid", body: `{"itemIds":["TENT-001"],"outingName":"Fall Camp"}`},
		{name: "empty", body: ``, wantErr: true},
		{name: "unknown field", body: `{"itemIds":["A"],"outingName":"x","extra":1}`, wantErr: true},
		{name: "missing outing", body: `{"itemIds":["A"]}`, wantErr: true, field: "outingName"},
		{name: "blank id", body: `{"itemIds":["A",""],"outingName":"x"}`, wantErr: true, field: "itemIds[1]"},
		{name: "long outing", body: `{"itemIds":["A"],"outingName":"Summer Camp 2020"}`, wantErr: true, field: "outingName"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tc.body))
			var dest checkoutBody
			err := DecodeJSONBody(req, &dest)
			if !tc.wantErr {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if tc.field == "" {
				return
			}
			details, ok := pkgerrors.As(err).Details().(map[string]string)
			if !ok {
				t.Fatalf("expected field details, got %#v", pkgerrors.As(err).Details())
			}
			if _, ok := details[tc.field]; !ok {
				t.Fatalf("expected %s in details %v", tc.field, details)
			}
		})
	}
}

func TestParseQuery(t *testing.T) {
	req := httptest.NewRequest("GET", "/?limit=20&sync=true&bad=x", nil)

	if got, err := ParseQueryInt(req, "limit", 50, 1, 200); err != nil || got != 20 {
		t.Fatalf("limit = %d, %v", got, err)
	}
	if got, err := ParseQueryInt(req, "missing", 50, 1, 200); err != nil || got != 50 {
		t.Fatalf("default = %d, %v", got, err)
	}
	if _, err := ParseQueryInt(req, "bad", 50, 1, 200); err == nil {
		t.Fatal("expected error for non-numeric value")
	}
	if got, err := ParseQueryBool(req, "sync"); err != nil || !got {
		t.Fatalf("sync = %v, %v", got, err)
	}
	if _, err := ParseQueryBool(req, "bad"); err == nil {
		t.Fatal("expected error for non-boolean value")
	}
}

func TestSanitizeIDs(t *testing.T) {
	got := SanitizeIDs([]string{" TENT-001 ", "", "  ", "STOVE-002"})
	if len(got) != 2 || got[0] != "TENT-001" || got[1] != "STOVE-002" {
		t.Fatalf("unexpected ids %v", got)
	}
}
