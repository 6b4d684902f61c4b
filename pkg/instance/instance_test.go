package instance

import "testing"

func TestGetIDPrefersEnv(t *testing.T) {
	t.Setenv(envID, " shed-2 ")
	if got := GetID(); got != "shed-2" {
		t.Fatalf("expected shed-2 got %q", got)
	}
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv(envID, "")
	if got := GetID(); got == "" {
		t.Fatalf("expected a non-empty id")
	}
}
