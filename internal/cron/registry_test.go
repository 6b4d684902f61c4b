package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	registry := NewRegistry(nil, &stubJob{name: "sheets-sync"})
	jobB := &stubJob{name: "b"}
	if err := registry.Register(jobB); err != nil {
		t.Fatalf("register: %v", err)
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[1] != jobB {
		t.Fatalf("jobs returned out of order")
	}
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
	if got := registry.Names(); len(got) != 2 || got[0] != "sheets-sync" || got[1] != "b" {
		t.Fatalf("unexpected names %v", got)
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	var registry Registry
	if err := registry.Register(&stubJob{name: "sheets-sync"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := registry.Register(&stubJob{name: "sheets-sync"}); err == nil {
		t.Fatal("expected duplicate name to be rejected")
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected NewRegistry to panic on duplicates")
		}
	}()
	NewRegistry(&stubJob{name: "x"}, &stubJob{name: "x"})
}
