package agent

import (
	"errors"
	"testing"
)

func TestResolveBuiltinProfiles(t *testing.T) {
	r := NewDefaultRegistry()
	cases := []struct {
		name       string
		wantWindow int
	}{
		{name: ModelGPT35Turbo, wantWindow: 16384},
		{name: ModelGPT4, wantWindow: 32768},
	}
	for _, tc := range cases {
		p, err := r.Resolve(tc.name)
		if err != nil {
			t.Fatalf("Resolve(%q) error = %v", tc.name, err)
		}
		if p.ContextWindow != tc.wantWindow {
			t.Fatalf("Resolve(%q).ContextWindow = %d, want %d", tc.name, p.ContextWindow, tc.wantWindow)
		}
		if p.ReservedResponse != 3950 {
			t.Fatalf("Resolve(%q).ReservedResponse = %d, want 3950", tc.name, p.ReservedResponse)
		}
	}
}

func TestResolveUnknownModel(t *testing.T) {
	r := NewDefaultRegistry()
	_, err := r.Resolve("unknown-model")
	if err == nil {
		t.Fatalf("expected error for unknown model")
	}
	var unknown *UnknownModelError
	if !errors.As(err, &unknown) {
		t.Fatalf("error type = %T, want *UnknownModelError", err)
	}
	if unknown.Name != "unknown-model" {
		t.Fatalf("UnknownModelError.Name = %q, want unknown-model", unknown.Name)
	}
	if !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("errors.Is(err, ErrUnknownModel) = false")
	}
}

func TestRegisterCustomProfile(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if err := r.Register(ModelProfile{Name: "local-8k", ContextWindow: 8192, ReservedResponse: 1024}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	p, err := r.Resolve("local-8k")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if p.Budget() != 8192-1024 {
		t.Fatalf("Budget() = %d, want %d", p.Budget(), 8192-1024)
	}
	if _, err := r.Resolve(ModelGPT4); err == nil {
		t.Fatalf("empty registry resolved a builtin profile")
	}
}

func TestRegisterRejectsInvalidProfiles(t *testing.T) {
	r, _ := NewRegistry()
	bad := []ModelProfile{
		{Name: "", ContextWindow: 10, ReservedResponse: 1},
		{Name: "zero", ContextWindow: 0, ReservedResponse: 0},
		{Name: "reserve-eq", ContextWindow: 100, ReservedResponse: 100},
		{Name: "reserve-neg", ContextWindow: 100, ReservedResponse: -1},
	}
	for _, p := range bad {
		if err := r.Register(p); err == nil {
			t.Fatalf("Register(%+v) expected error", p)
		}
	}
}

func TestParseProfiles(t *testing.T) {
	got, err := ParseProfiles(" gpt-4o:128000:4000 , ,tiny:100:10")
	if err != nil {
		t.Fatalf("ParseProfiles() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len(ParseProfiles()) = %d, want 2", len(got))
	}
	if got[0].Name != "gpt-4o" || got[0].ContextWindow != 128000 || got[0].ReservedResponse != 4000 {
		t.Fatalf("first profile = %+v", got[0])
	}
	for _, raw := range []string{"a:1", "a:x:1", "a:10:20", "a:10x:1", "m:100abc:10xyz"} {
		if _, err := ParseProfiles(raw); err == nil {
			t.Fatalf("ParseProfiles(%q) expected error", raw)
		}
	}
}

func TestProfilesSorted(t *testing.T) {
	got := NewDefaultRegistry().Profiles()
	if len(got) != 2 || got[0].Name != ModelGPT35Turbo || got[1].Name != ModelGPT4 {
		t.Fatalf("Profiles() = %+v", got)
	}
}
