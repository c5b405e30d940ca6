package target

import (
	"errors"
	"testing"

	"github.com/tagship/tagship/internal/tagerr"
)

func TestResolveMissingName(t *testing.T) {
	_, err := Resolve(Spec{})
	var want *tagerr.MissingTargetSpec
	if !errors.As(err, &want) {
		t.Fatalf("Resolve(Spec{}) = %v, want *tagerr.MissingTargetSpec", err)
	}
}

func TestResolveUnknown(t *testing.T) {
	_, err := Resolve(Spec{Name: "not-a-real-driver"})
	var want *tagerr.UnknownTarget
	if !errors.As(err, &want) {
		t.Fatalf("Resolve = %v, want *tagerr.UnknownTarget", err)
	}
}

func TestRunExtendsContextWithOptions(t *testing.T) {
	var seen Context
	Register("test-echo", func(tc Context) error {
		seen = tc
		return nil
	})

	base := Context{Repo: seen.Repo}
	err := Run(base, Spec{Name: "test-echo", Options: map[string]interface{}{"k": "v"}})
	if err != nil {
		t.Fatal(err)
	}
	if seen.Options["k"] != "v" {
		t.Fatalf("Options = %v, want k=v", seen.Options)
	}
}
