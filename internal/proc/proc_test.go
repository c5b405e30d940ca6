package proc

import (
	"context"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/tagship/tagship/internal/logging"
	"github.com/tagship/tagship/internal/tagerr"
)

func TestSpawnEmptyCommand(t *testing.T) {
	_, err := Spawn(context.Background(), "", nil, Options{}, logging.NewNop())
	var invalid *tagerr.InvalidArgument
	if err == nil {
		t.Fatal("Spawn(\"\") succeeded, want InvalidArgument")
	}
	if !asInvalidArgument(err, &invalid) {
		t.Fatalf("Spawn(\"\") error = %v (%T), want *tagerr.InvalidArgument", err, err)
	}
}

func asInvalidArgument(err error, target **tagerr.InvalidArgument) bool {
	if e, ok := err.(*tagerr.InvalidArgument); ok {
		*target = e
		return true
	}
	return false
}

func TestSpawnSuccess(t *testing.T) {
	out, err := Spawn(context.Background(), "echo", []string{"hello"}, Options{}, logging.NewNop())
	if err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if got, want := string(out), "hello\n"; got != want {
		t.Fatalf("Spawn stdout = %q, want %q", got, want)
	}
}

func TestSpawnNonZeroExitScrubsEnv(t *testing.T) {
	_, err := Spawn(context.Background(), "false", nil, Options{
		Env: map[string]string{"PASSWORD": "x", "PATH": "/bin"},
	}, logging.NewNop())
	if err == nil {
		t.Fatal("Spawn(\"false\") succeeded, want ProcessFailed")
	}
	pf, ok := err.(*tagerr.ProcessFailed)
	if !ok {
		t.Fatalf("Spawn error = %v (%T), want *tagerr.ProcessFailed", err, err)
	}
	opts, ok := pf.Options.(map[string]interface{})
	if !ok {
		t.Fatalf("ProcessFailed.Options = %v, want map[string]interface{}", pf.Options)
	}
	got := opts["env"]
	want := []string{"PASSWORD", "PATH"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("scrubbed env mismatch (-want +got):\n%s", diff)
	}
	// the secret value must never appear anywhere in the error.
	if msg := err.Error(); strings.Contains(msg, "PASSWORD=x") {
		t.Fatalf("error leaked secret value: %q", msg)
	}
}

func TestSpawnMissingCommand(t *testing.T) {
	_, err := Spawn(context.Background(), "this-binary-does-not-exist-xyz", nil, Options{}, logging.NewNop())
	if err == nil {
		t.Fatal("Spawn of missing binary succeeded, want ProcessFailed")
	}
	pf, ok := err.(*tagerr.ProcessFailed)
	if !ok {
		t.Fatalf("Spawn error = %v (%T), want *tagerr.ProcessFailed", err, err)
	}
	if pf.Code != -1 {
		t.Fatalf("ProcessFailed.Code = %d, want -1", pf.Code)
	}
}
