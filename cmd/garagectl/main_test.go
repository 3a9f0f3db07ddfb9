package main

import (
	"bytes"
	"strings"
	"testing"

	icmd "github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/cmd"
)

func TestVersionCommand(t *testing.T) {
	root := icmd.NewRootCmd("1.2.3", "2026-03-01")
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if out := buf.String(); !strings.HasPrefix(out, "garagectl 1.2.3") {
		t.Fatalf("unexpected version output: %q", out)
	}
}
