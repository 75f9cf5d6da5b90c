package main_test

import (
	"bytes"
	"context"
	"os"
	"testing"

	main "github.com/fwojciec/adwatch/cmd/adwatch"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
}

func intPtr(n int) *int { return &n }

func int64Ptr(n int64) *int64 { return &n }

// newDeps returns Dependencies writing to fresh buffers.
func newDeps() (*main.Dependencies, *bytes.Buffer, *bytes.Buffer) {
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	return &main.Dependencies{
		Ctx:    context.Background(),
		Stdout: stdout,
		Stderr: stderr,
	}, stdout, stderr
}
