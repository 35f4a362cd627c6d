package cmd

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtensionMechanism(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("extensions are shell scripts in this test")
	}
	dir, out := setup(t)

	// tlx-hello prints its arguments and the environment tlx gave it.
	script := `#!/bin/sh
echo "args=$*"
echo "TLX_BOOK=$TLX_BOOK"
echo "TLX_PRICES=$TLX_PRICES"
echo "TLX_CURRENCY=$TLX_CURRENCY"
exit 3
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tlx-hello"), []byte(script), 0755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))

	found, code := RunExtension("hello", []string{"-x", "world"})
	require.True(t, found)
	assert.Equal(t, 3, code)

	got := out.String()
	assert.Contains(t, got, "args=-x world\n")
	assert.Contains(t, got, "TLX_BOOK="+filepath.Join(dir, "book.jsonl")+"\n")
	assert.Contains(t, got, "TLX_PRICES="+filepath.Join(dir, "prices.json")+"\n")
	assert.Contains(t, got, "TLX_CURRENCY=USD\n")

	found, _ = RunExtension("missing", nil)
	assert.False(t, found)
}
