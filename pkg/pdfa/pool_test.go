package pdfa

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeConverterScript stands in for Ghostscript: it finds the path after
// the "-o" flag and the final positional argument (the staged input
// file), then copies input to output plus a trailing marker byte. This
// lets tests assert the staging/cleanup pipeline without invoking a real
// PDF/A converter.
const fakeConverterScript = `#!/bin/sh
out=""
prev=""
for a in "$@"; do
  if [ "$prev" = "-o" ]; then out="$a"; fi
  prev="$a"
done
eval "in=\$$#"
cat "$in" > "$out"
printf 'A' >> "$out"
`

const failingConverterScript = `#!/bin/sh
exit 1
`

func writeFakeConverter(t *testing.T, script string) string {
	t.Helper()
	path := t.TempDir() + "/fake-converter.sh"
	require.NoError(t, afero.WriteFile(afero.NewOsFs(), path, []byte(script), 0o755))
	return path
}

func TestConvertStagesAndCleansUpFiles(t *testing.T) {
	exe := writeFakeConverter(t, fakeConverterScript)
	workDir := t.TempDir()

	pool := NewPool(afero.NewOsFs(), workDir, 2, WithExecutable(exe))
	out, err := pool.Convert(context.Background(), []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, "helloA", string(out))

	entries, err := afero.ReadDir(afero.NewOsFs(), workDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "Convert should remove its staged input/output files")
}

func TestConvertSurfacesConverterFailure(t *testing.T) {
	exe := writeFakeConverter(t, failingConverterScript)
	pool := NewPool(afero.NewOsFs(), t.TempDir(), 1, WithExecutable(exe))

	_, err := pool.Convert(context.Background(), []byte("hello"))
	assert.Error(t, err)
}
