//go:build darwin || linux

package backend

import (
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/ebitengine/purego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openFixtureLibrary compiles testdata/mal_fixture.c into a fresh shared
// library so every test starts from clean native state.
func openFixtureLibrary(t *testing.T) (*Dynamic, func() int32) {
	t.Helper()
	cc, err := exec.LookPath("cc")
	if err != nil {
		t.Skip("no C compiler to build the native test module")
	}
	name := "libmal_fixture.so"
	if runtime.GOOS == "darwin" {
		name = "libmal_fixture.dylib"
	}
	out := filepath.Join(t.TempDir(), name)
	cmd := exec.Command(cc, "-shared", "-fPIC", "-o", out, filepath.Join("testdata", "mal_fixture.c"))
	if b, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("build native test module: %v\n%s", err, b)
	}

	d, err := OpenDynamic(out)
	require.NoError(t, err)
	var live func() int32
	purego.RegisterLibFunc(&live, d.lib, "fixture_live")
	t.Cleanup(func() { _ = d.Close() })
	require.True(t, d.Init())
	return d, live
}

func TestDynamicDocumentCallbacks(t *testing.T) {
	d, live := openFixtureLibrary(t)
	before := registered()
	rec := &recorder{buffers: map[string][]byte{
		"a.bin":  {1, 2},
		"b.bin":  {3},
		"i1.png": []byte("PIXELS"),
	}}

	tok := d.NewDocument(records(t, "I:i1.png", "B:a.bin", "B:b.bin"), rec)
	require.NotZero(t, tok, d.ErrorMessage())
	assert.Equal(t, []string{"buffer:a.bin", "buffer:b.bin", "image:i1.png:", "notify:i1.png"}, rec.calls)
	assert.Equal(t, before, registered())
	assert.EqualValues(t, 2, d.MeshCount(tok))

	data, ok := d.ImageDataByURI(tok, "i1.png")
	require.True(t, ok)
	assert.Equal(t, []byte("PIXELS"), data)

	_, ok = d.ImageDataByURI(tok, "i2.png")
	assert.False(t, ok)
	msg, ok := d.TakeError()
	assert.True(t, ok)
	assert.Equal(t, "no image data for URI", msg)
	assert.Zero(t, live(), "native buffers were not released")
}

func TestDynamicFetchFailureIsSticky(t *testing.T) {
	d, live := openFixtureLibrary(t)
	rec := &recorder{failOn: "geo.bin"}

	assert.Zero(t, d.NewDocument(records(t, "B:a.bin", "B:geo.bin"), rec))
	assert.Equal(t, []string{"buffer:a.bin", "buffer:geo.bin"}, rec.calls)
	assert.Equal(t, "Failed to load glTF buffer: 404 geo.bin", d.ErrorMessage())
	assert.True(t, d.ErrorOccurred())

	msg, ok := d.TakeError()
	assert.True(t, ok)
	assert.Equal(t, "Failed to load glTF buffer: 404 geo.bin", msg)
	_, ok = d.TakeError()
	assert.False(t, ok)
	d.ClearError()
	assert.False(t, d.ErrorOccurred())
	assert.Zero(t, live())
}

func TestDynamicImage(t *testing.T) {
	d, live := openFixtureLibrary(t)

	tok := d.NewImage(fixturePixels)
	require.NotZero(t, tok, d.ErrorMessage())
	assert.EqualValues(t, 2, d.Width(tok))
	assert.EqualValues(t, 1, d.Height(tok))
	assert.Equal(t, fixturePixels[2:], d.RGBA(tok))

	d.FreeImage(tok)
	assert.EqualValues(t, -1, d.Height(tok))
	msg, _ := d.TakeError()
	assert.Equal(t, "image handle is not live", msg)

	assert.Zero(t, d.NewImageWithFormat(fixturePixels, -1))
	msg, _ = d.TakeError()
	assert.Equal(t, "the image format id is wrong", msg)
	assert.Zero(t, live())
}
