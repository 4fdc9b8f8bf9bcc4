package archive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArchive_AddKeepsOrderAndLastWriteWins(t *testing.T) {
	a := New()
	a.Add("website/00001.jpg", []byte("one"))
	a.Add("website/00002.png", []byte("two"))
	a.Add("website/00001.jpg", []byte("uno"))

	assert.Equal(t, 2, a.Len())
	assert.Equal(t, []string{"website/00001.jpg", "website/00002.png"}, a.Paths())

	data, ok := a.Get("website/00001.jpg")
	require.True(t, ok)
	assert.Equal(t, "uno", string(data))
}

func TestArchive_CleansPaths(t *testing.T) {
	a := New()
	a.Add("/website/../website/./a.jpg", []byte("x"))
	a.Add(`tiktok\b.mp4`, []byte("y"))
	a.Add("../../etc/passwd", []byte("z"))

	assert.Equal(t, []string{"website/a.jpg", "tiktok/b.mp4", "etc/passwd"}, a.Paths())
}

func TestArchive_Merge(t *testing.T) {
	a := New()
	a.Add("instagram/00001.jpg", []byte("ig"))

	b := New()
	b.Add("website/00001.jpg", []byte("web"))
	b.Add("instagram/00001.jpg", []byte("ig-2"))

	a.Merge(b)
	a.Merge(nil)

	assert.Equal(t, []string{"instagram/00001.jpg", "website/00001.jpg"}, a.Paths())
	data, _ := a.Get("instagram/00001.jpg")
	assert.Equal(t, "ig-2", string(data))
}

func TestArchive_ZipRoundTrip(t *testing.T) {
	a := New()
	a.Add("website/00001.jpg", []byte("jpeg-bytes"))
	a.Add("website/archives/OUTPUT.zip", []byte("nested"))

	data, err := a.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "PK", string(data[:2]))

	back, err := ReadZip(data)
	require.NoError(t, err)
	assert.Equal(t, a.Paths(), back.Paths())
	got, ok := back.Get("website/00001.jpg")
	require.True(t, ok)
	assert.Equal(t, "jpeg-bytes", string(got))
}

func TestArchive_EmptyZip(t *testing.T) {
	data, err := New().Bytes()
	require.NoError(t, err)

	back, err := ReadZip(data)
	require.NoError(t, err)
	assert.Equal(t, 0, back.Len())
}

func TestReadZip_Corrupt(t *testing.T) {
	_, err := ReadZip([]byte("not a zip"))
	require.Error(t, err)
}

func TestArchive_EntriesIsCopy(t *testing.T) {
	a := New()
	a.Add("a", []byte("1"))
	entries := a.Entries()
	entries[0].Path = "changed"
	assert.Equal(t, []string{"a"}, a.Paths())
}
