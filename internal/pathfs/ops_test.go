package pathfs

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssertions(t *testing.T) {
	root := tempRoot(t)
	makeTree(t, root, map[string]string{"f.txt": "x"}, "d")

	assert.NoError(t, root.Join("f.txt").AssertExists())
	assert.NoError(t, root.Join("d").AssertDir())
	assert.NoError(t, root.Join("f.txt").AssertFile())

	err := root.Join("nope").AssertExists()
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Contains(t, err.Error(), `"`+string(root.Join("nope"))+`" does not exist`)

	err = root.Join("f.txt").AssertDir()
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "is not a directory")

	err = root.Join("d").AssertFile()
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "is not a file")
}

func TestWriteCreatesParentsAndTruncates(t *testing.T) {
	root := tempRoot(t)
	p := root.Join("a", "b", "c.txt")

	require.NoError(t, p.WriteString("first version"))
	require.NoError(t, p.WriteString("second"))

	got, err := p.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "second", got)
}

func TestReadErrorsAreDecorated(t *testing.T) {
	missing := tempRoot(t).Join("missing.txt")

	_, err := missing.ReadBytes()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIO)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.Regexp(t, `^could not read .*missing\.txt due to: `, err.Error())
}

func TestReadStringRejectsInvalidUTF8(t *testing.T) {
	p := tempRoot(t).Join("bin")
	require.NoError(t, p.Write([]byte{0xff, 0xfe}))

	_, err := p.ReadString()
	assert.ErrorIs(t, err, ErrInvalidInput)

	data, err := p.ReadBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xff, 0xfe}, data)
}

func TestMkdirIsIdempotent(t *testing.T) {
	root := tempRoot(t)
	d := root.Join("d")

	require.NoError(t, d.Mkdir())
	require.NoError(t, d.Mkdir())
	assert.True(t, d.IsDir())

	err := root.Join("x", "y").Mkdir()
	assert.ErrorIs(t, err, ErrIO)
	assert.Contains(t, err.Error(), "could not create directory")

	require.NoError(t, root.Join("x", "y").Mkdirs())
	assert.True(t, root.Join("x", "y").IsDir())
}

func TestMv(t *testing.T) {
	root := tempRoot(t)
	makeTree(t, root, map[string]string{"a.txt": "a", "b.txt": "b"})

	require.NoError(t, root.Join("a.txt").Mv(root.Join("b.txt")))

	assert.False(t, root.Join("a.txt").Exists())
	got, err := root.Join("b.txt").ReadString()
	require.NoError(t, err)
	assert.Equal(t, "a", got)

	err = root.Join("a.txt").Mv(root.Join("c.txt"))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMtime(t *testing.T) {
	root := tempRoot(t)
	makeTree(t, root, map[string]string{"f": ""})

	_, ok := root.Join("f").Mtime()
	assert.True(t, ok)
	_, ok = root.Join("nope").Mtime()
	assert.False(t, ok)
}
