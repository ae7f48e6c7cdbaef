// Package ziptest builds in-memory archives for tests.
package ziptest

import (
	"bytes"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

// Epoch is the timestamp used for entries that do not set one.
var Epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// File is one archive entry. Entries are deflated unless Stored is set.
type File struct {
	Name     string
	Body     string
	Modified time.Time
	Stored   bool
}

// Build returns the bytes of a zip archive holding files in order.
func Build(t testing.TB, files ...File) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, f := range files {
		fh := &zip.FileHeader{Name: f.Name, Method: zip.Deflate, Modified: f.Modified}
		if f.Stored {
			fh.Method = zip.Store
		}
		if fh.Modified.IsZero() {
			fh.Modified = Epoch
		}
		fw, err := w.CreateHeader(fh)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.Body))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

// Write builds an archive and stores it at name on fs.
func Write(t testing.TB, fs billy.Filesystem, name string, files ...File) {
	t.Helper()
	require.NoError(t, util.WriteFile(fs, name, Build(t, files...), 0o644))
}

// Corrupt builds an archive with one stored entry whose payload no longer
// matches its checksum.
func Corrupt(t testing.TB, name string) []byte {
	t.Helper()
	data := Build(t, File{Name: name, Body: "ORIGINAL-PAYLOAD", Stored: true})
	return bytes.Replace(data, []byte("ORIGINAL-PAYLOAD"), []byte("TAMPERED-PAYLOAD"), 1)
}

// Read returns the entries of an archive keyed by name.
func Read(t testing.TB, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	out := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		var b bytes.Buffer
		_, err = b.ReadFrom(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		out[f.Name] = b.String()
	}
	return out
}
