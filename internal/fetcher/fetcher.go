// Package fetcher retrieves the distributor's feed files.
package fetcher

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"
)

// Entry is one file in a remote directory.
type Entry struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
}

// ProgressFunc receives the bytes written so far.
type ProgressFunc func(written int64)

// Source lists and retrieves feed files.
type Source interface {
	// List returns regular files in dir.
	List(ctx context.Context, dir string) ([]Entry, error)

	// Fetch copies remotePath to localPath. progress may be nil.
	Fetch(ctx context.Context, remotePath, localPath string, progress ProgressFunc) (int64, error)
}

// progressWriter counts bytes and forwards them to a ProgressFunc. It
// fails writes once ctx is done so long copies stop promptly.
type progressWriter struct {
	ctx     context.Context
	w       io.Writer
	written int64
	fn      ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	if err := p.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.fn != nil {
		p.fn(p.written)
	}
	return n, err
}

// writeAtomic streams r into path through a temporary file that is
// renamed into place only after a complete copy.
func writeAtomic(ctx context.Context, path string, r io.Reader, progress ProgressFunc) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, eris.Wrap(err, "create dir")
	}
	tmp := path + ".part"
	file, err := os.Create(tmp)
	if err != nil {
		return 0, eris.Wrap(err, "create file")
	}

	pw := &progressWriter{ctx: ctx, w: file, fn: progress}
	_, copyErr := io.Copy(pw, r)
	closeErr := file.Close()
	if copyErr != nil {
		os.Remove(tmp) //nolint:errcheck
		return pw.written, eris.Wrap(copyErr, "write file")
	}
	if closeErr != nil {
		os.Remove(tmp) //nolint:errcheck
		return pw.written, eris.Wrap(closeErr, "close file")
	}
	if err := os.Rename(tmp, path); err != nil {
		return pw.written, eris.Wrap(err, "rename file")
	}
	return pw.written, nil
}

// DirSource serves feed files from a local directory, for offline runs
// against a previously downloaded drop.
type DirSource struct {
	Root string
}

// List implements Source.
func (d DirSource) List(_ context.Context, dir string) ([]Entry, error) {
	entries, err := os.ReadDir(filepath.Join(d.Root, dir))
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: list %s", dir)
	}
	var out []Entry
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: stat %s", e.Name())
		}
		out = append(out, Entry{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Fetch implements Source.
func (d DirSource) Fetch(ctx context.Context, remotePath, localPath string, progress ProgressFunc) (int64, error) {
	src, err := os.Open(filepath.Join(d.Root, remotePath))
	if err != nil {
		return 0, eris.Wrapf(err, "fetcher: open %s", remotePath)
	}
	defer src.Close() //nolint:errcheck

	n, err := writeAtomic(ctx, localPath, src, progress)
	if err != nil {
		return n, eris.Wrapf(err, "fetcher: copy %s", remotePath)
	}
	return n, nil
}
