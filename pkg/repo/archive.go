package repo

import (
	"archive/tar"
	"fmt"
	"io"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"github.com/odvcencio/vcs/pkg/object"
)

// WriteArchive writes the files of commit h as a zstd-compressed tar stream
// to w. Entries are in tree order, carry the commit timestamp and a
// permission derived from their tree mode. It returns the number of files
// written.
func (r *Repo) WriteArchive(w io.Writer, h object.Hash) (int, error) {
	commit, err := r.Store.ReadCommit(h)
	if err != nil {
		return 0, fmt.Errorf("archive: %w", err)
	}
	files, err := r.FlattenTree(commit.TreeHash)
	if err != nil {
		return 0, fmt.Errorf("archive: %w", err)
	}

	enc, err := zstd.NewWriter(w)
	if err != nil {
		return 0, fmt.Errorf("archive: zstd: %w", err)
	}
	tw := tar.NewWriter(enc)
	modTime := time.Unix(commit.Timestamp, 0).UTC()

	for _, f := range files {
		blob, err := r.Store.ReadBlob(f.Hash)
		if err != nil {
			enc.Close()
			return 0, fmt.Errorf("archive %s: %w", f.Path, err)
		}
		hdr := &tar.Header{
			Typeflag: tar.TypeReg,
			Name:     f.Path,
			Mode:     int64(filePermFromMode(f.Mode)),
			Size:     int64(len(blob.Data)),
			ModTime:  modTime,
			Format:   tar.FormatPAX,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			enc.Close()
			return 0, fmt.Errorf("archive %s: header: %w", f.Path, err)
		}
		if _, err := tw.Write(blob.Data); err != nil {
			enc.Close()
			return 0, fmt.Errorf("archive %s: write: %w", f.Path, err)
		}
	}

	if err := tw.Close(); err != nil {
		enc.Close()
		return 0, fmt.Errorf("archive: close tar: %w", err)
	}
	if err := enc.Close(); err != nil {
		return 0, fmt.Errorf("archive: close zstd: %w", err)
	}

	r.Logger.WithFields(logrus.Fields{"commit": h, "files": len(files)}).Debug("archive written")
	return len(files), nil
}
