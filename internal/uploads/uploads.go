// Package uploads stores product pictures and payment proofs on local disk.
// Every upload is decoded, re-encoded as JPEG and given a thumbnail.
package uploads

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

const thumbWidth = 300

type Kind string

const (
	KindProduct Kind = "productos"
	KindGallery Kind = "productos/galeria"
	KindProof   Kind = "comprobantes"
)

type Store struct {
	Root      string // directory on disk
	URLPrefix string // public prefix the paths are served under
}

func NewStore(root string) *Store {
	return &Store{Root: root, URLPrefix: "/media"}
}

// Save decodes the image in r and writes it under kind. name is used as the
// file stem when given, otherwise a random one is generated. The returned
// value is the public path of the stored original.
func (s *Store) Save(kind Kind, name string, r io.Reader) (string, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	if name == "" {
		name = uuid.NewString()
	}
	fileName := name + ".jpg"

	dir := filepath.Join(s.Root, filepath.FromSlash(string(kind)))
	thumbDir := filepath.Join(dir, "thumb")
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	if err := imaging.Save(img, filepath.Join(dir, fileName)); err != nil {
		return "", fmt.Errorf("failed to save original image: %w", err)
	}

	thumb := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(thumbDir, fileName)); err != nil {
		return "", fmt.Errorf("failed to save thumbnail: %w", err)
	}

	return path.Join(s.URLPrefix, string(kind), fileName), nil
}

// Remove deletes a stored image and its thumbnail. Missing files are ignored.
func (s *Store) Remove(publicPath string) error {
	if publicPath == "" {
		return nil
	}
	rel, err := filepath.Rel(filepath.FromSlash(s.URLPrefix), filepath.FromSlash(publicPath))
	if err != nil {
		return fmt.Errorf("path %q is outside the media root: %w", publicPath, err)
	}
	original := filepath.Join(s.Root, rel)
	thumb := filepath.Join(filepath.Dir(original), "thumb", filepath.Base(original))

	for _, p := range []string{original, thumb} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}

// Disk returns the on-disk location of a public path.
func (s *Store) Disk(publicPath string) string {
	rel, err := filepath.Rel(filepath.FromSlash(s.URLPrefix), filepath.FromSlash(publicPath))
	if err != nil {
		return ""
	}
	return filepath.Join(s.Root, rel)
}
