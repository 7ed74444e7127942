package nifti

import "fmt"

// Ref refers to an image either by file path or as an in-memory object.
// The two are interchangeable wherever a Ref is accepted: callers that
// hold a loaded Image avoid the filesystem entirely, callers with a
// path get it loaded on demand.
type Ref struct {
	path string
	img  *Image
}

// FromPath returns a Ref backed by a file on disk.
func FromPath(path string) Ref {
	return Ref{path: path}
}

// FromImage returns a Ref backed by an in-memory image.
func FromImage(img *Image) Ref {
	return Ref{img: img}
}

// IsZero reports whether the Ref points at nothing.
func (r Ref) IsZero() bool {
	return r.path == "" && r.img == nil
}

// Resolve returns the referenced image, loading it from disk when the
// Ref is path-backed. In-memory refs return the image as-is; callers
// that mutate it should Clone first.
func (r Ref) Resolve() (*Image, error) {
	if r.img != nil {
		return r.img, nil
	}
	if r.path == "" {
		return nil, fmt.Errorf("empty image reference")
	}
	return Load(r.path)
}

func (r Ref) String() string {
	switch {
	case r.path != "":
		return r.path
	case r.img != nil:
		return fmt.Sprintf("in-memory image %v", r.img.Shape)
	default:
		return "<nil image>"
	}
}
