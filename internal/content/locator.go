// Package content resolves bare content file names to HTML documents stored
// under a content root with two fixed namespaces, pages and tools.
//
// Names are validated before any filesystem access. A valid name is looked up in
// pages first and then in tools; the first regular file found wins. There is
// no wildcard matching and no recursion into subdirectories. LocateIn and
// ReadIn restrict the lookup to a single namespace.
package content

import (
	"context"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/toolinger/toolinger/internal/errors"
)

// Namespace is one of the directories searched under the content root.
type Namespace string

const (
	NamespacePages Namespace = "pages"
	NamespaceTools Namespace = "tools"
)

// Namespaces returns the namespaces in lookup precedence order.
func Namespaces() []Namespace {
	return []Namespace{NamespacePages, NamespaceTools}
}

// File is a located content file.
type File struct {
	Name      string    `json:"name" yaml:"name"`
	Namespace Namespace `json:"namespace" yaml:"namespace"`
	// Path is slash separated and relative to the content root.
	Path string `json:"path" yaml:"path"`
}

// Document is the raw text of a content file, read fresh on every call.
type Document struct {
	File File
	Raw  string
}

// Locator finds content files inside an injected filesystem.
type Locator struct {
	fsys fs.FS
}

// NewLocator creates a locator over fsys. fsys must contain the pages and
// tools directories at its top level.
func NewLocator(fsys fs.FS) *Locator {
	return &Locator{fsys: fsys}
}

// NewDirLocator creates a locator rooted at a directory on disk.
func NewDirLocator(root string) *Locator {
	return NewLocator(os.DirFS(root))
}

// ValidateName rejects names that could escape a namespace directory. It
// never touches the filesystem.
func ValidateName(name string) error {
	if name == "" ||
		strings.Contains(name, "..") ||
		strings.ContainsAny(name, "/\\\x00") {
		return errors.ErrInvalidFilename(name)
	}

	return nil
}

// Locate returns the first namespace holding a regular file called name.
func (l *Locator) Locate(ctx context.Context, name string) (*File, error) {
	return l.locate(ctx, name, Namespaces())
}

// LocateIn looks for name in ns only.
func (l *Locator) LocateIn(ctx context.Context, ns Namespace, name string) (*File, error) {
	if ns != NamespacePages && ns != NamespaceTools {
		return nil, errors.ErrInvalidFilename(string(ns))
	}
	return l.locate(ctx, name, []Namespace{ns})
}

func (l *Locator) locate(ctx context.Context, name string, namespaces []Namespace) (*File, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}

	for _, ns := range namespaces {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		p := path.Join(string(ns), name)
		info, err := fs.Stat(l.fsys, p)
		switch {
		case err == nil:
			if info.Mode().IsRegular() {
				return &File{Name: name, Namespace: ns, Path: p}, nil
			}
		case errors.IsNotExist(err):
			continue
		default:
			return nil, errors.WrapIO(err, errors.ErrCodeReadFailed, "failed to stat "+p)
		}
	}

	return nil, errors.ErrFileNotFound(name)
}

// Read locates name and returns its whole contents.
func (l *Locator) Read(ctx context.Context, name string) (*Document, error) {
	file, err := l.Locate(ctx, name)
	if err != nil {
		return nil, err
	}
	return l.readFile(file)
}

// ReadIn is Read restricted to ns, so a same-named file in the other
// namespace never shadows it.
func (l *Locator) ReadIn(ctx context.Context, ns Namespace, name string) (*Document, error) {
	file, err := l.LocateIn(ctx, ns, name)
	if err != nil {
		return nil, err
	}
	return l.readFile(file)
}

func (l *Locator) readFile(file *File) (*Document, error) {
	data, err := fs.ReadFile(l.fsys, file.Path)
	if err != nil {
		if errors.IsNotExist(err) {
			// Removed between stat and read.
			return nil, errors.ErrFileNotFound(file.Name)
		}
		return nil, errors.WrapIO(err, errors.ErrCodeReadFailed, "failed to read "+file.Path)
	}

	return &Document{File: *file, Raw: string(data)}, nil
}

// List returns the regular files directly inside each namespace, ordered
// by namespace precedence and then by name. Missing namespaces are skipped.
// A name present in both namespaces is listed twice; Locate resolves it to
// pages.
func (l *Locator) List(ctx context.Context) ([]File, error) {
	var files []File

	for _, ns := range Namespaces() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entries, err := fs.ReadDir(l.fsys, string(ns))
		if err != nil {
			if errors.IsNotExist(err) {
				continue
			}
			return nil, errors.WrapIO(err, errors.ErrCodeReadFailed, "failed to list "+string(ns))
		}

		names := make([]string, 0, len(entries))
		for _, entry := range entries {
			if !entry.Type().IsRegular() || ValidateName(entry.Name()) != nil {
				continue
			}
			names = append(names, entry.Name())
		}
		sort.Strings(names)

		for _, name := range names {
			files = append(files, File{Name: name, Namespace: ns, Path: path.Join(string(ns), name)})
		}
	}

	return files, nil
}
