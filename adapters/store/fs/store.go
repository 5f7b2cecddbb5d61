package storefs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/goliatone/go-invoices/invoice"
)

// Meta is the sidecar written next to each delivered document. Key is the
// slash-separated name under Root; Filename is the download name.
type Meta struct {
	Key           string    `json:"key,omitempty"`
	Filename      string    `json:"filename"`
	InvoiceID     string    `json:"invoiceId,omitempty"`
	InvoiceNumber string    `json:"invoiceNumber,omitempty"`
	ContentType   string    `json:"contentType,omitempty"`
	Size          int64     `json:"size"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Store writes exported documents under Root. It is the file delivery of
// the export pipeline.
type Store struct {
	Root string
	Now  func() time.Time
}

var _ invoice.Delivery = (*Store)(nil)

// NewStore creates a filesystem-backed document store.
func NewStore(root string) *Store {
	return &Store{Root: root, Now: time.Now}
}

// Deliver stores doc under its archive key, one directory per export job.
// A document without a job id is stored under its filename.
func (s *Store) Deliver(ctx context.Context, doc invoice.Document) error {
	_, err := s.Put(ctx, invoice.ArchiveKey(doc.JobID, doc.Filename), bytes.NewReader(doc.Bytes), Meta{
		Filename:      doc.Filename,
		InvoiceID:     doc.Invoice.ID,
		InvoiceNumber: doc.Invoice.InvoiceNumber,
		ContentType:   doc.ContentType,
	})
	return err
}

// Put stores a document on disk.
func (s *Store) Put(ctx context.Context, name string, r io.Reader, meta Meta) (Meta, error) {
	_ = ctx
	if err := s.check(name); err != nil {
		return Meta{}, err
	}

	pathOnDisk, err := s.resolvePath(name)
	if err != nil {
		return Meta{}, err
	}

	dir := filepath.Dir(pathOnDisk)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Meta{}, err
	}

	var size int64
	err = writeAtomic(dir, pathOnDisk, ".invoice-*", func(w io.Writer) error {
		n, err := io.Copy(w, r)
		size = n
		return err
	})
	if err != nil {
		return Meta{}, err
	}

	meta.Key = name
	if meta.Filename == "" {
		meta.Filename = path.Base(name)
	}
	meta.Size = size
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = s.now()
	}
	if meta.ContentType == "" {
		meta.ContentType = mime.TypeByExtension(filepath.Ext(pathOnDisk))
	}

	if err := s.writeMeta(pathOnDisk, meta); err != nil {
		return Meta{}, err
	}
	return meta, nil
}

// Open reads a stored document.
func (s *Store) Open(ctx context.Context, name string) (io.ReadCloser, Meta, error) {
	_ = ctx
	if err := s.check(name); err != nil {
		return nil, Meta{}, err
	}

	pathOnDisk, err := s.resolvePath(name)
	if err != nil {
		return nil, Meta{}, err
	}

	file, err := os.Open(pathOnDisk)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Meta{}, invoice.NewError(invoice.KindNotFound, fmt.Sprintf("document %q not found", name), err)
		}
		return nil, Meta{}, err
	}

	meta := s.readMeta(pathOnDisk)
	meta.Key = name
	if meta.Filename == "" {
		meta.Filename = path.Base(name)
	}
	if meta.ContentType == "" {
		meta.ContentType = mime.TypeByExtension(filepath.Ext(pathOnDisk))
	}
	if meta.Size == 0 {
		if info, err := file.Stat(); err == nil {
			meta.Size = info.Size()
			if meta.CreatedAt.IsZero() {
				meta.CreatedAt = info.ModTime()
			}
		}
	}
	return file, meta, nil
}

// List returns the metadata of stored documents, newest first.
func (s *Store) List(ctx context.Context) ([]Meta, error) {
	if s == nil {
		return nil, invoice.NewError(invoice.KindInternal, "store is nil", nil)
	}
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return nil, err
	}
	out := make([]Meta, 0)
	err = filepath.WalkDir(root, func(pathOnDisk string, entry fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && pathOnDisk == root {
				return fs.SkipAll
			}
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		name := entry.Name()
		if entry.IsDir() {
			if pathOnDisk != root && strings.HasPrefix(name, ".") {
				return fs.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || strings.HasSuffix(name, metaSuffix) {
			return nil
		}
		rel, err := filepath.Rel(root, pathOnDisk)
		if err != nil {
			return err
		}
		meta := s.readMeta(pathOnDisk)
		meta.Key = filepath.ToSlash(rel)
		if meta.Filename == "" {
			meta.Filename = name
		}
		if meta.CreatedAt.IsZero() || meta.Size == 0 {
			if info, err := entry.Info(); err == nil {
				meta.Size = info.Size()
				meta.CreatedAt = info.ModTime()
			}
		}
		out = append(out, meta)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// Delete removes a stored document and its sidecar. The job directory is
// removed once empty. Deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	_ = ctx
	if err := s.check(name); err != nil {
		return err
	}
	pathOnDisk, err := s.resolvePath(name)
	if err != nil {
		return err
	}
	if err := os.Remove(pathOnDisk); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(metaPath(pathOnDisk)); err != nil && !os.IsNotExist(err) {
		return err
	}
	root, err := filepath.Abs(s.Root)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(pathOnDisk); dir != root {
		// fails while other files remain
		_ = os.Remove(dir)
	}
	return nil
}

func (s *Store) check(name string) error {
	if s == nil {
		return invoice.NewError(invoice.KindInternal, "store is nil", nil)
	}
	if s.Root == "" {
		return invoice.NewError(invoice.KindValidation, "store root is required", nil)
	}
	if name == "" {
		return invoice.NewError(invoice.KindValidation, "document name is required", nil)
	}
	return nil
}

func (s *Store) resolvePath(name string) (string, error) {
	clean := path.Clean("/" + name)
	rel := strings.TrimPrefix(clean, "/")
	if rel == "" || rel == "." {
		return "", invoice.NewError(invoice.KindValidation, "invalid document name", nil)
	}

	root, err := filepath.Abs(s.Root)
	if err != nil {
		return "", err
	}
	target := filepath.Join(root, filepath.FromSlash(rel))
	if !strings.HasPrefix(target, root+string(os.PathSeparator)) && target != root {
		return "", invoice.NewError(invoice.KindValidation, "document name escapes root", nil)
	}
	return target, nil
}

func (s *Store) writeMeta(pathOnDisk string, meta Meta) error {
	payload, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Dir(pathOnDisk), metaPath(pathOnDisk), ".meta-*", func(w io.Writer) error {
		_, err := w.Write(payload)
		return err
	})
}

func (s *Store) readMeta(pathOnDisk string) Meta {
	data, err := os.ReadFile(metaPath(pathOnDisk))
	if err != nil {
		return Meta{}
	}
	var meta Meta
	if err := json.Unmarshal(data, &meta); err != nil {
		return Meta{}
	}
	return meta
}

func (s *Store) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

const metaSuffix = ".meta.json"

func metaPath(pathOnDisk string) string {
	return pathOnDisk + metaSuffix
}

// writeAtomic writes through a temp file in dir and renames it over target.
func writeAtomic(dir, target, pattern string, write func(io.Writer) error) error {
	tmp, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return err
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), target)
}
