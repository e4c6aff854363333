package artifact

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNotFound is returned by Store.Get for an unknown key.
var ErrNotFound = errors.New("model record not found")

const recordExt = ".yaml"

// Store persists model records by key.
type Store interface {
	Put(ctx context.Context, key string, r *Record) error
	Get(ctx context.Context, key string) (*Record, error)
	List(ctx context.Context) ([]string, error)
}

// OpenStore returns an S3Store for "s3://bucket/prefix" locations and a
// FileStore for anything else.
func OpenStore(location, region string) (Store, error) {
	if rest, ok := strings.CutPrefix(location, "s3://"); ok {
		bucket, prefix, _ := strings.Cut(rest, "/")
		if bucket == "" {
			return nil, fmt.Errorf("s3 location %q has no bucket", location)
		}
		return NewS3Store(region, bucket, prefix)
	}
	return &FileStore{Dir: location}, nil
}

func validKey(key string) error {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) {
		return fmt.Errorf("invalid record key %q", key)
	}
	return nil
}

// FileStore keeps one YAML file per record in Dir.
type FileStore struct {
	Dir string
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.Dir, key+recordExt)
}

// Put writes the record atomically (temp file + rename).
func (s *FileStore) Put(_ context.Context, key string, r *Record) error {
	if err := validKey(key); err != nil {
		return err
	}
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("creating store directory: %w", err)
	}
	var buf bytes.Buffer
	if err := Encode(&buf, r); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.Dir, "."+key+"-*")
	if err != nil {
		return fmt.Errorf("creating temp record: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing record %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing record %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), s.path(key)); err != nil {
		return fmt.Errorf("publishing record %q: %w", key, err)
	}
	return nil
}

// Get reads the record stored under key.
func (s *FileStore) Get(_ context.Context, key string) (*Record, error) {
	if err := validKey(key); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("reading record %q: %w", key, err)
	}
	return Decode(data)
}

// List returns the stored keys in lexical order. A missing directory is empty.
func (s *FileStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	var keys []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordExt) {
			continue
		}
		keys = append(keys, strings.TrimSuffix(name, recordExt))
	}
	sort.Strings(keys)
	return keys, nil
}

// SaveFile writes a single record to path, outside any store.
func SaveFile(path string, r *Record) error {
	var buf bytes.Buffer
	if err := Encode(&buf, r); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing model file: %w", err)
	}
	return nil
}

// LoadFile reads a single record from path.
func LoadFile(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}
	return Decode(data)
}
