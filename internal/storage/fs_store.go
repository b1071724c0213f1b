package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// FSStore is a filesystem-backed ObjectStore. Objects live in a
// content-addressable layout under the archive directory:
//
//	<dir>/
//	  objects/
//	    ab/
//	      cd1234...          (first 2 hash chars = subdir, rest = filename)
//	      cd1234....meta.json
//
// Which objects are live is not tracked here: the article table records each
// published article's archive locator, and GC takes that set as input.
type FSStore struct {
	dir string
	mu  sync.RWMutex
}

// NewFSStore creates the directory layout and returns a store rooted at dir.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(filepath.Join(dir, "objects"), 0750); err != nil {
		return nil, fmt.Errorf("create directory %s: %w", dir, err)
	}
	return &FSStore{dir: dir}, nil
}

// Put stores an object and returns its content hash.
func (s *FSStore) Put(ctx context.Context, obj *Object) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := obj.Hash
	if hash == "" {
		sum := sha256.Sum256(obj.Data)
		hash = hex.EncodeToString(sum[:])
	}

	path := s.objectPath(hash)
	if _, err := os.Stat(path); err == nil {
		// Deduplicated. Freshen the access time only.
		if meta, err := s.readMetadata(hash); err == nil {
			meta.LastAccessed = time.Now()
			if err := s.writeMetadata(hash, meta); err != nil {
				return hash, fmt.Errorf("update metadata: %w", err)
			}
		}
		return hash, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("create object directory: %w", err)
	}
	if err := os.WriteFile(path, obj.Data, 0600); err != nil {
		return "", fmt.Errorf("write object: %w", err)
	}

	meta := Metadata{
		CreatedAt:    time.Now(),
		LastAccessed: time.Now(),
		Custom:       make(map[string]string),
	}
	for k, v := range obj.Metadata.Custom {
		meta.Custom[k] = v
	}
	meta.Custom["object_type"] = string(obj.Type)

	if err := s.writeMetadata(hash, meta); err != nil {
		return hash, fmt.Errorf("write metadata: %w", err)
	}
	return hash, nil
}

// Get retrieves an object by content hash.
func (s *FSStore) Get(ctx context.Context, hash string) (*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path := s.objectPath(hash)
	// #nosec G304 - path is internal, constructed from the hash
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound{Hash: hash}
		}
		return nil, fmt.Errorf("read object: %w", err)
	}

	meta, err := s.readMetadata(hash)
	if err != nil {
		meta = Metadata{
			CreatedAt:    time.Now(),
			LastAccessed: time.Now(),
			Custom:       make(map[string]string),
		}
	}
	meta.LastAccessed = time.Now()
	if err := s.writeMetadata(hash, meta); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to update metadata for %s: %v\n", hash, err)
	}

	return &Object{
		Hash:     hash,
		Type:     ObjectType(meta.Custom["object_type"]),
		Size:     int64(len(data)),
		Data:     data,
		Metadata: meta,
	}, nil
}

// Exists reports whether an object exists.
func (s *FSStore) Exists(ctx context.Context, hash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.objectPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat object: %w", err)
	}
	return true, nil
}

// Delete removes an object and its metadata.
func (s *FSStore) Delete(ctx context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteUnlocked(hash)
}

// List returns all object hashes matching the type filter.
func (s *FSStore) List(ctx context.Context, objectType ObjectType) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listUnlocked(objectType)
}

// Close releases resources.
func (s *FSStore) Close() error {
	return nil
}

// GC removes every object whose hash is not in referenced. Returns the
// number of objects removed.
func (s *FSStore) GC(ctx context.Context, referenced map[string]bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.listUnlocked("")
	if err != nil {
		return 0, fmt.Errorf("list objects: %w", err)
	}

	removed := 0
	for _, hash := range all {
		if !referenced[hash] {
			if err := s.deleteUnlocked(hash); err != nil && !IsNotFound(err) {
				return removed, fmt.Errorf("delete object %s: %w", hash, err)
			}
			removed++
		}
	}
	return removed, nil
}

func (s *FSStore) listUnlocked(objectType ObjectType) ([]string, error) {
	var hashes []string
	objectsDir := filepath.Join(s.dir, "objects")

	err := filepath.Walk(objectsDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || strings.HasSuffix(path, ".meta.json") {
			return nil
		}

		relPath, err := filepath.Rel(objectsDir, path)
		if err != nil {
			return nil
		}
		hash := strings.ReplaceAll(relPath, string(filepath.Separator), "")

		if objectType != "" {
			if meta, err := s.readMetadata(hash); err == nil {
				if ObjectType(meta.Custom["object_type"]) != objectType {
					return nil
				}
			}
		}

		hashes = append(hashes, hash)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk objects: %w", err)
	}
	return hashes, nil
}

func (s *FSStore) deleteUnlocked(hash string) error {
	path := s.objectPath(hash)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound{Hash: hash}
		}
		return fmt.Errorf("delete object: %w", err)
	}

	os.Remove(s.metadataPath(hash)) // Best effort
	os.Remove(filepath.Dir(path))   // Best effort, fails if non-empty

	return nil
}

func (s *FSStore) objectPath(hash string) string {
	if len(hash) < 2 {
		return filepath.Join(s.dir, "objects", hash)
	}
	return filepath.Join(s.dir, "objects", hash[:2], hash[2:])
}

func (s *FSStore) metadataPath(hash string) string {
	return s.objectPath(hash) + ".meta.json"
}

func (s *FSStore) readMetadata(hash string) (Metadata, error) {
	// #nosec G304 - path is internal, constructed from the hash
	data, err := os.ReadFile(s.metadataPath(hash))
	if err != nil {
		return Metadata{}, fmt.Errorf("read metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return Metadata{}, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return meta, nil
}

func (s *FSStore) writeMetadata(hash string, meta Metadata) error {
	path := s.metadataPath(hash)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create metadata directory: %w", err)
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}
