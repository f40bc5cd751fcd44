package gencommon

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

const (
	CacheFileName = ".bde_cache.json"
	cacheVersion  = "1.0"
)

// GenerationCache tracks input and output checksums for incremental generation
type GenerationCache struct {
	Version string `json:"version"` // Cache format version for compatibility

	SchemaChecksum     string            `json:"schema_checksum"`
	ConfigChecksum     string            `json:"config_checksum"`
	QueryFileChecksums map[string]string `json:"query_file_checksums"` // filename → hash

	// Generated file checksums (to detect manual edits), keyed by path
	// relative to the output directory
	GeneratedFileChecksums map[string]string `json:"generated_file_checksums"`

	LastGeneration time.Time `json:"last_generation"`

	dir string
	mu  sync.RWMutex
}

// NewGenerationCache creates a cache stored in dir and loads any existing one
func NewGenerationCache(dir string) *GenerationCache {
	c := &GenerationCache{dir: dir}
	c.reset()
	_ = c.Load()
	return c
}

func (c *GenerationCache) reset() {
	c.Version = cacheVersion
	c.SchemaChecksum = ""
	c.ConfigChecksum = ""
	c.QueryFileChecksums = make(map[string]string)
	c.GeneratedFileChecksums = make(map[string]string)
	c.LastGeneration = time.Time{}
}

func (c *GenerationCache) Path() string {
	return filepath.Join(c.dir, CacheFileName)
}

// ComputeChecksum returns the hex SHA256 of data
func ComputeChecksum(data []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// ComputeFileChecksum computes SHA256 hash of a file
func ComputeFileChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

// ComputeFilesChecksum computes one hash over several files, independent of
// the order they are given in
func ComputeFilesChecksum(paths []string) (string, error) {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)

	hash := sha256.New()
	for _, path := range sorted {
		content, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		hash.Write([]byte(filepath.Base(path))) // Include filename in hash
		hash.Write(content)
	}
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}

// UpToDate reports whether the inputs match the last generation and every
// file it generated is still on disk as it was written
func (c *GenerationCache) UpToDate(schemaHash, configHash string, queryHashes map[string]string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.LastGeneration.IsZero() || c.SchemaChecksum != schemaHash || c.ConfigChecksum != configHash {
		return false
	}
	if len(queryHashes) != len(c.QueryFileChecksums) {
		return false
	}
	for file, hash := range queryHashes {
		if c.QueryFileChecksums[file] != hash {
			return false
		}
	}
	for file, hash := range c.GeneratedFileChecksums {
		onDisk, err := ComputeFileChecksum(filepath.Join(c.dir, file))
		if err != nil || onDisk != hash {
			return false
		}
	}
	return true
}

// ShouldRegenerateQuery checks if a query file changed since the last run
func (c *GenerationCache) ShouldRegenerateQuery(queryFile string, currentHash string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	cachedHash, exists := c.QueryFileChecksums[queryFile]
	return !exists || cachedHash != currentHash
}

// UpdateInputs records the checksums of the schema, config and query files
func (c *GenerationCache) UpdateInputs(schemaHash, configHash string, queryHashes map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SchemaChecksum = schemaHash
	c.ConfigChecksum = configHash
	c.QueryFileChecksums = make(map[string]string, len(queryHashes))
	for file, hash := range queryHashes {
		c.QueryFileChecksums[file] = hash
	}
}

// GeneratedChecksum returns the recorded checksum of a generated file
func (c *GenerationCache) GeneratedChecksum(path string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	hash, ok := c.GeneratedFileChecksums[path]
	return hash, ok
}

// GeneratedFiles lists recorded generated files in sorted order
func (c *GenerationCache) GeneratedFiles() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	files := make([]string, 0, len(c.GeneratedFileChecksums))
	for f := range c.GeneratedFileChecksums {
		files = append(files, f)
	}
	sort.Strings(files)
	return files
}

// UpdateGeneratedFileChecksum updates checksum of generated file
func (c *GenerationCache) UpdateGeneratedFileChecksum(genFile, hash string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.GeneratedFileChecksums[genFile] = hash
}

func (c *GenerationCache) RemoveGeneratedFile(genFile string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.GeneratedFileChecksums, genFile)
}

// MarkGeneration updates the last generation timestamp
func (c *GenerationCache) MarkGeneration() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.LastGeneration = time.Now()
}

// Save persists the cache to disk
func (c *GenerationCache) Save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(c.Path(), data, 0644)
}

// Load reads the cache from disk
func (c *GenerationCache) Load() error {
	data, err := os.ReadFile(c.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil // No cache file yet
		}
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := json.Unmarshal(data, c); err != nil {
		c.reset()
		return fmt.Errorf("corrupt generation cache %s: %w", c.Path(), err)
	}
	if c.Version != cacheVersion {
		// Cache version mismatch, invalidate
		c.reset()
	}
	if c.QueryFileChecksums == nil {
		c.QueryFileChecksums = make(map[string]string)
	}
	if c.GeneratedFileChecksums == nil {
		c.GeneratedFileChecksums = make(map[string]string)
	}
	return nil
}

// Clear removes all cache data
func (c *GenerationCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}
