package profile

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/shehryarbajwa/crossbrowse/pkg/models"
)

// Manager owns the browser profile directories under one base path
type Manager struct {
	profiles sync.Map // name -> *models.Profile
	basePath string
	mu       sync.Mutex
}

// NewManager creates a new profile manager
func NewManager(basePath string) (*Manager, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create profiles directory: %w", err)
	}

	return &Manager{
		basePath: basePath,
	}, nil
}

// Path returns where the named profile lives, whether or not it exists yet
func (m *Manager) Path(name string) string {
	return filepath.Join(m.basePath, name)
}

// Ensure creates the named profile directory if needed
func (m *Manager) Ensure(name string) (*models.Profile, error) {
	return m.EnsureSeeded(name, "")
}

// EnsureSeeded creates the named profile; when the directory is missing or empty and
// seedArchive is set, the archive is extracted into it first.
func (m *Manager) EnsureSeeded(name, seedArchive string) (*models.Profile, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return nil, fmt.Errorf("invalid profile name %q", name)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if value, ok := m.profiles.Load(name); ok {
		return value.(*models.Profile), nil
	}

	path := m.Path(name)
	empty, err := isEmptyDir(path)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create profile %s: %w", name, err)
	}

	profile := &models.Profile{
		Name:      name,
		Path:      path,
		CreatedAt: time.Now(),
	}

	if empty && seedArchive != "" {
		if err := extractDirectory(seedArchive, path); err != nil {
			return nil, fmt.Errorf("failed to seed profile %s: %w", name, err)
		}
		profile.SeedPath = seedArchive
		log.Printf("🌱 Seeded profile %s from %s", name, seedArchive)
	}

	m.profiles.Store(name, profile)
	return profile, nil
}

// Get retrieves a profile prepared by this manager
func (m *Manager) Get(name string) (*models.Profile, error) {
	value, ok := m.profiles.Load(name)
	if !ok {
		return nil, fmt.Errorf("profile %s not found", name)
	}
	return value.(*models.Profile), nil
}

// Pack compresses a profile directory into a seed archive
func Pack(source, target string) error {
	info, err := os.Stat(source)
	if err != nil {
		return fmt.Errorf("failed to read profile: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", source)
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create archive directory: %w", err)
	}
	if err := compressDirectory(source, target); err != nil {
		return fmt.Errorf("failed to compress profile: %w", err)
	}
	return nil
}

func isEmptyDir(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if errors.Is(err, os.ErrNotExist) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read profile directory: %w", err)
	}
	return len(entries) == 0, nil
}

// compressDirectory creates a tar.gz archive of a directory
func compressDirectory(source, target string) (err error) {
	file, err := os.Create(target)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	gzWriter := gzip.NewWriter(file)
	defer func() {
		if cerr := gzWriter.Close(); err == nil {
			err = cerr
		}
	}()

	tarWriter := tar.NewWriter(gzWriter)
	defer func() {
		if cerr := tarWriter.Close(); err == nil {
			err = cerr
		}
	}()

	return filepath.Walk(source, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		// lock files of a running browser
		if info.Mode()&os.ModeSymlink != 0 || info.Mode()&os.ModeSocket != 0 {
			return nil
		}

		relPath, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		if relPath == "." {
			return nil
		}

		header, err := tar.FileInfoHeader(info, info.Name())
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(relPath)

		if err := tarWriter.WriteHeader(header); err != nil {
			return err
		}

		if !info.IsDir() {
			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()

			_, err = io.Copy(tarWriter, file)
			return err
		}

		return nil
	})
}

// extractDirectory extracts a tar.gz archive to a directory
func extractDirectory(source, target string) error {
	file, err := os.Open(source)
	if err != nil {
		return err
	}
	defer file.Close()

	gzReader, err := gzip.NewReader(file)
	if err != nil {
		return err
	}
	defer gzReader.Close()

	tarReader := tar.NewReader(gzReader)
	root := filepath.Clean(target) + string(os.PathSeparator)

	for {
		header, err := tarReader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		targetPath := filepath.Join(target, header.Name)
		if !strings.HasPrefix(targetPath, root) {
			return fmt.Errorf("archive entry %q escapes %s", header.Name, target)
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(targetPath, 0755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(targetPath), 0755); err != nil {
				return err
			}

			outFile, err := os.OpenFile(targetPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(header.Mode)&0777)
			if err != nil {
				return err
			}

			if _, err := io.Copy(outFile, tarReader); err != nil {
				outFile.Close()
				return err
			}
			outFile.Close()
		}
	}

	return nil
}
