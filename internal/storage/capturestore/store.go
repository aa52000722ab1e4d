package capturestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/yndnr/arsnap-go/internal/core/domain"
)

const (
	// ManifestName is the manifest file written at the end of a session.
	ManifestName = "info.json"

	// ImageExt is the extension of snapshot images.
	ImageExt = ".jpg"

	// FileTimeLayout formats image names as yyyyMMddHHmmss.
	FileTimeLayout = "20060102150405"

	// DefaultRootDirName is appended to the user's documents directory.
	DefaultRootDirName = "arsnap"

	dirPerm  = 0o755
	filePerm = 0o644
)

// Config configures the capture store.
type Config struct {
	// Root is the document root. Empty selects ResolveRoot("").
	Root string

	// MinFreeBytes is the free space required on the root volume before a
	// session is created. Zero disables the check.
	MinFreeBytes uint64

	// Clock returns the time used to name images. Defaults to time.Now.
	Clock func() time.Time

	// FreeSpace reports free bytes on the volume holding path.
	// Defaults to a gopsutil disk usage query.
	FreeSpace func(path string) (uint64, error)

	// Logger is the structured logger.
	Logger *slog.Logger
}

// Store owns the document root and all session file I/O.
type Store struct {
	root      string
	minFree   uint64
	clock     func() time.Time
	freeSpace func(string) (uint64, error)
	logger    *slog.Logger

	mu sync.Mutex
}

// ResolveRoot returns root if set, otherwise <documents>/arsnap.
func ResolveRoot(root string) (string, error) {
	if root != "" {
		return filepath.Clean(root), nil
	}
	docs := xdg.UserDirs.Documents
	if docs == "" {
		return "", errors.New("documents directory not resolvable")
	}
	return filepath.Join(docs, DefaultRootDirName), nil
}

// New creates a store rooted at cfg.Root, creating the root if needed.
// Failure is an environment error (domain.ErrStorageRoot).
func New(cfg Config) (*Store, error) {
	root, err := ResolveRoot(cfg.Root)
	if err != nil {
		return nil, domain.ErrStorageRoot.WithCause(err)
	}
	if err := os.MkdirAll(root, dirPerm); err != nil {
		return nil, domain.ErrStorageRoot.WithDetails(root).WithCause(err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, domain.ErrStorageRoot.WithDetails(root).WithCause(err)
	}
	if !info.IsDir() {
		return nil, domain.ErrStorageRoot.WithDetails(root + " is not a directory")
	}

	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.FreeSpace == nil {
		cfg.FreeSpace = diskFree
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Store{
		root:      root,
		minFree:   cfg.MinFreeBytes,
		clock:     cfg.Clock,
		freeSpace: cfg.FreeSpace,
		logger:    cfg.Logger,
	}, nil
}

func diskFree(path string) (uint64, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return 0, err
	}
	return usage.Free, nil
}

// Root returns the resolved document root.
func (s *Store) Root() string {
	return s.root
}

// FreeBytes returns free space on the document root volume.
func (s *Store) FreeBytes() (uint64, error) {
	return s.freeSpace(s.root)
}

// SessionDir returns the folder of the named session.
func (s *Store) SessionDir(session string) string {
	return filepath.Join(s.root, session)
}

// CreateSession prepares an empty folder for the named session.
// An existing folder with the same name is removed first, with all its
// contents. Capture must not start if this fails.
func (s *Store) CreateSession(session string) error {
	if err := domain.ValidateSessionName(session); err != nil {
		return err
	}

	if s.minFree > 0 {
		free, err := s.freeSpace(s.root)
		if err != nil {
			return domain.ErrSessionCreate.WithDetails("free space query").WithCause(err)
		}
		if free < s.minFree {
			return domain.ErrSessionCreate.WithDetails(session).WithCause(
				domain.ErrInsufficientSpace.WithDetails(fmt.Sprintf("%d bytes free, %d required", free, s.minFree)))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.SessionDir(session)
	if err := os.RemoveAll(dir); err != nil {
		return domain.ErrSessionCreate.WithDetails(dir).WithCause(err)
	}
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return domain.ErrSessionCreate.WithDetails(dir).WithCause(err)
	}

	s.logger.Info("session folder created", "session", session, "dir", dir)
	return nil
}

// WriteImage writes an encoded snapshot into the session folder and returns
// its file name. Names come from the store clock. A name that already exists
// gets a -N suffix instead of being overwritten.
func (s *Store) WriteImage(session string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.SessionDir(session)
	base := s.clock().Format(FileTimeLayout)

	for n := 0; ; n++ {
		name := base + ImageExt
		if n > 0 {
			name = base + "-" + strconv.Itoa(n) + ImageExt
		}

		f, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, filePerm)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", domain.ErrImageWrite.WithDetails(name).WithCause(err)
		}

		if _, err := f.Write(data); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", domain.ErrImageWrite.WithDetails(name).WithCause(err)
		}
		if err := f.Close(); err != nil {
			os.Remove(f.Name())
			return "", domain.ErrImageWrite.WithDetails(name).WithCause(err)
		}
		return name, nil
	}
}

// WriteManifest writes records as the session's info.json, replacing any
// previous manifest.
func (s *Store) WriteManifest(session string, records []domain.SnapshotRecord) error {
	if records == nil {
		records = []domain.SnapshotRecord{}
	}
	data, err := json.Marshal(records)
	if err != nil {
		return domain.ErrManifestWrite.WithCause(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.SessionDir(session)
	tmp, err := os.CreateTemp(dir, ManifestName+".*.tmp")
	if err != nil {
		return domain.ErrManifestWrite.WithDetails(dir).WithCause(err)
	}
	tempPath := tmp.Name()
	defer os.Remove(tempPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return domain.ErrManifestWrite.WithCause(err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return domain.ErrManifestWrite.WithCause(err)
	}
	if err := tmp.Close(); err != nil {
		return domain.ErrManifestWrite.WithCause(err)
	}
	if err := os.Chmod(tempPath, filePerm); err != nil {
		return domain.ErrManifestWrite.WithCause(err)
	}

	finalPath := filepath.Join(dir, ManifestName)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return domain.ErrManifestWrite.WithCause(err)
	}

	s.logger.Info("manifest written", "session", session, "records", len(records))
	return nil
}

// ReadManifest loads the info.json of the named session.
func (s *Store) ReadManifest(session string) ([]domain.SnapshotRecord, error) {
	return ReadManifestFile(filepath.Join(s.SessionDir(session), ManifestName))
}

// ReadManifestFile decodes a manifest at path. A directory path is taken to
// be a session folder.
func ReadManifestFile(path string) ([]domain.SnapshotRecord, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, ManifestName)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.ErrManifestRead.WithDetails(path).WithCause(err)
	}
	var records []domain.SnapshotRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, domain.ErrManifestRead.WithDetails(path).WithCause(err)
	}
	return records, nil
}
