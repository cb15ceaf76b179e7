package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bnema/gestation-osc/internal/domain"
	"github.com/bnema/gestation-osc/internal/ports"
)

const (
	saveFileMode    = 0o600
	saveDirMode     = 0o700
	tempFilePattern = ".gestation-*.json.tmp"
)

// Store keeps the whole save data in a single JSON document.
type Store struct {
	path string
	mu   *sync.RWMutex
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.SaveStore = (*Store)(nil)

func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("save path is empty")
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve save path: %w", err)
	}
	absPath = filepath.Clean(absPath)

	return &Store{path: absPath, mu: lockForPath(absPath)}, nil
}

func (s *Store) Path() string {
	return s.path
}

// Load reads the save file. A missing file is created with an empty
// document and empty save data is returned.
func (s *Store) Load(ctx context.Context) (domain.SaveData, error) {
	if err := ctx.Err(); err != nil {
		return domain.SaveData{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, found, err := s.readSchema()
	if err != nil {
		return domain.SaveData{}, err
	}
	if !found {
		if err := s.writeSchema(file); err != nil {
			return domain.SaveData{}, err
		}
	}

	return fromSchema(file), nil
}

func (s *Store) Store(ctx context.Context, data domain.SaveData) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeSchema(toSchema(data))
}

func (s *Store) readSchema() (fileSchema, bool, error) {
	var file fileSchema

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			file.applyDefaults()
			return file, false, nil
		}
		return fileSchema{}, false, fmt.Errorf("read save file: %w", err)
	}

	if err := json.Unmarshal(data, &file); err != nil {
		return fileSchema{}, true, fmt.Errorf("decode save file: %w", err)
	}
	if err := file.validateVersion(); err != nil {
		return fileSchema{}, true, err
	}
	file.applyDefaults()

	return file, true, nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func (s *Store) writeSchema(file fileSchema) error {
	file.applyDefaults()

	if err := os.MkdirAll(filepath.Dir(s.path), saveDirMode); err != nil {
		return fmt.Errorf("create save directory: %w", err)
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encode save file: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(s.path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp save file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp save file: %w", err)
	}

	if err := tempFile.Chmod(saveFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp save file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp save file: %w", err)
	}

	if err := os.Rename(tempName, s.path); err != nil {
		return fmt.Errorf("replace save file: %w", err)
	}

	cleanup = false
	return nil
}

func toSchema(data domain.SaveData) fileSchema {
	file := fileSchema{
		Version: currentSchemaVersion,
		Avatars: make(map[string]recordSchema, len(data.Avatars)),
	}

	for id, record := range data.Avatars {
		file.Avatars[string(id)] = recordSchema{
			ConceptionTime: formatTime(record.ConceptionTime),
			GestationTime:  record.GestationTime,
			GestationUnit:  int(record.Unit),
			ChildCount:     int(record.ChildCount),
		}
	}

	return file
}

func fromSchema(file fileSchema) domain.SaveData {
	data := domain.NewSaveData()

	for id, entry := range file.Avatars {
		count := entry.ChildCount
		if count < 0 {
			count = 0
		}
		if count > domain.MaxChildCount {
			count = domain.MaxChildCount
		}

		record := domain.ChildRecord{
			ConceptionTime: parseTime(entry.ConceptionTime),
			GestationTime:  entry.GestationTime,
			Unit:           domain.UnitFromWire(entry.GestationUnit),
			ChildCount:     uint8(count),
		}
		record.Normalize()
		data.Put(domain.AvatarID(id), record)
	}

	return data
}

// parseTime keeps the stored zone offset; unparsable values read as unset.
func parseTime(raw *string) *time.Time {
	if raw == nil || *raw == "" {
		return nil
	}

	parsed, err := time.Parse(time.RFC3339Nano, *raw)
	if err != nil {
		return nil
	}

	return &parsed
}

func formatTime(value *time.Time) *string {
	if value == nil {
		return nil
	}

	formatted := value.Format(time.RFC3339Nano)
	return &formatted
}
