package forecasting

import (
	"encoding/gob"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/medismart/forecast-api/entities"
	"github.com/medismart/forecast-api/interfaces"
)

// FileModelStore persists trained models as gob artifacts with a JSON
// metadata sidecar, one pair of files per (region, medicine). Writes go to a
// temporary file first and are renamed into place, so a crash mid-write
// leaves the previous artifact intact and readers never see a partial model.
type FileModelStore struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

var _ interfaces.ModelStore = (*FileModelStore)(nil)

func NewFileModelStore(dir string) (*FileModelStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating model directory %s: %v", ErrPersistence, dir, err)
	}
	return &FileModelStore{dir: dir, locks: make(map[string]*sync.Mutex)}, nil
}

func (s *FileModelStore) modelPath(region entities.Region, medicineID uint) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%d_model.gob", region, medicineID))
}

func (s *FileModelStore) metadataPath(region entities.Region, medicineID uint) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%d_metadata.json", region, medicineID))
}

// keyLock serializes writers per pair. Different pairs save concurrently.
func (s *FileModelStore) keyLock(region entities.Region, medicineID uint) *sync.Mutex {
	key := fmt.Sprintf("%s_%d", region, medicineID)

	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

// Save persists the model artifact and its metadata sidecar. Saving the same
// model twice is idempotent.
func (s *FileModelStore) Save(model *entities.TrainedModel) error {
	lock := s.keyLock(model.Region, model.MedicineID)
	lock.Lock()
	defer lock.Unlock()

	if err := s.writeModel(model); err != nil {
		return err
	}

	metadata := entities.ModelMetadata{
		TrainedAt:  model.TrainedAt,
		Parameters: model.Params,
	}
	return s.writeMetadata(model.Region, model.MedicineID, metadata)
}

func (s *FileModelStore) writeModel(model *entities.TrainedModel) error {
	target := s.modelPath(model.Region, model.MedicineID)

	tmp, err := os.CreateTemp(s.dir, "model-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", ErrPersistence, err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(model); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: encoding model %s: %v", ErrPersistence, target, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing temp file: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("%w: replacing %s: %v", ErrPersistence, target, err)
	}
	return nil
}

func (s *FileModelStore) writeMetadata(region entities.Region, medicineID uint, metadata entities.ModelMetadata) error {
	target := s.metadataPath(region, medicineID)

	payload, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding metadata %s: %v", ErrPersistence, target, err)
	}

	tmp, err := os.CreateTemp(s.dir, "metadata-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: creating temp file: %v", ErrPersistence, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing metadata %s: %v", ErrPersistence, target, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing temp file: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("%w: replacing %s: %v", ErrPersistence, target, err)
	}
	return nil
}

// Load reads the persisted model for a pair. A missing artifact maps to
// ErrModelNotFound so callers can distinguish "never trained" from I/O
// failures.
func (s *FileModelStore) Load(region entities.Region, medicineID uint) (*entities.TrainedModel, error) {
	path := s.modelPath(region, medicineID)

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: medicine %d in %s", ErrModelNotFound, medicineID, region)
		}
		return nil, fmt.Errorf("%w: opening %s: %v", ErrPersistence, path, err)
	}
	defer file.Close()

	var model entities.TrainedModel
	if err := gob.NewDecoder(file).Decode(&model); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrPersistence, path, err)
	}
	return &model, nil
}

// Metadata reads the JSON sidecar for a pair.
func (s *FileModelStore) Metadata(region entities.Region, medicineID uint) (*entities.ModelMetadata, error) {
	path := s.metadataPath(region, medicineID)

	payload, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: medicine %d in %s", ErrModelNotFound, medicineID, region)
		}
		return nil, fmt.Errorf("%w: reading %s: %v", ErrPersistence, path, err)
	}

	var metadata entities.ModelMetadata
	if err := json.Unmarshal(payload, &metadata); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrPersistence, path, err)
	}
	return &metadata, nil
}

// TrainedPairs lists every pair with a persisted model artifact.
func (s *FileModelStore) TrainedPairs() ([]interfaces.Pair, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*_model.gob"))
	if err != nil {
		return nil, fmt.Errorf("%w: listing models in %s: %v", ErrPersistence, s.dir, err)
	}

	pairs := make([]interfaces.Pair, 0, len(matches))
	for _, match := range matches {
		name := strings.TrimSuffix(filepath.Base(match), "_model.gob")
		sep := strings.LastIndex(name, "_")
		if sep <= 0 {
			continue
		}
		id, err := strconv.ParseUint(name[sep+1:], 10, 32)
		if err != nil {
			continue
		}
		pairs = append(pairs, interfaces.Pair{
			MedicineID: uint(id),
			Region:     entities.Region(name[:sep]),
		})
	}
	return pairs, nil
}
