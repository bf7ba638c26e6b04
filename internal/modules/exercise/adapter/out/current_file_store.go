package out

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"stride/internal/modules/exercise/domain"
	exerciseout "stride/internal/modules/exercise/port/out"
)

// FileCurrentExerciseStore keeps the durable session pointer in a JSON
// file. Writes go through a temp file and rename so a crash never leaves
// a torn pointer, and the in-process mutex makes Update a true
// read-modify-write.
type FileCurrentExerciseStore struct {
	mu   sync.Mutex
	path string
}

func NewFileCurrentExerciseStore(dataDir string) exerciseout.CurrentExerciseStore {
	return &FileCurrentExerciseStore{path: filepath.Join(dataDir, "current-exercise.json")}
}

func (s *FileCurrentExerciseStore) Load(_ context.Context) (domain.CurrentExercise, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *FileCurrentExerciseStore) Update(_ context.Context, fn func(domain.CurrentExercise) domain.CurrentExercise) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, err := s.load()
	if err != nil {
		return err
	}
	return s.save(fn(cur))
}

func (s *FileCurrentExerciseStore) load() (domain.CurrentExercise, error) {
	payload, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return domain.CurrentExercise{}, nil
		}
		return domain.CurrentExercise{}, fmt.Errorf("read current exercise: %w", err)
	}
	cur := domain.CurrentExercise{}
	if err := json.Unmarshal(payload, &cur); err != nil {
		return domain.CurrentExercise{}, fmt.Errorf("decode current exercise: %w", err)
	}
	return cur, nil
}

func (s *FileCurrentExerciseStore) save(cur domain.CurrentExercise) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	payload, err := json.MarshalIndent(cur, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal current exercise: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("write current exercise: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace current exercise: %w", err)
	}
	return nil
}
