package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/crimson-sun/skimmer/internal/model"
)

// Split file names inside a corpus directory.
const (
	TrainFile = "train.txt"
	DevFile   = "dev.txt"
	TestFile  = "test.txt"
)

// Splits holds the extracted records of each corpus split.
type Splits struct {
	Train      []model.LineRecord
	Validation []model.LineRecord
	Test       []model.LineRecord // nil when the corpus ships no test split
}

// ExtractSplits reads train.txt and dev.txt (required) and test.txt
// (optional) from dir.
func ExtractSplits(dir string, opts ...Option) (Splits, error) {
	var s Splits
	var err error

	if s.Train, err = ExtractFile(filepath.Join(dir, TrainFile), opts...); err != nil {
		return Splits{}, err
	}
	if len(s.Train) == 0 {
		return Splits{}, fmt.Errorf("corpus: %s contains no records", TrainFile)
	}
	if s.Validation, err = ExtractFile(filepath.Join(dir, DevFile), opts...); err != nil {
		return Splits{}, err
	}

	testPath := filepath.Join(dir, TestFile)
	if _, statErr := os.Stat(testPath); errors.Is(statErr, fs.ErrNotExist) {
		return s, nil
	}
	if s.Test, err = ExtractFile(testPath, opts...); err != nil {
		return Splits{}, err
	}
	return s, nil
}
