package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/geodesim/internal/dynamo"
	"github.com/san-kum/geodesim/internal/geode"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string             `json:"id"`
	Name        string             `json:"name,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
	Spin        float64            `json:"spin"`
	Charge      float64            `json:"charge"`
	Penetrating bool               `json:"penetrating"`
	Source      string             `json:"source"`
	Shape       []int              `json:"shape"`
	Stepper     string             `json:"stepper"`
	Precision   string             `json:"precision"`
	Samples     int                `json:"samples"`
	Metrics     map[string]float64 `json:"metrics"`
}

var header = []string{"lambda", "element", "t", "x", "y", "z", "vt", "vx", "vy", "vz"}

// Save writes the metadata and every sample of every element. It fills in
// the ID, timestamp and sample count of meta.
func (s *Store) Save(meta RunMetadata, result *geode.Result) (string, error) {
	meta.ID = uuid.NewString()
	meta.Timestamp = time.Now()
	meta.Samples = len(result.Lambdas)

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "states.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(header); err != nil {
		return "", err
	}

	row := make([]string, len(header))
	for k, lam := range result.Lambdas {
		for i, p := range result.States[k].Elems {
			row[0] = formatFloat(lam)
			row[1] = strconv.Itoa(i)
			for j := 0; j < 4; j++ {
				row[2+j] = formatFloat(p.X[j])
				row[6+j] = formatFloat(p.V[j])
			}
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// List returns the stored runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadStates reads the trajectory of one element of a run.
func (s *Store) LoadStates(runID string, element int) ([]float64, []dynamo.Tangent, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "states.csv"))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(header)

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}

	lambdas := make([]float64, 0)
	states := make([]dynamo.Tangent, 0)
	for i := 1; i < len(records); i++ {
		rec := records[i]
		if idx, err := strconv.Atoi(rec[1]); err != nil || idx != element {
			continue
		}

		vals := make([]float64, len(rec))
		for j, field := range rec {
			if j == 1 {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("states.csv line %d: %w", i+1, err)
			}
			vals[j] = v
		}

		lambdas = append(lambdas, vals[0])
		states = append(states, dynamo.TangentOf(dynamo.State(vals[2:])))
	}

	return lambdas, states, nil
}
