// Package store persists simulation and fit runs: JSON metadata plus CSV
// trajectories per run directory.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/kinfit/internal/table"
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
	ID        string             `json:"id"`
	Kind      string             `json:"kind"` // "timecourse", "steadystate" or "fit"
	Model     string             `json:"model"`
	Backend   string             `json:"backend"`
	Timestamp time.Time          `json:"timestamp"`
	Atol      float64            `json:"atol"`
	Rtol      float64            `json:"rtol"`
	Fitted    map[string]float64 `json:"fitted,omitempty"`
}

// Save writes run metadata and, when non-nil, concentration and flux
// frames as CSV files. It returns the generated run ID.
func (s *Store) Save(meta RunMetadata, concs, fluxes *table.Frame) (string, error) {
	runID := fmt.Sprintf("%s_%d", meta.Model, time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = time.Now()

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

	if concs != nil {
		if err := writeCSV(filepath.Join(runDir, "concentrations.csv"), concs); err != nil {
			return "", err
		}
	}
	if fluxes != nil {
		if err := writeCSV(filepath.Join(runDir, "fluxes.csv"), fluxes); err != nil {
			return "", err
		}
	}
	return runID, nil
}

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
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name(), "metadata.json"))
		if err != nil {
			continue
		}
		var meta RunMetadata
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		runs = append(runs, meta)
	}
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

// LoadFrame reads back a saved trajectory ("concentrations" or "fluxes").
func (s *Store) LoadFrame(runID, name string) (*table.Frame, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, name+".csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("store: empty trajectory %s/%s", runID, name)
	}

	columns := records[0][1:]
	index := make([]float64, 0, len(records)-1)
	data := make([][]float64, 0, len(records)-1)
	for _, record := range records[1:] {
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, err
		}
		row := make([]float64, len(record)-1)
		for j, field := range record[1:] {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, err
			}
			row[j] = v
		}
		index = append(index, t)
		data = append(data, row)
	}
	return table.NewFrame(index, columns, data)
}

func writeCSV(path string, f *table.Frame) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	w := csv.NewWriter(file)
	defer w.Flush()

	indexName := f.IndexName
	if indexName == "" {
		indexName = "time"
	}
	header := append([]string{indexName}, f.Columns...)
	if err := w.Write(header); err != nil {
		return err
	}
	for i, row := range f.Data {
		record := make([]string, 0, len(row)+1)
		record = append(record, strconv.FormatFloat(f.Index[i], 'g', -1, 64))
		for _, v := range row {
			record = append(record, strconv.FormatFloat(v, 'g', -1, 64))
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}
