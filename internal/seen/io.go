package seen

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jimezsa/jobharvest/internal/models"
)

var ErrPathRequired = errors.New("path is required")

// envelope matches a saved /api/jobs/search response.
type envelope struct {
	Jobs []models.Job `json:"jobs"`
}

// ReadJobs loads a job list from path. The file holds either a JSON array or
// a search response object with a "jobs" array. An empty file is an empty
// list.
func ReadJobs(path string) ([]models.Job, error) {
	if strings.TrimSpace(path) == "" {
		return nil, ErrPathRequired
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)

	jobs := []models.Job{}
	switch {
	case len(data) == 0:
	case data[0] == '{':
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if env.Jobs != nil {
			jobs = env.Jobs
		}
	default:
		if err := json.Unmarshal(data, &jobs); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if jobs == nil {
			jobs = []models.Job{}
		}
	}
	return jobs, nil
}

// ReadJobsAllowMissing is ReadJobs with a missing file read as no history.
func ReadJobsAllowMissing(path string) ([]models.Job, error) {
	jobs, err := ReadJobs(path)
	if errors.Is(err, os.ErrNotExist) {
		return []models.Job{}, nil
	}
	return jobs, err
}

// WriteJobs replaces path with jobs as indented JSON. The file is written
// next to the target and renamed so readers never see a partial history.
func WriteJobs(path string, jobs []models.Job) error {
	if strings.TrimSpace(path) == "" {
		return ErrPathRequired
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	data, err := json.MarshalIndent(jobs, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
