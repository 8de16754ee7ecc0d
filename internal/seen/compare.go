package seen

import (
	"strings"

	"github.com/jimezsa/jobharvest/internal/models"
	"github.com/jimezsa/jobharvest/internal/normalize"
)

const keySeparator = "::"

// DiffStats captures stats for A-B unseen filtering.
type DiffStats struct {
	TotalNew    int
	TotalSeen   int
	InvalidNew  int
	InvalidSeen int
	Unseen      int
}

// InvalidSkipped returns the total invalid records skipped during comparison.
func (s DiffStats) InvalidSkipped() int {
	return s.InvalidNew + s.InvalidSeen
}

// MergeStats captures stats for seen history updates.
type MergeStats struct {
	TotalSeen    int
	TotalInput   int
	InvalidSeen  int
	InvalidInput int
	Added        int
	TotalOut     int
}

// InvalidSkipped returns the total invalid records skipped during merge.
func (s MergeStats) InvalidSkipped() int {
	return s.InvalidSeen + s.InvalidInput
}

// Normalize lowercases, folds accents and collapses whitespace.
func Normalize(value string) string {
	return strings.Join(strings.Fields(normalize.Fold(value)), " ")
}

// Key builds the normalized title+company key for a job.
func Key(job models.Job) (string, bool) {
	title := Normalize(job.Title)
	company := Normalize(job.Company)
	if title == "" || company == "" {
		return "", false
	}
	return title + keySeparator + company, true
}

// Keys returns every identity of a job: the site scoped ID when present and
// the title+company key. A job matches history when any key does.
func Keys(job models.Job) []string {
	var keys []string
	if id := strings.TrimSpace(job.ID); id != "" && job.Site != "" {
		keys = append(keys, "id"+keySeparator+string(job.Site)+keySeparator+id)
	}
	if key, ok := Key(job); ok {
		keys = append(keys, key)
	}
	return keys
}

type keySet map[string]struct{}

func (s keySet) has(keys []string) bool {
	for _, key := range keys {
		if _, ok := s[key]; ok {
			return true
		}
	}
	return false
}

func (s keySet) add(keys []string) {
	for _, key := range keys {
		s[key] = struct{}{}
	}
}

// Diff returns unseen jobs from newJobs using existing seenJobs keys.
func Diff(newJobs []models.Job, seenJobs []models.Job) ([]models.Job, DiffStats) {
	stats := DiffStats{
		TotalNew:  len(newJobs),
		TotalSeen: len(seenJobs),
	}

	seenKeys := make(keySet, len(seenJobs)*2)
	for _, job := range seenJobs {
		keys := Keys(job)
		if len(keys) == 0 {
			stats.InvalidSeen++
			continue
		}
		seenKeys.add(keys)
	}

	newKeys := make(keySet, len(newJobs)*2)
	unseen := make([]models.Job, 0, len(newJobs))
	for _, job := range newJobs {
		keys := Keys(job)
		if len(keys) == 0 {
			stats.InvalidNew++
			continue
		}
		if newKeys.has(keys) {
			continue
		}
		newKeys.add(keys)
		if seenKeys.has(keys) {
			continue
		}
		unseen = append(unseen, job)
	}

	stats.Unseen = len(unseen)
	return unseen, stats
}

// Merge appends unique new jobs into the seen history.
// Existing seen entries win collisions.
func Merge(existingSeen []models.Job, inputJobs []models.Job) ([]models.Job, MergeStats) {
	stats := MergeStats{
		TotalSeen:  len(existingSeen),
		TotalInput: len(inputJobs),
	}

	keys := make(keySet, (len(existingSeen)+len(inputJobs))*2)
	out := make([]models.Job, 0, len(existingSeen)+len(inputJobs))

	for _, job := range existingSeen {
		jobKeys := Keys(job)
		if len(jobKeys) == 0 {
			stats.InvalidSeen++
			out = append(out, job)
			continue
		}
		if keys.has(jobKeys) {
			continue
		}
		keys.add(jobKeys)
		out = append(out, job)
	}

	for _, job := range inputJobs {
		jobKeys := Keys(job)
		if len(jobKeys) == 0 {
			stats.InvalidInput++
			continue
		}
		if keys.has(jobKeys) {
			continue
		}
		keys.add(jobKeys)
		out = append(out, job)
		stats.Added++
	}

	stats.TotalOut = len(out)
	return out, stats
}
