package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jimezsa/jobharvest/internal/models"
)

func sampleJob() models.Job {
	return models.Job{
		ID:           "gupy-77",
		Site:         models.SiteGupy,
		Title:        "Engenheiro de Dados",
		Company:      "Acme",
		Location:     models.Location{City: "Curitiba", State: "PR", Country: "Brasil"},
		JobTypes:     []models.JobType{models.JobTypeFullTime},
		DatePosted:   models.NewDate(time.Date(2025, 9, 17, 0, 0, 0, 0, time.UTC)),
		URL:          "https://acme.gupy.io/jobs/77",
		Compensation: &models.Compensation{Interval: models.IntervalMonthly, MinAmount: 5000, MaxAmount: 8000, Currency: "BRL"},
		Remote:       true,
	}
}

func TestJobArgs(t *testing.T) {
	args := jobArgs(sampleJob())
	require.Len(t, args, 18)
	assert.Equal(t, "gupy", args[0])
	assert.Equal(t, []string{"fulltime"}, args[7])
	posted, ok := args[8].(*time.Time)
	require.True(t, ok)
	assert.Equal(t, "2025-09-17", posted.Format("2006-01-02"))
	assert.Equal(t, "monthly", *args[12].(*string))
	assert.Equal(t, 8000.0, *args[14].(*float64))
	assert.Equal(t, []string{}, args[17])

	bare := jobArgs(models.Job{ID: "li-1", Site: models.SiteLinkedIn, Title: "Dev"})
	assert.Nil(t, bare[8])
	assert.Nil(t, bare[13])
}

func TestSaveAndLoadJobs(t *testing.T) {
	dsn := os.Getenv("JOBHARVEST_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("JOBHARVEST_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	st, err := Open(ctx, dsn)
	require.NoError(t, err)
	defer st.Close()

	job := sampleJob()
	saved, err := st.SaveJobs(ctx, []models.Job{job})
	require.NoError(t, err)
	assert.Equal(t, 1, saved)

	job.Description = ""
	job.Title = "Engenheiro de Dados Sênior"
	_, err = st.SaveJobs(ctx, []models.Job{job})
	require.NoError(t, err)

	jobs, err := st.RecentJobs(ctx, models.SiteGupy, 10)
	require.NoError(t, err)
	require.NotEmpty(t, jobs)
	var found *models.Job
	for i := range jobs {
		if jobs[i].ID == job.ID {
			found = &jobs[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "Engenheiro de Dados Sênior", found.Title)
	assert.Equal(t, "Curitiba", found.Location.City)
	require.NotNil(t, found.Compensation)
	assert.Equal(t, "BRL", found.Compensation.Currency)
	assert.Equal(t, "2025-09-17", found.DatePosted.String())
}
