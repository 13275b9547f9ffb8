package inmemory

import (
	"context"
	"testing"
	"time"

	"github.com/dvloznov/gg-parser/internal/jobs"
)

func TestStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	job := &jobs.ProcessEmailJob{JobID: "job-1", Status: jobs.JobStatusPending}
	if err := s.SaveJob(ctx, job); err != nil {
		t.Fatalf("SaveJob() error: %v", err)
	}

	// Later changes to the caller's copy must not leak into the store.
	job.Status = jobs.JobStatusRunning

	got, err := s.GetJob(ctx, "job-1")
	if err != nil {
		t.Fatalf("GetJob() error: %v", err)
	}
	if got.Status != jobs.JobStatusPending {
		t.Errorf("Status = %q, want pending", got.Status)
	}

	if _, err := s.GetJob(ctx, "missing"); err == nil {
		t.Error("expected error for missing job")
	}
	if err := s.SaveJob(ctx, &jobs.ProcessEmailJob{}); err == nil {
		t.Error("expected error for job without ID")
	}
}

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2026, 2, 5, 0, 0, 0, 0, time.UTC)

	for i, status := range []jobs.JobStatus{
		jobs.JobStatusCompleted, jobs.JobStatusFailed, jobs.JobStatusCompleted, jobs.JobStatusCompleted,
	} {
		_ = s.SaveJob(ctx, &jobs.ProcessEmailJob{
			JobID:     string(rune('a' + i)),
			Status:    status,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	tests := []struct {
		name    string
		filter  jobs.JobFilter
		wantIDs []string
	}{
		{"all", jobs.JobFilter{}, []string{"a", "b", "c", "d"}},
		{"by status", jobs.JobFilter{Status: jobs.JobStatusCompleted}, []string{"a", "c", "d"}},
		{"limit", jobs.JobFilter{Limit: 2}, []string{"a", "b"}},
		{"offset", jobs.JobFilter{Offset: 3}, []string{"d"}},
		{"offset past end", jobs.JobFilter{Offset: 10}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListJobs(ctx, tt.filter)
			if err != nil {
				t.Fatalf("ListJobs() error: %v", err)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d jobs, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].JobID != id {
					t.Errorf("got[%d].JobID = %q, want %q", i, got[i].JobID, id)
				}
			}
		})
	}
}

func TestStore_UpdateJobStatus(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	_ = s.SaveJob(ctx, &jobs.ProcessEmailJob{JobID: "job-1", Status: jobs.JobStatusRunning})

	if err := s.UpdateJobStatus(ctx, "job-1", jobs.JobStatusFailed, "sink down"); err != nil {
		t.Fatalf("UpdateJobStatus() error: %v", err)
	}
	got, _ := s.GetJob(ctx, "job-1")
	if got.Status != jobs.JobStatusFailed || got.Error != "sink down" {
		t.Errorf("got %+v", got)
	}

	if err := s.UpdateJobStatus(ctx, "missing", jobs.JobStatusFailed, ""); err == nil {
		t.Error("expected error for missing job")
	}
}
