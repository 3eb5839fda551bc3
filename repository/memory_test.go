package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"slidecast/constant"
	"slidecast/dto"
	"slidecast/entities"
)

func statusPtr(s constant.JobStatus) *constant.JobStatus { return &s }
func intPtr(n int) *int                                  { return &n }
func strPtr(s string) *string                            { return &s }

func TestCreateJobDefaults(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	created, err := repo.CreateJob(ctx, dto.JobInit{
		Filename: "deck.pptx",
		Status:   constant.JobStatusExtracting,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.JobID == uuid.Nil {
		t.Fatal("job id should be assigned")
	}
	if created.CreatedAt.IsZero() {
		t.Fatal("created_at should be set")
	}

	got, err := repo.GetJob(ctx, created.JobID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("job should exist after create")
	}
	if got.Filename != "deck.pptx" {
		t.Fatalf("filename = %q, want deck.pptx", got.Filename)
	}
	if got.Status != constant.JobStatusExtracting {
		t.Fatalf("status = %s, want extracting", got.Status)
	}
	if got.Progress != 0 {
		t.Fatalf("progress = %d, want 0", got.Progress)
	}
}

func TestGetJobMissingReturnsNil(t *testing.T) {
	repo := NewMemoryRepo()
	got, err := repo.GetJob(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatal("missing job should return nil, nil")
	}
}

// TestUpdateJobDisjointFieldsMerge verifies the final record is the union of
// partial updates touching different fields.
func TestUpdateJobDisjointFieldsMerge(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	created, _ := repo.CreateJob(ctx, dto.JobInit{Filename: "deck.pptx", Status: constant.JobStatusExtracting})

	if _, err := repo.UpdateJob(ctx, created.JobID, dto.JobUpdate{Progress: intPtr(25)}); err != nil {
		t.Fatalf("update progress: %v", err)
	}
	if _, err := repo.UpdateJob(ctx, created.JobID, dto.JobUpdate{Status: statusPtr(constant.JobStatusGeneratingTranscript)}); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, err := repo.UpdateJob(ctx, created.JobID, dto.JobUpdate{
		OutputFiles: entities.OutputFiles{constant.OutputKindTranscriptsJSON: "outputs/x/transcripts.json"},
	})
	if err != nil {
		t.Fatalf("update outputs: %v", err)
	}

	if got.Progress != 25 {
		t.Fatalf("progress = %d, want 25", got.Progress)
	}
	if got.Status != constant.JobStatusGeneratingTranscript {
		t.Fatalf("status = %s, want generating_transcript", got.Status)
	}
	if got.OutputFiles[constant.OutputKindTranscriptsJSON] != "outputs/x/transcripts.json" {
		t.Fatalf("output_files = %#v", got.OutputFiles)
	}
}

// TestUpdateJobIdempotent verifies a repeated identical completion report
// yields the same final record.
func TestUpdateJobIdempotent(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	created, _ := repo.CreateJob(ctx, dto.JobInit{Filename: "deck.pptx", Status: constant.JobStatusRenderingVideo})

	update := dto.JobUpdate{
		Status:   statusPtr(constant.JobStatusCompleted),
		Progress: intPtr(100),
		OutputFiles: entities.OutputFiles{
			constant.OutputKindVideoMP4: "outputs/x/learning_module.mp4",
		},
	}
	first, err := repo.UpdateJob(ctx, created.JobID, update)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	second, err := repo.UpdateJob(ctx, created.JobID, update)
	if err != nil {
		t.Fatalf("second update: %v", err)
	}

	if second.Status != first.Status || second.Progress != first.Progress {
		t.Fatal("repeated update should not change status or progress")
	}
	if !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Fatal("completed_at should be stamped exactly once")
	}
	if second.OutputFiles[constant.OutputKindVideoMP4] != first.OutputFiles[constant.OutputKindVideoMP4] {
		t.Fatal("output locations should converge")
	}
}

func TestOutputFileLocationNotOverwritten(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	created, _ := repo.CreateJob(ctx, dto.JobInit{Filename: "deck.pptx", Status: constant.JobStatusConvertingPDF})

	if _, err := repo.UpdateJob(ctx, created.JobID, dto.JobUpdate{
		OutputFiles: entities.OutputFiles{constant.OutputKindPDF: "outputs/x/a.pdf"},
	}); err != nil {
		t.Fatalf("first update: %v", err)
	}
	got, err := repo.UpdateJob(ctx, created.JobID, dto.JobUpdate{
		OutputFiles: entities.OutputFiles{
			constant.OutputKindPDF:      "outputs/x/b.pdf",
			constant.OutputKindAudioZip: "outputs/x/audio.zip",
		},
	})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}

	if got.OutputFiles[constant.OutputKindPDF] != "outputs/x/a.pdf" {
		t.Fatalf("pdf location overwritten: %q", got.OutputFiles[constant.OutputKindPDF])
	}
	if got.OutputFiles[constant.OutputKindAudioZip] != "outputs/x/audio.zip" {
		t.Fatal("new kind should still be registered")
	}
}

func TestUpdateJobTerminalStampsCompletedAt(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	created, _ := repo.CreateJob(ctx, dto.JobInit{Filename: "deck.pptx", Status: constant.JobStatusExtracting})

	got, err := repo.UpdateJob(ctx, created.JobID, dto.JobUpdate{
		Status:       statusPtr(constant.JobStatusError),
		ErrorMessage: strPtr("extraction failed"),
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.CompletedAt == nil {
		t.Fatal("completed_at should be set on terminal status")
	}
	if got.ErrorMessage == nil || *got.ErrorMessage != "extraction failed" {
		t.Fatalf("error_message = %v", got.ErrorMessage)
	}
}

func TestUpdateJobMissingReturnsNil(t *testing.T) {
	repo := NewMemoryRepo()
	got, err := repo.UpdateJob(context.Background(), uuid.New(), dto.JobUpdate{Progress: intPtr(10)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got != nil {
		t.Fatal("updating a missing job should return nil, nil")
	}
}

func TestDeleteJob(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()
	created, _ := repo.CreateJob(ctx, dto.JobInit{Filename: "deck.pptx", Status: constant.JobStatusExtracting})

	existed, err := repo.DeleteJob(ctx, created.JobID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !existed {
		t.Fatal("delete should report the record existed")
	}
	existed, err = repo.DeleteJob(ctx, created.JobID)
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if existed {
		t.Fatal("second delete should report absence")
	}
}

func TestListCompletedJobsOrderAndLimit(t *testing.T) {
	repo := NewMemoryRepo()
	ctx := context.Background()

	var ids []uuid.UUID
	for i := 0; i < 7; i++ {
		created, _ := repo.CreateJob(ctx, dto.JobInit{Filename: "deck.pptx", Status: constant.JobStatusRenderingVideo})
		ids = append(ids, created.JobID)
	}
	// last one stays running
	for i, id := range ids[:6] {
		if _, err := repo.UpdateJob(ctx, id, dto.JobUpdate{
			Status:      statusPtr(constant.JobStatusCompleted),
			Progress:    intPtr(100),
			OutputFiles: entities.OutputFiles{constant.OutputKindVideoMP4: "outputs/v.mp4"},
		}); err != nil {
			t.Fatalf("complete %d: %v", i, err)
		}
		time.Sleep(2 * time.Millisecond)
	}

	jobs, err := repo.ListCompletedJobs(ctx, 5)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 5 {
		t.Fatalf("len = %d, want 5", len(jobs))
	}
	for i := 1; i < len(jobs); i++ {
		if jobs[i].CompletedAt.After(*jobs[i-1].CompletedAt) {
			t.Fatal("jobs should be ordered by completed_at descending")
		}
	}
	if jobs[0].JobID != ids[5] {
		t.Fatal("newest completed job should come first")
	}
}
