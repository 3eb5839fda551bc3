package repository

import (
	"context"
	"fmt"
	"testing"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"slidecast/constant"
	"slidecast/dto"
	"slidecast/entities"
)

func openTestRepo(t *testing.T) JobRepository {
	t.Helper()
	// shared cache keeps every pooled connection on the same database;
	// naming it after the test keeps tests off each other's rows
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(gormsqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	repo, err := NewRepoWithDB(db)
	if err != nil {
		t.Fatalf("new repo: %v", err)
	}
	return repo
}

func TestGormCreateAndGet(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	stability := 0.5
	created, err := repo.CreateJob(ctx, dto.JobInit{
		Filename: "deck.pptx",
		Status:   constant.JobStatusExtracting,
		Config: &entities.JobConfig{
			TTSProvider: constant.TTSProviderElevenLabs,
			VoiceSettings: &entities.VoiceSettings{
				VoiceID:   "rachel",
				Stability: &stability,
			},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetJob(ctx, created.JobID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("job should exist")
	}
	if got.ID == 0 {
		t.Fatal("internal row key should be assigned")
	}
	if got.Config == nil || got.Config.TTSProvider != constant.TTSProviderElevenLabs {
		t.Fatalf("config = %#v", got.Config)
	}
	if got.Config.VoiceSettings == nil || got.Config.VoiceSettings.VoiceID != "rachel" {
		t.Fatalf("voice settings = %#v", got.Config.VoiceSettings)
	}
}

func TestGormUpdateMergesJSONColumns(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()
	created, _ := repo.CreateJob(ctx, dto.JobInit{Filename: "deck.pptx", Status: constant.JobStatusConvertingPDF})

	if _, err := repo.UpdateJob(ctx, created.JobID, dto.JobUpdate{
		OutputFiles: entities.OutputFiles{constant.OutputKindPDF: "outputs/x/presentation.pdf"},
	}); err != nil {
		t.Fatalf("first update: %v", err)
	}
	got, err := repo.UpdateJob(ctx, created.JobID, dto.JobUpdate{
		Status:      statusPtr(constant.JobStatusCompleted),
		Progress:    intPtr(100),
		OutputFiles: entities.OutputFiles{constant.OutputKindTranscriptsJSON: "outputs/x/transcripts.json"},
	})
	if err != nil {
		t.Fatalf("second update: %v", err)
	}

	if len(got.OutputFiles) != 2 {
		t.Fatalf("output_files = %#v", got.OutputFiles)
	}
	if got.CompletedAt == nil {
		t.Fatal("completed_at should be stamped")
	}

	reloaded, err := repo.GetJob(ctx, created.JobID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if reloaded.OutputFiles[constant.OutputKindPDF] != "outputs/x/presentation.pdf" {
		t.Fatalf("persisted output_files = %#v", reloaded.OutputFiles)
	}
}

func TestGormDeleteAndList(t *testing.T) {
	repo := openTestRepo(t)
	ctx := context.Background()

	first, _ := repo.CreateJob(ctx, dto.JobInit{Filename: "a.pptx", Status: constant.JobStatusRenderingVideo})
	second, _ := repo.CreateJob(ctx, dto.JobInit{Filename: "b.pptx", Status: constant.JobStatusRenderingVideo})

	if _, err := repo.UpdateJob(ctx, first.JobID, dto.JobUpdate{
		Status:      statusPtr(constant.JobStatusCompleted),
		OutputFiles: entities.OutputFiles{constant.OutputKindVideoMP4: "outputs/a.mp4"},
	}); err != nil {
		t.Fatalf("complete first: %v", err)
	}

	jobs, err := repo.ListCompletedJobs(ctx, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(jobs) != 1 || jobs[0].JobID != first.JobID {
		t.Fatalf("completed jobs = %#v", jobs)
	}

	existed, err := repo.DeleteJob(ctx, second.JobID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !existed {
		t.Fatal("delete should report existence")
	}
	got, err := repo.GetJob(ctx, second.JobID)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if got != nil {
		t.Fatal("deleted job should be gone")
	}
}
