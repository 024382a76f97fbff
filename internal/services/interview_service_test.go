package services

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/talentwire/go-interview-backend/internal/domain"
)

func newServiceDB(t *testing.T, migrate ...any) *gorm.DB {
	t.Helper()

	dsn := filepath.Join(t.TempDir(), fmt.Sprintf("svc_test_%d.db", time.Now().UnixNano()))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if len(migrate) > 0 {
		if err := db.AutoMigrate(migrate...); err != nil {
			t.Fatalf("automigrate: %v", err)
		}
	}
	return db
}

// fakeInterviewRepo is an in-memory InterviewRepo with programmable failures.
type fakeInterviewRepo struct {
	interviews map[string]*domain.Interview
	messages   []domain.ChatMessage

	markStartedRows  int64
	markFinishedRows int64
	failListMessages error
	failSetPath      error

	setPathCalls []string
}

func newFakeInterviewRepo() *fakeInterviewRepo {
	return &fakeInterviewRepo{
		interviews:       map[string]*domain.Interview{},
		markStartedRows:  1,
		markFinishedRows: 1,
	}
}

func (f *fakeInterviewRepo) put(iv *domain.Interview) *domain.Interview {
	cp := *iv
	f.interviews[iv.ID] = &cp
	return iv
}

func (f *fakeInterviewRepo) CreateInterview(_ context.Context, _ *gorm.DB, iv *domain.Interview) (*domain.Interview, error) {
	iv.ID = fmt.Sprintf("iv-%d", len(f.interviews)+1)
	iv.UniqueLink = fmt.Sprintf("link-%d", len(f.interviews)+1)
	iv.Status = domain.StatusNotStarted
	iv.CreatedAt = time.Now().UTC()
	return f.put(iv), nil
}

func (f *fakeInterviewRepo) GetInterview(_ context.Context, _ *gorm.DB, id string) (*domain.Interview, error) {
	iv, ok := f.interviews[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *iv
	return &cp, nil
}

func (f *fakeInterviewRepo) GetInterviewByLink(_ context.Context, _ *gorm.DB, link string) (*domain.Interview, error) {
	for _, iv := range f.interviews {
		if iv.UniqueLink == link {
			cp := *iv
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeInterviewRepo) MarkStarted(_ context.Context, _ *gorm.DB, id string, at time.Time) (int64, error) {
	if f.markStartedRows == 1 {
		if iv, ok := f.interviews[id]; ok {
			iv.Status = domain.StatusStarted
			iv.StartedAt = &at
		}
	}
	return f.markStartedRows, nil
}

func (f *fakeInterviewRepo) MarkFinished(_ context.Context, _ *gorm.DB, id string, at time.Time, duration *int) (int64, error) {
	if f.markFinishedRows == 1 {
		if iv, ok := f.interviews[id]; ok {
			iv.Status = domain.StatusFinished
			iv.FinishedAt = &at
			iv.ActualDuration = duration
		}
	}
	return f.markFinishedRows, nil
}

func (f *fakeInterviewRepo) SetTranscriptPath(_ context.Context, _ *gorm.DB, id, path string) error {
	if f.failSetPath != nil {
		return f.failSetPath
	}
	f.setPathCalls = append(f.setPathCalls, path)
	if iv, ok := f.interviews[id]; ok {
		iv.TranscriptFilePath = &path
	}
	return nil
}

func (f *fakeInterviewRepo) ListMessages(_ *gorm.DB, _ string, _ int) ([]domain.ChatMessage, error) {
	if f.failListMessages != nil {
		return nil, f.failListMessages
	}
	return f.messages, nil
}

// fakeTranscripts records Write calls and can be made to fail.
type fakeTranscripts struct {
	jsonPath string
	textPath string
	err      error
	calls    int
	lastMsgs []domain.ChatMessage
}

func (f *fakeTranscripts) Write(_ *domain.Interview, msgs []domain.ChatMessage) (string, string, error) {
	f.calls++
	f.lastMsgs = msgs
	if f.err != nil {
		return "", "", f.err
	}
	return f.jsonPath, f.textPath, nil
}

func newInterviewService(t *testing.T) (*InterviewService, *fakeInterviewRepo, *fakeTranscripts) {
	t.Helper()
	repo := newFakeInterviewRepo()
	tw := &fakeTranscripts{jsonPath: "/tmp/t.json", textPath: "/tmp/t.txt"}
	return NewInterviewService(newServiceDB(t), repo, tw), repo, tw
}

func seedStarted(repo *fakeInterviewRepo, startedAgo time.Duration) *domain.Interview {
	started := time.Now().UTC().Add(-startedAgo)
	return repo.put(&domain.Interview{
		ID:         "iv-started",
		UniqueLink: "link-started",
		Status:     domain.StatusStarted,
		StartedAt:  &started,
	})
}

func TestInterviewService_Create_Validation(t *testing.T) {
	svc, _, _ := newInterviewService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		spec CreateInterviewSpec
		want error
	}{
		{"missing name", CreateInterviewSpec{CandidateID: "c", Position: "p", RecommendedDuration: 30}, ErrMissingCandidate},
		{"missing candidate id", CreateInterviewSpec{CandidateName: "n", Position: "p", RecommendedDuration: 30}, ErrMissingCandidate},
		{"missing position", CreateInterviewSpec{CandidateName: "n", CandidateID: "c", RecommendedDuration: 30}, ErrMissingPosition},
		{"zero duration", CreateInterviewSpec{CandidateName: "n", CandidateID: "c", Position: "p"}, ErrInvalidDuration},
		{"whitespace name", CreateInterviewSpec{CandidateName: "   ", CandidateID: "c", Position: "p", RecommendedDuration: 30}, ErrMissingCandidate},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Create(ctx, tc.spec); !errors.Is(err, tc.want) {
				t.Fatalf("Create = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestInterviewService_Create_TrimsAndDefaults(t *testing.T) {
	svc, _, _ := newInterviewService(t)

	iv, err := svc.Create(context.Background(), CreateInterviewSpec{
		CandidateName:       "  Ada Lovelace  ",
		CandidateID:         " cand-1 ",
		Position:            " Backend Engineer ",
		RecommendedDuration: 30,
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if iv.CandidateName != "Ada Lovelace" || iv.CandidateID != "cand-1" || iv.Position != "Backend Engineer" {
		t.Fatalf("fields not trimmed: %+v", iv)
	}
	if iv.ID == "" || iv.UniqueLink == "" {
		t.Fatal("identity not assigned")
	}
	if iv.Status != domain.StatusNotStarted {
		t.Fatalf("status = %q, want %q", iv.Status, domain.StatusNotStarted)
	}
}

func TestInterviewService_GetByID_NotFound(t *testing.T) {
	svc, _, _ := newInterviewService(t)
	if _, err := svc.GetByID(context.Background(), "missing"); !errors.Is(err, ErrInterviewNotFound) {
		t.Fatalf("GetByID = %v, want ErrInterviewNotFound", err)
	}
}

func TestInterviewService_GetByLink(t *testing.T) {
	svc, repo, _ := newInterviewService(t)
	repo.put(&domain.Interview{ID: "iv-1", UniqueLink: "tok-1", Status: domain.StatusNotStarted})

	iv, err := svc.GetByLink(context.Background(), "tok-1")
	if err != nil {
		t.Fatalf("GetByLink: %v", err)
	}
	if iv.ID != "iv-1" {
		t.Fatalf("GetByLink returned %q", iv.ID)
	}
	if _, err := svc.GetByLink(context.Background(), "nope"); !errors.Is(err, ErrInterviewNotFound) {
		t.Fatalf("GetByLink miss = %v, want ErrInterviewNotFound", err)
	}
}

func TestInterviewService_Start_StampsOnce(t *testing.T) {
	svc, repo, _ := newInterviewService(t)
	repo.put(&domain.Interview{ID: "iv-1", Status: domain.StatusNotStarted})

	iv, err := svc.Start(context.Background(), "iv-1")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if iv.Status != domain.StatusStarted || iv.StartedAt == nil {
		t.Fatalf("start not applied: %+v", iv)
	}

	if _, err := svc.Start(context.Background(), "iv-1"); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("re-start = %v, want ErrAlreadyStarted", err)
	}
}

func TestInterviewService_Start_Finished(t *testing.T) {
	svc, repo, _ := newInterviewService(t)
	repo.put(&domain.Interview{ID: "iv-1", Status: domain.StatusFinished})

	if _, err := svc.Start(context.Background(), "iv-1"); !errors.Is(err, ErrAlreadyFinished) {
		t.Fatalf("start on finished = %v, want ErrAlreadyFinished", err)
	}
}

func TestInterviewService_Start_RaceConflict(t *testing.T) {
	svc, repo, _ := newInterviewService(t)
	repo.put(&domain.Interview{ID: "iv-1", Status: domain.StatusNotStarted})
	repo.markStartedRows = 0 // conditional update lost a race

	if _, err := svc.Start(context.Background(), "iv-1"); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("raced start = %v, want ErrAlreadyStarted", err)
	}
}

func TestInterviewService_Finish_ComputesDuration(t *testing.T) {
	svc, repo, tw := newInterviewService(t)
	seedStarted(repo, 90*time.Second)

	res, err := svc.Finish(context.Background(), "iv-started")
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if res.Interview.Status != domain.StatusFinished || res.Interview.FinishedAt == nil {
		t.Fatalf("finish not applied: %+v", res.Interview)
	}
	if res.Interview.ActualDuration == nil {
		t.Fatal("actual duration not computed")
	}
	if d := *res.Interview.ActualDuration; d < 89 || d > 92 {
		t.Fatalf("actual duration = %d, want ~90", d)
	}
	if res.TranscriptErr != nil {
		t.Fatalf("unexpected transcript error: %v", res.TranscriptErr)
	}
	if res.JSONPath != tw.jsonPath || res.TextPath != tw.textPath {
		t.Fatalf("transcript paths not reported: %+v", res)
	}
	if len(repo.setPathCalls) != 1 || repo.setPathCalls[0] != tw.jsonPath {
		t.Fatalf("transcript path not persisted: %v", repo.setPathCalls)
	}
}

func TestInterviewService_Finish_NeverStarted_NilDuration(t *testing.T) {
	svc, repo, _ := newInterviewService(t)
	repo.put(&domain.Interview{ID: "iv-1", Status: domain.StatusNotStarted})

	res, err := svc.Finish(context.Background(), "iv-1")
	if err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if res.Interview.ActualDuration != nil {
		t.Fatalf("duration = %v, want nil for never-started interview", *res.Interview.ActualDuration)
	}
}

func TestInterviewService_Finish_AlreadyFinished(t *testing.T) {
	svc, repo, tw := newInterviewService(t)
	repo.put(&domain.Interview{ID: "iv-1", Status: domain.StatusFinished})

	if _, err := svc.Finish(context.Background(), "iv-1"); !errors.Is(err, ErrAlreadyFinished) {
		t.Fatalf("re-finish = %v, want ErrAlreadyFinished", err)
	}
	if tw.calls != 0 {
		t.Fatalf("transcript written %d times on rejected finish", tw.calls)
	}
}

func TestInterviewService_Finish_TranscriptFailureNonFatal(t *testing.T) {
	svc, repo, tw := newInterviewService(t)
	seedStarted(repo, time.Minute)
	tw.err = errors.New("disk full")

	res, err := svc.Finish(context.Background(), "iv-started")
	if err != nil {
		t.Fatalf("Finish must not fail on transcript error, got %v", err)
	}
	if res.Interview.Status != domain.StatusFinished {
		t.Fatal("lifecycle transition rolled back on transcript failure")
	}
	if res.TranscriptErr == nil {
		t.Fatal("transcript error not reported")
	}
	if len(repo.setPathCalls) != 0 {
		t.Fatalf("transcript path persisted despite failure: %v", repo.setPathCalls)
	}
}

func TestInterviewService_Finish_PassesOrderedHistory(t *testing.T) {
	svc, repo, tw := newInterviewService(t)
	seedStarted(repo, time.Minute)
	repo.messages = []domain.ChatMessage{
		{ID: "m1", Role: domain.RoleAIHR, Content: "q"},
		{ID: "m2", Role: domain.RoleCandidate, Content: "a"},
	}

	if _, err := svc.Finish(context.Background(), "iv-started"); err != nil {
		t.Fatalf("Finish: %v", err)
	}
	if len(tw.lastMsgs) != 2 || tw.lastMsgs[0].ID != "m1" {
		t.Fatalf("history not passed to writer: %+v", tw.lastMsgs)
	}
}

func TestInterviewService_Status(t *testing.T) {
	svc, repo, _ := newInterviewService(t)
	started := time.Now().UTC().Add(-time.Minute)
	dur := 60
	repo.put(&domain.Interview{
		ID:             "iv-1",
		Status:         domain.StatusFinished,
		StartedAt:      &started,
		ActualDuration: &dur,
	})

	snap, err := svc.Status(context.Background(), "iv-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if snap.InterviewID != "iv-1" || snap.Status != domain.StatusFinished {
		t.Fatalf("snapshot mismatch: %+v", snap)
	}
	if snap.ActualDuration == nil || *snap.ActualDuration != 60 {
		t.Fatalf("duration not surfaced: %+v", snap)
	}

	if _, err := svc.Status(context.Background(), "missing"); !errors.Is(err, ErrInterviewNotFound) {
		t.Fatalf("Status miss = %v, want ErrInterviewNotFound", err)
	}
}
