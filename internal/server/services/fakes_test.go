package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/photoforge/internal/common"
	"github.com/dmitrijs2005/photoforge/internal/dbx"
	"github.com/dmitrijs2005/photoforge/internal/logging"
	"github.com/dmitrijs2005/photoforge/internal/server/models"
	"github.com/dmitrijs2005/photoforge/internal/server/providers"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/aimodels"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/artifacts"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/credits"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/jobs"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/sessions"
	"github.com/dmitrijs2005/photoforge/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(nil)
}

// --- users ---

type fakeUsers struct {
	mu        sync.Mutex
	byID      map[string]*models.User
	createErr error
	getErr    error
	creates   int
	listArgs  [2]int
	// onCreate runs under the lock before createErr is returned.
	onCreate func(byID map[string]*models.User)
}

func newFakeUsers(us ...*models.User) *fakeUsers {
	f := &fakeUsers{byID: map[string]*models.User{}}
	for _, u := range us {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(ctx context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.onCreate != nil {
		f.onCreate(f.byID)
	}
	if f.createErr != nil {
		return nil, f.createErr
	}
	// emails stay unique across soft-deleted rows
	for _, existing := range f.byID {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	if u.ID == "" {
		u.ID = fmt.Sprintf("u%d", len(f.byID)+1)
	}
	f.byID[u.ID] = u
	return u, nil
}

func (f *fakeUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byID[id]
	if !ok || u.DeletedAt != nil {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	for _, u := range f.byID {
		if u.Email == email && u.DeletedAt == nil {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsers) IncrementTokenVersion(ctx context.Context, id string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.byID[id]
	if !ok {
		return 0, common.ErrorNotFound
	}
	u.TokenVersion++
	return u.TokenVersion, nil
}

func (f *fakeUsers) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listArgs = [2]int{limit, offset}
	var out []*models.User
	for _, u := range f.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// --- sessions ---

type fakeSessions struct {
	mu        sync.Mutex
	byKey     map[string]*models.Session
	upsertErr error
	findErr   error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{byKey: map[string]*models.Session{}}
}

func (f *fakeSessions) Upsert(ctx context.Context, s *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *s
	f.byKey[s.UserID+"/"+s.ID] = &cp
	return nil
}

func (f *fakeSessions) Find(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	s, ok := f.byKey[userID+"/"+sessionID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessions) Delete(ctx context.Context, userID, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.byKey, userID+"/"+sessionID)
	return nil
}

// --- credits ---

type fakeCredits struct {
	mu           sync.Mutex
	balances     map[string]*models.CreditBalance
	debitErr     error
	provisionErr error
	debits       int
}

func newFakeCredits(bs ...*models.CreditBalance) *fakeCredits {
	f := &fakeCredits{balances: map[string]*models.CreditBalance{}}
	for _, b := range bs {
		f.balances[b.UserID+"/"+string(b.Kind)] = b
	}
	return f
}

func (f *fakeCredits) Debit(ctx context.Context, userID string, kind models.CreditKind, amount int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.debits++
	if f.debitErr != nil {
		return false, f.debitErr
	}
	b, ok := f.balances[userID+"/"+string(kind)]
	if !ok {
		return false, common.ErrCreditRecordMissing
	}
	if b.Amount-amount < b.MinimumBalance {
		return false, nil
	}
	b.Amount -= amount
	return true, nil
}

func (f *fakeCredits) Provision(ctx context.Context, b *models.CreditBalance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.provisionErr != nil {
		return f.provisionErr
	}
	k := b.UserID + "/" + string(b.Kind)
	if _, ok := f.balances[k]; !ok {
		f.balances[k] = b
	}
	return nil
}

func (f *fakeCredits) ListByUser(ctx context.Context, userID string) ([]*models.CreditBalance, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.CreditBalance
	for _, b := range f.balances {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out, nil
}

func (f *fakeCredits) amount(userID string, kind models.CreditKind) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[userID+"/"+string(kind)].Amount
}

// --- jobs ---

type fakeJobs struct {
	mu        sync.Mutex
	byReq     map[string]*models.Job
	createErr error
	lookups   int
	completes int
}

func newFakeJobs(js ...*models.Job) *fakeJobs {
	f := &fakeJobs{byReq: map[string]*models.Job{}}
	for _, j := range js {
		f.byReq[string(j.Kind)+"/"+j.RequestID] = j
	}
	return f
}

func (f *fakeJobs) Create(ctx context.Context, j *models.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if j.ID == "" {
		j.ID = fmt.Sprintf("job-%d", len(f.byReq)+1)
	}
	cp := *j
	f.byReq[string(j.Kind)+"/"+j.RequestID] = &cp
	return nil
}

func (f *fakeJobs) FindByRequestID(ctx context.Context, kind models.JobKind, requestID string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	j, ok := f.byReq[string(kind)+"/"+requestID]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *j
	return &cp, nil
}

func (f *fakeJobs) GetForUser(ctx context.Context, kind models.JobKind, id, userID string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.byReq {
		if j.Kind == kind && j.ID == id && j.UserID == userID {
			cp := *j
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeJobs) Complete(ctx context.Context, kind models.JobKind, requestID string, status models.JobStatus, detail string) (*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completes++
	j, ok := f.byReq[string(kind)+"/"+requestID]
	if !ok || j.Status != models.JobPending {
		return nil, common.ErrorNotFound
	}
	j.Status = status
	j.ErrorDetail = detail
	cp := *j
	return &cp, nil
}

func (f *fakeJobs) List(ctx context.Context, kind models.JobKind, limit, offset int) ([]*models.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Job
	for _, j := range f.byReq {
		if j.Kind == kind {
			out = append(out, j)
		}
	}
	return out, nil
}

func (f *fakeJobs) get(kind models.JobKind, requestID string) *models.Job {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byReq[string(kind)+"/"+requestID]
}

func (f *fakeJobs) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.byReq)
}

// --- artifacts ---

type fakeArtifacts struct {
	mu        sync.Mutex
	photos    []*models.Photo
	videos    []*models.Video
	createErr error
}

func (f *fakeArtifacts) CreatePhoto(ctx context.Context, p *models.Photo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if p.ID == "" {
		p.ID = fmt.Sprintf("photo-%d", len(f.photos)+1)
	}
	f.photos = append(f.photos, p)
	return nil
}

func (f *fakeArtifacts) CreateVideo(ctx context.Context, v *models.Video) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.videos = append(f.videos, v)
	return nil
}

func (f *fakeArtifacts) GetPhotoForUser(ctx context.Context, id, userID string) (*models.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.photos {
		if p.ID == id && p.UserID == userID {
			return p, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeArtifacts) PhotosByJob(ctx context.Context, jobID string) ([]*models.Photo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Photo
	for _, p := range f.photos {
		if p.JobID == jobID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeArtifacts) VideosByJob(ctx context.Context, jobID string) ([]*models.Video, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Video
	for _, v := range f.videos {
		if v.JobID == jobID {
			out = append(out, v)
		}
	}
	return out, nil
}

// --- ai models ---

type fakeAIModels struct {
	mu     sync.Mutex
	byID   map[string]*models.AIModel
	setErr error
}

func newFakeAIModels(ms ...*models.AIModel) *fakeAIModels {
	f := &fakeAIModels{byID: map[string]*models.AIModel{}}
	for _, m := range ms {
		f.byID[m.ID] = m
	}
	return f
}

func (f *fakeAIModels) Create(ctx context.Context, m *models.AIModel) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if m.ID == "" {
		m.ID = fmt.Sprintf("m%d", len(f.byID)+1)
	}
	if m.Status == "" {
		m.Status = models.AIModelCreated
	}
	f.byID[m.ID] = m
	return nil
}

func (f *fakeAIModels) GetForUser(ctx context.Context, id, userID string) (*models.AIModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byID[id]
	if !ok || m.UserID != userID || m.DeletedAt != nil {
		return nil, common.ErrorNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeAIModels) ListByUser(ctx context.Context, userID string) ([]*models.AIModel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.AIModel
	for _, m := range f.byID {
		if m.UserID == userID && m.DeletedAt == nil {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeAIModels) List(ctx context.Context, limit, offset int) ([]*models.AIModel, error) {
	return f.ListByUser(ctx, "")
}

func (f *fakeAIModels) SetImagesKey(ctx context.Context, id, userID, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	m, ok := f.byID[id]
	if !ok || m.UserID != userID {
		return common.ErrorNotFound
	}
	m.ImagesKey = &key
	return nil
}

func (f *fakeAIModels) SetStatus(ctx context.Context, id string, status models.AIModelStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	m, ok := f.byID[id]
	if !ok || m.DeletedAt != nil {
		return common.ErrorNotFound
	}
	m.Status = status
	return nil
}

func (f *fakeAIModels) ClaimForTraining(ctx context.Context, id, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	m, ok := f.byID[id]
	if !ok || m.UserID != userID || m.DeletedAt != nil ||
		m.Status == models.AIModelTraining || !m.HasImages() || m.HasWeights() {
		return common.ErrorNotFound
	}
	m.Status = models.AIModelTraining
	return nil
}

func (f *fakeAIModels) SetWeights(ctx context.Context, id, weights string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	m, ok := f.byID[id]
	if !ok || m.DeletedAt != nil {
		return common.ErrorNotFound
	}
	m.LoraWeights = &weights
	m.Status = models.AIModelTrained
	return nil
}

func (f *fakeAIModels) get(id string) *models.AIModel {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id]
}

// --- manager ---

type fakeRepoManager struct {
	users     *fakeUsers
	sessions  *fakeSessions
	credits   *fakeCredits
	jobs      *fakeJobs
	artifacts *fakeArtifacts
	models    *fakeAIModels
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{
		users:     newFakeUsers(),
		sessions:  newFakeSessions(),
		credits:   newFakeCredits(),
		jobs:      newFakeJobs(),
		artifacts: &fakeArtifacts{},
		models:    newFakeAIModels(),
	}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository              { return m.users }
func (m *fakeRepoManager) Sessions(dbx.DBTX) sessions.Repository        { return m.sessions }
func (m *fakeRepoManager) Credits(dbx.DBTX) credits.Repository          { return m.credits }
func (m *fakeRepoManager) Jobs(dbx.DBTX) jobs.Repository                { return m.jobs }
func (m *fakeRepoManager) Artifacts(dbx.DBTX) artifacts.Repository      { return m.artifacts }
func (m *fakeRepoManager) AIModels(dbx.DBTX) aimodels.Repository        { return m.models }

// --- provider ---

type fakeProvider struct {
	mu          sync.Mutex
	name        string
	requestID   string
	submitErr   error
	verifyErr   error
	submissions []providers.Submission
	// gate, when set, holds Submit until it is closed.
	gate chan struct{}
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) Submit(ctx context.Context, s providers.Submission) (string, error) {
	if p.gate != nil {
		<-p.gate
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.submissions = append(p.submissions, s)
	if p.submitErr != nil {
		return "", p.submitErr
	}
	return fmt.Sprintf("%s-%d", p.requestID, len(p.submissions)), nil
}

func (p *fakeProvider) VerifySignature(http.Header, []byte, time.Time) error {
	return p.verifyErr
}

// ParseCallback reads {"request_id","status","artifacts","error"}.
func (p *fakeProvider) ParseCallback(body []byte) (*providers.Callback, error) {
	var in struct {
		RequestID string   `json:"request_id"`
		Status    string   `json:"status"`
		Artifacts []string `json:"artifacts"`
		Error     string   `json:"error"`
	}
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidRequest, err)
	}
	return &providers.Callback{RequestID: in.RequestID, Status: in.Status, Artifacts: in.Artifacts, ErrorDetail: in.Error}, nil
}

func (p *fakeProvider) submitted() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.submissions)
}

// --- presigner ---

type fakePresigner struct {
	err error
}

func (p *fakePresigner) PresignPut(ctx context.Context, key string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return "https://s3/put/" + key, nil
}

func (p *fakePresigner) PresignGet(ctx context.Context, key string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return "https://s3/get/" + key, nil
}

