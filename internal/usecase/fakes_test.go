package usecase

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"math"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/arklim/taskhub/internal/core/domain"
	"github.com/arklim/taskhub/internal/core/port"
	"github.com/arklim/taskhub/internal/infra/config"
	"github.com/arklim/taskhub/internal/infra/security"
	"github.com/arklim/taskhub/internal/repository"
)

func testConfig() *config.AppConfig {
	cfg := &config.AppConfig{}
	cfg.Password.MinLength = 8
	cfg.Password.MinScore = 2
	cfg.JWT.Issuer = "taskhub-test"
	cfg.JWT.AccessTokenTTL = 15 * time.Minute
	cfg.JWT.RefreshTokenTTL = 24 * time.Hour
	cfg.Tasks.DefaultPageSize = 20
	cfg.Tasks.MaxPageSize = 100
	return cfg
}

type testKeyProvider struct {
	kid string
	key *rsa.PrivateKey
}

func (p *testKeyProvider) GetSigningKey() (string, *rsa.PrivateKey, error) {
	return p.kid, p.key, nil
}

func (p *testKeyProvider) GetVerificationKey(kid string) (*rsa.PublicKey, error) {
	if kid != p.kid {
		return nil, security.ErrKeyNotFound
	}
	return &p.key.PublicKey, nil
}

func testJWTManager(t *testing.T, ttl time.Duration) *security.JWTManager {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate RSA key: %v", err)
	}
	return security.NewJWTManager(&testKeyProvider{kid: "test-key", key: key}, "taskhub-test", ttl)
}

type fakeUserRepo struct {
	users map[string]domain.User
}

func newFakeUserRepo(users ...domain.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: make(map[string]domain.User)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) Create(_ context.Context, user domain.User) error {
	for _, existing := range r.users {
		if existing.Email == user.Email || existing.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	if user, ok := r.users[id]; ok {
		clone := user
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	email = domain.NormalizeEmail(email)
	for _, user := range r.users {
		if user.Email == email {
			clone := user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeUserRepo) List(_ context.Context, filter port.UserFilter) ([]domain.User, error) {
	var out []domain.User
	for _, user := range r.users {
		if filter.Role != "" && user.Role != filter.Role {
			continue
		}
		if filter.IsActive != nil && user.IsActive != *filter.IsActive {
			continue
		}
		out = append(out, user)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, id, firstName, lastName string) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.FirstName = firstName
	user.LastName = lastName
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id, passwordHash string, _ time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.PasswordHash = passwordHash
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) RecordLogin(_ context.Context, id string, at time.Time) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.LastLogin = &at
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) SetActive(_ context.Context, id string, active bool) error {
	user, ok := r.users[id]
	if !ok {
		return repository.ErrNotFound
	}
	user.IsActive = active
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) DeleteTx(_ context.Context, _ pgx.Tx, id string) error {
	if _, ok := r.users[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

type fakeTokenRepo struct {
	tokens map[string]domain.RefreshToken
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]domain.RefreshToken)}
}

func (r *fakeTokenRepo) CreateRefreshToken(_ context.Context, token domain.RefreshToken) error {
	r.tokens[token.ID] = token
	return nil
}

func (r *fakeTokenRepo) GetRefreshTokenByHash(_ context.Context, hash string) (*domain.RefreshToken, error) {
	for _, token := range r.tokens {
		if token.TokenHash == hash {
			clone := token
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *fakeTokenRepo) RevokeRefreshToken(_ context.Context, id string, at time.Time) error {
	token, ok := r.tokens[id]
	if !ok {
		return repository.ErrNotFound
	}
	if token.RevokedAt != nil {
		return repository.ErrAlreadyRevoked
	}
	token.RevokedAt = &at
	r.tokens[id] = token
	return nil
}

func (r *fakeTokenRepo) RevokeRefreshTokensForUser(_ context.Context, userID string, at time.Time) (int, error) {
	revoked := 0
	for id, token := range r.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			token.RevokedAt = &at
			r.tokens[id] = token
			revoked++
		}
	}
	return revoked, nil
}

func (r *fakeTokenRepo) activeCountFor(userID string) int {
	active := 0
	for _, token := range r.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			active++
		}
	}
	return active
}

type fakeTaskRepo struct {
	tasks map[string]domain.Task
}

func newFakeTaskRepo(tasks ...domain.Task) *fakeTaskRepo {
	repo := &fakeTaskRepo{tasks: make(map[string]domain.Task)}
	for _, task := range tasks {
		repo.tasks[task.ID] = task
	}
	return repo
}

func (r *fakeTaskRepo) Create(_ context.Context, task domain.Task) error {
	r.tasks[task.ID] = task
	return nil
}

func (r *fakeTaskRepo) GetByID(_ context.Context, id string) (*domain.Task, error) {
	if task, ok := r.tasks[id]; ok {
		clone := task
		return &clone, nil
	}
	return nil, repository.ErrNotFound
}

func (r *fakeTaskRepo) List(_ context.Context, filter port.TaskFilter) ([]domain.Task, error) {
	var out []domain.Task
	for _, task := range r.tasks {
		if filter.OwnerID != "" && task.UserID != filter.OwnerID {
			continue
		}
		if filter.Completed != nil && task.Completed != *filter.Completed {
			continue
		}
		if filter.Priority != nil && task.Priority != *filter.Priority {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(task.Title), strings.ToLower(filter.Search)) {
			continue
		}
		out = append(out, task)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeTaskRepo) Update(_ context.Context, id string, patch port.TaskPatch) (*domain.Task, error) {
	task, ok := r.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if patch.Title != nil {
		task.Title = *patch.Title
	}
	if patch.Description != nil {
		task.Description = *patch.Description
	}
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
	if patch.Priority != nil {
		task.Priority = *patch.Priority
	}
	if patch.ClearDueDate {
		task.DueDate = nil
	} else if patch.DueDate != nil {
		task.DueDate = patch.DueDate
	}
	if !patch.IsEmpty() {
		task.UpdatedAt = time.Now().UTC()
	}
	r.tasks[id] = task
	clone := task
	return &clone, nil
}

func (r *fakeTaskRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.tasks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *fakeTaskRepo) ToggleCompleted(_ context.Context, id string) (*domain.Task, error) {
	task, ok := r.tasks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	task.Completed = !task.Completed
	task.UpdatedAt = time.Now().UTC()
	r.tasks[id] = task
	clone := task
	return &clone, nil
}

func (r *fakeTaskRepo) Stats(_ context.Context, ownerID string, now time.Time) (domain.TaskStats, error) {
	stats := domain.TaskStats{}
	for _, task := range r.tasks {
		if ownerID != "" && task.UserID != ownerID {
			continue
		}
		stats.Total++
		if task.Completed {
			stats.Completed++
			continue
		}
		stats.Pending++
		if task.IsOverdue(now) {
			stats.Overdue++
		}
	}
	if stats.Total > 0 {
		rate := float64(stats.Completed) / float64(stats.Total) * 100
		stats.CompletionRate = math.Round(rate*100) / 100
	}
	return stats, nil
}

func (r *fakeTaskRepo) DeleteByOwnerTx(_ context.Context, _ pgx.Tx, ownerID string) (int, error) {
	removed := 0
	for id, task := range r.tasks {
		if task.UserID == ownerID {
			delete(r.tasks, id)
			removed++
		}
	}
	return removed, nil
}

type fakeTxManager struct {
	calls int
}

func (m *fakeTxManager) WithinTx(_ context.Context, fn func(tx pgx.Tx) error) error {
	m.calls++
	return fn(nil)
}

type capturePublisher struct {
	registered []domain.UserRegisteredEvent
	logins     []domain.UserLoggedInEvent
	passwords  []domain.PasswordChangedEvent
	toggles    []domain.TaskCompletionToggledEvent
}

func (p *capturePublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	p.registered = append(p.registered, event)
	return nil
}

func (p *capturePublisher) PublishUserLoggedIn(_ context.Context, event domain.UserLoggedInEvent) error {
	p.logins = append(p.logins, event)
	return nil
}

func (p *capturePublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	p.passwords = append(p.passwords, event)
	return nil
}

func (p *capturePublisher) PublishTaskCompletionToggled(_ context.Context, event domain.TaskCompletionToggledEvent) error {
	p.toggles = append(p.toggles, event)
	return nil
}

var (
	_ port.UserRepository  = (*fakeUserRepo)(nil)
	_ port.TokenRepository = (*fakeTokenRepo)(nil)
	_ port.TaskRepository  = (*fakeTaskRepo)(nil)
	_ port.TxManager       = (*fakeTxManager)(nil)
	_ port.EventPublisher  = (*capturePublisher)(nil)
)

func mustHash(t *testing.T, password string) string {
	t.Helper()

	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}
