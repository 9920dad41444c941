package auth

import (
	"context"
	"fmt"
	"time"

	"app/internal/domain/model"
	"app/internal/repository"
)

// =====================
// テスト用のインメモリ実装
// =====================

type fakeUserRepo struct {
	users       map[int64]*model.User
	nextID      int64
	incrementTV []int64 //IncrementTokenVersionが呼ばれたuserID
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*model.User{}, nextID: 1}
}

func (r *fakeUserRepo) addUser(u model.User) *model.User {
	u.ID = r.nextID
	r.nextID++
	r.users[u.ID] = &u
	return r.users[u.ID]
}

func (r *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	for _, u := range r.users {
		if u.Email == user.Email {
			return fmt.Errorf("duplicate email")
		}
	}
	user.ID = r.nextID
	r.nextID++
	cp := *user
	r.users[cp.ID] = &cp
	return nil
}

func (r *fakeUserRepo) FindByID(ctx context.Context, userID int64) (*model.User, error) {
	u, ok := r.users[userID]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) Update(ctx context.Context, user *model.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	cp := *user
	r.users[cp.ID] = &cp
	return nil
}

func (r *fakeUserRepo) List(ctx context.Context, f repository.UserListFilter) ([]model.User, int64, error) {
	return nil, 0, nil
}

func (r *fakeUserRepo) IncrementTokenVersion(ctx context.Context, userID int64) error {
	u, ok := r.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.TokenVersion++
	r.incrementTV = append(r.incrementTV, userID)
	return nil
}

var _ repository.UserRepository = (*fakeUserRepo)(nil)

type fakeRefreshTokenRepo struct {
	tokens map[string]*model.RefreshToken //key=ID
}

func newFakeRefreshTokenRepo() *fakeRefreshTokenRepo {
	return &fakeRefreshTokenRepo{tokens: map[string]*model.RefreshToken{}}
}

func (r *fakeRefreshTokenRepo) Create(ctx context.Context, token *model.RefreshToken) error {
	cp := *token
	r.tokens[cp.ID] = &cp
	return nil
}

func (r *fakeRefreshTokenRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	for _, t := range r.tokens {
		if t.TokenHash == tokenHash {
			cp := *t
			return &cp, nil
		}
	}
	return nil, repository.ErrRefreshTokenNotFound
}

func (r *fakeRefreshTokenRepo) MarkUsed(ctx context.Context, tokenID string, usedAt time.Time) error {
	t, ok := r.tokens[tokenID]
	if !ok {
		return repository.ErrRefreshTokenNotFound
	}
	t.UsedAt = &usedAt
	return nil
}

func (r *fakeRefreshTokenRepo) Revoke(ctx context.Context, tokenID string, revokedAt time.Time) error {
	t, ok := r.tokens[tokenID]
	if !ok {
		return repository.ErrRefreshTokenNotFound
	}
	t.RevokedAt = &revokedAt
	return nil
}

func (r *fakeRefreshTokenRepo) RevokeAllByUserID(ctx context.Context, userID int64, revokedAt time.Time) error {
	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (r *fakeRefreshTokenRepo) activeCount(userID int64) int {
	n := 0
	for _, t := range r.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			n++
		}
	}
	return n
}

var _ repository.RefreshTokenRepository = (*fakeRefreshTokenRepo)(nil)

// =====================
// hasher / issuer / clock / idgen
// =====================

// bcryptはテストには重いので単純な可逆fakeで代用する
type fakeHasher struct{}

func (fakeHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

type fakeVerifier struct{}

func (fakeVerifier) Verify(plain string, hashed string) bool { return hashed == "hashed:"+plain }

type fakeIssuer struct {
	issued int
}

func (i *fakeIssuer) Issue(userID int64, role model.Role, tokenVersion int, now time.Time) (string, time.Time, error) {
	i.issued++
	return fmt.Sprintf("access-%d-%d-%d", userID, tokenVersion, i.issued), now.Add(15 * time.Minute), nil
}

type seqIDGen struct {
	n int
}

func (g *seqIDGen) NewID() string {
	g.n++
	return fmt.Sprintf("rt-%d", g.n)
}

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time { return c.now }

func (c *fixedClock) advance(d time.Duration) { c.now = c.now.Add(d) }
