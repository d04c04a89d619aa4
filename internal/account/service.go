// Package account implements registration, login and the authenticated
// account endpoints.
package account

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/iliyamo/omamori-api/internal/apperr"
	"github.com/iliyamo/omamori-api/internal/model"
	"github.com/iliyamo/omamori-api/internal/repository"
	"github.com/iliyamo/omamori-api/internal/token"
)

const (
	msgNotFound    = "Account not found"
	msgEmailExists = "Email already exists"
	msgBadLogin    = "Invalid credentials"
)

// Page size bounds for List.
const (
	DefaultPerPage = 15
	MaxPerPage     = 50
)

// Field rules shared by register and update.
const (
	ruleEmail    = "required,email,max=255"
	ruleName     = "required,min=3,max=100"
	rulePassword = "required,min=4,max=72" // bcrypt ignores bytes past 72
)

// Repository is the storage the service needs; *repository.AccountRepo
// satisfies it.
type Repository interface {
	FindByID(ctx context.Context, id uint64) (*model.Account, error)
	FindByEmail(ctx context.Context, email string) (*model.Account, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	EmailExistsExcept(ctx context.Context, email string, excludeID uint64) (bool, error)
	Create(ctx context.Context, f repository.Fields) (uint64, error)
	Update(ctx context.Context, id uint64, f repository.Fields) (bool, error)
	Delete(ctx context.Context, id uint64) (bool, error)
	Paginate(ctx context.Context, page, perPage int, c repository.Criteria) (repository.Page[model.Account], error)
}

// Tokens issues and verifies bearer tokens; *token.Service satisfies it.
type Tokens interface {
	Issue(accountID uint64, ttl time.Duration) (token.Issued, error)
	Verify(raw string) (uint64, error)
}

type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Name     string `json:"name" validate:"required,min=3,max=100"`
	Password string `json:"password" validate:"required,min=4,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UpdateInput carries the optional profile changes.  A nil field is left
// untouched.
type UpdateInput struct {
	Email    *string `json:"email"`
	Name     *string `json:"name"`
	Password *string `json:"password"`
}

// Session is the login result.
type Session struct {
	Token     string         `json:"token"`
	TokenType string         `json:"token_type"`
	ExpiresAt time.Time      `json:"expires_at"`
	Account   *model.Account `json:"account"`
}

type DeleteResult struct {
	ID      uint64 `json:"id"`
	Deleted bool   `json:"deleted"`
}

type Service struct {
	repo       Repository
	tokens     Tokens
	validate   *validator.Validate
	tokenTTL   time.Duration
	bcryptCost int
	now        func() time.Time
}

func NewService(repo Repository, tokens Tokens, tokenTTL time.Duration, bcryptCost int) *Service {
	return &Service{
		repo:       repo,
		tokens:     tokens,
		validate:   newValidator(),
		tokenTTL:   tokenTTL,
		bcryptCost: bcryptCost,
		now:        time.Now,
	}
}

// Register creates an account.  Email uniqueness among live accounts is
// checked before insert.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*model.Account, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if err := check(s.validate, in); err != nil {
		return nil, err
	}

	taken, err := s.repo.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if taken {
		return nil, apperr.Invalid("email", msgEmailExists)
	}

	hash, err := HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	at := s.stamp()
	id, err := s.repo.Create(ctx, repository.Fields{
		"email":         in.Email,
		"name":          in.Name,
		"password_hash": hash,
		"created_at":    at,
		"updated_at":    at,
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return s.load(ctx, id)
}

// Login checks the credentials and issues a token.  Unknown email and wrong
// password fail identically.
func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := check(s.validate, in); err != nil {
		return nil, err
	}
	a, err := s.repo.FindByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Unauthenticated(msgBadLogin)
		}
		return nil, apperr.Internal(err)
	}
	if !VerifyPassword(a.PasswordHash, in.Password) {
		return nil, apperr.Unauthenticated(msgBadLogin)
	}
	issued, err := s.tokens.Issue(a.ID, s.tokenTTL)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &Session{Token: issued.Token, TokenType: "Bearer", ExpiresAt: issued.ExpiresAt, Account: a}, nil
}

// Get returns any live account to an authenticated caller.
func (s *Service) Get(ctx context.Context, tok string, id uint64) (*model.Account, error) {
	if _, err := s.tokens.Verify(tok); err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// List returns one page of live accounts, newest first.  page is clamped to
// >= 1; perPage falls back to DefaultPerPage when not positive and is capped
// at MaxPerPage.
func (s *Service) List(ctx context.Context, tok string, page, perPage int) (*repository.Page[model.Account], error) {
	if _, err := s.tokens.Verify(tok); err != nil {
		return nil, err
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	perPage = min(perPage, MaxPerPage)
	p, err := s.repo.Paginate(ctx, page, perPage, nil)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &p, nil
}

// Me returns the caller's own account.  A token outliving its deleted
// account still verifies, but the lookup then fails with NotFound.
func (s *Service) Me(ctx context.Context, tok string) (*model.Account, error) {
	id, err := s.tokens.Verify(tok)
	if err != nil {
		return nil, err
	}
	return s.load(ctx, id)
}

// UpdateMe applies the present fields of in.  At least one is required and
// each follows the registration rules.  A new email must not belong to
// another live account.
func (s *Service) UpdateMe(ctx context.Context, tok string, in UpdateInput) (*model.Account, error) {
	id, err := s.tokens.Verify(tok)
	if err != nil {
		return nil, err
	}
	if in.Email == nil && in.Name == nil && in.Password == nil {
		return nil, apperr.Invalid("fields", "No fields to update")
	}

	fields := map[string][]string{}
	update := repository.Fields{}
	if in.Email != nil {
		email := strings.TrimSpace(*in.Email)
		if err := checkVar(s.validate, fields, "email", email, ruleEmail); err != nil {
			return nil, err
		}
		update["email"] = email
	}
	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if err := checkVar(s.validate, fields, "name", name, ruleName); err != nil {
			return nil, err
		}
		update["name"] = name
	}
	if in.Password != nil {
		if err := checkVar(s.validate, fields, "password", *in.Password, rulePassword); err != nil {
			return nil, err
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields)
	}

	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	if email, ok := update["email"].(string); ok {
		taken, err := s.repo.EmailExistsExcept(ctx, email, id)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if taken {
			return nil, apperr.Invalid("email", msgEmailExists)
		}
	}
	if in.Password != nil {
		hash, err := HashPassword(*in.Password, s.bcryptCost)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		update["password_hash"] = hash
	}
	update["updated_at"] = s.stamp()

	if _, err := s.repo.Update(ctx, id, update); err != nil {
		return nil, apperr.Internal(err)
	}
	return s.load(ctx, id)
}

// DeleteMe soft-deletes the caller's account.
func (s *Service) DeleteMe(ctx context.Context, tok string) (*DeleteResult, error) {
	id, err := s.tokens.Verify(tok)
	if err != nil {
		return nil, err
	}
	if _, err := s.load(ctx, id); err != nil {
		return nil, err
	}
	ok, err := s.repo.Delete(ctx, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if !ok {
		return nil, apperr.NotFound(msgNotFound)
	}
	return &DeleteResult{ID: id, Deleted: true}, nil
}

func (s *Service) load(ctx context.Context, id uint64) (*model.Account, error) {
	a, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound(msgNotFound)
		}
		return nil, apperr.Internal(err)
	}
	return a, nil
}

func (s *Service) stamp() time.Time {
	return s.now().UTC().Truncate(time.Second)
}
