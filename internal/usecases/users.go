package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/lky8/entries-shop/backend/internal/entities"
)

type UsersRepository interface {
	InsertUserIfAbsent(ctx context.Context, user *entities.UserInfo) (bool, error)
	FindUserByEmail(ctx context.Context, email string) (*entities.UserInfo, error)
	FindUserByID(ctx context.Context, id int64) (*entities.UserInfo, error)
	UpdateUser(ctx context.Context, id int64, patch entities.UserInfoPatch) (*entities.UserInfo, error)
}

// UserInfoInput is the buyer block of an order request.
type UserInfoInput struct {
	FirstName     *string `json:"first_name"`
	LastName      *string `json:"last_name"`
	CompanyName   *string `json:"company_name"`
	Country       *string `json:"country"`
	StreetAddress *string `json:"street_address"`
	City          *string `json:"city"`
	County        *string `json:"county"`
	Postcode      *string `json:"postcode"`
	Phone         *string `json:"phone"`
	Email         string  `json:"email"`
}

func (in UserInfoInput) patch() entities.UserInfoPatch {
	return entities.UserInfoPatch{
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		CompanyName:   in.CompanyName,
		Country:       in.Country,
		StreetAddress: in.StreetAddress,
		City:          in.City,
		County:        in.County,
		Postcode:      in.Postcode,
		Phone:         in.Phone,
	}
}

func (in UserInfoInput) entity() *entities.UserInfo {
	user := &entities.UserInfo{
		FirstName:     in.FirstName,
		LastName:      in.LastName,
		CompanyName:   in.CompanyName,
		Country:       in.Country,
		StreetAddress: in.StreetAddress,
		County:        in.County,
		Postcode:      in.Postcode,
		Phone:         in.Phone,
		Email:         in.Email,
	}
	if in.City != nil {
		user.City = *in.City
	}
	return user
}

type UpsertOutcome int

const (
	UpsertCreated UpsertOutcome = iota + 1
	UpsertUpdated
	UpsertValidationFailed
)

func (o UpsertOutcome) String() string {
	switch o {
	case UpsertCreated:
		return "created"
	case UpsertUpdated:
		return "updated"
	case UpsertValidationFailed:
		return "validation_failed"
	default:
		return "unknown"
	}
}

// UpsertResult holds User for Created/Updated and Errors for ValidationFailed.
type UpsertResult struct {
	Outcome UpsertOutcome
	User    *entities.UserInfo
	Errors  map[string]string
}

type UserService struct {
	logger *slog.Logger
	repo   UsersRepository
}

func NewUserService(logger *slog.Logger, repo UsersRepository) *UserService {
	return &UserService{logger: logger, repo: repo}
}

// Upsert creates the buyer for an unseen email or applies the supplied
// fields to the existing one. The unique email index decides concurrent creates.
func (s *UserService) Upsert(ctx context.Context, in UserInfoInput) (UpsertResult, error) {
	if errs := validateUserInfo(in); len(errs) > 0 {
		return UpsertResult{Outcome: UpsertValidationFailed, Errors: errs}, nil
	}

	user := in.entity()
	created, err := s.repo.InsertUserIfAbsent(ctx, user)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to insert user: %w", err)
	}
	if created {
		s.logger.InfoContext(ctx, "Buyer created", "user_id", user.ID)
		return UpsertResult{Outcome: UpsertCreated, User: user}, nil
	}

	existing, err := s.repo.FindUserByEmail(ctx, in.Email)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to find user by email: %w", err)
	}
	if existing == nil {
		return UpsertResult{}, errors.New("user vanished after conflicting insert")
	}

	patch := in.patch()
	if len(patch.Columns()) == 0 {
		return UpsertResult{Outcome: UpsertUpdated, User: existing}, nil
	}

	updated, err := s.repo.UpdateUser(ctx, existing.ID, patch)
	if err != nil {
		return UpsertResult{}, fmt.Errorf("failed to update user %d: %w", existing.ID, err)
	}

	s.logger.InfoContext(ctx, "Buyer updated", "user_id", updated.ID)
	return UpsertResult{Outcome: UpsertUpdated, User: updated}, nil
}

const (
	msgRequired = "This field is required."
	msgBlank    = "This field may not be blank."
	msgEmail    = "Enter a valid email address."
)

func validateUserInfo(in UserInfoInput) map[string]string {
	errs := make(map[string]string)

	maxLength := func(field string, v *string, limit int) {
		if v != nil && utf8.RuneCountInString(*v) > limit {
			errs[field] = fmt.Sprintf("Ensure this field has no more than %d characters.", limit)
		}
	}

	maxLength("first_name", in.FirstName, 100)
	maxLength("last_name", in.LastName, 100)
	maxLength("company_name", in.CompanyName, 255)
	maxLength("country", in.Country, 100)
	maxLength("county", in.County, 100)
	maxLength("postcode", in.Postcode, 20)
	maxLength("phone", in.Phone, 20)

	if in.City != nil {
		if strings.TrimSpace(*in.City) == "" {
			errs["city"] = msgBlank
		}
		maxLength("city", in.City, 100)
	}

	switch {
	case in.Email == "":
		errs["email"] = msgRequired
	case utf8.RuneCountInString(in.Email) > 254:
		errs["email"] = "Ensure this field has no more than 254 characters."
	default:
		addr, err := mail.ParseAddress(in.Email)
		if err != nil || addr.Address != in.Email {
			errs["email"] = msgEmail
		}
	}

	return errs
}
