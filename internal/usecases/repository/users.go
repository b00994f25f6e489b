package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	sq "github.com/Masterminds/squirrel"
	tx "github.com/Thiht/transactor/pgx"
	"github.com/jackc/pgx/v5"

	"github.com/lky8/entries-shop/backend/internal/entities"
	"github.com/lky8/entries-shop/backend/pkg/database"
)

var userColumns = []string{
	"id", "first_name", "last_name", "company_name", "country", "street_address",
	"city", "county", "postcode", "phone", "email",
}

type UsersRepository struct {
	logger *slog.Logger

	db      tx.DBGetter
	builder sq.StatementBuilderType
}

func NewUsersRepository(logger *slog.Logger, pg *database.Postgres) *UsersRepository {
	return &UsersRepository{logger: logger, db: pg.DBGetter, builder: pg.Builder}
}

// InsertUserIfAbsent inserts user unless the email is taken. It reports
// whether a row was created and sets user.ID when it was.
func (r *UsersRepository) InsertUserIfAbsent(ctx context.Context, user *entities.UserInfo) (bool, error) {
	query, args, err := r.builder.Insert("user_infos").
		Columns(userColumns[1:]...).
		Values(user.FirstName, user.LastName, user.CompanyName, user.Country, user.StreetAddress,
			user.City, user.County, user.Postcode, user.Phone, user.Email).
		Suffix("ON CONFLICT (email) DO NOTHING RETURNING id").
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build user insert: %w", err)
	}

	err = r.db(ctx).QueryRow(ctx, query, args...).Scan(&user.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func (r *UsersRepository) FindUserByEmail(ctx context.Context, email string) (*entities.UserInfo, error) {
	return r.findOne(ctx, sq.Eq{"email": email})
}

func (r *UsersRepository) FindUserByID(ctx context.Context, id int64) (*entities.UserInfo, error) {
	return r.findOne(ctx, sq.Eq{"id": id})
}

// UpdateUser writes only the columns present in patch and returns the stored row.
func (r *UsersRepository) UpdateUser(ctx context.Context, id int64, patch entities.UserInfoPatch) (*entities.UserInfo, error) {
	query, args, err := r.builder.Update("user_infos").
		SetMap(patch.Columns()).
		Where(sq.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(userColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user update: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	user, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[entities.UserInfo])
	if err != nil {
		return nil, fmt.Errorf("failed to collect updated user %d: %w", id, err)
	}

	return user, nil
}

func (r *UsersRepository) findOne(ctx context.Context, where sq.Eq) (*entities.UserInfo, error) {
	query, args, err := r.builder.Select(userColumns...).From("user_infos").Where(where).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build user query: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	user, err := pgx.CollectOneRow(rows, pgx.RowToAddrOfStructByName[entities.UserInfo])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to collect user: %w", err)
	}

	return user, nil
}
