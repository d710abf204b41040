package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/stephenafamo/bob"
	"github.com/stephenafamo/bob/dialect/psql"
	"github.com/stephenafamo/bob/dialect/psql/im"
	"github.com/stephenafamo/bob/dialect/psql/sm"
	"github.com/stephenafamo/bob/dialect/psql/um"

	"github.com/luckysymb/telegram-bot-payment/internal/db"
)

// Member is a chat member seen by the bot. Telegram has no endpoint listing
// the members of a group, so the bot keeps its own registry.
type Member struct {
	ChatID    int64     `db:"chat_id"`
	UserID    int64     `db:"user_id"`
	Username  string    `db:"username"`
	FirstName string    `db:"first_name"`
	IsBot     bool      `db:"is_bot"`
	Status    string    `db:"status"`
	UpdatedAt time.Time `db:"updated_at"`
}

type MemberRepository interface {
	Upsert(ctx context.Context, member *Member) error
	// ListByChat returns the members of chatID ordered by user id.
	// When statuses is empty every tracked member is returned.
	ListByChat(ctx context.Context, chatID int64, statuses ...string) ([]*Member, error)
	SetStatus(ctx context.Context, chatID, userID int64, status string) error
}

var memberColumns = []string{"chat_id", "user_id", "username", "first_name", "is_bot", "status", "updated_at"}

type pgxMemberRepository struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

func NewPgxMemberRepository(pool *pgxpool.Pool) MemberRepository {
	return &pgxMemberRepository{pool: pool, now: time.Now}
}

func (p *pgxMemberRepository) Upsert(ctx context.Context, member *Member) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	member.UpdatedAt = p.now().UTC()

	q := psql.Insert(
		im.Into("chat_member", memberColumns...),
		im.Values(
			psql.Arg(member.ChatID),
			psql.Arg(member.UserID),
			psql.Arg(member.Username),
			psql.Arg(member.FirstName),
			psql.Arg(member.IsBot),
			psql.Arg(member.Status),
			psql.Arg(member.UpdatedAt),
		),
		im.OnConflict(psql.Quote("chat_id"), psql.Quote("user_id")).DoUpdate(
			im.SetCol("username").ToArg(member.Username),
			im.SetCol("first_name").ToArg(member.FirstName),
			im.SetCol("is_bot").ToArg(member.IsBot),
			im.SetCol("status").ToArg(member.Status),
			im.SetCol("updated_at").ToArg(member.UpdatedAt),
		),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	if _, err = e.Exec(ctx, sql, args...); err != nil {
		return errors.Wrap(err, "failed to upsert chat member")
	}
	return nil
}

func (p *pgxMemberRepository) ListByChat(ctx context.Context, chatID int64, statuses ...string) ([]*Member, error) {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	where := psql.Quote("chat_id").EQ(psql.Arg(chatID))
	if len(statuses) > 0 {
		in := make([]bob.Expression, 0, len(statuses))
		for _, s := range statuses {
			in = append(in, psql.Arg(s))
		}
		where = where.And(psql.Quote("status").In(in...))
	}

	q := psql.Select(
		sm.Columns(anyColumns(memberColumns)...),
		sm.From("chat_member"),
		sm.Where(where),
		sm.OrderBy(psql.Quote("user_id")),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := e.Query(ctx, sql, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list chat members")
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Member, error) {
		m := &Member{}
		if err := row.Scan(&m.ChatID, &m.UserID, &m.Username, &m.FirstName, &m.IsBot, &m.Status, &m.UpdatedAt); err != nil {
			return nil, err
		}
		return m, nil
	})
}

func (p *pgxMemberRepository) SetStatus(ctx context.Context, chatID, userID int64, status string) error {
	e := db.GetPgxExecutorFromContext(ctx, p.pool)

	q := psql.Update(
		um.Table("chat_member"),
		um.SetCol("status").ToArg(status),
		um.SetCol("updated_at").ToArg(p.now().UTC()),
		um.Where(psql.Quote("chat_id").EQ(psql.Arg(chatID))),
		um.Where(psql.Quote("user_id").EQ(psql.Arg(userID))),
	)

	sql, args, err := q.Build(ctx)
	if err != nil {
		return err
	}

	tag, err := e.Exec(ctx, sql, args...)
	if err != nil {
		return errors.Wrap(err, "failed to update chat member status")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func anyColumns(cols []string) []any {
	res := make([]any, len(cols))
	for i, c := range cols {
		res[i] = c
	}
	return res
}
