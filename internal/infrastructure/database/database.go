package database

import (
	"context"
	"time"

	"insurledger-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultTxTimeout bounds a transaction whose context carries no deadline.
const DefaultTxTimeout = 5 * time.Second

// Open opens a GORM DB from DSN (Postgres or a pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") behind connection poolers such as PgBouncer.
// TranslateError maps unique violations to gorm.ErrDuplicatedKey.
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{TranslateError: true})
}

// Models lists every table owned by the service, parents first.
func Models() []interface{} {
	return []interface{}{
		&domain.Insurer{}, &domain.Broker{}, &domain.Policy{}, &domain.PolicyDocument{},
		&domain.Custodian{}, &domain.Asset{},
		&domain.Claim{}, &domain.ClaimEvent{}, &domain.ClaimDocument{},
		&domain.Settlement{}, &domain.Invoice{}, &domain.Notification{},
	}
}

// AutoMigrate creates or updates all tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}

// Transact runs fn in a transaction. When ctx has no deadline the
// transaction is bounded by timeout (DefaultTxTimeout when zero).
func Transact(ctx context.Context, db *gorm.DB, timeout time.Duration, fn func(tx *gorm.DB) error) error {
	if err := ctx.Err(); err != nil {
		return domain.Wrap(err, domain.KindConflict, "transaction aborted: context cancelled")
	}
	if timeout <= 0 {
		timeout = DefaultTxTimeout
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ForUpdate adds a row lock to the query. Postgres emits SELECT ... FOR UPDATE;
// the SQLite dialect drops the clause and relies on its single-writer lock.
func ForUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// Exists reports whether any row of model matches the condition. Services use
// it to turn unique-key collisions into a readable error before inserting;
// the unique index stays the backstop under races.
func Exists(tx *gorm.DB, model interface{}, query string, args ...interface{}) (bool, error) {
	var n int64
	if err := tx.Model(model).Where(query, args...).Limit(1).Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}
