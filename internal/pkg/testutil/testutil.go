// Package testutil holds shared fixtures for package tests.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"insurledger-backend/internal/domain"
	"insurledger-backend/internal/infrastructure/database"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB returns a migrated in-memory SQLite database. A single connection
// keeps every query on the same in-memory database and serialises writers
// the way a row lock would.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.AutoMigrate(db))
	return db
}

// Date builds a UTC calendar date.
func Date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Dec parses a decimal literal and panics on typos.
func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var seq atomic.Int64

// SeedPolicy inserts an insurer, a broker and an active policy with the given premiums.
func SeedPolicy(t *testing.T, db *gorm.DB, total, base string) *domain.Policy {
	t.Helper()
	n := seq.Add(1)
	ins := &domain.Insurer{Name: "Seguros Andinos", TaxID: fmt.Sprintf("179%010d", n)}
	require.NoError(t, db.Create(ins).Error)
	br := &domain.Broker{Name: "Broker Sur", Email: "alerts@brokersur.test"}
	require.NoError(t, db.Create(br).Error)
	p := &domain.Policy{
		Number:        fmt.Sprintf("POL-%04d", n),
		InsurerID:     ins.InsurerID,
		BrokerID:      br.BrokerID,
		CoverageStart: Date(2026, 1, 1),
		CoverageEnd:   Date(2026, 12, 31),
		InsuredAmount: Dec("50000"),
		BasePremium:   Dec(base),
		TotalPremium:  Dec(total),
		Active:        true,
		IssueDate:     Date(2026, 1, 1),
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

// SeedCustodian inserts a custodian with the given national id.
func SeedCustodian(t *testing.T, db *gorm.DB, nationalID string) *domain.Custodian {
	t.Helper()
	c := &domain.Custodian{NationalID: nationalID, FullName: "Custodian " + nationalID, Email: nationalID + "@utpl.test"}
	require.NoError(t, db.Create(c).Error)
	return c
}

// SeedAsset inserts an ACTIVE asset for custodian, bypassing the ledger.
func SeedAsset(t *testing.T, db *gorm.DB, custodian *domain.Custodian, code string) *domain.Asset {
	t.Helper()
	a := &domain.Asset{
		CustodianID: custodian.CustodianID,
		Code:        code,
		Description: "Laptop " + code,
		Serial:      "SN-" + code,
		Model:       "T14",
		Brand:       "Lenovo",
		Condition:   domain.ConditionGood,
		State:       domain.AssetActive,
	}
	require.NoError(t, db.Create(a).Error)
	return a
}
