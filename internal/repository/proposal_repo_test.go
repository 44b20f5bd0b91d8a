package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"gorm.io/gorm"

	"milebot/internal/model"
)

func TestProposalRepository_PendingByAd(t *testing.T) {
	db, mock := setupMockDB(t)
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewProposalRepository(db)

	rows := sqlmock.NewRows([]string{"id", "ad_id", "from_user_id", "quantity", "price_per_k", "status"}).
		AddRow(100, 42, 8, 5000, 21.0, model.ProposalStatusPending).
		AddRow(101, 42, 9, 10000, 20.0, model.ProposalStatusPending)

	mock.ExpectQuery("SELECT \\* FROM `proposals`").
		WithArgs(int64(42), model.ProposalStatusPending).
		WillReturnRows(rows)

	proposals, err := repo.PendingByAd(context.Background(), 42)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(proposals) != 2 {
		t.Fatalf("Expected 2 proposals, got %d", len(proposals))
	}
	if proposals[0].ID != 100 {
		t.Errorf("Expected oldest proposal first, got id %d", proposals[0].ID)
	}
}

func TestProposalRepository_DecideTx_AlreadyDecided(t *testing.T) {
	db, mock := setupMockDB(t)
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewProposalRepository(db)

	// The PENDING guard matches nothing on a second decision
	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `proposals` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	var affected int64
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		affected, txErr = repo.DecideTx(tx, 100, model.ProposalStatusAccepted)
		return txErr
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if affected != 0 {
		t.Errorf("Expected 0 rows affected, got %d", affected)
	}
}

func TestProposalRepository_DecideTx_Accepts(t *testing.T) {
	db, mock := setupMockDB(t)
	defer func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	}()

	repo := NewProposalRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `proposals` SET").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var affected int64
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		affected, txErr = repo.DecideTx(tx, 100, model.ProposalStatusAccepted)
		return txErr
	})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if affected != 1 {
		t.Errorf("Expected 1 row affected, got %d", affected)
	}
}
