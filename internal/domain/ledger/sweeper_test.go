package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/skillswap/skillswap-api/internal/domain/ledger"
)

/* =========================
   Test 1: Expired holds swept
   ========================= */

func TestSweepCancelsExpiredUnacceptedHolds(t *testing.T) {
	conn := setupTestDB(t)
	defer cleanupTestDB(conn)

	service := ledger.NewService(conn, nil)
	sweeper := ledger.NewSweeper(service, time.Hour)

	learnerID := createTestUser(t, conn, service, 10)
	teacherID := createTestUser(t, conn, service, 0)
	skillID := createTestSkill(t, conn)
	sessionID := createTestSession(t, conn, learnerID, teacherID, skillID, "requested", 4)

	expired := time.Now().Add(-time.Hour)
	hold, err := service.Reserve(context.Background(), learnerID, 4,
		ledger.Reference{ID: sessionID, Type: ledger.ReferenceSession}, &expired)
	requireNoError(t, err)

	result, err := sweeper.SweepOnce(context.Background())
	requireNoError(t, err)

	if result.CancelledCount != 1 {
		t.Fatalf("expected 1 cancelled hold, got %d", result.CancelledCount)
	}
	if len(result.CancelledIDs) != 1 || result.CancelledIDs[0] != hold.ID {
		t.Fatalf("expected cancelled id %s, got %v", hold.ID, result.CancelledIDs)
	}

	balance, err := service.Balance(context.Background(), learnerID)
	requireNoError(t, err)
	if balance.Reserved != 0 || balance.Available != 10 {
		t.Fatalf("held credits not released: %+v", balance)
	}

	var locked bool
	requireNoError(t, conn.Get(&locked, `SELECT credits_locked FROM sessions WHERE id = $1`, sessionID))
	if locked {
		t.Fatal("session credits_locked must be cleared after sweep")
	}
}

/* =========================
   Test 2: Accepted untouched
   ========================= */

func TestSweepLeavesAcceptedSessionsAlone(t *testing.T) {
	conn := setupTestDB(t)
	defer cleanupTestDB(conn)

	service := ledger.NewService(conn, nil)
	sweeper := ledger.NewSweeper(service, time.Hour)

	learnerID := createTestUser(t, conn, service, 10)
	teacherID := createTestUser(t, conn, service, 0)
	skillID := createTestSkill(t, conn)
	sessionID := createTestSession(t, conn, learnerID, teacherID, skillID, "accepted", 4)

	expired := time.Now().Add(-time.Hour)
	_, err := service.Reserve(context.Background(), learnerID, 4,
		ledger.Reference{ID: sessionID, Type: ledger.ReferenceSession}, &expired)
	requireNoError(t, err)

	result, err := sweeper.SweepOnce(context.Background())
	requireNoError(t, err)
	if result.CancelledCount != 0 {
		t.Fatalf("accepted session swept: %+v", result)
	}

	balance, err := service.Balance(context.Background(), learnerID)
	requireNoError(t, err)
	if balance.Reserved != 4 {
		t.Fatalf("hold on accepted session must survive, got %+v", balance)
	}
}

/* =========================
   Test 3: Re-entrant sweep
   ========================= */

func TestSweepRerunIsNoop(t *testing.T) {
	conn := setupTestDB(t)
	defer cleanupTestDB(conn)

	service := ledger.NewService(conn, nil)
	sweeper := ledger.NewSweeper(service, time.Hour)

	learnerID := createTestUser(t, conn, service, 10)
	teacherID := createTestUser(t, conn, service, 0)
	skillID := createTestSkill(t, conn)
	sessionID := createTestSession(t, conn, learnerID, teacherID, skillID, "requested", 3)

	expired := time.Now().Add(-time.Minute)
	_, err := service.Reserve(context.Background(), learnerID, 3,
		ledger.Reference{ID: sessionID, Type: ledger.ReferenceSession}, &expired)
	requireNoError(t, err)

	first, err := sweeper.SweepOnce(context.Background())
	requireNoError(t, err)
	if first.CancelledCount != 1 {
		t.Fatalf("expected 1 on first run, got %d", first.CancelledCount)
	}

	second, err := sweeper.SweepOnce(context.Background())
	requireNoError(t, err)
	if second.CancelledCount != 0 {
		t.Fatalf("second run must be a no-op, got %d", second.CancelledCount)
	}

	balance, err := service.Balance(context.Background(), learnerID)
	requireNoError(t, err)
	if balance.Total != 10 || balance.Available != 10 {
		t.Fatalf("double release corrupted balance: %+v", balance)
	}
}

/* =========================
   Helpers
   ========================= */

func createTestSkill(t *testing.T, conn *sqlx.DB) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := conn.Exec(`INSERT INTO skills (id, name) VALUES ($1, $2)`, id, "skill_"+id.String()[:8])
	requireNoError(t, err)
	return id
}

func createTestSession(t *testing.T, conn *sqlx.DB, learnerID, teacherID, skillID uuid.UUID, status string, credits int64) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := conn.Exec(`
		INSERT INTO sessions (id, learner_id, teacher_id, skill_id, status, credits_amount, credits_locked)
		VALUES ($1, $2, $3, $4, $5, $6, true)
	`, id, learnerID, teacherID, skillID, status, credits)
	requireNoError(t, err)
	return id
}
