package keys

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/scriptguard/internal/common"
	"github.com/dmitrijs2005/scriptguard/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

var keyCols = []string{"project_id", "key", "key_type", "expires_at", "bound_fingerprint", "owner_identity", "display_name", "note", "executor"}

const (
	selectByKeyQ = `(?s)^SELECT\s+project_id,\s*key,\s*key_type,\s*expires_at,\s*bound_fingerprint,\s*owner_identity,\s*display_name,\s*note,\s*executor\s+FROM\s+license_keys\s+WHERE\s+key\s*=\s*\$1\s*$`
	insertQ      = `(?s)^INSERT\s+INTO\s+license_keys\s*\(project_id,\s*key,\s*key_type,\s*expires_at,\s*bound_fingerprint,\s*owner_identity,\s*display_name,\s*note,\s*executor\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6,\s*\$7,\s*\$8,\s*\$9\)\s*$`
	bindQ        = `(?s)^UPDATE\s+license_keys\s+SET\s+bound_fingerprint\s*=\s*\$2\s+WHERE\s+key\s*=\s*\$1\s+AND\s+bound_fingerprint\s+IS\s+NULL\s*$`
)

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectExec(insertQ).
		WithArgs("p1", "K1", "temporary", exp, nil, "123", "alice", nil, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))

	k := &models.Key{ProjectID: "p1", Key: "K1", Type: models.KeyTypeTemporary, ExpiresAt: &exp,
		OwnerIdentity: "123", DisplayName: "alice"}
	if err := repo.Create(context.Background(), k); err != nil {
		t.Fatalf("Create error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(insertQ).WillReturnError(&pgconn.PgError{Code: "23505"})

	err := repo.Create(context.Background(), &models.Key{ProjectID: "p1", Key: "K1", Type: models.KeyTypePermanent})
	if !errors.Is(err, common.ErrorAlreadyExists) {
		t.Fatalf("want ErrorAlreadyExists, got %v", err)
	}
}

func TestGetByKey_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	exp := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(keyCols).
		AddRow("p1", "K1", "temporary", exp, "fp-A", "123", "alice", nil, "Synapse")
	mock.ExpectQuery(selectByKeyQ).WithArgs("K1").WillReturnRows(rows)

	got, err := repo.GetByKey(context.Background(), "K1")
	if err != nil {
		t.Fatalf("GetByKey error: %v", err)
	}
	if got.ProjectID != "p1" || got.BoundFingerprint != "fp-A" || got.Note != "" || got.Executor != "Synapse" {
		t.Fatalf("unexpected key: %+v", got)
	}
	if got.ExpiresAt == nil || !got.ExpiresAt.Equal(exp) {
		t.Fatalf("unexpected expiry: %v", got.ExpiresAt)
	}
}

func TestGetByKey_NoExpiry(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	rows := sqlmock.NewRows(keyCols).
		AddRow("p1", "K1", "permanent", nil, nil, "123", "alice", "vip", nil)
	mock.ExpectQuery(selectByKeyQ).WithArgs("K1").WillReturnRows(rows)

	got, err := repo.GetByKey(context.Background(), "K1")
	if err != nil {
		t.Fatalf("GetByKey error: %v", err)
	}
	if got.ExpiresAt != nil || got.Bound() || got.Note != "vip" {
		t.Fatalf("unexpected key: %+v", got)
	}
}

func TestGetByKey_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectByKeyQ).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByKey(context.Background(), "ghost")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestGetByKey_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(selectByKeyQ).WithArgs("K1").WillReturnError(errors.New("db down"))

	_, err := repo.GetByKey(context.Background(), "K1")
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestListByProject(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.+\s+FROM\s+license_keys\s+WHERE\s+project_id\s*=\s*\$1\s+ORDER\s+BY\s+key\s*$`
	rows := sqlmock.NewRows(keyCols).
		AddRow("p1", "A", "permanent", nil, nil, "1", "a", nil, nil).
		AddRow("p1", "B", "checkpoint", nil, "fp", "2", "b", nil, nil)
	mock.ExpectQuery(q).WithArgs("p1").WillReturnRows(rows)

	got, err := repo.ListByProject(context.Background(), "p1")
	if err != nil {
		t.Fatalf("ListByProject error: %v", err)
	}
	if len(got) != 2 || got[0].Key != "A" || got[1].Type != models.KeyTypeCheckpoint {
		t.Fatalf("unexpected keys: %+v", got)
	}
}

func TestBindFingerprint_Won(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(bindQ).WithArgs("K1", "fp-A").WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := repo.BindFingerprint(context.Background(), "K1", "fp-A")
	if err != nil || !ok {
		t.Fatalf("want bound, got ok=%v err=%v", ok, err)
	}
}

func TestBindFingerprint_Lost(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(bindQ).WithArgs("K1", "fp-B").WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.BindFingerprint(context.Background(), "K1", "fp-B")
	if err != nil || ok {
		t.Fatalf("want lost race, got ok=%v err=%v", ok, err)
	}
}

func TestBindFingerprint_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectExec(bindQ).WillReturnError(errors.New("conn reset"))

	if _, err := repo.BindFingerprint(context.Background(), "K1", "fp"); err == nil {
		t.Fatal("expected error")
	}
}

func TestResetFingerprint(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+license_keys\s+SET\s+bound_fingerprint\s*=\s*NULL,\s*executor\s*=\s*NULL\s+WHERE\s+project_id\s*=\s*\$1\s+AND\s+key\s*=\s*\$2\s*$`
	mock.ExpectExec(q).WithArgs("p1", "K1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("p2", "K1").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.ResetFingerprint(context.Background(), "p1", "K1"); err != nil {
		t.Fatalf("ResetFingerprint error: %v", err)
	}
	if err := repo.ResetFingerprint(context.Background(), "p2", "K1"); !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want ErrorNotFound for foreign project, got %v", err)
	}
}

func TestUpdateNote_BlankBecomesNull(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+license_keys\s+SET\s+note\s*=\s*\$3\s+WHERE\s+project_id\s*=\s*\$1\s+AND\s+key\s*=\s*\$2\s*$`
	mock.ExpectExec(q).WithArgs("p1", "K1", nil).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("p1", "K1", "vip").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.UpdateNote(context.Background(), "p1", "K1", ""); err != nil {
		t.Fatalf("UpdateNote error: %v", err)
	}
	if err := repo.UpdateNote(context.Background(), "p1", "K1", "vip"); err != nil {
		t.Fatalf("UpdateNote error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestDelete(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^DELETE\s+FROM\s+license_keys\s+WHERE\s+project_id\s*=\s*\$1\s+AND\s+key\s*=\s*\$2\s*$`
	mock.ExpectExec(q).WithArgs("p1", "K1").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Delete(context.Background(), "p1", "K1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
}

func TestDeleteByProject(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^DELETE\s+FROM\s+license_keys\s+WHERE\s+project_id\s*=\s*\$1\s*$`
	mock.ExpectExec(q).WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.DeleteByProject(context.Background(), "p1"); err != nil {
		t.Fatalf("DeleteByProject error: %v", err)
	}
}
