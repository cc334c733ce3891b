package testsupport

import (
	"context"
	"database/sql"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
)

// User is the row type of the seeded users table.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID     int64   `bun:"id,pk,autoincrement"`
	Name   string  `bun:"name,notnull"`
	Email  string  `bun:"email,notnull"`
	Age    int     `bun:"age,notnull"`
	Status string  `bun:"status,notnull"`
	Score  float64 `bun:"score,notnull"`
}

// SeedUsers is the data NewSQLiteDB inserts, in id order.
func SeedUsers() []User {
	return []User{
		{Name: "alice", Email: "alice@example.com", Age: 30, Status: "active", Score: 10.5},
		{Name: "bob", Email: "bob@example.com", Age: 25, Status: "inactive", Score: 20},
		{Name: "carol", Email: "carol@example.com", Age: 35, Status: "active", Score: 30.25},
		{Name: "dave", Email: "dave@example.com", Age: 40, Status: "active", Score: 0},
	}
}

// NewSQLiteDB opens an in-memory SQLite database with a seeded users table.
// The database is closed when the test ends.
func NewSQLiteDB(t testing.TB) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	// every connection to :memory: is a separate database
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	if _, err := db.NewCreateTable().Model((*User)(nil)).Exec(ctx); err != nil {
		t.Fatalf("failed to create users table: %v", err)
	}

	users := SeedUsers()
	if _, err := db.NewInsert().Model(&users).Exec(ctx); err != nil {
		t.Fatalf("failed to seed users: %v", err)
	}

	return db
}

// InsertUser adds a row to the users table.
func InsertUser(t testing.TB, db *bun.DB, user User) {
	t.Helper()

	if _, err := db.NewInsert().Model(&user).Exec(context.Background()); err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}
}
