package db

import "testing"

func TestMigrationURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/chapels":   "pgx5://u:p@localhost:5432/chapels",
		"postgresql://u@db/chapels?sslmode=false": "pgx5://u@db/chapels?sslmode=false",
		"pgx5://already":                          "pgx5://already",
	}
	for in, want := range cases {
		if got := migrationURL(in); got != want {
			t.Fatalf("migrationURL(%s) = %s, want %s", in, got, want)
		}
	}
}
