package repository

import (
	"github.com/heri/userhook/internal/model"
	"github.com/heri/userhook/internal/query"
)

// ListLimit is the fixed row limit of user listings.
const ListLimit = 10

// User statements.
var (
	InsertUser = query.Statement{
		Name: "insert_user",
		SQL:  `INSERT INTO users (id, firstName, lastName) VALUES ($1,$2,$3) RETURNING id, firstName, lastName`,
	}

	UpdateUser = query.Statement{
		Name: "update_user",
		SQL:  `UPDATE users SET firstName=$1, lastName=$2 WHERE id=$3 RETURNING id, firstName, lastName`,
	}

	SelectUsers = query.Statement{
		Name: "select_users",
		SQL:  `SELECT id, firstName, lastName FROM users LIMIT 10`,
	}

	GetUser = query.Statement{
		Name: "get_user",
		SQL:  `SELECT id, firstName, lastName FROM users WHERE id=$1 LIMIT 1`,
	}

	// UpsertUser inserts or updates in one statement. The fourth column is
	// true when the row was inserted (xmax is 0 only for fresh tuples).
	UpsertUser = query.Statement{
		Name: "upsert_user",
		SQL: `INSERT INTO users (id, firstName, lastName) VALUES ($1,$2,$3)
			ON CONFLICT (id) DO UPDATE SET firstName = EXCLUDED.firstName, lastName = EXCLUDED.lastName
			RETURNING id, firstName, lastName, (xmax = 0) AS inserted`,
	}
)

// MapUser converts a (id, firstName, lastName) row into a User.
// Rows of any other shape panic with *query.ProgrammingError.
func MapUser(row query.Row) model.User {
	return model.User{
		ID:        row.String(0),
		FirstName: row.String(1),
		LastName:  row.String(2),
	}
}

// MapUsers maps every row in order.
func MapUsers(rows []query.Row) []model.User {
	users := make([]model.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, MapUser(row))
	}
	return users
}
