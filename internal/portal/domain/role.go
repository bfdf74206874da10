package domain

// Seeded role names. Roles are immutable after migration.
const (
	RoleAdmin   = "Admin"
	RolePatient = "Patient"
)

type Role struct {
	ID   string
	Name string
}
