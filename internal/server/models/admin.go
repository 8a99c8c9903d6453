package models

// Admin is a principal allowed to use the management API.
type Admin struct {
	ID    string
	Name  string
	Email string
}

// ProjectAdmin grants an admin access to one project.
type ProjectAdmin struct {
	ProjectID string
	AdminID   string
}
