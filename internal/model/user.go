// Package model defines the data structures used throughout the application.
// Entities mirror the users, blog_posts and comments tables; the *View types
// carry the joined author fields the pages display.
package model

// User represents a registered account.
//
// WHY int64 IDs?
// The blog's admin rule is expressed in terms of user identifiers (by default
// the first-created user, id 1), so we keep the database's auto-incrementing
// integer key rather than generating string IDs.
//
// PasswordHash is never rendered or logged; the `json:"-"` tag keeps it out of
// any accidental JSON encoding.
type User struct {
	ID           int64  `json:"id"    db:"id"`
	Email        string `json:"email" db:"email"`
	PasswordHash string `json:"-"     db:"password"`
	Name         string `json:"name"  db:"name"`
}
