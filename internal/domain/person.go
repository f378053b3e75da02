package domain

import "github.com/google/uuid"

// PersonID is an opaque identifier into the external person directory.
// The core never stores person attributes, only ids.
type PersonID = uuid.UUID

// Person represents an entry in the external directory
type Person struct {
	ID   PersonID
	Name string
}

// Group represents a named collection of people in the external directory
type Group struct {
	ID      uuid.UUID
	Name    string
	Members []PersonID
}
