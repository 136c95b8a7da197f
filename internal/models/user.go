package models

import "github.com/google/uuid"

// User is the ephemeral record of one live connection.
// It is created when a client connects and lives as long as that connection.
type User struct {
	// ID is the anonymous user identifier (UUID unless supplied by an anon token).
	ID string `json:"id" bson:"id"`
	// ConnectionID addresses the transport connection the user is reachable on.
	ConnectionID string `json:"connectionId" bson:"connection_id"`
}

// NewUser builds a User for the given connection. A fresh UUID is generated
// when id is empty.
func NewUser(connectionID, id string) User {
	if id == "" {
		id = uuid.New().String()
	}
	return User{ID: id, ConnectionID: connectionID}
}
