package ports

import "context"

// AccountPort updates player account profiles.
type AccountPort interface {
	// UpdateProfile sets username and display name for the given user.
	UpdateProfile(ctx context.Context, userID, username, displayName string) error
}
