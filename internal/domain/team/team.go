package team

import "context"

// Team is an international side from the provider's team directory.
type Team struct {
	TeamID        int64  `db:"team_id" validate:"gt=0"`
	TeamName      string `db:"team_name" validate:"required"`
	TeamShortName string `db:"team_short_name"`
	ImageID       int64  `db:"image_id"`
}

// Repository describes team persistence needs from use cases.
type Repository interface {
	UpsertTeams(ctx context.Context, items []Team) error
}
