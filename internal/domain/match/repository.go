package match

import "context"

// Repository describes match persistence needs from use cases.
type Repository interface {
	InsertMatches(ctx context.Context, items []Match) (int, error)
	ListMatchIDs(ctx context.Context) ([]int64, error)
	ListPendingMatchIDs(ctx context.Context) ([]int64, error)
	ListIncompleteMatchIDs(ctx context.Context) ([]int64, error)
	MatchExists(ctx context.Context, matchID int64) (bool, error)
	TeamsForMatch(ctx context.Context, matchID int64) ([]int64, error)
}
