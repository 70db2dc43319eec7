package rawdata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Payload is one archived provider response, keyed by the endpoint it came from.
type Payload struct {
	Endpoint    string    `db:"endpoint"`
	MatchID     int64     `db:"match_id"`
	PayloadJSON string    `db:"payload"`
	PayloadHash string    `db:"payload_hash"`
	FetchedAt   time.Time `db:"fetched_at"`
}

func NewPayload(endpoint string, matchID int64, raw []byte, fetchedAt time.Time) Payload {
	sum := sha256.Sum256(raw)
	return Payload{
		Endpoint:    endpoint,
		MatchID:     matchID,
		PayloadJSON: string(raw),
		PayloadHash: hex.EncodeToString(sum[:]),
		FetchedAt:   fetchedAt.UTC(),
	}
}

type Repository interface {
	ArchivePayloads(ctx context.Context, items []Payload) error
	ListArchivedScorecards(ctx context.Context) ([]Payload, error)
	ListArchivedForMatch(ctx context.Context, matchID int64) ([]Payload, error)
}
