package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/oddsflow/predictor/models"
)

// Publisher pushes stored predictions onto a Redis channel so downstream
// consumers see them in real time.
type Publisher struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

// event is the published wire format: the prediction plus enough match
// context for consumers to act without a store round-trip.
type event struct {
	Prediction models.Prediction `json:"prediction"`
	Sport      string            `json:"sport"`
	Team1      string            `json:"team1"`
	Team2      string            `json:"team2"`
}

// NewPublisher connects to Redis and verifies the connection.
func NewPublisher(ctx context.Context, redisURL, channel string) (*Publisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &Publisher{
		client:  client,
		channel: channel,
		logger:  log.With().Str("component", "redis_publisher").Logger(),
	}, nil
}

// Publish sends one prediction event to the channel.
func (p *Publisher) Publish(ctx context.Context, match models.Match, prediction models.Prediction) error {
	data, err := json.Marshal(event{
		Prediction: prediction,
		Sport:      match.Sport,
		Team1:      match.Team1,
		Team2:      match.Team2,
	})
	if err != nil {
		return fmt.Errorf("encoding prediction event: %w", err)
	}

	if err := p.client.Publish(ctx, p.channel, data).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", p.channel, err)
	}

	p.logger.Debug().Str("match_id", prediction.MatchID).Msg("Published prediction")
	return nil
}

// Close releases the Redis connection.
func (p *Publisher) Close() error {
	return p.client.Close()
}
