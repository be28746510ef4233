package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type seededClub struct {
	ID   int64
	Name string
}

type seededPlayer struct {
	ID          int64
	Name        string
	MarketValue int64
	ClubID      int64
}

var sampleQuestions = []string{
	"Which club has the biggest budget?",
	"How many forwards are there in the market?",
	"Who was the last player transferred and for how much?",
	"Which club owns the most valuable squad?",
}

type Service struct {
	cfg       Config
	log       *slog.Logger
	http      *http.Client
	generator *Generator

	clubs   []seededClub
	players []seededPlayer
	rounds  int
}

func NewService(cfg Config, logger *slog.Logger, client *http.Client) (*Service, error) {
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if cfg.Clubs < 2 {
		return nil, fmt.Errorf("at least two clubs are required")
	}
	if cfg.SquadSize <= 0 {
		return nil, fmt.Errorf("squad size must be > 0")
	}

	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.HTTPTimeout}
	}

	return &Service{
		cfg:       cfg,
		log:       logger,
		http:      client,
		generator: NewGenerator(cfg.Seed),
	}, nil
}

// Run seeds the market once, then proposes one transfer per tick until the
// context ends. Budget rejections are expected traffic, not errors.
func (s *Service) Run(ctx context.Context) error {
	if err := s.seed(ctx); err != nil {
		return fmt.Errorf("seed market: %w", err)
	}

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if err := s.transferRound(ctx); err != nil {
			s.log.Error("transfer round failed", slog.Any("error", err))
		}
	}
}

func (s *Service) seed(ctx context.Context) error {
	for i := 0; i < s.cfg.Clubs; i++ {
		club := s.generator.NextClub()
		var created struct {
			ClubID int64  `json:"club_id"`
			Name   string `json:"name"`
		}
		status, body, err := s.doJSON(ctx, http.MethodPost, "/v1/clubs", map[string]any{
			"name":   club.Name,
			"budget": club.Budget,
		}, &created)
		if err != nil {
			return fmt.Errorf("create club: %w", err)
		}
		if status != http.StatusCreated {
			return fmt.Errorf("create club status %d: %s", status, strings.TrimSpace(string(body)))
		}
		s.clubs = append(s.clubs, seededClub{ID: created.ClubID, Name: created.Name})

		for j := 0; j < s.cfg.SquadSize; j++ {
			player := s.generator.NextPlayer()
			var createdPlayer struct {
				PlayerID int64 `json:"player_id"`
			}
			status, body, err := s.doJSON(ctx, http.MethodPost, "/v1/players", map[string]any{
				"name":         player.Name,
				"position":     player.Position,
				"market_value": player.MarketValue,
				"club_id":      created.ClubID,
			}, &createdPlayer)
			if err != nil {
				return fmt.Errorf("create player: %w", err)
			}
			if status != http.StatusCreated {
				return fmt.Errorf("create player status %d: %s", status, strings.TrimSpace(string(body)))
			}
			s.players = append(s.players, seededPlayer{
				ID:          createdPlayer.PlayerID,
				Name:        player.Name,
				MarketValue: player.MarketValue,
				ClubID:      created.ClubID,
			})
		}
	}

	s.log.Info("market seeded",
		slog.Int("clubs", len(s.clubs)),
		slog.Int("players", len(s.players)),
		slog.Int64("seed", s.cfg.Seed))
	return nil
}

func (s *Service) transferRound(ctx context.Context) error {
	s.rounds++
	proposal := s.generator.NextProposal(len(s.players), len(s.clubs), func(i int) int64 {
		return s.players[i].MarketValue
	})
	player := &s.players[proposal.PlayerIndex]
	club := s.clubs[proposal.ClubIndex]
	if player.ClubID == club.ID {
		// same-club move; skip this round rather than burn a rejected request
		return nil
	}

	var created struct {
		TransferID int64 `json:"transfer_id"`
	}
	status, body, err := s.doJSON(ctx, http.MethodPost, "/v1/transfers", map[string]any{
		"player_id":  player.ID,
		"to_club_id": club.ID,
		"fee":        proposal.Fee,
	}, &created)
	if err != nil {
		return fmt.Errorf("transfer request: %w", err)
	}

	switch status {
	case http.StatusCreated:
		player.ClubID = club.ID
		s.log.Info("transfer completed",
			slog.Int64("transfer_id", created.TransferID),
			slog.String("player", player.Name),
			slog.String("to_club", club.Name),
			slog.Int64("fee", proposal.Fee))
	case http.StatusConflict:
		s.log.Info("transfer rejected on budget",
			slog.String("player", player.Name),
			slog.String("to_club", club.Name),
			slog.Int64("fee", proposal.Fee))
	default:
		return fmt.Errorf("transfer status %d: %s", status, strings.TrimSpace(string(body)))
	}

	if s.cfg.AskQuestions {
		s.askSample(ctx)
	}
	return nil
}

func (s *Service) askSample(ctx context.Context) {
	question := sampleQuestions[s.rounds%len(sampleQuestions)]
	var answer struct {
		Answer   string `json:"answer"`
		RowCount int    `json:"row_count"`
	}
	status, body, err := s.doJSON(ctx, http.MethodPost, "/v1/chat", map[string]any{"question": question}, &answer)
	if err != nil {
		s.log.Warn("chat question failed", slog.Any("error", err))
		return
	}
	if status != http.StatusOK {
		s.log.Warn("chat question rejected",
			slog.Int("status", status),
			slog.String("body", strings.TrimSpace(string(body))))
		return
	}
	s.log.Info("chat answered",
		slog.String("question", question),
		slog.String("answer", answer.Answer),
		slog.Int("row_count", answer.RowCount))
}

func (s *Service) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) (int, []byte, error) {
	var payload io.Reader
	if requestBody != nil {
		raw, err := json.Marshal(requestBody)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request body: %w", err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.cfg.APIBaseURL+path, payload)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if requestBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.cfg.APIKey != "" {
		req.Header.Set("X-API-Key", s.cfg.APIKey)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}

	if responseBody != nil && resp.StatusCode < 400 && len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, responseBody); err != nil {
			return resp.StatusCode, body, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.StatusCode, body, nil
}
