package mercatoctl

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
)

type clubItem struct {
	ClubID    int64     `json:"club_id"`
	Name      string    `json:"name"`
	Budget    int64     `json:"budget"`
	CreatedAt time.Time `json:"created_at"`
}

type playerItem struct {
	PlayerID    int64  `json:"player_id"`
	Name        string `json:"name"`
	Position    string `json:"position"`
	MarketValue int64  `json:"market_value"`
	ClubID      *int64 `json:"club_id"`
}

type transferItem struct {
	TransferID int64     `json:"transfer_id"`
	PlayerID   int64     `json:"player_id"`
	FromClubID *int64    `json:"from_club_id"`
	ToClubID   int64     `json:"to_club_id"`
	Fee        int64     `json:"fee"`
	CreatedAt  time.Time `json:"created_at"`
}

type chatResponse struct {
	Answer   string `json:"answer"`
	SQL      string `json:"sql"`
	RowCount int    `json:"row_count"`
}

func (c *ctl) clubs(ctx context.Context) int {
	code, body, err := c.do(ctx, http.MethodGet, "/v1/clubs", nil)
	if err != nil {
		return c.requestFailed(err)
	}
	if code >= 400 {
		return c.httpError(code, body)
	}
	var payload struct {
		Clubs []clubItem `json:"clubs"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return c.requestFailed(err)
	}

	rows := make([][]string, 0, len(payload.Clubs))
	for _, club := range payload.Clubs {
		rows = append(rows, []string{
			strconv.FormatInt(club.ClubID, 10),
			club.Name,
			strconv.FormatInt(club.Budget, 10),
		})
	}
	renderTable(c.stdout, []string{"ID", "Name", "Budget"}, rows)
	return 0
}

func (c *ctl) players(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("players", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	clubID := fs.Int64("club", 0, "only players belonging to this club")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := "/v1/players"
	if *clubID > 0 {
		path += "?club_id=" + strconv.FormatInt(*clubID, 10)
	}
	code, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return c.requestFailed(err)
	}
	if code >= 400 {
		return c.httpError(code, body)
	}
	var payload struct {
		Players []playerItem `json:"players"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return c.requestFailed(err)
	}

	rows := make([][]string, 0, len(payload.Players))
	for _, player := range payload.Players {
		club := "free agent"
		if player.ClubID != nil {
			club = strconv.FormatInt(*player.ClubID, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(player.PlayerID, 10),
			player.Name,
			player.Position,
			strconv.FormatInt(player.MarketValue, 10),
			club,
		})
	}
	renderTable(c.stdout, []string{"ID", "Name", "Pos", "Value", "Club"}, rows)
	return 0
}

func (c *ctl) transfers(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("transfers", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	limit := fs.Int("limit", 0, "maximum number of transfers to list")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	path := "/v1/transfers"
	if *limit > 0 {
		path += "?limit=" + strconv.Itoa(*limit)
	}
	code, body, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return c.requestFailed(err)
	}
	if code >= 400 {
		return c.httpError(code, body)
	}
	var payload struct {
		Transfers []transferItem `json:"transfers"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return c.requestFailed(err)
	}

	rows := make([][]string, 0, len(payload.Transfers))
	for _, transfer := range payload.Transfers {
		from := "free agent"
		if transfer.FromClubID != nil {
			from = strconv.FormatInt(*transfer.FromClubID, 10)
		}
		rows = append(rows, []string{
			strconv.FormatInt(transfer.TransferID, 10),
			strconv.FormatInt(transfer.PlayerID, 10),
			from,
			strconv.FormatInt(transfer.ToClubID, 10),
			strconv.FormatInt(transfer.Fee, 10),
			transfer.CreatedAt.Format(time.RFC3339),
		})
	}
	renderTable(c.stdout, []string{"ID", "Player", "From", "To", "Fee", "At"}, rows)
	return 0
}

func (c *ctl) transfer(ctx context.Context, args []string) int {
	fs := flag.NewFlagSet("transfer", flag.ContinueOnError)
	fs.SetOutput(c.stderr)
	playerID := fs.Int64("player", 0, "player to transfer")
	toClubID := fs.Int64("to", 0, "buying club")
	fee := fs.Int64("fee", 0, "transfer fee")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *playerID <= 0 || *toClubID <= 0 {
		_, _ = fmt.Fprintln(c.stderr, "transfer requires --player and --to")
		return 2
	}

	code, body, err := c.do(ctx, http.MethodPost, "/v1/transfers", map[string]any{
		"player_id":  *playerID,
		"to_club_id": *toClubID,
		"fee":        *fee,
	})
	if err != nil {
		return c.requestFailed(err)
	}
	if code >= 400 {
		return c.httpError(code, body)
	}
	if pretty, ok := prettyJSON(body); ok {
		_, _ = fmt.Fprintln(c.stdout, pretty)
	}
	return 0
}

func (c *ctl) ask(ctx context.Context, args []string) int {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		_, _ = fmt.Fprintln(c.stderr, "ask requires a question")
		return 2
	}
	answer, code := c.askOnce(ctx, question)
	if code != 0 {
		return code
	}
	printAnswer(c.stdout, answer)
	return 0
}

func (c *ctl) askOnce(ctx context.Context, question string) (chatResponse, int) {
	code, body, err := c.do(ctx, http.MethodPost, "/v1/chat", map[string]any{"question": question})
	if err != nil {
		return chatResponse{}, c.requestFailed(err)
	}
	if code >= 400 {
		return chatResponse{}, c.httpError(code, body)
	}
	var payload chatResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return chatResponse{}, c.requestFailed(err)
	}
	return payload, 0
}

func printAnswer(w io.Writer, answer chatResponse) {
	_, _ = fmt.Fprintln(w, answer.Answer)
	if answer.SQL != "" {
		_, _ = fmt.Fprintf(w, "\n[%d row(s) via: %s]\n", answer.RowCount, answer.SQL)
	}
}

func renderTable(w io.Writer, headers []string, rows [][]string) {
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "(none)")
		return
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader(headers)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(false)
	table.AppendBulk(rows)
	table.Render()
}
