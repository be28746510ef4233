package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExecuteTransferMovesBudgetAndPlayer(t *testing.T) {
	store := newFakeMarket()
	barca := store.mustClub(t, "FC Barcelona", 100)
	madrid := store.mustClub(t, "Real Madrid", 90)
	player := store.mustPlayer(t, "Pedri", "MF", 80, &barca.ClubID)
	h := NewHandler(testConfig(t, nil), Dependencies{Market: store})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/transfers",
		strings.NewReader(`{"player_id":1,"to_club_id":2,"fee":50}`)))

	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body=%s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	if body["from_club_id"] != float64(barca.ClubID) || body["to_club_id"] != float64(madrid.ClubID) {
		t.Fatalf("transfer clubs = %v", body)
	}

	buyer, err := store.GetClub(context.Background(), madrid.ClubID)
	if err != nil {
		t.Fatalf("GetClub() error = %v", err)
	}
	if buyer.Budget != 40 {
		t.Fatalf("buyer budget = %d, want 40", buyer.Budget)
	}
	seller, err := store.GetClub(context.Background(), barca.ClubID)
	if err != nil {
		t.Fatalf("GetClub() error = %v", err)
	}
	if seller.Budget != 150 {
		t.Fatalf("seller budget = %d, want 150", seller.Budget)
	}
	moved, err := store.GetPlayer(context.Background(), player.PlayerID)
	if err != nil {
		t.Fatalf("GetPlayer() error = %v", err)
	}
	if moved.ClubID == nil || *moved.ClubID != madrid.ClubID {
		t.Fatalf("player club = %v", moved.ClubID)
	}
}

func TestExecuteTransferFailureModes(t *testing.T) {
	store := newFakeMarket()
	barca := store.mustClub(t, "FC Barcelona", 100)
	store.mustClub(t, "Real Madrid", 10)
	store.mustPlayer(t, "Pedri", "MF", 80, &barca.ClubID)
	h := NewHandler(testConfig(t, nil), Dependencies{Market: store})

	cases := map[string]struct {
		body   string
		status int
		code   string
	}{
		"missing ids":         {body: `{"fee":5}`, status: http.StatusBadRequest, code: "TRANSFER_INVALID"},
		"negative fee":        {body: `{"player_id":1,"to_club_id":2,"fee":-1}`, status: http.StatusBadRequest, code: "FEE_INVALID"},
		"unknown player":      {body: `{"player_id":9,"to_club_id":2,"fee":1}`, status: http.StatusNotFound, code: "NOT_FOUND"},
		"unknown club":        {body: `{"player_id":1,"to_club_id":9,"fee":1}`, status: http.StatusNotFound, code: "NOT_FOUND"},
		"same club":           {body: `{"player_id":1,"to_club_id":1,"fee":1}`, status: http.StatusBadRequest, code: "SAME_CLUB"},
		"insufficient budget": {body: `{"player_id":1,"to_club_id":2,"fee":500}`, status: http.StatusConflict, code: "INSUFFICIENT_BUDGET"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/transfers", strings.NewReader(tc.body)))
			body := assertErrorCode(t, rr, tc.status, tc.code)
			if tc.code == "INSUFFICIENT_BUDGET" {
				extra, ok := body["context"].(map[string]any)
				if !ok || extra["fee"] != float64(500) {
					t.Fatalf("context = %v", body["context"])
				}
			}
		})
	}
}

func TestListTransfersNewestFirstWithLimit(t *testing.T) {
	store := newFakeMarket()
	barca := store.mustClub(t, "FC Barcelona", 1000)
	_ = store.mustClub(t, "Real Madrid", 1000)
	store.mustPlayer(t, "Pedri", "MF", 80, &barca.ClubID)
	store.mustPlayer(t, "Gavi", "MF", 60, &barca.ClubID)
	h := NewHandler(testConfig(t, nil), Dependencies{Market: store})

	for _, body := range []string{
		`{"player_id":1,"to_club_id":2,"fee":10}`,
		`{"player_id":2,"to_club_id":2,"fee":20}`,
	} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/transfers", strings.NewReader(body)))
		if rr.Code != http.StatusCreated {
			t.Fatalf("seed transfer failed: %s", rr.Body.String())
		}
	}

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/transfers?limit=1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	transfers, ok := body["transfers"].([]any)
	if !ok || len(transfers) != 1 {
		t.Fatalf("transfers = %v", body["transfers"])
	}
	newest := transfers[0].(map[string]any)
	if newest["fee"] != float64(20) {
		t.Fatalf("newest fee = %v, want 20", newest["fee"])
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/transfers?limit=nope", nil))
	assertErrorCode(t, rr, http.StatusBadRequest, "LIMIT_INVALID")
}
