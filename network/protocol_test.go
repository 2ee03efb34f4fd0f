package network

import (
	"encoding/json"
	"testing"
)

func TestCanonical(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"player:bet", MsgPlaceBet},
		{"bet_placed", MsgPlaceBet},
		{"admin:start-game", MsgStartGame},
		{"admin:deal-card", MsgDealCard},
		{"game_state_update", MsgSyncGameState},
		{MsgPlaceBet, MsgPlaceBet},
		{MsgAuthenticate, MsgAuthenticate},
		{"unknown_message", "unknown_message"},
	}
	for _, tc := range cases {
		if got := Canonical(tc.in); got != tc.want {
			t.Errorf("Canonical(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDecodePayload(t *testing.T) {
	var p PlaceBetPayload
	data := json.RawMessage(`{"gameId":"g1","side":"andar","amount":1000,"round":1}`)
	if err := DecodePayload(data, &p); err != nil {
		t.Fatalf("DecodePayload failed: %v", err)
	}
	if p.GameID != "g1" || p.Amount != 1000 || p.Round != 1 {
		t.Fatalf("unexpected payload: %+v", p)
	}
}

func TestDecodePayloadValidation(t *testing.T) {
	cases := []struct {
		name string
		data string
	}{
		{"missing game id", `{"side":"andar","amount":1000,"round":1}`},
		{"missing side", `{"gameId":"g1","amount":1000,"round":1}`},
		{"zero amount", `{"gameId":"g1","side":"andar","amount":0,"round":1}`},
		{"negative amount", `{"gameId":"g1","side":"andar","amount":-5,"round":1}`},
		{"zero round", `{"gameId":"g1","side":"andar","amount":1000,"round":0}`},
		{"malformed json", `{"gameId":`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var p PlaceBetPayload
			if err := DecodePayload(json.RawMessage(tc.data), &p); err == nil {
				t.Errorf("DecodePayload(%s) should fail", tc.data)
			}
		})
	}
}

func TestNewEnvelopeRoundTrip(t *testing.T) {
	env, err := NewEnvelope(MsgBetConfirmed, BetConfirmedPayload{NewBalance: 4000, Message: "ok"})
	if err != nil {
		t.Fatalf("NewEnvelope failed: %v", err)
	}
	if env.Type != MsgBetConfirmed {
		t.Fatalf("type = %q, want %q", env.Type, MsgBetConfirmed)
	}

	var p BetConfirmedPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if p.NewBalance != 4000 || p.Message != "ok" {
		t.Fatalf("unexpected payload: %+v", p)
	}
}
