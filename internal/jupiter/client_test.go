package jupiter

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"solana-survival-agent/internal/domain"
)

const quoteBody = `{"inputMint":"So11111111111111111111111111111111111111112","outputMint":"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v","inAmount":"40000000","outAmount":"6120000","otherAmountThreshold":"6089400","slippageBps":50,"priceImpactPct":"0","routePlan":[{"percent":100}],"contextSlot":1}`

func TestQuote(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/swap/v1/quote" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("inputMint") != domain.NativeMint || q.Get("outputMint") != domain.USDCMint {
			t.Errorf("unexpected mints %v", q)
		}
		if q.Get("amount") != "40000000" || q.Get("slippageBps") != "50" {
			t.Errorf("unexpected amount/slippage %v", q)
		}
		if r.Header.Get("x-api-key") != "secret" {
			t.Errorf("expected api key header")
		}
		w.Write([]byte(quoteBody))
	}))
	defer server.Close()

	client := New(server.URL+"/swap/v1", WithAPIKey("secret"))
	quote, err := client.Quote(context.Background(), QuoteRequest{
		InputMint:   domain.NativeMint,
		OutputMint:  domain.USDCMint,
		Amount:      40_000_000,
		SlippageBps: 50,
	})
	if err != nil {
		t.Fatalf("Quote returned error: %v", err)
	}
	if quote.OutAmount != "6120000" {
		t.Fatalf("expected OutAmount 6120000, got %s", quote.OutAmount)
	}
	if string(quote.Raw) != quoteBody {
		t.Fatalf("raw quote must be kept verbatim")
	}
}

func TestQuote_NoRoute(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "" {
			t.Errorf("no api key expected")
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Could not find any route","errorCode":"COULD_NOT_FIND_ANY_ROUTE"}`))
	}))
	defer server.Close()

	_, err := New(server.URL).Quote(context.Background(), QuoteRequest{InputMint: "A", OutputMint: "B", Amount: 1})
	if !errors.Is(err, domain.ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}
}

func TestQuote_ZeroAmount(t *testing.T) {
	_, err := New("http://unused").Quote(context.Background(), QuoteRequest{InputMint: "A", OutputMint: "B"})
	if !errors.Is(err, domain.ErrQuoteUnavailable) {
		t.Fatalf("expected ErrQuoteUnavailable, got %v", err)
	}
}

func TestBuildSwapTransaction(t *testing.T) {
	unsigned := []byte{1, 0, 0, 0, 42}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/swap" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var payload struct {
			QuoteResponse    json.RawMessage `json:"quoteResponse"`
			UserPublicKey    string          `json:"userPublicKey"`
			WrapAndUnwrapSol bool            `json:"wrapAndUnwrapSol"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.UserPublicKey != "signer-address" || !payload.WrapAndUnwrapSol {
			t.Errorf("unexpected payload %+v", payload)
		}
		var q map[string]any
		if err := json.Unmarshal(payload.QuoteResponse, &q); err != nil || q["outAmount"] != "6120000" {
			t.Errorf("quote must be forwarded unchanged, got %s", payload.QuoteResponse)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"swapTransaction":      base64.StdEncoding.EncodeToString(unsigned),
			"lastValidBlockHeight": 100,
		})
	}))
	defer server.Close()

	client := New(server.URL)
	raw, err := client.BuildSwapTransaction(context.Background(), &Quote{OutAmount: "6120000", Raw: json.RawMessage(quoteBody)}, "signer-address")
	if err != nil {
		t.Fatalf("BuildSwapTransaction returned error: %v", err)
	}
	if string(raw) != string(unsigned) {
		t.Fatalf("unexpected transaction bytes %v", raw)
	}
}

func TestBuildSwapTransaction_Failure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := New(server.URL).BuildSwapTransaction(context.Background(), &Quote{Raw: json.RawMessage(quoteBody)}, "signer")
	if !errors.Is(err, domain.ErrBuildFailed) {
		t.Fatalf("expected ErrBuildFailed, got %v", err)
	}

	_, err = New(server.URL).BuildSwapTransaction(context.Background(), nil, "signer")
	if !errors.Is(err, domain.ErrBuildFailed) {
		t.Fatalf("expected ErrBuildFailed for nil quote, got %v", err)
	}
}

func TestProbe(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("amount") != "1000000" {
			t.Errorf("unexpected probe amount %s", r.URL.Query().Get("amount"))
		}
		w.Write([]byte(quoteBody))
	}))
	defer server.Close()

	if err := New(server.URL).Probe(context.Background()); err != nil {
		t.Fatalf("Probe returned error: %v", err)
	}
}
