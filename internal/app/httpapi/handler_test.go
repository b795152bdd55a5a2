package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	app "github.com/rewear/service_layer/internal/app"
	"github.com/rewear/service_layer/internal/auth"
)

type testClient struct {
	t       *testing.T
	handler http.Handler
	token   string
}

func newApplication(t *testing.T) *app.Application {
	t.Helper()
	application, err := app.New(app.Deps{
		Hasher: auth.NewBcryptHasher(4),
		Tokens: auth.NewJWTManager("test-secret", 0),
	}, nil)
	if err != nil {
		t.Fatalf("new application: %v", err)
	}
	if err := application.Start(context.Background()); err != nil {
		t.Fatalf("start application: %v", err)
	}
	t.Cleanup(func() { application.Stop(context.Background()) })
	return application
}

func (c *testClient) do(method, path string, payload any) (*httptest.ResponseRecorder, map[string]any) {
	c.t.Helper()
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			c.t.Fatalf("encode payload: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &body)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp := httptest.NewRecorder()
	c.handler.ServeHTTP(resp, req)

	var decoded map[string]any
	if resp.Body.Len() > 0 {
		_ = json.Unmarshal(resp.Body.Bytes(), &decoded)
	}
	return resp, decoded
}

func (c *testClient) signup(email string) string {
	c.t.Helper()
	resp, _ := c.do(http.MethodPost, "/auth/register", map[string]any{
		"email": email, "password": "correct horse", "first_name": "Test",
	})
	if resp.Code != http.StatusCreated {
		c.t.Fatalf("register %s: %d %s", email, resp.Code, resp.Body.String())
	}
	resp, body := c.do(http.MethodPost, "/auth/login", map[string]any{
		"email": email, "password": "correct horse",
	})
	if resp.Code != http.StatusOK {
		c.t.Fatalf("login %s: %d %s", email, resp.Code, resp.Body.String())
	}
	return body["token"].(string)
}

func (c *testClient) as(token string) *testClient {
	return &testClient{t: c.t, handler: c.handler, token: token}
}

func (c *testClient) createItem(title string, points int64) string {
	c.t.Helper()
	resp, body := c.do(http.MethodPost, "/items", map[string]any{
		"title": title, "category": "outerwear", "condition": "good",
		"size": "M", "points_value": points,
	})
	if resp.Code != http.StatusCreated {
		c.t.Fatalf("create item: %d %s", resp.Code, resp.Body.String())
	}
	return body["ID"].(string)
}

func TestAuthRequired(t *testing.T) {
	handler := NewHandler(newApplication(t), nil)
	c := &testClient{t: t, handler: handler}

	resp, _ := c.do(http.MethodPost, "/items", map[string]any{"title": "coat"})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.Code)
	}

	// Public listing stays open.
	resp, _ = c.do(http.MethodGet, "/items", nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for public listing, got %d", resp.Code)
	}
}

func TestSwapFlow(t *testing.T) {
	handler := NewHandler(newApplication(t), nil)
	anon := &testClient{t: t, handler: handler}

	alice := anon.as(anon.signup("alice@example.com"))
	bob := anon.as(anon.signup("bob@example.com"))

	resp, aliceProfile := alice.do(http.MethodPost, "/auth/login", map[string]any{
		"email": "alice@example.com", "password": "correct horse",
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("login: %d", resp.Code)
	}
	aliceID := aliceProfile["user"].(map[string]any)["id"].(string)
	_, bobLogin := bob.do(http.MethodPost, "/auth/login", map[string]any{
		"email": "bob@example.com", "password": "correct horse",
	})
	bobID := bobLogin["user"].(map[string]any)["id"].(string)

	aliceItem := alice.createItem("jacket", 50)
	bobItem := bob.createItem("boots", 60)

	resp, swapBody := alice.do(http.MethodPost, "/swaps", map[string]any{
		"receiver_id":       bobID,
		"initiator_item_id": aliceItem,
		"receiver_item_id":  bobItem,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("create swap: %d %s", resp.Code, resp.Body.String())
	}
	swapID := swapBody["ID"].(string)

	// Initiator cannot accept.
	resp, _ = alice.do(http.MethodPut, "/swaps/"+swapID, map[string]any{"status": "accepted"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("initiator accept: expected 400, got %d", resp.Code)
	}

	resp, _ = bob.do(http.MethodPut, "/swaps/"+swapID, map[string]any{"status": "accepted"})
	if resp.Code != http.StatusOK {
		t.Fatalf("accept: %d %s", resp.Code, resp.Body.String())
	}
	resp, _ = bob.do(http.MethodPut, "/swaps/"+swapID, map[string]any{"status": "completed"})
	if resp.Code != http.StatusOK {
		t.Fatalf("complete: %d %s", resp.Code, resp.Body.String())
	}

	// Completed swaps are terminal.
	resp, _ = bob.do(http.MethodPut, "/swaps/"+swapID, map[string]any{"status": "cancelled"})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("cancel completed: expected 400, got %d", resp.Code)
	}

	// Rating the swap, twice.
	resp, _ = alice.do(http.MethodPost, "/ratings", map[string]any{
		"rated_user_id": bobID, "score": 5,
		"transaction_type": "swap", "transaction_id": swapID,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("rate: %d %s", resp.Code, resp.Body.String())
	}
	resp, _ = alice.do(http.MethodPost, "/ratings", map[string]any{
		"rated_user_id": bobID, "score": 4,
		"transaction_type": "swap", "transaction_id": swapID,
	})
	if resp.Code != http.StatusConflict {
		t.Fatalf("duplicate rate: expected 409, got %d", resp.Code)
	}

	// Swap lists are private to their owner.
	resp, _ = bob.do(http.MethodGet, "/users/"+aliceID+"/swaps", nil)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("foreign swap list: expected 403, got %d", resp.Code)
	}
}

func TestRedemptionFlow(t *testing.T) {
	handler := NewHandler(newApplication(t), nil)
	anon := &testClient{t: t, handler: handler}

	seller := anon.as(anon.signup("seller@example.com"))
	buyer := anon.as(anon.signup("buyer@example.com"))

	itemID := seller.createItem("scarf", 60)

	// Wrong price is rejected.
	resp, _ := buyer.do(http.MethodPost, "/redemptions", map[string]any{
		"item_id": itemID, "points_used": 59,
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("mismatched points: expected 400, got %d", resp.Code)
	}

	resp, body := buyer.do(http.MethodPost, "/redemptions", map[string]any{
		"item_id": itemID, "points_used": 60,
	})
	if resp.Code != http.StatusCreated {
		t.Fatalf("redeem: %d %s", resp.Code, resp.Body.String())
	}
	if balance := body["balance"].(float64); balance != 40 {
		t.Fatalf("expected balance 40 after signup grant, got %v", balance)
	}

	// The item is gone from the browse listing.
	resp, _ = anon.do(http.MethodGet, "/items/"+itemID, nil)
	if resp.Code != http.StatusOK {
		t.Fatalf("get item: %d", resp.Code)
	}
	var listed []map[string]any
	listResp, _ := anon.do(http.MethodGet, "/items", nil)
	if err := json.Unmarshal(listResp.Body.Bytes(), &listed); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	for _, it := range listed {
		if it["ID"] == itemID {
			t.Fatalf("redeemed item still listed")
		}
	}

	// A second redemption of the same item fails.
	resp, _ = buyer.do(http.MethodPost, "/redemptions", map[string]any{
		"item_id": itemID, "points_used": 60,
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("redeem twice: expected 400, got %d", resp.Code)
	}
}

func TestErrorMapping(t *testing.T) {
	handler := NewHandler(newApplication(t), nil)
	anon := &testClient{t: t, handler: handler}
	alice := anon.as(anon.signup("alice@example.com"))

	resp, _ := alice.do(http.MethodGet, "/items/nope", nil)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("missing item: expected 404, got %d", resp.Code)
	}

	resp, _ = anon.do(http.MethodPost, "/auth/register", map[string]any{
		"email": "alice@example.com", "password": "correct horse", "first_name": "Dup",
	})
	if resp.Code != http.StatusConflict {
		t.Fatalf("duplicate email: expected 409, got %d", resp.Code)
	}

	resp, _ = anon.do(http.MethodPost, "/auth/login", map[string]any{
		"email": "alice@example.com", "password": "wrong",
	})
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("bad credentials: expected 401, got %d", resp.Code)
	}

	resp, _ = alice.do(http.MethodPost, "/items", map[string]any{
		"title": "hat", "category": "headwear", "condition": "good", "size": "M",
	})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("bad category: expected 400, got %d", resp.Code)
	}
}
