// README: End-to-end API tests over in-memory stores with a stub token verifier.
package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	httptransport "rideshare/internal/http"
	"rideshare/internal/infra"
	"rideshare/internal/lock"
	"rideshare/internal/modules/location"
	"rideshare/internal/modules/matching"
	"rideshare/internal/modules/pricing"
	"rideshare/internal/modules/rating"
	"rideshare/internal/modules/ride"
	"rideshare/internal/modules/user"
	"rideshare/internal/notify"
)

// tokenVerifier treats the raw token as "uid:role".
type tokenVerifier struct{}

func (tokenVerifier) VerifyIDToken(_ context.Context, raw string) (*infra.FirebaseToken, error) {
	uid, role, _ := strings.Cut(raw, ":")
	if uid == "" {
		return nil, errors.New("bad token")
	}
	claims := map[string]interface{}{}
	if role != "" {
		claims[infra.RoleClaim] = role
	}
	return &infra.FirebaseToken{UID: uid, Claims: claims}, nil
}

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	h, _ := newTestEnv(t)
	return h
}

func newTestEnv(t *testing.T) (http.Handler, *notify.Hub) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	users := user.NewService(user.NewMemoryStore(), lock.NewMemoryLocker())
	rideStore := ride.NewMemoryStore()
	hub := notify.NewHub(log)
	pricingSvc := pricing.NewService(pricing.DefaultRates(), time.UTC)
	rides := ride.NewService(ride.Deps{
		Store:   rideStore,
		Users:   users,
		Ratings: rating.NewService(users, log),
		Pricing: pricingSvc,
		Events:  hub,
		Log:     log,
	})
	srv := httptransport.NewServer(httptransport.ServerDeps{
		Rides:          rides,
		Users:          users,
		Matching:       matching.NewService(rideStore, log),
		Location:       location.NewService(location.DefaultPlaces, nil, nil, log),
		Pricing:        pricingSvc,
		Hub:            hub,
		Verifier:       tokenVerifier{},
		Log:            log,
		NearbyRadiusKm: 5,
	})
	return srv.Routes(), hub
}

func call(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

type rideBody struct {
	ID       string `json:"id"`
	Status   string `json:"status"`
	Version  int    `json:"version"`
	DriverID string `json:"driver_id"`
	Price    struct {
		Amount int64 `json:"amount"`
	} `json:"price"`
}

func decodeRide(t *testing.T, w *httptest.ResponseRecorder) rideBody {
	t.Helper()
	var r rideBody
	if err := json.Unmarshal(w.Body.Bytes(), &r); err != nil {
		t.Fatalf("decode ride: %v (%s)", err, w.Body.String())
	}
	return r
}

func expect(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("expected %d, got %d: %s", status, w.Code, w.Body.String())
	}
}

const (
	p1 = "p1:passenger"
	p2 = "p2:passenger"
	d1 = "d1:driver"
	d2 = "d2:driver"
)

func requestBody(shared bool) map[string]any {
	return map[string]any{
		"pickup_location":  "Abu Dhabi Corniche",
		"dropoff_location": "Abu Dhabi Mall",
		"pickup":           map[string]float64{"lat": 24.4672, "lng": 54.3567},
		"dropoff":          map[string]float64{"lat": 24.4979, "lng": 54.3809},
		"seats":            1,
		"ride_time":        time.Now().Add(2 * time.Hour).UTC().Format(time.RFC3339),
		"shared":           shared,
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t)
	w := call(t, h, http.MethodGet, "/health", "", nil)
	expect(t, w, http.StatusOK)
	if w.Body.String() != "OK" {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
	expect(t, call(t, h, http.MethodGet, "/metrics", "", nil), http.StatusOK)
}

func TestAPI_RequiresToken(t *testing.T) {
	h := newTestServer(t)
	expect(t, call(t, h, http.MethodGet, "/api/rides", "", nil), http.StatusUnauthorized)
	// Unknown user without a role claim.
	expect(t, call(t, h, http.MethodGet, "/api/rides", "stranger", nil), http.StatusForbidden)
}

func TestAPI_RideLifecycle(t *testing.T) {
	h := newTestServer(t)

	w := call(t, h, http.MethodPost, "/api/rides", p1, requestBody(true))
	expect(t, w, http.StatusCreated)
	created := decodeRide(t, w)
	if created.Status != string(ride.StatusRequested) || created.Version != 1 {
		t.Fatalf("unexpected created ride: %+v", created)
	}
	base := "/api/rides/" + created.ID

	w = call(t, h, http.MethodGet, "/api/rides/nearby?lat=24.4672&lng=54.3567", d1, nil)
	expect(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), created.ID) {
		t.Fatalf("nearby should list the ride: %s", w.Body.String())
	}

	// A passenger cannot accept.
	expect(t, call(t, h, http.MethodPost, base+"/accept", p2, nil), http.StatusForbidden)

	w = call(t, h, http.MethodPost, base+"/accept", d1, nil)
	expect(t, w, http.StatusOK)
	if r := decodeRide(t, w); r.Status != string(ride.StatusAccepted) || r.DriverID != "d1" {
		t.Fatalf("unexpected accepted ride: %+v", r)
	}
	expect(t, call(t, h, http.MethodPost, base+"/accept", d2, nil), http.StatusConflict)

	w = call(t, h, http.MethodPost, base+"/join", p2, nil)
	expect(t, w, http.StatusOK)
	if got, want := decodeRide(t, w).Price.Amount, (created.Price.Amount*3+2)/4; got != want {
		t.Fatalf("shared price = %d, want %d", got, want)
	}

	expect(t, call(t, h, http.MethodPost, base+"/start", d2, nil), http.StatusForbidden)
	expect(t, call(t, h, http.MethodPost, base+"/start", d1, nil), http.StatusOK)
	w = call(t, h, http.MethodPost, base+"/complete", d1, nil)
	expect(t, w, http.StatusOK)
	if r := decodeRide(t, w); r.Status != string(ride.StatusCompleted) {
		t.Fatalf("unexpected status %s", r.Status)
	}

	expect(t, call(t, h, http.MethodPost, base+"/rate-driver", p1, map[string]any{"rating": 6}), http.StatusBadRequest)
	expect(t, call(t, h, http.MethodPost, base+"/rate-driver", p1, map[string]any{}), http.StatusBadRequest)
	expect(t, call(t, h, http.MethodPost, base+"/rate-driver", p1, map[string]any{"rating": 4, "review": "ok"}), http.StatusOK)
	expect(t, call(t, h, http.MethodPost, base+"/rate-driver", p1, map[string]any{"rating": 5}), http.StatusConflict)
	expect(t, call(t, h, http.MethodPost, base+"/rate-passenger", d1, map[string]any{"rating": 5}), http.StatusOK)

	// Payments are not configured in this server.
	expect(t, call(t, h, http.MethodPost, base+"/payment", p1, nil), http.StatusServiceUnavailable)

	w = call(t, h, http.MethodGet, "/api/rides", d1, nil)
	expect(t, w, http.StatusOK)
	var list []rideBody
	if err := json.Unmarshal(w.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("driver list: %v %s", err, w.Body.String())
	}
	expect(t, call(t, h, http.MethodGet, "/api/rides/active", d1, nil), http.StatusNotFound)
}

func TestAPI_CancelAndValidation(t *testing.T) {
	h := newTestServer(t)

	body := requestBody(false)
	body["seats"] = 0
	expect(t, call(t, h, http.MethodPost, "/api/rides", p1, body), http.StatusBadRequest)

	body = requestBody(false)
	body["ride_time"] = time.Now().Add(10 * time.Minute).UTC().Format(time.RFC3339)
	expect(t, call(t, h, http.MethodPost, "/api/rides/schedule", p1, body), http.StatusBadRequest)

	w := call(t, h, http.MethodPost, "/api/rides/schedule", p1, requestBody(false))
	expect(t, w, http.StatusCreated)
	r := decodeRide(t, w)
	if r.Status != string(ride.StatusScheduled) {
		t.Fatalf("expected scheduled, got %s", r.Status)
	}

	w = call(t, h, http.MethodGet, "/api/rides/active", p1, nil)
	expect(t, w, http.StatusOK)
	if decodeRide(t, w).ID != r.ID {
		t.Fatalf("active ride mismatch")
	}

	expect(t, call(t, h, http.MethodPost, "/api/rides/"+r.ID+"/cancel", p2, nil), http.StatusForbidden)
	w = call(t, h, http.MethodPost, "/api/rides/"+r.ID+"/cancel", p1, map[string]string{"reason": "plans changed"})
	expect(t, w, http.StatusOK)
	if decodeRide(t, w).Status != string(ride.StatusCancelled) {
		t.Fatalf("expected cancelled")
	}
	expect(t, call(t, h, http.MethodPost, "/api/rides/"+r.ID+"/cancel", p1, nil), http.StatusConflict)

	expect(t, call(t, h, http.MethodGet, "/api/rides/missing", p1, nil), http.StatusNotFound)
	expect(t, call(t, h, http.MethodGet, "/api/rides/bad$id", p1, nil), http.StatusBadRequest)
	expect(t, call(t, h, http.MethodGet, "/api/rides/nearby?lat=x&lng=1", d1, nil), http.StatusBadRequest)
	expect(t, call(t, h, http.MethodGet, "/api/rides/nearby?lat=1&lng=1&radius_km=0", d1, nil), http.StatusBadRequest)
}

func TestAPI_SharedSearchAndQuote(t *testing.T) {
	h := newTestServer(t)
	w := call(t, h, http.MethodPost, "/api/rides", p1, requestBody(true))
	expect(t, w, http.StatusCreated)
	id := decodeRide(t, w).ID

	w = call(t, h, http.MethodPost, "/api/rides/shared/search", p2, map[string]any{
		"pickup":  map[string]float64{"lat": 24.4680, "lng": 54.3570},
		"dropoff": map[string]float64{"lat": 24.4970, "lng": 54.3800},
	})
	expect(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), id) {
		t.Fatalf("shared search should find the ride: %s", w.Body.String())
	}

	w = call(t, h, http.MethodPost, "/api/rides/shared/search", p2, map[string]any{})
	expect(t, w, http.StatusOK)
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("expected empty list, got %s", w.Body.String())
	}

	w = call(t, h, http.MethodPost, "/api/rides/quote", p2, map[string]any{
		"seats":     2,
		"ride_time": "2026-03-02T12:00:00Z",
	})
	expect(t, w, http.StatusOK)
	var q struct {
		Multiplier float64 `json:"multiplier"`
		Total      struct {
			Amount int64 `json:"amount"`
		} `json:"total"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode quote: %v", err)
	}
	if q.Multiplier != 1.0 || q.Total.Amount <= 0 {
		t.Fatalf("unexpected quote %+v", q)
	}
	expect(t, call(t, h, http.MethodPost, "/api/rides/quote", p2, map[string]any{"seats": 0}), http.StatusBadRequest)
}

func TestAPI_Locations(t *testing.T) {
	h := newTestServer(t)
	w := call(t, h, http.MethodGet, "/api/locations/suggest?q=yas", p1, nil)
	expect(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), "Yas Island") {
		t.Fatalf("expected Yas suggestions: %s", w.Body.String())
	}
	w = call(t, h, http.MethodGet, "/api/locations/suggest", p1, nil)
	expect(t, w, http.StatusOK)
	if strings.TrimSpace(w.Body.String()) != "[]" {
		t.Fatalf("blank query should yield [], got %s", w.Body.String())
	}

	w = call(t, h, http.MethodGet, "/api/locations/route?from_lat=24.4672&from_lng=54.3567&to_lat=24.4979&to_lng=54.3809", p1, nil)
	expect(t, w, http.StatusOK)
	if !strings.Contains(w.Body.String(), location.SourceLinear) {
		t.Fatalf("expected straight-line estimate: %s", w.Body.String())
	}
	expect(t, call(t, h, http.MethodGet, "/api/locations/route?from_lat=1", p1, nil), http.StatusBadRequest)
}

func TestWebsocket_ReceivesRideEvents(t *testing.T) {
	handler, hub := newTestEnv(t)
	srv := httptest.NewServer(handler)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?access_token=" + p1
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer resp.Body.Close()
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for hub.Connected("p1") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("session never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	w := call(t, handler, http.MethodPost, "/api/rides", p1, requestBody(false))
	expect(t, w, http.StatusCreated)
	id := decodeRide(t, w).ID

	var msg struct {
		Type   string `json:"type"`
		RideID string `json:"ride_id"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	if msg.Type != "ride.requested" || msg.RideID != id {
		t.Fatalf("unexpected message %+v", msg)
	}

	// Other users' rides are not delivered.
	expect(t, call(t, handler, http.MethodPost, "/api/rides", p2, requestBody(false)), http.StatusCreated)
	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if err := conn.ReadJSON(&msg); err == nil {
		t.Fatalf("unexpected delivery %+v", msg)
	}
}
