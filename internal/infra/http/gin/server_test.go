package ginserver

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	gin "github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"warehub/internal/app/feed"
	authsvc "warehub/internal/app/services/auth"
	"warehub/internal/app/wiring"
	"warehub/internal/infra/obs"
	"warehub/internal/infra/security"
	"warehub/internal/infra/storage/memory"
	"warehub/internal/infra/validation"
)

const mediaBaseURL = "http://media.test/media"

type testEnv struct {
	t      *testing.T
	router *gin.Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	users := memory.NewUserRepository()
	media := memory.NewMediaStore(mediaBaseURL)
	hub := feed.NewHub(16, nil)
	t.Cleanup(hub.Close)

	codec, err := security.NewJWTCodec("test-secret", nil)
	require.NoError(t, err)
	identity := &authsvc.Service{
		Users:      users,
		Passwords:  security.BcryptHasher{Cost: bcrypt.MinCost},
		Tokens:     codec,
		SessionTTL: time.Hour,
	}
	buses := wiring.Build(wiring.Deps{
		UoWFactory:    store,
		Outbox:        memory.NewOutbox(store, hub),
		Idempotency:   memory.NewIdempotencyStore(time.Hour),
		Validator:     validation.New(),
		Users:         users,
		Media:         media,
		Hub:           hub,
		UniqueReviews: true,
	})
	router := NewRouter(obs.Middleware{}, obs.HealthHandlers{}, Handlers{
		Auth:           AuthHandler{Service: identity},
		Listing:        ListingHandler{Commands: buses.Commands, Queries: buses.Queries},
		Booking:        BookingHandler{Commands: buses.Commands, Queries: buses.Queries},
		Conversation:   ConversationHandler{Commands: buses.Commands, Queries: buses.Queries},
		Review:         ReviewHandler{Commands: buses.Commands, Queries: buses.Queries},
		Inquiry:        InquiryHandler{Commands: buses.Commands, Queries: buses.Queries},
		Media:          MediaHandler{Store: media}.Serve,
		AuthMiddleware: AuthMiddleware{Resolver: identity}.Handle,
	})
	return &testEnv{t: t, router: router}
}

func (e *testEnv) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

type account struct {
	ID    string
	Token string
}

func (e *testEnv) register(email, role string) account {
	e.t.Helper()
	rec := e.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email":    email,
		"name":     strings.Split(email, "@")[0],
		"password": "warehouse1",
		"role":     role,
	})
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		User  struct{ ID string } `json:"user"`
		Token string              `json:"token"`
	}
	decode(e.t, rec, &out)
	return account{ID: out.User.ID, Token: out.Token}
}

func (e *testEnv) createListing(owner account, fields map[string]string, image []byte) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(e.t, w.WriteField(k, v))
	}
	if image != nil {
		part, err := w.CreateFormFile("image", "dock.png")
		require.NoError(e.t, err)
		_, err = part.Write(image)
		require.NoError(e.t, err)
	}
	require.NoError(e.t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/owner/listings", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+owner.Token)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func listingFields() map[string]string {
	return map[string]string{
		"name":           "Dock 7",
		"location":       "Rotterdam",
		"area_sqm":       "1200",
		"rent_per_area":  "4.5",
		"industry":       "logistics",
		"available_from": "2030-06-01",
		"available_to":   "2030-12-31",
		"tags":           "cold, dock, cold",
	}
}

func (e *testEnv) seedListing(owner account) string {
	e.t.Helper()
	rec := e.createListing(owner, listingFields(), []byte("\x89PNG fake"))
	require.Equal(e.t, http.StatusCreated, rec.Code, rec.Body.String())
	var out struct {
		ID string `json:"id"`
	}
	decode(e.t, rec, &out)
	return out.ID
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
}

func TestAuthFlow(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register("owner@example.com", "owner")

	rec := env.do(http.MethodGet, "/api/v1/auth/me", owner.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"role":"owner"`)

	rec = env.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "owner@example.com", "password": "nope-nope1"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "owner@example.com", "name": "x", "password": "warehouse1", "role": "owner"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{"email": "weak@example.com", "name": "x", "password": "short", "role": "customer"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/auth/me", "forged", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListingCreateAndServeImage(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register("owner@example.com", "owner")
	customer := env.register("alice@example.com", "customer")

	rec := env.createListing(owner, listingFields(), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	bad := listingFields()
	bad["area_sqm"] = "large"
	rec = env.createListing(owner, bad, []byte("img"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "numeric")

	inverted := listingFields()
	inverted["available_from"] = "2031-01-01"
	rec = env.createListing(owner, inverted, []byte("img"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = env.createListing(customer, listingFields(), []byte("img"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.createListing(owner, listingFields(), []byte("\x89PNG fake"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var listing struct {
		ID       string   `json:"id"`
		Tags     []string `json:"tags"`
		ImageURL string   `json:"image_url"`
	}
	decode(t, rec, &listing)
	assert.Equal(t, []string{"cold", "dock"}, listing.Tags)
	require.True(t, strings.HasPrefix(listing.ImageURL, mediaBaseURL+"/"))

	u, err := url.Parse(listing.ImageURL)
	require.NoError(t, err)
	rec = env.do(http.MethodGet, u.Path, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "\x89PNG fake", rec.Body.String())

	rec = env.do(http.MethodGet, "/api/v1/listings/"+listing.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/owner/listings", owner.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), listing.ID)

	rec = env.do(http.MethodDelete, "/api/v1/owner/listings/"+listing.ID, customer.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = env.do(http.MethodDelete, "/api/v1/owner/listings/"+listing.ID, owner.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = env.do(http.MethodGet, "/api/v1/listings/"+listing.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCatalogBrowse(t *testing.T) {
	env := newTestEnv(t)
	host := env.register("host@example.com", "owner")
	other := env.register("other@example.com", "owner")
	guest := env.register("guest@example.com", "customer")
	dock := env.seedListing(host)
	rivalID := env.seedListing(other)

	type catalog struct {
		Items []struct {
			ID            string   `json:"id"`
			AverageRating *float64 `json:"average_rating"`
		} `json:"items"`
		Total int `json:"total"`
	}

	rec := env.do(http.MethodGet, "/api/v1/listings", "", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var anon catalog
	decode(t, rec, &anon)
	assert.Equal(t, 2, anon.Total)
	assert.Contains(t, rec.Body.String(), `"average_rating":null`)

	rec = env.do(http.MethodGet, "/api/v1/listings", host.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine catalog
	decode(t, rec, &mine)
	require.Len(t, mine.Items, 1)
	assert.Equal(t, rivalID, mine.Items[0].ID)

	rec = env.do(http.MethodGet, "/api/v1/listings?q=rotter&industry=Logistics&tag=cold", guest.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var filtered catalog
	decode(t, rec, &filtered)
	assert.Equal(t, 2, filtered.Total)

	rec = env.do(http.MethodGet, "/api/v1/listings?industry=paint", guest.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var none catalog
	decode(t, rec, &none)
	assert.Empty(t, none.Items)

	rec = env.do(http.MethodGet, "/api/v1/listings?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/listings/"+dock, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, "single listing route still resolves")
}

func TestBookingLifecycle(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register("owner@example.com", "owner")
	alice := env.register("alice@example.com", "customer")
	bob := env.register("bob@example.com", "customer")
	listingID := env.seedListing(owner)

	rec := env.do(http.MethodGet, "/api/v1/listings/"+listingID+"/availability?start=2030-07-01&duration=5", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"available":true}`, rec.Body.String())

	rec = env.do(http.MethodPost, "/api/v1/listings/"+listingID+"/reservations", alice.Token, gin.H{"start": "2030-07-01", "duration_days": 5})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var reservation struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	decode(t, rec, &reservation)
	assert.Equal(t, "pending", reservation.Status)

	rec = env.do(http.MethodPost, "/api/v1/listings/"+listingID+"/reservations", bob.Token, gin.H{"start": "2030-07-03", "duration_days": 2})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reason":"conflict"`)

	rec = env.do(http.MethodPost, "/api/v1/listings/"+listingID+"/reservations", bob.Token, gin.H{"start": "2031-02-01", "duration_days": 2})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reason":"date_range_invalid"`)

	rec = env.do(http.MethodPost, "/api/v1/listings/"+listingID+"/reservations", bob.Token, gin.H{"duration_days": 2})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"reason":"missing_fields"`)

	rec = env.do(http.MethodPost, "/api/v1/listings/"+listingID+"/reservations", owner.Token, gin.H{"start": "2030-08-01", "duration_days": 2})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/owner/reservations", owner.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), reservation.ID)

	rec = env.do(http.MethodPost, "/api/v1/owner/reservations/"+reservation.ID+"/confirm", alice.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, "/api/v1/owner/reservations/"+reservation.ID+"/confirm", owner.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"changed":true`)

	rec = env.do(http.MethodPost, "/api/v1/owner/reservations/"+reservation.ID+"/confirm", owner.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"changed":false`)

	rec = env.do(http.MethodPost, "/api/v1/owner/reservations/"+reservation.ID+"/reject", owner.Token, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/me/reservations", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"can_review":true`)

	rec = env.do(http.MethodGet, "/api/v1/conversations/"+listingID+"/"+alice.ID+"/messages", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		Items []struct {
			SenderRole string `json:"sender_role"`
			Body       string `json:"body"`
		} `json:"items"`
	}
	decode(t, rec, &history)
	require.Len(t, history.Items, 2)
	assert.Equal(t, "system", history.Items[0].SenderRole)
	assert.Contains(t, history.Items[0].Body, "requested a booking of Dock 7 from 2030-07-01 for 5 day(s).")
	assert.Equal(t, "Booking confirmed from 2030-07-01 for 5 day(s).", history.Items[1].Body)
}

func TestReservationIdempotencyKey(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register("owner@example.com", "owner")
	alice := env.register("alice@example.com", "customer")
	listingID := env.seedListing(owner)

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/listings/"+listingID+"/reservations", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+alice.Token)
		req.Header.Set(idempotencyHeader, "k-1")
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		return rec
	}
	first := send(`{"start":"2030-07-01","duration_days":3}`)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())
	second := send(`{"start":"2030-07-01","duration_days":3}`)
	require.Equal(t, http.StatusCreated, second.Code, second.Body.String())
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	reused := send(`{"start":"2030-08-01","duration_days":2}`)
	assert.Equal(t, http.StatusConflict, reused.Code, reused.Body.String())
}

func TestReviewsAndInquiries(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register("owner@example.com", "owner")
	alice := env.register("alice@example.com", "customer")
	listingID := env.seedListing(owner)
	base := "/api/v1/listings/" + listingID

	rec := env.do(http.MethodPost, base+"/reviews", alice.Token, gin.H{"rating": 4, "body": "Clean dock"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodPost, base+"/reservations", alice.Token, gin.H{"start": "2030-07-01", "duration_days": 1})
	require.Equal(t, http.StatusCreated, rec.Code)
	var reservation struct {
		ID string `json:"id"`
	}
	decode(t, rec, &reservation)
	rec = env.do(http.MethodPost, "/api/v1/owner/reservations/"+reservation.ID+"/confirm", owner.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(http.MethodGet, base+"/reviews/eligibility", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"eligible":true,"already_reviewed":false}`, rec.Body.String())

	rec = env.do(http.MethodPost, base+"/reviews", alice.Token, gin.H{"rating": 0, "body": "meh"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"submitted":false`)

	rec = env.do(http.MethodPost, base+"/reviews", alice.Token, gin.H{"rating": 9, "body": "wow"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, base+"/reviews", alice.Token, gin.H{"rating": 4, "body": "Clean dock"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodPost, base+"/reviews", alice.Token, gin.H{"rating": 2, "body": "Again"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(http.MethodGet, base+"/reviews", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var reviews struct {
		Total         int      `json:"total"`
		AverageRating *float64 `json:"average_rating"`
	}
	decode(t, rec, &reviews)
	assert.Equal(t, 1, reviews.Total)
	require.NotNil(t, reviews.AverageRating)
	assert.InDelta(t, 4.0, *reviews.AverageRating, 1e-9)

	rec = env.do(http.MethodPost, base+"/inquiries", "", gin.H{"name": "Visitor", "email": "v@example.com", "message": " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"fields"`)

	rec = env.do(http.MethodPost, base+"/inquiries", "", gin.H{"name": "Visitor", "email": "v@example.com", "message": "Is the dock heated?"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = env.do(http.MethodGet, "/api/v1/owner/inquiries", owner.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Is the dock heated?")

	rec = env.do(http.MethodGet, "/api/v1/owner/inquiries", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.do(http.MethodGet, "/api/v1/owner/inquiries", alice.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestConversationStreamOverWebsocket(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register("owner@example.com", "owner")
	alice := env.register("alice@example.com", "customer")
	listingID := env.seedListing(owner)
	thread := "/api/v1/conversations/" + listingID + "/" + alice.ID

	rec := env.do(http.MethodPost, thread+"/messages", alice.Token, gin.H{"body": "Hello"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	srv := httptest.NewServer(env.router)
	defer srv.Close()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + thread + "/stream?token=" + url.QueryEscape(owner.Token)
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var snapshot struct {
		Type  string `json:"type"`
		Items []struct {
			Body string `json:"body"`
			Mine bool   `json:"mine"`
		} `json:"items"`
	}
	require.NoError(t, conn.ReadJSON(&snapshot))
	assert.Equal(t, "snapshot", snapshot.Type)
	require.Len(t, snapshot.Items, 1)
	assert.Equal(t, "Hello", snapshot.Items[0].Body)
	assert.False(t, snapshot.Items[0].Mine)

	rec = env.do(http.MethodPost, thread+"/messages", owner.Token, gin.H{"body": "Hi Alice"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var update struct {
		Type string `json:"type"`
		Item struct {
			Body       string `json:"body"`
			SenderRole string `json:"sender_role"`
			Mine       bool   `json:"mine"`
		} `json:"item"`
	}
	require.NoError(t, conn.ReadJSON(&update))
	assert.Equal(t, "update", update.Type)
	assert.Equal(t, "Hi Alice", update.Item.Body)
	assert.Equal(t, "owner", update.Item.SenderRole)
	assert.True(t, update.Item.Mine)

	rec = env.do(http.MethodGet, "/api/v1/conversations", alice.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"last_body":"Hi Alice"`)
}

func TestStreamRefusedBeforeUpgrade(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register("owner@example.com", "owner")
	alice := env.register("alice@example.com", "customer")
	mallory := env.register("mallory@example.com", "customer")
	listingID := env.seedListing(owner)

	rec := env.do(http.MethodGet, "/api/v1/conversations/"+listingID+"/"+alice.ID+"/stream", mallory.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = env.do(http.MethodGet, "/api/v1/owner/reservations/stream", alice.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestExtractBearerToken(t *testing.T) {
	assert.Equal(t, "abc", extractBearerToken("Bearer abc"))
	assert.Equal(t, "abc", extractBearerToken("bearer  abc "))
	assert.Empty(t, extractBearerToken("Basic abc"))
	assert.Empty(t, extractBearerToken("Bearer"))
}
