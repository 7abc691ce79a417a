package server

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

	"github.com/farellandr/blocktix/config"
	"github.com/farellandr/blocktix/internal/helpers"
	"github.com/farellandr/blocktix/internal/middleware"
	"github.com/farellandr/blocktix/internal/models"
	"github.com/farellandr/blocktix/internal/testutil"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t         *testing.T
	db        *gorm.DB
	cfg       *config.Config
	router    *gin.Engine
	organizer models.User
	buyer     models.User
	friend    models.User
	admin     models.User
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := &config.Config{
		Env:             "test",
		JWTSecret:       "test-secret",
		QRSigningSecret: "qr-secret",
		UploadDir:       t.TempDir(),
	}
	return &testServer{
		t:         t,
		db:        db,
		cfg:       cfg,
		router:    NewRouter(cfg, zaptest.NewLogger(t), db, nil),
		organizer: testutil.CreateUser(t, db, "organizer@example.com", models.RoleOrganizer),
		buyer:     testutil.CreateUser(t, db, "buyer@example.com", models.RoleAttendee),
		friend:    testutil.CreateUser(t, db, "friend@example.com", models.RoleAttendee),
		admin:     testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin),
	}
}

func (s *testServer) token(user models.User) string {
	s.t.Helper()
	token, err := middleware.GenerateToken(s.cfg.JWTSecret, &user, time.Now())
	require.NoError(s.t, err)
	return token
}

func (s *testServer) do(method, path string, as *models.User, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+s.token(*as))
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) onSale(price string, quantity int) (models.Event, models.TicketType) {
	event := testutil.CreateEvent(s.t, s.db, s.organizer, 100)
	return event, testutil.CreateTicketType(s.t, s.db, event, price, quantity, 5)
}

type purchaseResponse struct {
	Tickets []models.Ticket `json:"tickets"`
	Total   string          `json:"total"`
}

func (s *testServer) purchase(as models.User, ticketType models.TicketType, quantity int) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, "/v1/purchases", &as, gin.H{
		"event_id":       ticketType.EventID,
		"ticket_type_id": ticketType.ID,
		"quantity":       quantity,
	})
}

func (s *testServer) buyOne(as models.User, ticketType models.TicketType) models.Ticket {
	s.t.Helper()
	w := s.purchase(as, ticketType, 1)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	var resp purchaseResponse
	require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(s.t, resp.Tickets, 1)
	return resp.Tickets[0]
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp helpers.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp.Code
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	w := s.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterLoginProfile(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/v1/register", nil, gin.H{
		"email":     "new@example.com",
		"password":  "secret123",
		"full_name": "New User",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/v1/register", nil, gin.H{
		"email":    "new@example.com",
		"password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/v1/login", nil, gin.H{
		"email":    "new@example.com",
		"password": "wrong-password",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/v1/login", nil, gin.H{
		"email":    "new@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var login struct {
		Token string `json:"token"`
		User  struct {
			Role          string `json:"role"`
			WalletAddress string `json:"wallet_address"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.Equal(t, models.RoleAttendee, login.User.Role)
	assert.NotEmpty(t, login.User.WalletAddress)

	req := httptest.NewRequest(http.MethodGet, "/v1/profile", nil)
	req.Header.Set("Authorization", "Bearer "+login.Token)
	w = httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "new@example.com")
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/v1/tickets", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))
}

func TestPurchaseUntilSoldOut(t *testing.T) {
	s := newTestServer(t)
	_, ticketType := s.onSale("25.00", 2)

	w := s.purchase(s.buyer, ticketType, 2)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp purchaseResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Tickets, 2)
	assert.Equal(t, "50.00", resp.Total)

	w = s.purchase(s.friend, ticketType, 1)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SOLD_OUT", errorCode(t, w))

	w = s.do(http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "blocktix_purchases_total")
}

func TestPurchaseRejectsBadInput(t *testing.T) {
	s := newTestServer(t)
	_, ticketType := s.onSale("25.00", 10)

	w := s.purchase(s.buyer, ticketType, 6)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errorCode(t, w))

	w = s.do(http.MethodPost, "/v1/purchases", &s.buyer, gin.H{"quantity": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRedeemOnlyOnce(t *testing.T) {
	s := newTestServer(t)
	_, ticketType := s.onSale("10.00", 5)
	ticket := s.buyOne(s.buyer, ticketType)

	path := "/v1/tickets/" + ticket.ID.String() + "/redeem"

	w := s.do(http.MethodPost, path, &s.friend, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, path, &s.organizer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, path, &s.organizer, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_USED", errorCode(t, w))
}

func TestTicketQRAndValidate(t *testing.T) {
	s := newTestServer(t)
	_, ticketType := s.onSale("10.00", 5)
	ticket := s.buyOne(s.buyer, ticketType)

	w := s.do(http.MethodGet, "/v1/tickets/"+ticket.ID.String()+"/qr", &s.buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = s.do(http.MethodGet, "/v1/tickets/"+ticket.ID.String()+"/qr", &s.organizer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	signer := helpers.NewTicketSigner(s.cfg.QRSigningSecret)
	qrData := signer.QRData(&ticket)

	w = s.do(http.MethodPost, "/v1/tickets/validate", &s.organizer, gin.H{"qr_data": "garbage"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	forged := helpers.NewTicketSigner("someone-else").QRData(&ticket)
	w = s.do(http.MethodPost, "/v1/tickets/validate", &s.organizer, gin.H{"qr_data": forged})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/v1/tickets/validate", &s.organizer, gin.H{"qr_data": qrData})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Test Event")

	w = s.do(http.MethodPost, "/v1/tickets/validate", &s.organizer, gin.H{"qr_data": qrData})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ALREADY_USED", errorCode(t, w))
}

func TestTransferInvalidatesOldCode(t *testing.T) {
	s := newTestServer(t)
	_, ticketType := s.onSale("10.00", 5)
	ticket := s.buyOne(s.buyer, ticketType)
	oldCode := helpers.NewTicketSigner(s.cfg.QRSigningSecret).QRData(&ticket)

	w := s.do(http.MethodPost, "/v1/tickets/"+ticket.ID.String()+"/transfer", &s.buyer, gin.H{"to": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "RECIPIENT_NOT_FOUND", errorCode(t, w))

	w = s.do(http.MethodPost, "/v1/tickets/"+ticket.ID.String()+"/transfer", &s.buyer, gin.H{"to": s.friend.Email})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Ticket models.Ticket `json:"ticket"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, s.friend.ID, resp.Ticket.HolderID)

	w = s.do(http.MethodGet, "/v1/tickets", &s.friend, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), resp.Ticket.ID.String())

	w = s.do(http.MethodPost, "/v1/tickets/validate", &s.organizer, gin.H{"qr_data": oldCode})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/v1/tickets/"+ticket.ID.String()+"/transfer", &s.buyer, gin.H{"to": s.admin.Email})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/v1/tickets/"+ticket.ID.String()+"/transfer", &s.friend, gin.H{"to": s.admin.Email})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "INVALID_TRANSITION", errorCode(t, w))
}

func TestRefund(t *testing.T) {
	s := newTestServer(t)
	_, ticketType := s.onSale("10.00", 1)
	ticket := s.buyOne(s.buyer, ticketType)

	w := s.do(http.MethodPost, "/v1/tickets/"+ticket.ID.String()+"/refund", &s.buyer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/v1/tickets/"+ticket.ID.String()+"/refund", &s.buyer, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.purchase(s.friend, ticketType, 1)
	assert.Equal(t, http.StatusCreated, w.Code)
}

func eventForm(title, status string) url.Values {
	return url.Values{
		"title":          {title},
		"description":    {"Live on stage"},
		"starts_at":      {time.Now().Add(48 * time.Hour).UTC().Format(time.RFC3339)},
		"location":       {"Main Hall"},
		"category":       {"Music"},
		"status":         {status},
		"total_capacity": {"50"},
	}
}

func (s *testServer) postForm(method, path string, as models.User, form url.Values) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+s.token(as))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func TestEventLifecycle(t *testing.T) {
	s := newTestServer(t)

	w := s.postForm(http.MethodPost, "/v1/events", s.buyer, eventForm("Nope", "on_sale"))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.postForm(http.MethodPost, "/v1/events", s.organizer, eventForm("Jazz Night", "draft"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		EventID string `json:"event_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	eventPath := "/v1/events/" + created.EventID

	w = s.do(http.MethodGet, eventPath, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, eventPath, &s.organizer, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.postForm(http.MethodPut, eventPath, s.organizer, eventForm("Jazz Night", "on_sale"))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, eventPath+"/ticket-types", &s.organizer, gin.H{
		"name":     "Standard",
		"price":    "15.00",
		"quantity": 40,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(http.MethodPost, eventPath+"/ticket-types", &s.organizer, gin.H{
		"name":     "Overflow",
		"price":    "15.00",
		"quantity": 20,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/v1/events?category=music", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Total  int64          `json:"total"`
		Events []models.Event `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.EqualValues(t, 1, list.Total)
	assert.Equal(t, "Jazz Night", list.Events[0].Title)

	w = s.do(http.MethodGet, eventPath, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Standard")

	w = s.do(http.MethodGet, "/v1/events/mine", &s.organizer, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/v1/categories", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "music")

	w = s.do(http.MethodDelete, eventPath, &s.buyer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodDelete, eventPath, &s.organizer, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAttendeeList(t *testing.T) {
	s := newTestServer(t)
	event, ticketType := s.onSale("10.00", 5)
	s.buyOne(s.buyer, ticketType)

	w := s.do(http.MethodGet, "/v1/events/"+event.ID.String()+"/tickets", &s.buyer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/v1/events/"+event.ID.String()+"/tickets", &s.organizer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
}

func TestDashboardAndAdmin(t *testing.T) {
	s := newTestServer(t)
	_, ticketType := s.onSale("10.00", 5)
	s.buyOne(s.buyer, ticketType)

	w := s.do(http.MethodGet, "/v1/dashboard", &s.buyer, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/v1/dashboard", &s.organizer, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"tickets_sold":1`)

	rolePath := "/v1/admin/users/" + s.buyer.ID.String() + "/role"

	w = s.do(http.MethodPut, rolePath, &s.organizer, gin.H{"role_name": models.RoleOrganizer})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPut, rolePath, &s.admin, gin.H{"role_name": models.RoleOrganizer})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var updated models.User
	require.NoError(t, s.db.Preload("Role").First(&updated, "id = ?", s.buyer.ID).Error)
	assert.Equal(t, models.RoleOrganizer, updated.Role.Name)
}

var avatarPNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func (s *testServer) updateProfile(as models.User, fullName string, avatar []byte) *httptest.ResponseRecorder {
	s.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(s.t, mw.WriteField("full_name", fullName))
	if avatar != nil {
		part, err := mw.CreateFormFile("avatar", "me.png")
		require.NoError(s.t, err)
		_, err = part.Write(avatar)
		require.NoError(s.t, err)
	}
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPut, "/v1/profile", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token(as))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

type profileResponse struct {
	User models.User `json:"user"`
}

func TestUpdateProfile(t *testing.T) {
	s := newTestServer(t)

	w := s.updateProfile(s.buyer, "Buyer One", avatarPNG)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var first profileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))
	assert.Equal(t, "Buyer One", first.User.FullName)
	require.True(t, strings.HasPrefix(first.User.AvatarURL, "/uploads/avatars/"), first.User.AvatarURL)

	w = s.do(http.MethodGet, first.User.AvatarURL, nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.updateProfile(s.buyer, "Buyer Renamed", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var renamed profileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &renamed))
	assert.Equal(t, first.User.AvatarURL, renamed.User.AvatarURL)

	w = s.updateProfile(s.buyer, "Buyer Renamed", avatarPNG)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var replaced profileResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &replaced))
	assert.NotEqual(t, first.User.AvatarURL, replaced.User.AvatarURL)

	w = s.do(http.MethodGet, first.User.AvatarURL, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.updateProfile(s.buyer, "Buyer Renamed", []byte("plain text, not an image"))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.updateProfile(s.buyer, "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/v1/profile", &s.buyer, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Buyer Renamed")
	assert.Contains(t, w.Body.String(), `"tickets":0`)
}
