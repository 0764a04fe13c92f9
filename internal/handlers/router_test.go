package handlers_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/DaniDevGS/triven-shop/internal/auth"
	"github.com/DaniDevGS/triven-shop/internal/cart"
	"github.com/DaniDevGS/triven-shop/internal/catalog"
	"github.com/DaniDevGS/triven-shop/internal/db/dbtest"
	"github.com/DaniDevGS/triven-shop/internal/events"
	"github.com/DaniDevGS/triven-shop/internal/exchange"
	"github.com/DaniDevGS/triven-shop/internal/handlers"
	"github.com/DaniDevGS/triven-shop/internal/notifier"
	"github.com/DaniDevGS/triven-shop/internal/orders"
	"github.com/DaniDevGS/triven-shop/internal/session"
	"github.com/DaniDevGS/triven-shop/internal/uploads"
)

type testEnv struct {
	router   *gin.Engine
	db       *gorm.DB
	events   *events.Memory
	notifier *notifier.Dispatcher
}

func setupRouter(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn := dbtest.Open(t)
	store := uploads.NewStore(t.TempDir())
	rates := exchange.Static{Value: decimal.NewFromInt(40), Valid: true}
	products := catalog.NewService(conn, store, rates)
	published := &events.Memory{}
	dispatcher := notifier.NewDispatcher(nil, nil, published)
	sessions := session.NewMemoryStore()

	r := handlers.API(handlers.Deps{
		Auth:           auth.NewService(conn, sessions, []string{"manager"}),
		Catalog:        products,
		Cart:           cart.NewService(products, rates),
		Orders:         orders.NewService(conn, store),
		Sessions:       sessions,
		Notifier:       dispatcher,
		Uploads:        store,
		SessionSecret:  "test-secret-key",
		WhatsAppNumber: "584121834638",
	})

	return &testEnv{router: r, db: conn, events: published, notifier: dispatcher}
}

// client replays the cookies it was given, like a browser.
type client struct {
	t       *testing.T
	router  http.Handler
	cookies map[string]*http.Cookie
}

func (e *testEnv) newClient(t *testing.T) *client {
	return &client{t: t, router: e.router, cookies: map[string]*http.Cookie{}}
}

func (cl *client) do(req *http.Request) *httptest.ResponseRecorder {
	for _, ck := range cl.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	cl.router.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		cl.cookies[ck.Name] = ck
	}
	return w
}

func (cl *client) json(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reqBody []byte
	if body != nil {
		reqBody, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewBuffer(reqBody))
	req.Header.Set("Content-Type", "application/json")
	return cl.do(req)
}

func (cl *client) multipart(method, path string, fields map[string]string, files map[string][][]byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(cl.t, mw.WriteField(k, v))
	}
	for field, contents := range files {
		for _, content := range contents {
			part, err := mw.CreateFormFile(field, "upload.png")
			require.NoError(cl.t, err)
			_, err = part.Write(content)
			require.NoError(cl.t, err)
		}
	}
	require.NoError(cl.t, mw.Close())

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return cl.do(req)
}

func (cl *client) signup(username string) {
	cl.t.Helper()
	w := cl.json(http.MethodPost, "/auth/signup", auth.SignupInput{
		Username:  username,
		Password1: "pa55word!",
		Password2: "pa55word!",
	})
	require.Equal(cl.t, http.StatusCreated, w.Code, w.Body.String())
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 6, 6))))
	return buf.Bytes()
}

type productResponse struct {
	ID             uint             `json:"id"`
	Title          string           `json:"title"`
	Price          decimal.Decimal  `json:"price"`
	Quantity       int              `json:"quantity"`
	Category       string           `json:"category"`
	CoverImage     string           `json:"cover_image"`
	PublishedAt    *string          `json:"published_at"`
	PriceConverted *decimal.Decimal `json:"price_converted"`
	Images         []struct {
		Path string `json:"path"`
	} `json:"images"`
}

// createPublished creates a product through the back-office and publishes it.
func createPublished(t *testing.T, manager *client, title, price, quantity string) productResponse {
	t.Helper()
	w := manager.multipart(http.MethodPost, "/api/admin/products", map[string]string{
		"title":    title,
		"price":    price,
		"quantity": quantity,
		"category": "HIGIENE",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created productResponse
	decode(t, w, &created)

	w = manager.json(http.MethodPost, "/api/admin/products/"+itoa(created.ID)+"/publish", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &created)
	return created
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
