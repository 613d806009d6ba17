package address

import (
	"io"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
)

func makeAppWithAddressHandler(a *Handler) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if v := c.Get("X-User-ID"); v != "" {
			id, err := strconv.Atoi(v)
			if err == nil {
				claims := jwt.MapClaims{"user_id": id}
				tok := &jwt.Token{Claims: claims}
				c.Locals("user", tok)
			}
		}
		return c.Next()
	})
	a.RegisterProtectedRoutes(app)
	return app
}

func newAddressApp() *fiber.App {
	seed := map[int][]Address{
		42: {{AddressID: 1, UserID: 42, AddressDesc: "123 Main", Phone: "555-1234", AddressName: "Home"}},
	}
	return makeAppWithAddressHandler(NewHandler(NewService(NewInMemoryRepository(seed))))
}

func doJSON(t *testing.T, app *fiber.App, method, path, userID, body string) (int, string) {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	b, _ := io.ReadAll(res.Body)
	return res.StatusCode, string(b)
}

func TestAddressRoutes_CRUD(t *testing.T) {
	app := newAddressApp()

	code, _ := doJSON(t, app, "GET", "/api/v1/address", "", "")
	if code != fiber.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}

	code, body := doJSON(t, app, "GET", "/api/v1/address", "42", "")
	if code != fiber.StatusOK || !strings.Contains(body, "123 Main") {
		t.Fatalf("list: got %d %s", code, body)
	}

	code, body = doJSON(t, app, "POST", "/api/v1/address", "42", `{"addressDesc":"9 Dock Rd","phone":"555-0042","addressName":"Work"}`)
	if code != fiber.StatusOK || !strings.Contains(body, "9 Dock Rd") {
		t.Fatalf("add: got %d %s", code, body)
	}

	code, body = doJSON(t, app, "PATCH", "/api/v1/address", "42", `{"addressId":2,"addressDesc":"10 Dock Rd"}`)
	if code != fiber.StatusOK || !strings.Contains(body, "10 Dock Rd") {
		t.Fatalf("update: got %d %s", code, body)
	}

	code, _ = doJSON(t, app, "DELETE", "/api/v1/address", "42", `{"addressId":2}`)
	if code != fiber.StatusOK {
		t.Fatalf("delete: got %d", code)
	}
	_, body = doJSON(t, app, "GET", "/api/v1/address", "42", "")
	if strings.Contains(body, "Dock Rd") {
		t.Fatalf("deleted address still listed: %s", body)
	}
}

func TestAddressRoutes_Errors(t *testing.T) {
	app := newAddressApp()

	// another user's address id reads as absent, classified envelope
	code, body := doJSON(t, app, "PATCH", "/api/v1/address", "99", `{"addressId":1,"addressDesc":"hijack"}`)
	if code != fiber.StatusNotFound {
		t.Fatalf("expected 404 for foreign address, got %d %s", code, body)
	}
	if !strings.Contains(body, `"error":"not_found"`) {
		t.Fatalf("expected not_found envelope, got %s", body)
	}

	code, _ = doJSON(t, app, "POST", "/api/v1/address", "42", `{"phone":"only"}`)
	if code != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for empty address, got %d", code)
	}

	code, _ = doJSON(t, app, "DELETE", "/api/v1/address", "42", `{"addressId":0}`)
	if code != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for bad id, got %d", code)
	}
}
