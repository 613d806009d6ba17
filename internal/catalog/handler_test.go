package catalog

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func makeAppWithCatalogHandler(h *Handler) *fiber.App {
	app := fiber.New()
	h.RegisterPublicRoutes(app)
	h.RegisterProtectedRoutes(app)
	return app
}

func TestVariantRoutes(t *testing.T) {
	repo := NewInMemoryRepository([]Variant{
		{ID: 1, ProductName: "Hoodie", Size: "M", Color: "black", UnitPrice: 100, DiscountPct: 10, Stock: 5, IsActive: true},
	})
	handler := NewHandler(NewService(repo))
	app := makeAppWithCatalogHandler(handler)

	// list includes the derived final price
	req := httptest.NewRequest("GET", "/api/v1/variants", nil)
	res, err := app.Test(req)
	if err != nil {
		t.Fatalf("list request failed: %v", err)
	}
	if res.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for list, got %d", res.StatusCode)
	}
	b, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(b), `"finalPrice":90`) {
		t.Fatalf("list response missing derived final price: %s", string(b))
	}

	// detail by id
	req2 := httptest.NewRequest("GET", "/api/v1/variants/1", nil)
	res2, _ := app.Test(req2)
	if res2.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for detail, got %d", res2.StatusCode)
	}

	// unknown id
	req3 := httptest.NewRequest("GET", "/api/v1/variants/99", nil)
	res3, _ := app.Test(req3)
	if res3.StatusCode != fiber.StatusNotFound {
		t.Fatalf("expected 404 for unknown variant, got %d", res3.StatusCode)
	}

	// create rejects a discount above 100 percent
	req4 := httptest.NewRequest("POST", "/api/v1/admin/variants", strings.NewReader(`{"productName":"Cap","unitPrice":25,"discountPercent":120}`))
	req4.Header.Set("Content-Type", "application/json")
	res4, _ := app.Test(req4)
	if res4.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for bad discount, got %d", res4.StatusCode)
	}

	// create a valid variant
	req5 := httptest.NewRequest("POST", "/api/v1/admin/variants", strings.NewReader(`{"productName":"Cap","unitPrice":25,"stock":3,"isActive":true}`))
	req5.Header.Set("Content-Type", "application/json")
	res5, _ := app.Test(req5)
	if res5.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201 for create, got %d", res5.StatusCode)
	}
	b5, _ := io.ReadAll(res5.Body)
	if !strings.Contains(string(b5), "Cap") {
		t.Fatalf("create response unexpected: %s", string(b5))
	}

	// admin update must not be able to write stock directly
	req6 := httptest.NewRequest("PUT", "/api/v1/admin/variants/1", strings.NewReader(`{"productName":"Hoodie","unitPrice":100,"discountPercent":10,"isActive":true,"stock":999}`))
	req6.Header.Set("Content-Type", "application/json")
	res6, _ := app.Test(req6)
	if res6.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 for update, got %d", res6.StatusCode)
	}
	v, _ := repo.GetByID(1)
	if v.Stock != 5 {
		t.Fatalf("update must leave stock to the ledger, got %d", v.Stock)
	}
}
