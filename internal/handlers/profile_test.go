package handlers_test

import (
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addressBody(label string, isDefault bool) fiber.Map {
	return fiber.Map{
		"label":        label,
		"address_line": "14 MG Road",
		"city":         "Bengaluru",
		"state":        "KA",
		"postal_code":  "560001",
		"is_default":   isDefault,
	}
}

// listAddresses returns label -> is_default for the customer's addresses.
func listAddresses(t *testing.T, s *testServer, token string) map[string]bool {
	t.Helper()

	resp, body := s.request(t, http.MethodGet, "/api/profile/addresses", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	out := make(map[string]bool)
	for _, entry := range body["data"].([]interface{}) {
		addr := entry.(map[string]interface{})
		out[addr["label"].(string)] = addr["is_default"].(bool)
	}
	return out
}

func TestAddressSingleDefaultInvariant(t *testing.T) {
	s := newTestServer(t)
	_, token := s.register(t, "addresses@example.com")

	// the first address becomes the default even when not flagged
	resp, body := s.request(t, http.MethodPost, "/api/profile/addresses", token, addressBody("home", false))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	home := body["data"].(map[string]interface{})
	assert.Equal(t, true, home["is_default"])

	// a second default moves the flag
	resp, body = s.request(t, http.MethodPost, "/api/profile/addresses", token, addressBody("office", true))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	office := body["data"].(map[string]interface{})

	assert.Equal(t, map[string]bool{"home": false, "office": true}, listAddresses(t, s, token))

	t.Run("unsetting the flag on the default is ignored", func(t *testing.T) {
		resp, _ := s.request(t, http.MethodPut, "/api/profile/addresses/"+office["id"].(string), token, addressBody("office", false))
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, map[string]bool{"home": false, "office": true}, listAddresses(t, s, token))
	})

	t.Run("deleting the default promotes the oldest remaining", func(t *testing.T) {
		resp, _ := s.request(t, http.MethodDelete, "/api/profile/addresses/"+office["id"].(string), token, nil)
		require.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, map[string]bool{"home": true}, listAddresses(t, s, token))
	})

	t.Run("another customer's address is out of reach", func(t *testing.T) {
		_, otherToken := s.register(t, "other@example.com")
		resp, _ := s.request(t, http.MethodDelete, "/api/profile/addresses/"+home["id"].(string), otherToken, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestWishlist(t *testing.T) {
	s := newTestServer(t)
	_, token := s.register(t, "wishlist@example.com")
	productID := uuid.New().String()

	resp, _ := s.request(t, http.MethodPost, "/api/profile/wishlist", token, fiber.Map{"product_id": productID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// re-adding is a no-op, not a duplicate
	resp, _ = s.request(t, http.MethodPost, "/api/profile/wishlist", token, fiber.Map{"product_id": productID})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := s.request(t, http.MethodGet, "/api/profile/wishlist", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["data"].([]interface{}), 1)

	resp, _ = s.request(t, http.MethodDelete, "/api/profile/wishlist/"+productID, token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, body = s.request(t, http.MethodGet, "/api/profile/wishlist", token, nil)
	assert.Empty(t, body["data"])
}

func TestSavedCartReplace(t *testing.T) {
	s := newTestServer(t)
	_, token := s.register(t, "cart@example.com")

	first := uuid.New().String()
	second := uuid.New().String()

	resp, _ := s.request(t, http.MethodPut, "/api/profile/cart", token, fiber.Map{
		"items": []fiber.Map{
			{"product_id": first, "size": "M", "quantity": 2},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// a put replaces the whole cart
	resp, _ = s.request(t, http.MethodPut, "/api/profile/cart", token, fiber.Map{
		"items": []fiber.Map{
			{"product_id": second, "size": "L", "quantity": 1},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := s.request(t, http.MethodGet, "/api/profile/cart", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["data"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, second, items[0].(map[string]interface{})["product_id"])

	t.Run("zero quantity rejected", func(t *testing.T) {
		resp, _ := s.request(t, http.MethodPut, "/api/profile/cart", token, fiber.Map{
			"items": []fiber.Map{{"product_id": first, "quantity": 0}},
		})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("empty put clears the cart", func(t *testing.T) {
		resp, _ := s.request(t, http.MethodPut, "/api/profile/cart", token, fiber.Map{"items": []fiber.Map{}})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		_, body := s.request(t, http.MethodGet, "/api/profile/cart", token, nil)
		assert.Empty(t, body["data"])
	})
}
