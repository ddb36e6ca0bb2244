package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestIsValidID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"dec_a1b2c3d4", true},
		{"cust-42", true},
		{"CUST.2020:9", true},
		{"a", true},

		// Invalid cases
		{"", false},
		{"has space", false},
		{"tab\tchar", false},
		{"null\x00byte", false},
		{"slash/es", false},
		{strings.Repeat("x", 65), false}, // Too long
	}

	for _, tc := range tests {
		result := IsValidID(tc.id)
		if result != tc.valid {
			t.Errorf("IsValidID(%q) = %v, want %v", tc.id, result, tc.valid)
		}
	}
}

func TestIDParamMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET("/decisions/:id", IDParamMiddleware(), func(c *gin.Context) {
		c.String(200, "ok")
	})

	req := httptest.NewRequest("GET", "/decisions/dec_a1b2c3", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("valid id status = %d, want %d", w.Code, http.StatusOK)
	}

	req = httptest.NewRequest("GET", "/decisions/"+strings.Repeat("x", 70), nil)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("invalid id status = %d, want %d", w.Code, http.StatusBadRequest)
	}
}

func TestRequestSizeMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(RequestSizeMiddleware(16))
	router.POST("/echo", func(c *gin.Context) {
		if _, err := c.GetRawData(); err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too large")
			return
		}
		c.String(200, "ok")
	})

	req := httptest.NewRequest("POST", "/echo", strings.NewReader("small"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("small body status = %d, want %d", w.Code, http.StatusOK)
	}

	req = httptest.NewRequest("POST", "/echo", strings.NewReader(strings.Repeat("x", 64)))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("large body status = %d, want %d", w.Code, http.StatusRequestEntityTooLarge)
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"hello", 10, "hello"},
		{"  hello  ", 10, "hello"},
		{"hello world", 5, "hello"},
		{"hello\x00world", 20, "helloworld"},
	}

	for _, tc := range tests {
		result := SanitizeString(tc.input, tc.maxLen)
		if result != tc.expected {
			t.Errorf("SanitizeString(%q, %d) = %q, want %q", tc.input, tc.maxLen, result, tc.expected)
		}
	}
}
