package apiclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/go-marketplace-client/apiclient"
	"github.com/jrsteele09/go-marketplace-client/internal/utils"
	"github.com/jrsteele09/go-marketplace-client/resources"
	"github.com/jrsteele09/go-marketplace-client/users"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	server   *httptest.Server
	client   *apiclient.Client
	requests []*http.Request
	bodies   []string
	handler  http.HandlerFunc
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	f := &testFixture{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(strings.NewReader(string(body)))
		f.requests = append(f.requests, r)
		f.bodies = append(f.bodies, string(body))
		f.handler(w, r)
	}))
	t.Cleanup(f.server.Close)
	f.client = apiclient.New(f.server.URL + "/api")
	return f
}

func (f *testFixture) respond(status int, body string) {
	f.handler = func(w http.ResponseWriter, r *http.Request) {
		if body != "" {
			w.Header().Set("Content-Type", "application/json")
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}

func (f *testFixture) lastRequest(t *testing.T) *http.Request {
	t.Helper()
	require.NotEmpty(t, f.requests)
	return f.requests[len(f.requests)-1]
}

// TestLogin_SendsJSONAndParses posts credentials and decodes the session payload
func TestLogin_SendsJSONAndParses(t *testing.T) {
	f := setupTestFixture(t)
	f.respond(http.StatusOK, `{"user":{"id":1,"username":"alice"},"tokens":{"access":"A1","refresh":"R1"}}`)

	resp, err := f.client.Login(context.Background(), "alice", "correctpw")
	require.NoError(t, err)
	require.Equal(t, 1, resp.User.ID)
	require.Equal(t, "A1", resp.Tokens.Access)
	require.Equal(t, "R1", resp.Tokens.Refresh)

	req := f.lastRequest(t)
	require.Equal(t, http.MethodPost, req.Method)
	require.Equal(t, "/api/auth/login/", req.URL.Path)
	require.Equal(t, "application/json", req.Header.Get("Content-Type"))
	require.Empty(t, req.Header.Get("Authorization"))
	require.NotEmpty(t, req.Header.Get("X-Request-ID"))
	require.JSONEq(t, `{"username":"alice","password":"correctpw"}`, f.bodies[0])
}

// TestErrorMessage_Precedence uses error, then detail, then the status line
func TestErrorMessage_Precedence(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		message string
	}{
		{"error field", http.StatusUnauthorized, `{"error":"Invalid credentials"}`, "Invalid credentials"},
		{"detail field", http.StatusForbidden, `{"detail":"You do not have permission to perform this action."}`, "You do not have permission to perform this action."},
		{"both fields", http.StatusBadRequest, `{"error":"first","detail":"second"}`, "first"},
		{"no known field", http.StatusBadRequest, `{"username":["required"]}`, "API request failed: 400 Bad Request"},
		{"not json", http.StatusBadGateway, `<html>bad gateway</html>`, "API request failed: 502 Bad Gateway"},
		{"empty body", http.StatusInternalServerError, ``, "API request failed: 500 Internal Server Error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.respond(tt.status, tt.body)

			_, err := f.client.Login(context.Background(), "alice", "pw")
			require.Error(t, err)
			require.Equal(t, tt.message, err.Error())

			var apiErr *apiclient.APIError
			require.True(t, errors.As(err, &apiErr))
			require.Equal(t, tt.status, apiErr.StatusCode)
			require.Equal(t, tt.status, apiclient.StatusCode(err))
		})
	}
}

// TestFieldErrors exposes serializer validation errors
func TestFieldErrors(t *testing.T) {
	f := setupTestFixture(t)
	f.respond(http.StatusBadRequest, `{"username":["A user with that username already exists."],"password":["too short"]}`)

	_, err := f.client.Register(context.Background(), users.Registration{Username: "alice", Password: "x"})
	var apiErr *apiclient.APIError
	require.True(t, errors.As(err, &apiErr))
	fe := apiErr.FieldErrors()
	require.Equal(t, []string{"A user with that username already exists."}, fe["username"])
	require.Len(t, fe, 2)
}

// TestAuthenticatedRequest_BearerWins places the caller's token last
func TestAuthenticatedRequest_BearerWins(t *testing.T) {
	f := setupTestFixture(t)
	f.respond(http.StatusOK, `{"id":5,"username":"bob"}`)

	u, err := f.client.CurrentUser(context.Background(), "A1")
	require.NoError(t, err)
	require.Equal(t, 5, u.ID)
	require.Equal(t, "Bearer A1", f.lastRequest(t).Header.Get("Authorization"))
}

// TestDeleteProperty_NoContent returns without decoding
func TestDeleteProperty_NoContent(t *testing.T) {
	f := setupTestFixture(t)
	f.respond(http.StatusNoContent, "")

	require.NoError(t, f.client.DeleteProperty(context.Background(), "A1", 3))
	req := f.lastRequest(t)
	require.Equal(t, http.MethodDelete, req.Method)
	require.Equal(t, "/api/properties/3/", req.URL.Path)
}

// TestListMarketplaceItems_EnvelopeAndQuery unwraps results and encodes filters
func TestListMarketplaceItems_EnvelopeAndQuery(t *testing.T) {
	f := setupTestFixture(t)
	f.respond(http.StatusOK, `{"results":[{"id":9,"title":"Sofa","price":12000}],"count":1,"next":null,"previous":null}`)

	items, err := f.client.ListMarketplaceItems(context.Background(), resources.MarketplaceFilters{Category: "furniture"}.Values())
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Sofa", items[0].Title)
	require.Equal(t, resources.Money(12000), items[0].Price)
	require.Equal(t, "category=furniture", f.lastRequest(t).URL.RawQuery)
}

// TestListProperties_NoEmptyQuery emits no query string for empty filters
func TestListProperties_NoEmptyQuery(t *testing.T) {
	f := setupTestFixture(t)
	f.respond(http.StatusOK, `[]`)

	_, err := f.client.ListProperties(context.Background(), "", resources.PropertyFilters{Location: ""}.Values())
	require.NoError(t, err)
	req := f.lastRequest(t)
	require.Empty(t, req.URL.RawQuery)
	require.Empty(t, req.Header.Get("Authorization"))
}

// TestUpdateProperty_Partial sends only set fields with PATCH
func TestUpdateProperty_Partial(t *testing.T) {
	f := setupTestFixture(t)
	f.respond(http.StatusOK, `{"id":3,"title":"New title","price":"100.00"}`)

	p, err := f.client.UpdateProperty(context.Background(), "A1", 3, resources.PropertyInput{Title: utils.Ptr("New title")})
	require.NoError(t, err)
	require.Equal(t, "New title", p.Title)
	require.Equal(t, http.MethodPatch, f.lastRequest(t).Method)
	require.JSONEq(t, `{"title":"New title"}`, f.bodies[0])
}

// TestUploadImage_Multipart sends the file under "image" with a multipart type
func TestUploadImage_Multipart(t *testing.T) {
	f := setupTestFixture(t)
	var gotType, gotField, gotFileType string
	f.handler = func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		file, header, err := r.FormFile("image")
		if err == nil {
			gotField = header.Filename
			gotFileType = header.Header.Get("Content-Type")
			file.Close()
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"success":true,"image_url":"/media/uploads/abc.png"}`)
	}

	res, err := f.client.UploadImage(context.Background(), "A1", "photo.png", strings.NewReader("\x89PNG\r\n\x1a\nrest"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(gotType, "multipart/form-data; boundary="))
	require.Equal(t, "photo.png", gotField)
	require.Equal(t, "image/png", gotFileType)
	require.Equal(t, f.server.URL+"/media/uploads/abc.png", f.client.ResolveMediaURL(res.ImageURL))
}

// TestUploadImage_ErrorPrefix uses the upload-specific fallback message
func TestUploadImage_ErrorPrefix(t *testing.T) {
	f := setupTestFixture(t)
	f.respond(http.StatusRequestEntityTooLarge, `{}`)

	_, err := f.client.UploadImage(context.Background(), "A1", "big.jpg", strings.NewReader("x"))
	require.EqualError(t, err, "Image upload failed: 413 Request Entity Too Large")
}

// TestTransportError wraps network failures
func TestTransportError(t *testing.T) {
	f := setupTestFixture(t)
	f.server.Close()

	_, err := f.client.HealthCheck(context.Background())
	var te *apiclient.TransportError
	require.True(t, errors.As(err, &te))
	require.Equal(t, 0, apiclient.StatusCode(err))
}

// TestTimeout surfaces a slow backend as a transport failure
func TestTimeout(t *testing.T) {
	f := setupTestFixture(t)
	f.handler = func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}
	client := apiclient.New(f.server.URL+"/api", apiclient.WithTimeout(50*time.Millisecond))

	_, err := client.HealthCheck(context.Background())
	var te *apiclient.TransportError
	require.True(t, errors.As(err, &te))
}

// TestRefreshAccessToken_Rotation decodes an optional rotated refresh token
func TestRefreshAccessToken_Rotation(t *testing.T) {
	f := setupTestFixture(t)
	f.respond(http.StatusOK, `{"access":"A2"}`)

	out, err := f.client.RefreshAccessToken(context.Background(), "R1")
	require.NoError(t, err)
	require.Equal(t, "A2", out.Access)
	require.Empty(t, out.Refresh)

	var sent map[string]string
	require.NoError(t, json.Unmarshal([]byte(f.bodies[0]), &sent))
	require.Equal(t, "R1", sent["refresh"])
}

// TestResolveMediaURL only rewrites root-relative paths
func TestResolveMediaURL(t *testing.T) {
	require.Equal(t, "http://localhost:8000/media/x.png", apiclient.ResolveMediaURL("http://localhost:8000/api", "/media/x.png"))
	require.Equal(t, "http://localhost:8000/media/x.png", apiclient.ResolveMediaURL("http://localhost:8000/api/", "/media/x.png"))
	require.Equal(t, "https://cdn.example/x.png", apiclient.ResolveMediaURL("http://localhost:8000/api", "https://cdn.example/x.png"))
}
