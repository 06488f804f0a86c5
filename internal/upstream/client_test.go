package upstream

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/types"
)

func testSettings(baseURL string) types.Settings {
	s := types.DefaultSettings()
	s.APIBaseURL = baseURL
	s.APIKey = "secret-key"
	s.InstanceName = "my shop"
	return s
}

func TestCheckNumberSuccess(t *testing.T) {
	var gotPath, gotKey, gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotKey = r.Header.Get("apikey")
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"exists":true,"number":"5511988887777","name":"Ana"}]`))
	}))
	defer srv.Close()

	result, err := New().CheckNumber(context.Background(), testSettings(srv.URL), "5511988887777")
	require.NoError(t, err)
	require.True(t, result.IsWhatsApp)
	require.Equal(t, "5511988887777", result.Number)
	require.Equal(t, "Ana", result.Name)

	require.Equal(t, "/chat/whatsappNumbers/my%20shop", gotPath)
	require.Equal(t, "secret-key", gotKey)
	require.JSONEq(t, `{"numbers":["5511988887777"]}`, gotBody)
}

func TestCheckNumberNotWhatsApp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"exists":false,"number":"5511988887777"}]`))
	}))
	defer srv.Close()

	result, err := New().CheckNumber(context.Background(), testSettings(srv.URL), "5511988887777")
	require.NoError(t, err)
	require.False(t, result.IsWhatsApp)
	require.Empty(t, result.Name)
}

func TestCheckNumberHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := New().CheckNumber(context.Background(), testSettings(srv.URL), "5511988887777")
	require.ErrorIs(t, err, types.ErrUpstreamHTTP)
}

func TestCheckNumberMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := New().CheckNumber(context.Background(), testSettings(srv.URL), "5511988887777")
	require.ErrorIs(t, err, types.ErrUpstreamMalformed)
}

func TestCheckNumberUnexpectedShape(t *testing.T) {
	for _, body := range []string{`[]`, `{"exists":true}`, `[{"number":"x"}]`, `["x"]`} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		_, err := New().CheckNumber(context.Background(), testSettings(srv.URL), "5511988887777")
		require.ErrorIs(t, err, types.ErrUpstreamShape, "body %s", body)
		srv.Close()
	}
}

func TestCheckNumberUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused

	_, err := New().CheckNumber(context.Background(), testSettings(srv.URL), "5511988887777")
	require.ErrorIs(t, err, types.ErrUpstreamUnreachable)
}

func TestCheckNumberResponseExpr(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"results":[{"exists":true,"number":"5511988887777","name":"Ana"}]}}`))
	}))
	defer srv.Close()

	s := testSettings(srv.URL)
	s.ResponseExpr = "data.results[0]"
	result, err := New().CheckNumber(context.Background(), s, "5511988887777")
	require.NoError(t, err)
	require.True(t, result.IsWhatsApp)
	require.Equal(t, "Ana", result.Name)
}

func TestConnectionState(t *testing.T) {
	var gotPath string
	state := "open"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		require.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"instance":{"state":"` + state + `"}}`))
	}))
	defer srv.Close()

	connected, got, err := New().ConnectionState(context.Background(), testSettings(srv.URL))
	require.NoError(t, err)
	require.True(t, connected)
	require.Equal(t, "open", got)
	require.Equal(t, "/instance/connectionState/my%20shop", gotPath)

	state = "close"
	connected, got, err = New().ConnectionState(context.Background(), testSettings(srv.URL))
	require.NoError(t, err)
	require.False(t, connected)
	require.Equal(t, "close", got)
}

func TestConnectionStateShapeAndConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"instance":{}}`))
	}))
	defer srv.Close()

	_, _, err := New().ConnectionState(context.Background(), testSettings(srv.URL))
	require.ErrorIs(t, err, types.ErrUpstreamShape)

	_, _, err = New().ConnectionState(context.Background(), types.DefaultSettings())
	require.ErrorIs(t, err, types.ErrNotConfigured)
}

func TestCustomBuildRequestHook(t *testing.T) {
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Tenant")
		_, _ = w.Write([]byte(`[{"exists":true,"number":"1"}]`))
	}))
	defer srv.Close()

	c := New(WithBuildRequest(func(ctx context.Context, s types.Settings, phone string) (*http.Request, error) {
		req, err := BuildCheckRequest(ctx, s, phone)
		if err != nil {
			return nil, err
		}
		req.Header.Set("X-Tenant", "loja-1")
		return req, nil
	}))
	_, err := c.CheckNumber(context.Background(), testSettings(srv.URL), "5511988887777")
	require.NoError(t, err)
	require.Equal(t, "loja-1", gotHeader)
}
