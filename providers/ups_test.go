package providers_test

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/ups-shipping-service/models"
	"github.com/yashrajoria/ups-shipping-service/providers"
)

// ---- fake UPS API ----

type fakeReply struct {
	status int
	body   string
}

type recorded struct {
	path    string
	host    string
	headers http.Header
	body    []byte
}

type fakeUPS struct {
	mu       sync.Mutex
	replies  map[string]fakeReply
	requests []recorded
}

func newFakeUPS(t *testing.T, replies map[string]fakeReply) (*fakeUPS, *httptest.Server) {
	t.Helper()
	f := &fakeUPS{replies: replies}
	if _, ok := f.replies["/security/v1/oauth/token"]; !ok {
		f.replies["/security/v1/oauth/token"] = fakeReply{http.StatusOK, `{"access_token":"tok-123","token_type":"Bearer","expires_in":"14399"}`}
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, recorded{path: r.URL.Path, host: r.Host, headers: r.Header.Clone(), body: body})
		reply, ok := f.replies[r.URL.Path]
		f.mu.Unlock()
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(reply.status)
		_, _ = w.Write([]byte(reply.body))
	}))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeUPS) calls(path string) []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recorded
	for _, r := range f.requests {
		if r.path == path {
			out = append(out, r)
		}
	}
	return out
}

func newTestProvider(srv *httptest.Server) *providers.UPSProvider {
	return providers.NewUPSProvider(providers.UPSConfig{
		ClientID:      "client",
		ClientSecret:  "secret",
		Sandbox:       true,
		AccountNumber: "A1B2C3",
		SandboxURL:    srv.URL,
		ProductionURL: "http://production.invalid",
	}, nil)
}

func sampleRequest(weight string) *models.ShipmentRequest {
	return &models.ShipmentRequest{
		ShipperName: "Karl Englund", ShipperAddress: "939 Palm Ave", ShipperCity: "West Hollywood",
		ShipperState: "CA", ShipperPostal: "90069", ShipperCountry: "US", ShipperPhone: "555-123-4567",
		RecipientName: "Dawn Englund", RecipientAddress: "426 Dulton Dr", RecipientCity: "Toledo",
		RecipientState: "OH", RecipientPostal: "43615", RecipientCountry: "US",
		Weight: weight, Length: "4", Width: "4", Height: "4",
	}
}

const shopResponse = `{"RateResponse":{"RatedShipment":[
  {"Service":{"Code":"03"},
   "TotalCharges":{"CurrencyCode":"USD","MonetaryValue":"15.20"},
   "NegotiatedRateCharges":{"TotalCharge":{"CurrencyCode":"CAD","MonetaryValue":"11.05"}}},
  {"Service":{"Code":"01"},
   "TotalCharges":{"CurrencyCode":"USD","MonetaryValue":"48.90"},
   "GuaranteedDelivery":{"BusinessDaysInTransit":"1"}}
]}}`

// ---- tests ----

func TestAuthenticate_Success(t *testing.T) {
	fake, srv := newFakeUPS(t, map[string]fakeReply{})
	p := newTestProvider(srv)

	token, err := p.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "tok-123", token)

	calls := fake.calls("/security/v1/oauth/token")
	require.Len(t, calls, 1)
	assert.Equal(t, "wwwcie.ups.com", calls[0].host)
	assert.Equal(t, "Basic "+base64.StdEncoding.EncodeToString([]byte("client:secret")), calls[0].headers.Get("Authorization"))
	assert.Equal(t, "grant_type=client_credentials", string(calls[0].body))
}

func TestAuthenticate_ErrorBodyIsSurfaced(t *testing.T) {
	_, srv := newFakeUPS(t, map[string]fakeReply{
		"/security/v1/oauth/token": {http.StatusUnauthorized, `{"response":{"errors":[{"code":"250003","message":"Invalid Access License number"}]}}`},
	})
	p := newTestProvider(srv)

	_, err := p.Authenticate(context.Background())
	var authErr *providers.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.StatusCode)
	assert.Contains(t, err.Error(), "Invalid Access License number")
}

func TestShopRates_NegotiatedPreferredOverPublished(t *testing.T) {
	fake, srv := newFakeUPS(t, map[string]fakeReply{
		"/api/rating/v1/shop": {http.StatusOK, shopResponse},
	})
	p := newTestProvider(srv)

	rates, err := p.ShopRates(context.Background(), sampleRequest("5"))
	require.NoError(t, err)
	require.Len(t, rates, 2)

	assert.Equal(t, "03", rates[0].ServiceCode)
	assert.Equal(t, "UPS Ground", rates[0].ServiceName)
	assert.InDelta(t, 11.05, rates[0].TotalCharge, 1e-9)
	assert.Equal(t, "CAD", rates[0].Currency)
	assert.Nil(t, rates[0].DeliveryDays)

	assert.Equal(t, "UPS Next Day Air", rates[1].ServiceName)
	assert.InDelta(t, 48.90, rates[1].TotalCharge, 1e-9)
	assert.Equal(t, "USD", rates[1].Currency)
	require.NotNil(t, rates[1].DeliveryDays)
	assert.Equal(t, 1, *rates[1].DeliveryDays)

	calls := fake.calls("/api/rating/v1/shop")
	require.Len(t, calls, 1)
	assert.Equal(t, "Bearer tok-123", calls[0].headers.Get("Authorization"))
	assert.Equal(t, "testing", calls[0].headers.Get("transactionSrc"))
	assert.Len(t, calls[0].headers.Get("transId"), 32)
	assert.Equal(t, "wwwcie.ups.com", calls[0].host)

	var sent map[string]map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(calls[0].body, &sent))
	assert.Equal(t, "Shop", sent["RateRequest"]["Request"]["RequestOption"])
	_, hasService := sent["RateRequest"]["Shipment"]["Service"]
	assert.False(t, hasService)
}

func TestShopRates_EmptyListIsNotAnError(t *testing.T) {
	_, srv := newFakeUPS(t, map[string]fakeReply{
		"/api/rating/v1/shop": {http.StatusOK, `{"RateResponse":{"Response":{}}}`},
	})
	p := newTestProvider(srv)

	rates, err := p.ShopRates(context.Background(), sampleRequest("5"))
	require.NoError(t, err)
	assert.Empty(t, rates)
}

func TestShopRates_CarrierError(t *testing.T) {
	_, srv := newFakeUPS(t, map[string]fakeReply{
		"/api/rating/v1/shop": {http.StatusBadRequest, `{"response":{"errors":[{"code":"111210","message":"The requested service is unavailable"}]}}`},
	})
	p := newTestProvider(srv)

	_, err := p.ShopRates(context.Background(), sampleRequest("5"))
	var rateErr *providers.RateError
	require.ErrorAs(t, err, &rateErr)
	assert.Equal(t, http.StatusBadRequest, rateErr.StatusCode)
	assert.Contains(t, rateErr.Body, "111210")
}

func TestShopRates_AuthFailureIsAuthError(t *testing.T) {
	fake, srv := newFakeUPS(t, map[string]fakeReply{
		"/security/v1/oauth/token": {http.StatusForbidden, "denied"},
	})
	p := newTestProvider(srv)

	_, err := p.ShopRates(context.Background(), sampleRequest("5"))
	var authErr *providers.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Empty(t, fake.calls("/api/rating/v1/shop"))
}

func TestFallbackServiceRate_CodeFollowsWeight(t *testing.T) {
	cases := []struct {
		weight string
		code   string
	}{
		{"0.5", "92"},
		{"1.0", "93"},
		{"5", "93"},
	}
	for _, tc := range cases {
		t.Run(tc.weight, func(t *testing.T) {
			fake, srv := newFakeUPS(t, map[string]fakeReply{
				"/api/rating/v2409/Rate": {http.StatusOK, `{"RateResponse":{"RatedShipment":{"Service":{"Code":"` + tc.code + `"},"TotalCharges":{"CurrencyCode":"USD","MonetaryValue":"8.00"}}}}`},
			})
			p := newTestProvider(srv)

			fb := p.FallbackServiceRate(context.Background(), sampleRequest(tc.weight))
			require.True(t, fb.Available(), fb.Reason)
			assert.Equal(t, tc.code, fb.Rate.ServiceCode)
			assert.InDelta(t, 8.0, fb.Rate.TotalCharge, 1e-9)

			calls := fake.calls("/api/rating/v2409/Rate")
			require.Len(t, calls, 1)
			assert.Contains(t, string(calls[0].body), `"Service":{"Code":"`+tc.code+`"`)
			assert.Contains(t, string(calls[0].body), `"RequestOption":"Rate"`)
		})
	}
}

func TestFallbackServiceRate_NonSuccessIsUnavailable(t *testing.T) {
	_, srv := newFakeUPS(t, map[string]fakeReply{
		"/api/rating/v2409/Rate": {http.StatusBadRequest, `{"response":{"errors":[{"code":"111100","message":"Service is invalid"}]}}`},
	})
	p := newTestProvider(srv)

	fb := p.FallbackServiceRate(context.Background(), sampleRequest("5"))
	assert.False(t, fb.Available())
	assert.Contains(t, fb.Reason, "111100")
}

func TestFallbackServiceRate_MalformedIsUnavailable(t *testing.T) {
	_, srv := newFakeUPS(t, map[string]fakeReply{
		"/api/rating/v2409/Rate": {http.StatusOK, `{"RateResponse":`},
	})
	p := newTestProvider(srv)

	fb := p.FallbackServiceRate(context.Background(), sampleRequest("5"))
	assert.False(t, fb.Available())
	assert.NotEmpty(t, fb.Reason)
}

func TestFallbackServiceRate_AuthFailureIsUnavailable(t *testing.T) {
	_, srv := newFakeUPS(t, map[string]fakeReply{
		"/security/v1/oauth/token": {http.StatusInternalServerError, "boom"},
	})
	p := newTestProvider(srv)

	fb := p.FallbackServiceRate(context.Background(), sampleRequest("0.5"))
	assert.False(t, fb.Available())
}

func TestCreateShipment_DecodesLabel(t *testing.T) {
	label := []byte("GIF89a-fake-label")
	resp := `{"ShipmentResponse":{"ShipmentResults":{"PackageResults":{"TrackingNumber":"1Z999","ShippingLabel":{"ImageFormat":{"Code":"GIF"},"GraphicImage":"` +
		base64.StdEncoding.EncodeToString(label) + `"}}}}}`
	fake, srv := newFakeUPS(t, map[string]fakeReply{
		"/api/shipments/v1/ship": {http.StatusOK, resp},
	})
	p := newTestProvider(srv)

	req := sampleRequest("5")
	req.SelectedService = "93"
	result, err := p.CreateShipment(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "1Z999", result.TrackingNumber)
	assert.Equal(t, "93", result.ServiceCode)
	assert.Equal(t, "UPS Ground Saver", result.ServiceName)
	assert.Equal(t, label, result.LabelBytes)

	calls := fake.calls("/api/shipments/v1/ship")
	require.Len(t, calls, 1)
	body := string(calls[0].body)
	assert.Contains(t, body, `"ShipperNumber":"A1B2C3"`)
	assert.Contains(t, body, `"LabelImageFormat":{"Code":"GIF","Description":"GIF"}`)
	assert.Contains(t, body, `"SubVersion":"1801"`)
}

func TestCreateShipment_DefaultsToGround(t *testing.T) {
	resp := `{"ShipmentResponse":{"ShipmentResults":{"PackageResults":[{"TrackingNumber":"1Z000","ShippingLabel":{"GraphicImage":"R0lG"}}]}}}`
	fake, srv := newFakeUPS(t, map[string]fakeReply{
		"/api/shipments/v1/ship": {http.StatusOK, resp},
	})
	p := newTestProvider(srv)

	result, err := p.CreateShipment(context.Background(), sampleRequest("5"))
	require.NoError(t, err)
	assert.Equal(t, "03", result.ServiceCode)
	assert.Equal(t, "UPS Ground", result.ServiceName)
	assert.True(t, strings.Contains(string(fake.calls("/api/shipments/v1/ship")[0].body), `"Service":{"Code":"03","Description":"UPS Ground"}`))
}

func TestCreateShipment_Failures(t *testing.T) {
	cases := map[string]fakeReply{
		"carrier rejects":  {http.StatusBadRequest, `{"response":{"errors":[{"code":"120100","message":"Missing or invalid shipper number"}]}}`},
		"missing tracking": {http.StatusOK, `{"ShipmentResponse":{"ShipmentResults":{"PackageResults":{"ShippingLabel":{"GraphicImage":"R0lG"}}}}}`},
		"missing label":    {http.StatusOK, `{"ShipmentResponse":{"ShipmentResults":{"PackageResults":{"TrackingNumber":"1Z1"}}}}`},
		"bad base64":       {http.StatusOK, `{"ShipmentResponse":{"ShipmentResults":{"PackageResults":{"TrackingNumber":"1Z1","ShippingLabel":{"GraphicImage":"%%%"}}}}}`},
		"no results":       {http.StatusOK, `{"ShipmentResponse":{}}`},
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			_, srv := newFakeUPS(t, map[string]fakeReply{"/api/shipments/v1/ship": reply})
			p := newTestProvider(srv)

			result, err := p.CreateShipment(context.Background(), sampleRequest("5"))
			assert.Nil(t, result)
			var shipErr *providers.ShipmentError
			require.ErrorAs(t, err, &shipErr)
		})
	}
}

func TestEveryCallReauthenticates(t *testing.T) {
	fake, srv := newFakeUPS(t, map[string]fakeReply{
		"/api/rating/v1/shop":    {http.StatusOK, shopResponse},
		"/api/rating/v2409/Rate": {http.StatusBadRequest, "{}"},
	})
	p := newTestProvider(srv)

	_, err := p.ShopRates(context.Background(), sampleRequest("5"))
	require.NoError(t, err)
	_ = p.FallbackServiceRate(context.Background(), sampleRequest("5"))
	_, err = p.ShopRates(context.Background(), sampleRequest("5"))
	require.NoError(t, err)

	assert.Len(t, fake.calls("/security/v1/oauth/token"), 3)
}

func TestProductionHostHeader(t *testing.T) {
	fake, srv := newFakeUPS(t, map[string]fakeReply{})
	p := providers.NewUPSProvider(providers.UPSConfig{
		ClientID: "c", ClientSecret: "s", Sandbox: false,
		ProductionURL: srv.URL + "/", SandboxURL: "http://sandbox.invalid",
	}, nil)

	_, err := p.Authenticate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "onlinetools.ups.com", fake.calls("/security/v1/oauth/token")[0].host)
}

func TestTransportErrorIsTyped(t *testing.T) {
	_, srv := newFakeUPS(t, map[string]fakeReply{})
	p := newTestProvider(srv)
	srv.Close()

	_, err := p.Authenticate(context.Background())
	var authErr *providers.AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Error(t, errors.Unwrap(err))
}
