package controllers_test

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yashrajoria/ups-shipping-service/controllers"
	"github.com/yashrajoria/ups-shipping-service/models"
	"github.com/yashrajoria/ups-shipping-service/providers"
	"github.com/yashrajoria/ups-shipping-service/routes"
	"github.com/yashrajoria/ups-shipping-service/services"
	"github.com/yashrajoria/ups-shipping-service/storage"
	"github.com/yashrajoria/ups-shipping-service/templates"
)

const (
	e2eShop = `{"RateResponse":{"RatedShipment":[
  {"Service":{"Code":"01"},"TotalCharges":{"CurrencyCode":"USD","MonetaryValue":"10.00"}},
  {"Service":{"Code":"03"},"TotalCharges":{"CurrencyCode":"USD","MonetaryValue":"7.00"}}
]}}`
	e2eGroundSaver = `{"RateResponse":{"RatedShipment":
  {"Service":{"Code":"93"},"TotalCharges":{"CurrencyCode":"USD","MonetaryValue":"8.00"}}
}}`
)

var e2eLabel = []byte("GIF89a-label-bytes")

type upsStub struct {
	mu    sync.Mutex
	paths []string
	fail  map[string]string
}

func (u *upsStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, _ = io.Copy(io.Discard, r.Body)
	u.mu.Lock()
	u.paths = append(u.paths, r.URL.Path)
	failBody, fail := u.fail[r.URL.Path]
	u.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if fail {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(failBody))
		return
	}
	switch r.URL.Path {
	case "/security/v1/oauth/token":
		_, _ = w.Write([]byte(`{"access_token":"tok-e2e","token_type":"Bearer","expires_in":"14399"}`))
	case "/api/rating/v1/shop":
		_, _ = w.Write([]byte(e2eShop))
	case "/api/rating/v2409/Rate":
		_, _ = w.Write([]byte(e2eGroundSaver))
	case "/api/shipments/v1/ship":
		_, _ = w.Write([]byte(`{"ShipmentResponse":{"ShipmentResults":{
  "ShipmentIdentificationNumber":"1Z999",
  "PackageResults":{"TrackingNumber":"1Z999","ShippingLabel":{"ImageFormat":{"Code":"GIF"},"GraphicImage":"` +
			base64.StdEncoding.EncodeToString(e2eLabel) + `"}}}}}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (u *upsStub) count(path string) int {
	u.mu.Lock()
	defer u.mu.Unlock()
	n := 0
	for _, p := range u.paths {
		if p == path {
			n++
		}
	}
	return n
}

// setupStack wires the real UPS client, service and local label store
// against a stubbed carrier.
func setupStack(t *testing.T, stub *upsStub) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ups := httptest.NewServer(stub)
	t.Cleanup(ups.Close)

	provider := providers.NewUPSProvider(providers.UPSConfig{
		ClientID:      "client",
		ClientSecret:  "secret",
		Sandbox:       true,
		AccountNumber: "A1B2C3",
		SandboxURL:    ups.URL,
		ProductionURL: "http://production.invalid",
	}, nil)

	root := t.TempDir()
	store := storage.NewLocalLabelStore(root, "http://localhost:8092")
	svc := services.NewShippingService(provider, store, nil, "", nil, nil)

	r := gin.New()
	tmpl, err := templates.Load()
	require.NoError(t, err)
	r.SetHTMLTemplate(tmpl)
	routes.RegisterShippingRoutes(r, controllers.NewShippingController(svc, nil))
	routes.RegisterStorageRoutes(r, root)
	return r, root
}

func TestEndToEnd_RatesSortedWithGroundSaver(t *testing.T) {
	stub := &upsStub{}
	r, _ := setupStack(t, stub)

	w := postForm(r, "/shipment/rate", formValues(controllers.DefaultShipment()))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	i7 := strings.Index(body, "$7.00")
	i8 := strings.Index(body, "$8.00")
	i10 := strings.Index(body, "$10.00")
	require.True(t, i7 >= 0 && i8 >= 0 && i10 >= 0, body)
	assert.Less(t, i7, i8)
	assert.Less(t, i8, i10)
	assert.Contains(t, body, "UPS Ground Saver")

	// Shop and ground-saver lookups each authenticate.
	assert.Equal(t, 2, stub.count("/security/v1/oauth/token"))
}

func TestEndToEnd_RatesJSON(t *testing.T) {
	r, _ := setupStack(t, &upsStub{})

	w := postJSON(r, "/shipment/rate", controllers.DefaultShipment())
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Rates []models.Rate `json:"rates"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	codes := make([]string, 0, len(resp.Rates))
	for _, rt := range resp.Rates {
		codes = append(codes, rt.ServiceCode)
	}
	assert.Equal(t, []string{"03", "93", "01"}, codes)
}

func TestEndToEnd_GroundSaverFailureKeepsShopRates(t *testing.T) {
	stub := &upsStub{fail: map[string]string{"/api/rating/v2409/Rate": `{"response":{"errors":[{"code":"111100"}]}}`}}
	r, _ := setupStack(t, stub)

	w := postJSON(r, "/shipment/rate", controllers.DefaultShipment())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"service_code":"03"`)
	assert.Contains(t, w.Body.String(), `"service_code":"01"`)
	assert.NotContains(t, w.Body.String(), `"service_code":"93"`)
}

func TestEndToEnd_ShopFailureShowsCarrierText(t *testing.T) {
	stub := &upsStub{fail: map[string]string{"/api/rating/v1/shop": `{"response":{"errors":[{"code":"111210","message":"The requested service is unavailable between the selected locations."}]}}`}}
	r, _ := setupStack(t, stub)

	w := postForm(r, "/shipment/rate", formValues(controllers.DefaultShipment()))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "The requested service is unavailable between the selected locations.")
}

func TestEndToEnd_CreateShipmentPersistsLabel(t *testing.T) {
	r, root := setupStack(t, &upsStub{})

	req := controllers.DefaultShipment()
	req.SelectedService = "03"
	w := postForm(r, "/shipment/create", formValues(req))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1Z999")
	assert.Contains(t, w.Body.String(), "http://localhost:8092/storage/labels/label_1Z999.gif")

	saved, err := os.ReadFile(filepath.Join(root, "labels", "label_1Z999.gif"))
	require.NoError(t, err)
	assert.Equal(t, e2eLabel, saved)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/storage/labels/label_1Z999.gif", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, e2eLabel, w.Body.Bytes())
}

func TestEndToEnd_CreateShipmentJSON(t *testing.T) {
	r, _ := setupStack(t, &upsStub{})

	w := postJSON(r, "/shipment/create", controllers.DefaultShipment())
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"tracking_number":"1Z999"`)
	assert.Contains(t, w.Body.String(), `"service_code":"03"`)
}

func TestEndToEnd_CreateShipmentFailure(t *testing.T) {
	stub := &upsStub{fail: map[string]string{"/api/shipments/v1/ship": `{"response":{"errors":[{"code":"120100","message":"Missing or invalid shipper number"}]}}`}}
	r, root := setupStack(t, stub)

	w := postForm(r, "/shipment/create", formValues(controllers.DefaultShipment()))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Missing or invalid shipper number")

	_, err := os.Stat(filepath.Join(root, "labels"))
	assert.True(t, os.IsNotExist(err))
}
