package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/car-storefront-api/internal/api"
	"github.com/car-storefront-api/internal/cache"
	"github.com/car-storefront-api/internal/config"
	"github.com/car-storefront-api/internal/mocks"
	"github.com/car-storefront-api/internal/models"
	"github.com/car-storefront-api/internal/service"
	"github.com/car-storefront-api/internal/settings"
	"github.com/car-storefront-api/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type testEnv struct {
	router  *gin.Engine
	repos   *mocks.Repos
	imports *mocks.MockImportService
	runs    *mocks.MockRunService
	cfg     *config.Config
	token   string
}

func setupTestRouter(t *testing.T, opts ...api.Option) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:            "test-secret",
			TokenTTL:             time.Hour,
			DefaultAdminUsername: "admin",
			DefaultAdminPassword: "admin123",
			LoginRatePerMinute:   6,
			LoginBurst:           3,
		},
		Import: config.ImportConfig{
			MaxUploadSize: 1024 * 1024,
			UploadDir:     t.TempDir(),
		},
		Storage: config.StorageConfig{
			MaxImageSize:  5 * 1024 * 1024,
			MaxImageWidth: 1280,
		},
		Store: config.StoreConfig{WhatsApp: "5511999999999", CORSOrigins: []string{"*"}},
	}

	log := zerolog.Nop()
	repos := mocks.NewRepos()
	services := service.NewServices(repos.Repositories(), cache.Nop{}, cfg, log)

	mockImport := mocks.NewMockImportService()
	mockRun := mocks.NewMockRunService()
	services.Import = mockImport
	services.Run = mockRun

	theme := settings.NewCSSTheme()
	store := settings.New(services.Settings, log, settings.WithTheme(theme))
	services.Settings.AttachStore(store)

	if err := services.Auth.EnsureDefaultAdmin(context.Background()); err != nil {
		t.Fatalf("EnsureDefaultAdmin failed: %v", err)
	}
	login, err := services.Auth.Login(context.Background(), &models.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	uploadDir := t.TempDir()
	local, err := storage.NewLocalStore(uploadDir)
	if err != nil {
		t.Fatalf("NewLocalStore failed: %v", err)
	}
	images := storage.NewImages(local, cfg.Storage.MaxImageWidth, log)

	opts = append([]api.Option{api.WithImages(images, uploadDir), api.WithTheme(theme)}, opts...)
	router := api.NewRouter(services, cfg, log, opts...)

	return &testEnv{
		router:  router,
		repos:   repos,
		imports: mockImport,
		runs:    mockRun,
		cfg:     cfg,
		token:   login.Token,
	}
}

func (e *testEnv) do(method, path string, body any, authed bool) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+e.token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), out); err != nil {
		t.Fatalf("Failed to decode %q: %v", w.Body.String(), err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do("GET", "/health", nil, false)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	decode(t, w, &response)
	if response["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", response["status"])
	}
	if response["service"] != "car-storefront-api" {
		t.Errorf("Expected service name, got %v", response["service"])
	}
}

func TestHealthEndpoint_Unhealthy(t *testing.T) {
	env := setupTestRouter(t, api.WithHealthCheck(func(ctx context.Context) error {
		return errors.New("database down")
	}))

	w := env.do("GET", "/health", nil, false)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := setupTestRouter(t)
	env.repos.Car.Cars["c1"] = &models.Car{ID: "c1", Status: models.CarStatusSold}
	env.repos.Car.Cars["c2"] = &models.Car{ID: "c2", Status: models.CarStatusAvailable}

	w := env.do("GET", "/metrics", nil, false)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response map[string]interface{}
	decode(t, w, &response)

	db := response["database"].(map[string]interface{})
	cars := db["cars"].(map[string]interface{})
	if cars["sold"].(float64) != 1 {
		t.Errorf("Expected 1 sold car, got %v", cars["sold"])
	}
}

func TestAdminRequiresToken(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do("GET", "/api/admin/stats", nil, false)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}

	req := httptest.NewRequest("GET", "/api/admin/stats", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for bad token, got %d", w.Code)
	}

	var body map[string]string
	decode(t, w, &body)
	if body["code"] != "unauthorized" {
		t.Errorf("Expected unauthorized code, got %v", body)
	}
}

func TestLogin(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do("POST", "/api/auth/login", models.LoginRequest{Username: "admin", Password: "admin123"}, false)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.LoginResponse
	decode(t, w, &resp)
	if resp.Token == "" || resp.Username != "admin" {
		t.Errorf("Unexpected login response: %+v", resp)
	}

	w = env.do("POST", "/api/auth/login", models.LoginRequest{Username: "admin", Password: "nope"}, false)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", w.Code)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	env := setupTestRouter(t)

	var last int
	for i := 0; i < env.cfg.Auth.LoginBurst+1; i++ {
		w := env.do("POST", "/api/auth/login", models.LoginRequest{Username: "admin", Password: "wrong"}, false)
		last = w.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("Expected status 429 after burst, got %d", last)
	}
}

func TestSettings_ReplaceUpdatesStoreAndTheme(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do("GET", "/api/settings", nil, false)
	var current models.SiteSettings
	decode(t, w, &current)
	if current.SiteName != "AutoLeilão" {
		t.Errorf("Expected default site name, got %q", current.SiteName)
	}

	next := models.SiteSettings{
		SiteName:      "Auto Center",
		PrimaryColor:  "#0EA5E9",
		StoreWhatsApp: "5521988887777",
	}
	w = env.do("PUT", "/api/admin/settings", next, true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	w = env.do("GET", "/api/settings", nil, false)
	decode(t, w, &current)
	if current.SiteName != "Auto Center" {
		t.Errorf("Expected replaced site name, got %q", current.SiteName)
	}
	if current.WhatsAppMessageTemplate != "" {
		t.Errorf("Replace must not merge old fields, got template %q", current.WhatsAppMessageTemplate)
	}

	w = env.do("GET", "/theme.css", nil, false)
	if !strings.Contains(w.Body.String(), "--primary-color: #0EA5E9;") {
		t.Errorf("Theme not updated: %s", w.Body.String())
	}

	w = env.do("GET", "/api/store-info", nil, false)
	var info models.StoreInfo
	decode(t, w, &info)
	if info.Name != "Auto Center" || info.WhatsApp != "5521988887777" {
		t.Errorf("Unexpected store info: %+v", info)
	}

	w = env.do("PUT", "/api/admin/settings", models.SiteSettings{SiteName: "x", PrimaryColor: "red"}, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for invalid color, got %d", w.Code)
	}
}

func TestCatalogFlow(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do("POST", "/api/admin/sellers", models.SellerInput{Name: "Ana", Phone: "11 9999-0000", WhatsApp: "5511999990000"}, true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var seller models.Seller
	decode(t, w, &seller)

	input := models.CarInput{
		Brand: "Toyota", Model: "Corolla", Year: 2020, Km: 45000, Price: 89900,
		Description: "Único dono", SellerID: "missing",
	}
	w = env.do("POST", "/api/admin/cars", input, true)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 for unknown seller, got %d", w.Code)
	}
	var errBody map[string]string
	decode(t, w, &errBody)
	if errBody["error"] != "Seller not found" {
		t.Errorf("Unexpected error body: %v", errBody)
	}

	input.SellerID = seller.ID
	w = env.do("POST", "/api/admin/cars", input, true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	var car models.Car
	decode(t, w, &car)

	w = env.do("GET", "/api/cars", nil, false)
	if strings.Contains(w.Body.String(), "seller_id") {
		t.Errorf("Public listing must not expose the seller: %s", w.Body.String())
	}
	var public []models.CarPublic
	decode(t, w, &public)
	if len(public) != 1 || public[0].ID != car.ID {
		t.Errorf("Unexpected public listing: %+v", public)
	}

	w = env.do("GET", "/api/cars?status=sold", nil, false)
	decode(t, w, &public)
	if len(public) != 0 {
		t.Errorf("Expected no sold cars, got %d", len(public))
	}

	w = env.do("GET", "/api/cars/"+car.ID+"/contact", nil, false)
	var link models.ContactLink
	decode(t, w, &link)
	if !strings.HasPrefix(link.URL, "https://wa.me/5511999999999?text=") {
		t.Errorf("Unexpected contact link: %s", link.URL)
	}

	w = env.do("DELETE", "/api/admin/sellers/"+seller.ID, nil, true)
	if w.Code != http.StatusConflict {
		t.Errorf("Expected status 409 while cars reference the seller, got %d", w.Code)
	}

	sold := models.CarStatusSold
	w = env.do("PUT", "/api/admin/cars/"+car.ID, models.CarUpdate{Status: &sold}, true)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}

	w = env.do("GET", "/api/admin/stats", nil, true)
	var stats models.Stats
	decode(t, w, &stats)
	if stats.TotalCars != 1 || stats.SoldCars != 1 || stats.TotalSellers != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}

	w = env.do("GET", "/api/admin/cars", nil, true)
	var adminCars []models.CarWithSeller
	decode(t, w, &adminCars)
	if len(adminCars) != 1 || adminCars[0].Seller == nil || adminCars[0].Seller.Name != "Ana" {
		t.Errorf("Admin listing should embed the seller: %+v", adminCars)
	}

	w = env.do("DELETE", "/api/admin/cars/"+car.ID, nil, true)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	w = env.do("GET", "/api/cars/"+car.ID, nil, false)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", w.Code)
	}
}

func TestChangePassword(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do("PUT", "/api/admin/change-password", models.ChangePasswordRequest{CurrentPassword: "admin123", NewPassword: "123"}, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for short password, got %d", w.Code)
	}

	w = env.do("PUT", "/api/admin/change-password", models.ChangePasswordRequest{CurrentPassword: "admin123", NewPassword: "novaSenha1"}, true)
	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
}

func multipartBody(t *testing.T, fields map[string]string, fileName, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	if fileName != "" {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("CreatePart failed: %v", err)
		}
		part.Write(content)
	}
	writer.Close()
	return body, writer.FormDataContentType()
}

func (e *testEnv) upload(path string, body *bytes.Buffer, contentType string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+e.token)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestCreateImport(t *testing.T) {
	env := setupTestRouter(t)
	csvData := []byte("marca,modelo,ano,km,preco,descricao\nFiat,Uno,2010,1,2,ok\n")

	body, ct := multipartBody(t, nil, "estoque.csv", "text/csv", csvData)
	w := env.upload("/api/admin/imports", body, ct, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 without seller, got %d", w.Code)
	}

	body, ct = multipartBody(t, map[string]string{"seller_id": "s1"}, "estoque.xlsx", "text/csv", csvData)
	w = env.upload("/api/admin/imports", body, ct, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for non-CSV file, got %d", w.Code)
	}

	body, ct = multipartBody(t, map[string]string{"seller_id": "s1"}, "estoque.csv", "text/csv", csvData)
	w = env.upload("/api/admin/imports", body, ct, map[string]string{"Idempotency-Key": "abc"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("Expected status 202, got %d: %s", w.Code, w.Body.String())
	}

	var response map[string]interface{}
	decode(t, w, &response)
	if response["run_id"] != "test-run-id" {
		t.Errorf("Expected run_id 'test-run-id', got %v", response["run_id"])
	}

	if len(env.imports.CreatedRuns) != 1 {
		t.Fatalf("Expected 1 created run, got %d", len(env.imports.CreatedRuns))
	}
	created := env.imports.CreatedRuns[0]
	if created.SellerID != "s1" || created.FileName != "estoque.csv" || created.IdempotencyKey != "abc" {
		t.Errorf("Unexpected run request: %+v", created)
	}
	saved, err := os.ReadFile(env.imports.FilePaths[0])
	if err != nil || !bytes.Equal(saved, csvData) {
		t.Errorf("Upload not stored intact: %v", err)
	}
}

func TestCreateImport_IdempotencyKey(t *testing.T) {
	env := setupTestRouter(t)
	env.runs.Runs["existing"] = &models.ImportRunResponse{
		ImportRun: models.ImportRun{ID: "existing", IdempotencyKey: "same-key", Status: models.ImportRunCompleted},
	}

	body, ct := multipartBody(t, map[string]string{"seller_id": "s1"}, "estoque.csv", "text/csv", []byte("x"))
	w := env.upload("/api/admin/imports", body, ct, map[string]string{"Idempotency-Key": "same-key"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200 for replayed key, got %d", w.Code)
	}

	var run models.ImportRun
	decode(t, w, &run)
	if run.ID != "existing" {
		t.Errorf("Expected existing run, got %q", run.ID)
	}
	if len(env.imports.CreatedRuns) != 0 {
		t.Error("No new run should be created")
	}
}

func TestGetImportStatus(t *testing.T) {
	env := setupTestRouter(t)
	env.runs.Runs["run-123"] = &models.ImportRunResponse{
		ImportRun: models.ImportRun{
			ID:           "run-123",
			Status:       models.ImportRunCompleted,
			TotalRows:    10,
			SuccessCount: 9,
			FailedCount:  1,
		},
		Errors: []models.RowError{{Line: 4, Vehicle: "Chevrolet Onix", Message: "invalid status"}},
	}

	w := env.do("GET", "/api/admin/imports/run-123", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}

	var response models.ImportRunResponse
	decode(t, w, &response)
	if response.ID != "run-123" || response.SuccessCount != 9 {
		t.Errorf("Unexpected run: %+v", response.ImportRun)
	}
	if len(response.Errors) != 1 || response.Errors[0].Line != 4 {
		t.Errorf("Unexpected errors: %+v", response.Errors)
	}

	w = env.do("GET", "/api/admin/imports/nonexistent", nil, true)
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestGetImportErrors(t *testing.T) {
	env := setupTestRouter(t)
	env.runs.Runs["run-errors"] = &models.ImportRunResponse{ImportRun: models.ImportRun{ID: "run-errors"}}
	env.runs.Errors["run-errors"] = []models.RowError{
		{Line: 3, Vehicle: "Fiat Uno", Message: "brand is required"},
		{Line: 7, Vehicle: "Ford Ka", Message: "invalid status, must be one of: available, reserved, sold"},
	}

	w := env.do("GET", "/api/admin/imports/run-errors/errors", nil, true)
	var response map[string]interface{}
	decode(t, w, &response)
	if response["error_count"].(float64) != 2 {
		t.Errorf("Expected 2 errors, got %v", response["error_count"])
	}

	w = env.do("GET", "/api/admin/imports/run-errors/errors?format=csv", nil, true)
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("Expected CSV content type, got %s", ct)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header plus 2 lines, got %d", len(lines))
	}
	if lines[2] != `7,Ford Ka,"invalid status, must be one of: available, reserved, sold"` {
		t.Errorf("Unexpected CSV line: %s", lines[2])
	}

	w = env.do("GET", "/api/admin/imports/run-errors/errors?format=xml", nil, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for unknown format, got %d", w.Code)
	}
}

func TestCancelImport(t *testing.T) {
	env := setupTestRouter(t)
	env.runs.Runs["run-1"] = &models.ImportRunResponse{ImportRun: models.ImportRun{ID: "run-1", Status: models.ImportRunProcessing}}

	w := env.do("POST", "/api/admin/imports/run-1/cancel", nil, true)
	if w.Code != http.StatusAccepted {
		t.Errorf("Expected status 202, got %d", w.Code)
	}
	if len(env.runs.Cancelled) != 1 || env.runs.Cancelled[0] != "run-1" {
		t.Errorf("Expected run-1 cancelled, got %v", env.runs.Cancelled)
	}
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 220, G: 38, B: 38, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode failed: %v", err)
	}
	return buf.Bytes()
}

func TestUploadImage(t *testing.T) {
	env := setupTestRouter(t)

	body, ct := multipartBody(t, nil, "carro.png", "image/png", pngBytes(t, 64, 32))
	w := env.upload("/api/admin/upload-image", body, ct, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var response map[string]string
	decode(t, w, &response)
	url := response["url"]
	if !strings.HasPrefix(url, "/uploads/images/") || !strings.HasSuffix(url, ".jpg") {
		t.Fatalf("Unexpected image URL %q", url)
	}

	w = env.do("GET", url, nil, false)
	if w.Code != http.StatusOK {
		t.Errorf("Uploaded image should be served, got %d", w.Code)
	}

	body, ct = multipartBody(t, nil, "notes.txt", "text/plain", []byte("hello"))
	w = env.upload("/api/admin/upload-image", body, ct, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for non-image, got %d", w.Code)
	}
}

func TestTemplateDownload(t *testing.T) {
	env := setupTestRouter(t)

	w := env.do("GET", "/template_veiculos.csv", nil, false)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if !strings.HasPrefix(w.Body.String(), "marca,modelo,ano,km,preco,descricao") {
		t.Errorf("Unexpected template: %s", w.Body.String())
	}
}

func TestExportCars(t *testing.T) {
	env := setupTestRouter(t)
	env.repos.Car.Cars["c1"] = &models.Car{
		ID: "c1", Brand: "Honda", Model: "Civic", Year: 2021, Km: 42000, Price: 118500,
		Description: "Único dono", Status: models.CarStatusAvailable, Images: []string{"https://img/civic.jpg"},
	}

	w := env.do("GET", "/api/admin/cars/export", nil, true)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("Expected header plus 1 line, got %d", len(lines))
	}
	if lines[1] != "Honda,Civic,2021,42000,118500.00,Único dono,available,false,https://img/civic.jpg,," {
		t.Errorf("Unexpected export line: %s", lines[1])
	}

	w = env.do("GET", "/api/admin/cars/export?format=ndjson", nil, true)
	var row models.CarWithSeller
	decode(t, w, &row)
	if row.ID != "c1" {
		t.Errorf("Unexpected NDJSON row: %+v", row)
	}

	w = env.do("GET", "/api/admin/cars/export?format=pdf", nil, true)
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", w.Code)
	}
}
