package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/config"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/emergency"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/repository"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/roster"
	"github.com/sysu-ecnc-dev/medroster/backend/internal/voice"
)

const testSecret = "test-secret"

type fakeEmergency struct {
	triggerErr  error
	triggered   []emergency.TriggerInput
	resolved    []int64
	auditLimits []int
}

func (f *fakeEmergency) TriggerRedAlert(_ context.Context, in emergency.TriggerInput) (*domain.RedAlertResult, error) {
	f.triggered = append(f.triggered, in)
	if f.triggerErr != nil {
		return nil, f.triggerErr
	}
	return &domain.RedAlertResult{
		Status:             domain.RedAlertStatusActive,
		EmergencyType:      in.EmergencyType,
		AffectedDepartment: "ICU",
		State:              domain.RedAlertComplete,
		AuditRecorded:      true,
	}, nil
}

func (f *fakeEmergency) ResolveRedAlert(_ context.Context, departmentID int64, resolvedBy string) (*domain.ResolveResult, error) {
	f.resolved = append(f.resolved, departmentID)
	return &domain.ResolveResult{Status: domain.RedAlertStatusResolved, Department: "ICU", ResolvedBy: resolvedBy}, nil
}

func (f *fakeEmergency) FetchAuditLog(_ context.Context, limit int) ([]*domain.AuditLog, error) {
	f.auditLimits = append(f.auditLimits, limit)
	return []*domain.AuditLog{}, nil
}

type fakeRoster struct {
	err error
}

func (f *fakeRoster) CreateAssignment(_ context.Context, in roster.CreateAssignmentInput, _ string) (*domain.Assignment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Assignment{ID: 1, UserID: in.UserID, ShiftID: in.ShiftID, IsEmergency: in.IsEmergency}, nil
}

func (f *fakeRoster) DeleteAssignment(context.Context, int64, string) error {
	return f.err
}

type fakeSynth struct {
	configured bool
	err        error
	requests   []voice.SynthesisRequest
}

func (f *fakeSynth) Configured() bool { return f.configured }

func (f *fakeSynth) Synthesize(_ context.Context, req voice.SynthesisRequest) (*voice.Audio, error) {
	f.requests = append(f.requests, req)
	if !f.configured {
		return nil, voice.ErrNotConfigured
	}
	if f.err != nil {
		return nil, f.err
	}
	return &voice.Audio{Data: []byte("mp3"), ContentType: "audio/mpeg", VoiceID: "v1", ModelID: "m1", Text: req.Text}, nil
}

type fakeAudio map[string][]byte

func (f fakeAudio) Read(name string) ([]byte, error) {
	data, ok := f[name]
	if !ok {
		return nil, voice.ErrAudioNotFound
	}
	return data, nil
}

type fakeMailer struct {
	sent []domain.MailMessage
}

func (f *fakeMailer) Publish(_ context.Context, msg domain.MailMessage) error {
	f.sent = append(f.sent, msg)
	return nil
}

type testEnv struct {
	handler   *Handler
	mock      pgxmock.PgxPoolIface
	emergency *fakeEmergency
	roster    *fakeRoster
	synth     *fakeSynth
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create mock pool: %v", err)
	}
	t.Cleanup(mock.Close)

	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret
	cfg.JWT.Expiration = 1
	cfg.Database.QueryTimeout = 5
	cfg.InitialAdmin.Username = "admin"
	cfg.OpenAI.Model = "gpt-4o"

	env := &testEnv{
		mock:      mock,
		emergency: &fakeEmergency{},
		roster:    &fakeRoster{},
		synth:     &fakeSynth{},
	}

	h, err := NewHandler(cfg, repository.NewRepository(cfg, mock), Services{
		Emergency:   env.emergency,
		Roster:      env.roster,
		Synthesizer: env.synth,
		Audio:       fakeAudio{"emergency_ICU.mp3": []byte("ID3audio")},
		Mailer:      &fakeMailer{},
	})
	if err != nil {
		t.Fatalf("NewHandler returned error: %v", err)
	}
	h.RegisterRoutes()
	env.handler = h

	return env
}

// expectUser 为 myInfo 中间件准备一次用户查询
func (e *testEnv) expectUser(id int64, role domain.Role, active bool) {
	e.mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(pgxmock.NewRows([]string{"username", "password_hash", "full_name", "email", "role", "is_active", "department_id", "created_at", "version"}).
			AddRow("user"+strconv.FormatInt(id, 10), "hash", "Test User", "user@hospital.local", role, active, nil, time.Now(), int32(1)))
}

func (e *testEnv) do(t *testing.T, method, path string, body any, userID int64, role domain.Role) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if userID > 0 {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
			Role: string(role),
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
				Subject:   strconv.FormatInt(userID, 10),
			},
		})
		ss, err := token.SignedString([]byte(testSecret))
		if err != nil {
			t.Fatalf("sign token: %v", err)
		}
		req.AddCookie(&http.Cookie{Name: tokenCookieName, Value: ss})
	}

	rec := httptest.NewRecorder()
	e.handler.Mux.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()

	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func TestAuth_MissingCookie(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/my-info/", nil, 0, "")

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuth_InactiveUser(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.expectUser(7, domain.RoleNurse, false)

	rec := env.do(t, http.MethodGet, "/my-info/", nil, 7, domain.RoleNurse)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestTriggerRedAlert(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.expectUser(1, domain.RoleAdmin, true)

	rec := env.do(t, http.MethodPost, "/emergency/red-alert", map[string]any{
		"emergencyType": "<b>ICU surge</b>",
		"departmentID":  3,
	}, 1, domain.RoleAdmin)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(env.emergency.triggered) != 1 {
		t.Fatalf("expected one trigger, got %d", len(env.emergency.triggered))
	}
	in := env.emergency.triggered[0]
	if in.EmergencyType != "ICU surge" || in.DepartmentID != 3 || in.TriggeredBy != "user@hospital.local" {
		t.Fatalf("unexpected trigger input %+v", in)
	}
	if err := env.mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestTriggerRedAlert_EncodedMarkup(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.expectUser(1, domain.RoleAdmin, true)

	rec := env.do(t, http.MethodPost, "/emergency/red-alert", map[string]any{
		"emergencyType": "&lt;img src=x onerror=alert(1)&gt;Fire",
		"departmentID":  3,
		"notes":         "&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;East wing &amp; lobby",
	}, 1, domain.RoleAdmin)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	in := env.emergency.triggered[0]
	if in.EmergencyType != "Fire" {
		t.Fatalf("expected markup stripped from emergency type, got %q", in.EmergencyType)
	}
	if in.Notes != "East wing & lobby" {
		t.Fatalf("expected notes forwarded without markup, got %q", in.Notes)
	}
}

func TestSanitize(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	tests := []struct {
		in   string
		want string
	}{
		{"<b>ICU surge</b>", "ICU surge"},
		{"&lt;img src=x onerror=alert(1)&gt;Fire", "Fire"},
		{"&amp;lt;b&amp;gt;Flood&amp;lt;/b&amp;gt;", "Flood"},
		{"Fish &amp; Chips", "Fish & Chips"},
		{"  Ob/Gyn  ", "Ob/Gyn"},
	}

	for _, tt := range tests {
		got := env.handler.sanitize(tt.in)
		if got != tt.want {
			t.Errorf("sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if strings.ContainsAny(got, "<>") {
			t.Errorf("sanitize(%q) left markup in %q", tt.in, got)
		}
	}
}

func TestTriggerRedAlert_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "department not found", err: emergency.ErrDepartmentNotFound, want: http.StatusNotFound},
		{name: "already running", err: emergency.ErrRedAlertInProgress, want: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			env.emergency.triggerErr = tt.err
			env.expectUser(1, domain.RoleManager, true)

			rec := env.do(t, http.MethodPost, "/emergency/red-alert", map[string]any{
				"emergencyType": "mass casualty event",
				"departmentID":  99,
			}, 1, domain.RoleManager)

			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			if resp := decodeResponse(t, rec); resp.Success {
				t.Fatalf("expected failure envelope")
			}
		})
	}
}

func TestTriggerRedAlert_RequiresManagement(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.expectUser(5, domain.RoleNurse, true)

	rec := env.do(t, http.MethodPost, "/emergency/red-alert", map[string]any{
		"emergencyType": "ICU surge",
		"departmentID":  3,
	}, 5, domain.RoleNurse)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if len(env.emergency.triggered) != 0 {
		t.Fatalf("pipeline must not run for unauthorized users")
	}
}

func TestTriggerRedAlert_Validation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.expectUser(1, domain.RoleAdmin, true)

	rec := env.do(t, http.MethodPost, "/emergency/red-alert", map[string]any{
		"emergencyType": "<script></script>",
		"departmentID":  3,
	}, 1, domain.RoleAdmin)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestGetAuditLogs_Limit(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)

	env.expectUser(1, domain.RoleAdmin, true)
	if rec := env.do(t, http.MethodGet, "/emergency/audit-logs?limit=abc", nil, 1, domain.RoleAdmin); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	env.expectUser(1, domain.RoleAdmin, true)
	if rec := env.do(t, http.MethodGet, "/emergency/audit-logs?limit=10", nil, 1, domain.RoleAdmin); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	env.expectUser(1, domain.RoleAdmin, true)
	if rec := env.do(t, http.MethodGet, "/emergency/audit-logs", nil, 1, domain.RoleAdmin); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if got := env.emergency.auditLimits; len(got) != 2 || got[0] != 10 || got[1] != 0 {
		t.Fatalf("unexpected limits %v", got)
	}
}

func TestServeVoiceAlert(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		filename string
		want     int
	}{
		{name: "existing", filename: "emergency_ICU.mp3", want: http.StatusOK},
		{name: "missing", filename: "emergency_ER.mp3", want: http.StatusNotFound},
		{name: "traversal", filename: "..emergency.mp3", want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			env.expectUser(2, domain.RoleNurse, true)

			rec := env.do(t, http.MethodGet, "/emergency/voice-alert/"+tt.filename, nil, 2, domain.RoleNurse)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			if tt.want == http.StatusOK {
				if ct := rec.Header().Get("Content-Type"); ct != "audio/mpeg" {
					t.Fatalf("unexpected content type %q", ct)
				}
				if rec.Body.String() != "ID3audio" {
					t.Fatalf("unexpected body %q", rec.Body.String())
				}
			}
		})
	}
}

func TestTextToSpeech(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		configured bool
		err        error
		body       map[string]any
		want       int
	}{
		{name: "not configured", body: map[string]any{"text": "hello"}, want: http.StatusBadRequest},
		{name: "upstream error", configured: true, err: &voice.APIError{StatusCode: 401}, body: map[string]any{"text": "hello"}, want: http.StatusBadGateway},
		{name: "message key", configured: true, body: map[string]any{"message": "Code blue in ICU"}, want: http.StatusOK},
		{name: "missing text", configured: true, body: map[string]any{"voiceID": "v1"}, want: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			env.synth.configured = tt.configured
			env.synth.err = tt.err
			env.expectUser(2, domain.RoleDoctor, true)

			rec := env.do(t, http.MethodPost, "/ai/text-to-speech", tt.body, 2, domain.RoleDoctor)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateAssignment_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "created", want: http.StatusCreated},
		{name: "role mismatch", err: roster.ErrRoleMismatch, want: http.StatusBadRequest},
		{name: "duplicate", err: roster.ErrDuplicateAssignment, want: http.StatusConflict},
		{name: "unknown staff", err: roster.ErrStaffNotFound, want: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			env.roster.err = tt.err
			env.expectUser(1, domain.RoleManager, true)

			rec := env.do(t, http.MethodPost, "/assignments/", map[string]any{
				"userID":  4,
				"shiftID": 10,
			}, 1, domain.RoleManager)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestPublicVoiceUpdate(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.mock.ExpectQuery(regexp.QuoteMeta("FROM departments WHERE id = $1")).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"name", "description", "created_at", "version"}).
			AddRow("Emergency Room", "", time.Now(), int32(1)))
	env.mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM shifts WHERE department_id = $1")).
		WithArgs(int64(2)).
		WillReturnRows(pgxmock.NewRows([]string{"shifts", "assignments"}).AddRow(int64(4), int64(2)))

	rec := env.do(t, http.MethodPost, "/public/voice-update", map[string]any{
		"departmentID": 2,
		"language":     "es",
	}, 0, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			CoveragePct      int    `json:"coveragePct"`
			EstimatedWaitMin int    `json:"estimatedWaitMin"`
			Transcript       string `json:"transcript"`
			SpeechError      string `json:"speechError"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Data.CoveragePct != 50 || resp.Data.EstimatedWaitMin != 35 {
		t.Fatalf("unexpected coverage %+v", resp.Data)
	}
	if resp.Data.Transcript != "Actualización de Emergency Room. Tiempo de espera estimado: 35 minutos. Gracias por su paciencia. Si sus síntomas empeoran, avise al personal de inmediato." {
		t.Fatalf("unexpected transcript %q", resp.Data.Transcript)
	}
	if resp.Data.SpeechError == "" {
		t.Fatalf("expected text-only response when speech is not configured")
	}
	if err := env.mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestEstimatedWaitMinutes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		coverage int
		want     int
	}{
		{coverage: 0, want: 60},
		{coverage: 50, want: 35},
		{coverage: 100, want: 10},
		{coverage: 300, want: 10},
	}

	for _, tt := range tests {
		if got := estimatedWaitMinutes(tt.coverage); got != tt.want {
			t.Errorf("estimatedWaitMinutes(%d) = %d, want %d", tt.coverage, got, tt.want)
		}
	}
}

func TestPublicUpdateText_Fallbacks(t *testing.T) {
	t.Parallel()

	got := publicUpdateText("ICU", "fr", "unknown", 20)
	want := "Safety notice for ICU. Wear a mask if requested and wash hands frequently. Thank you for protecting others."
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}
