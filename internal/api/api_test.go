package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"ims/internal/api/mocks"
	"ims/internal/auth"
	"ims/internal/auth/jwttoken"
	"ims/internal/auth/revocation"
	"ims/internal/eventbus"
	"ims/internal/obsv/metrics"
	"ims/internal/store/memory"
)

// Prometheus collectors register once per process; every test shares
// this instance.
var testMetrics = metrics.New()

type testEnv struct {
	api    *API
	store  *memory.Store
	bus    *eventbus.Bus
	tokens *jwttoken.Service
	dir    *mocks.MockDirectory
	router http.Handler
}

func newTestEnv(t *testing.T, admins ...string) *testEnv {
	t.Helper()

	adminSet := make(map[string]struct{}, len(admins))
	for _, a := range admins {
		adminSet[a] = struct{}{}
	}

	bus := eventbus.New()
	st := memory.New(memory.WithSink(bus))
	require.NoError(t, st.CreateEvent(context.Background(), "2024"))

	tokens := jwttoken.New("test-signing-key", "ims-test")
	ctrl := gomock.NewController(t)
	dir := mocks.NewMockDirectory(ctrl)

	a := New(Deps{
		Logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		Store:         st,
		Directory:     dir,
		Provider:      auth.NewProvider(st, adminSet),
		Tokens:        tokens,
		Revocations:   revocation.NewMemoryList(),
		Bus:           bus,
		Metrics:       testMetrics,
		TokenLifetime: time.Hour,
		Deployment:    "test",
	})

	return &testEnv{api: a, store: st, bus: bus, tokens: tokens, dir: dir, router: a.Router()}
}

func (e *testEnv) bearer(t *testing.T, handle string, groups ...string) string {
	t.Helper()
	token, _, err := e.tokens.Issue(handle, groups, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func (e *testEnv) do(t *testing.T, method, target, body, authorization string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func grantWriters(t *testing.T, e *testEnv, exprs ...string) {
	t.Helper()
	require.NoError(t, e.store.SetWriters(context.Background(), "2024", exprs))
}

func grantReaders(t *testing.T, e *testEnv, exprs ...string) {
	t.Helper()
	require.NoError(t, e.store.SetReaders(context.Background(), "2024", exprs))
}

func TestPing(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/ims/api/ping", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("ETag"))
}

// S1: a fresh incident from an admin-listed user returns 204 with the
// allocated number and resource location, and reads back with
// server-assigned created and state "new".
func TestCreateIncident_S1(t *testing.T) {
	e := newTestEnv(t, "admin")
	token := e.bearer(t, "admin")

	before := time.Now().UTC()
	w := e.do(t, http.MethodPost, "/ims/api/events/2024/incidents/",
		`{"priority":3,"summary":"Test","incident_types":[],"ranger_handles":[]}`, token)

	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())
	assert.Equal(t, "1", w.Header().Get("Incident-Number"))
	assert.Equal(t, "/ims/api/events/2024/incidents/1", w.Header().Get("Location"))

	get := e.do(t, http.MethodGet, "/ims/api/events/2024/incidents/1", "", token)
	require.Equal(t, http.StatusOK, get.Code)
	assert.NotEmpty(t, get.Header().Get("ETag"))

	var got incidentWire
	require.NoError(t, json.Unmarshal(get.Body.Bytes(), &got))
	assert.Equal(t, "new", got.State)
	assert.Equal(t, "Test", got.Summary)
	assert.False(t, got.Created.Before(before.Add(-time.Second)))
	assert.False(t, got.Created.After(time.Now().UTC().Add(time.Second)))
}

// S2: back-to-back creates allocate 1 then 2.
func TestCreateIncident_S2_SequentialNumbers(t *testing.T) {
	e := newTestEnv(t, "admin")
	token := e.bearer(t, "admin")
	body := `{"priority":3,"summary":"Test"}`

	first := e.do(t, http.MethodPost, "/ims/api/events/2024/incidents/", body, token)
	second := e.do(t, http.MethodPost, "/ims/api/events/2024/incidents/", body, token)

	require.Equal(t, http.StatusNoContent, first.Code)
	require.Equal(t, http.StatusNoContent, second.Code)
	assert.Equal(t, "1", first.Header().Get("Incident-Number"))
	assert.Equal(t, "2", second.Header().Get("Incident-Number"))
}

// S3: the readers ACL admits alice and rejects bob.
func TestListIncidents_S3_ReadersACL(t *testing.T) {
	e := newTestEnv(t)
	grantReaders(t, e, "person:alice")

	asAlice := e.do(t, http.MethodGet, "/ims/api/events/2024/incidents/", "", e.bearer(t, "alice"))
	assert.Equal(t, http.StatusOK, asAlice.Code)

	asBob := e.do(t, http.MethodGet, "/ims/api/events/2024/incidents/", "", e.bearer(t, "bob"))
	assert.Equal(t, http.StatusForbidden, asBob.Code)
}

// S4: attach a field report to an incident, then find it by incident.
func TestFieldReport_S4_AttachAndQuery(t *testing.T) {
	e := newTestEnv(t)
	grantWriters(t, e, "person:carol")
	token := e.bearer(t, "carol")

	created := e.do(t, http.MethodPost, "/ims/api/events/2024/incidents/", `{"summary":"hub"}`, token)
	require.Equal(t, http.StatusNoContent, created.Code)

	fr := e.do(t, http.MethodPost, "/ims/api/events/2024/field_reports/", `{"summary":"found a lost bike"}`, token)
	require.Equal(t, http.StatusNoContent, fr.Code)
	number := fr.Header().Get("Field-Report-Number")
	require.NotEmpty(t, number)

	attach := e.do(t, http.MethodPost,
		"/ims/api/events/2024/field_reports/"+number+"?action=attach&event=2024&incident=1", "", token)
	require.Equal(t, http.StatusNoContent, attach.Code, attach.Body.String())

	list := e.do(t, http.MethodGet, "/ims/api/field_reports?event=2024&incident=1", "", token)
	require.Equal(t, http.StatusOK, list.Code)

	var reports []fieldReportWire
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &reports))
	require.Len(t, reports, 1)
	require.NotNil(t, reports[0].Incident)
	assert.Equal(t, 1, *reports[0].Incident)
}

// S4 continued: a cross-event attach is a conflict.
func TestFieldReport_AttachWrongEventConflicts(t *testing.T) {
	e := newTestEnv(t)
	grantWriters(t, e, "person:carol")
	token := e.bearer(t, "carol")

	fr := e.do(t, http.MethodPost, "/ims/api/events/2024/field_reports/", `{"summary":"x"}`, token)
	require.Equal(t, http.StatusNoContent, fr.Code)

	attach := e.do(t, http.MethodPost,
		"/ims/api/events/2024/field_reports/1?action=attach&event=2023&incident=1", "", token)
	assert.Equal(t, http.StatusConflict, attach.Code)
}

// S5: a priority edit journals the change and bumps the version.
func TestEditIncident_S5_JournalAndVersion(t *testing.T) {
	e := newTestEnv(t)
	grantWriters(t, e, "person:dave")
	token := e.bearer(t, "dave")

	created := e.do(t, http.MethodPost, "/ims/api/events/2024/incidents/", `{"summary":"stuck art car"}`, token)
	require.Equal(t, http.StatusNoContent, created.Code)

	before, err := e.store.IncidentWithNumber(context.Background(), "2024", 1)
	require.NoError(t, err)

	edit := e.do(t, http.MethodPost, "/ims/api/events/2024/incidents/1", `{"priority":5}`, token)
	require.Equal(t, http.StatusNoContent, edit.Code, edit.Body.String())

	after, err := e.store.IncidentWithNumber(context.Background(), "2024", 1)
	require.NoError(t, err)
	assert.Equal(t, before.Version+1, after.Version)

	tail := after.ReportEntries[len(after.ReportEntries)-1]
	assert.Equal(t, "Changed priority to: 5", tail.Text)
	assert.True(t, tail.Automatic)
	assert.Equal(t, 5, after.Priority)
}

func TestEditIncident_RejectsImmutableFields(t *testing.T) {
	e := newTestEnv(t)
	grantWriters(t, e, "person:dave")
	token := e.bearer(t, "dave")

	created := e.do(t, http.MethodPost, "/ims/api/events/2024/incidents/", `{}`, token)
	require.Equal(t, http.StatusNoContent, created.Code)

	w := e.do(t, http.MethodPost, "/ims/api/events/2024/incidents/1", `{"number":7}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/ims/api/events/2024/incidents/1",
		`{"created":"2020-01-01T00:00:00Z"}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEditIncident_AppendsReportEntries(t *testing.T) {
	e := newTestEnv(t)
	grantWriters(t, e, "person:dave")
	token := e.bearer(t, "dave")

	created := e.do(t, http.MethodPost, "/ims/api/events/2024/incidents/", `{}`, token)
	require.Equal(t, http.StatusNoContent, created.Code)

	edit := e.do(t, http.MethodPost, "/ims/api/events/2024/incidents/1",
		`{"report_entries":[{"text":"subject located"}]}`, token)
	require.Equal(t, http.StatusNoContent, edit.Code)

	after, err := e.store.IncidentWithNumber(context.Background(), "2024", 1)
	require.NoError(t, err)
	tail := after.ReportEntries[len(after.ReportEntries)-1]
	assert.Equal(t, "subject located", tail.Text)
	assert.False(t, tail.Automatic)
	assert.Equal(t, "dave", tail.Author.String())
}

func TestCreateIncident_RejectsFutureCreated(t *testing.T) {
	e := newTestEnv(t, "admin")
	token := e.bearer(t, "admin")

	future := time.Now().UTC().Add(48 * time.Hour).Format(time.RFC3339)
	w := e.do(t, http.MethodPost, "/ims/api/events/2024/incidents/",
		`{"created":"`+future+`"}`, token)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateIncident_BackdatesToOldestEntry(t *testing.T) {
	e := newTestEnv(t, "admin")
	token := e.bearer(t, "admin")

	old := time.Now().UTC().Add(-2 * time.Hour).Truncate(time.Second)
	body := `{"report_entries":[{"text":"radioed in earlier","created":"` + old.Format(time.RFC3339) + `"}]}`
	w := e.do(t, http.MethodPost, "/ims/api/events/2024/incidents/", body, token)
	require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

	inc, err := e.store.IncidentWithNumber(context.Background(), "2024", 1)
	require.NoError(t, err)
	assert.True(t, inc.Created.Equal(old), "created should backdate to the oldest entry")
}

func TestCreateIncident_FiltersHiddenTypes(t *testing.T) {
	e := newTestEnv(t, "admin")
	token := e.bearer(t, "admin")

	ctx := context.Background()
	require.NoError(t, e.store.CreateIncidentType(ctx, "Medical", false))
	require.NoError(t, e.store.CreateIncidentType(ctx, "Legacy", false))
	require.NoError(t, e.store.HideIncidentTypes(ctx, []string{"Legacy"}))

	w := e.do(t, http.MethodPost, "/ims/api/events/2024/incidents/",
		`{"incident_types":["Medical","Legacy"]}`, token)
	require.Equal(t, http.StatusNoContent, w.Code)

	inc, err := e.store.IncidentWithNumber(ctx, "2024", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"Medical"}, inc.IncidentTypes)
}

func TestCreateIncident_EventMismatchConflicts(t *testing.T) {
	e := newTestEnv(t, "admin")
	token := e.bearer(t, "admin")

	w := e.do(t, http.MethodPost, "/ims/api/events/2024/incidents/", `{"event":"2023"}`, token)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestGetIncident_UnknownIs404(t *testing.T) {
	e := newTestEnv(t)
	grantReaders(t, e, "person:alice")
	w := e.do(t, http.MethodGet, "/ims/api/events/2024/incidents/41", "", e.bearer(t, "alice"))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMalformedJSONIs400(t *testing.T) {
	e := newTestEnv(t, "admin")
	w := e.do(t, http.MethodPost, "/ims/api/events/2024/incidents/", `{bad-json`, e.bearer(t, "admin"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnonymousMutationIs401(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodPost, "/ims/api/events/2024/incidents/", `{}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestBrowserGets302OnAuthFailure(t *testing.T) {
	e := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/ims/api/events/2024/incidents/", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Contains(t, w.Header().Get("Location"), "/ims/auth/login?o=")
}

// Property 5: an attached field report is readable through the
// incident's readers ACL; an unattached one is not visible to a
// reader-only user beyond the baseline.
func TestFieldReportReadFollowsAttachment(t *testing.T) {
	e := newTestEnv(t)
	grantWriters(t, e, "person:carol")
	grantReaders(t, e, "person:alice")
	writer := e.bearer(t, "carol")

	created := e.do(t, http.MethodPost, "/ims/api/events/2024/incidents/", `{}`, writer)
	require.Equal(t, http.StatusNoContent, created.Code)
	fr := e.do(t, http.MethodPost, "/ims/api/events/2024/field_reports/", `{"summary":"narrative"}`, writer)
	require.Equal(t, http.StatusNoContent, fr.Code)

	// alice holds readIncidents but the report is unattached: the
	// baseline readIncidentReports still admits her.
	unattached := e.do(t, http.MethodGet, "/ims/api/events/2024/field_reports/1", "", e.bearer(t, "alice"))
	assert.Equal(t, http.StatusOK, unattached.Code)

	attach := e.do(t, http.MethodPost,
		"/ims/api/events/2024/field_reports/1?action=attach&incident=1", "", writer)
	require.Equal(t, http.StatusNoContent, attach.Code)

	attached := e.do(t, http.MethodGet, "/ims/api/events/2024/field_reports/1", "", e.bearer(t, "alice"))
	assert.Equal(t, http.StatusOK, attached.Code)
}

func TestLogin(t *testing.T) {
	e := newTestEnv(t)

	user := userFixture()
	e.dir.EXPECT().LookupUser(gomock.Any(), "alice").Return(user, true, nil)
	e.dir.EXPECT().VerifyPassword(gomock.Any(), user, "hunter2").Return(true, nil)

	w := e.do(t, http.MethodPost, "/ims/api/auth",
		`{"identification":"alice","password":"hunter2"}`, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp loginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "alice", resp.Handle)
	assert.NotEmpty(t, resp.Token)

	// The issued token works against an authenticated endpoint.
	grantReaders(t, e, "person:alice")
	list := e.do(t, http.MethodGet, "/ims/api/events/2024/incidents/", "", "Bearer "+resp.Token)
	assert.Equal(t, http.StatusOK, list.Code)
}

func TestLogin_BadPassword(t *testing.T) {
	e := newTestEnv(t)

	user := userFixture()
	e.dir.EXPECT().LookupUser(gomock.Any(), "alice").Return(user, true, nil)
	e.dir.EXPECT().VerifyPassword(gomock.Any(), user, "wrong").Return(false, nil)

	w := e.do(t, http.MethodPost, "/ims/api/auth",
		`{"identification":"alice","password":"wrong"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogin_UnknownUser(t *testing.T) {
	e := newTestEnv(t)
	e.dir.EXPECT().LookupUser(gomock.Any(), "nobody").Return(userZero(), false, nil)

	w := e.do(t, http.MethodPost, "/ims/api/auth",
		`{"identification":"nobody","password":"x"}`, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogout_RevokesToken(t *testing.T) {
	e := newTestEnv(t)
	grantReaders(t, e, "person:alice")
	token := e.bearer(t, "alice")

	before := e.do(t, http.MethodGet, "/ims/api/events/2024/incidents/", "", token)
	require.Equal(t, http.StatusOK, before.Code)

	logout := e.do(t, http.MethodPost, "/ims/api/auth/logout", "", token)
	require.Equal(t, http.StatusNoContent, logout.Code)

	after := e.do(t, http.MethodGet, "/ims/api/events/2024/incidents/", "", token)
	assert.Equal(t, http.StatusUnauthorized, after.Code)
}

func TestPersonnel(t *testing.T) {
	e := newTestEnv(t)
	e.dir.EXPECT().Personnel(gomock.Any()).Return(rangerFixtures(), nil)

	w := e.do(t, http.MethodGet, "/ims/api/personnel/", "", e.bearer(t, "alice"))
	require.Equal(t, http.StatusOK, w.Code)

	var roster []rangerJSON
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &roster))
	require.Len(t, roster, 2)
	assert.Equal(t, "ada", roster[0].Handle)
}

func TestIncidentTypes_HiddenQuery(t *testing.T) {
	e := newTestEnv(t, "admin")
	admin := e.bearer(t, "admin")

	edit := e.do(t, http.MethodPost, "/ims/api/incident_types/",
		`{"add":["Medical"],"hide":["Medical"]}`, admin)
	require.Equal(t, http.StatusNoContent, edit.Code)

	visible := e.do(t, http.MethodGet, "/ims/api/incident_types/", "", admin)
	require.Equal(t, http.StatusOK, visible.Code)
	assert.NotContains(t, visible.Body.String(), "Medical")

	all := e.do(t, http.MethodGet, "/ims/api/incident_types/?hidden=true", "", admin)
	require.Equal(t, http.StatusOK, all.Code)
	assert.Contains(t, all.Body.String(), "Medical")
}

func TestAccess_AdminOnly(t *testing.T) {
	e := newTestEnv(t, "admin")

	denied := e.do(t, http.MethodGet, "/ims/api/access", "", e.bearer(t, "bob"))
	assert.Equal(t, http.StatusForbidden, denied.Code)

	set := e.do(t, http.MethodPost, "/ims/api/access",
		`{"2024":{"readers":["person:alice"],"writers":["position:dispatch"]}}`, e.bearer(t, "admin"))
	require.Equal(t, http.StatusNoContent, set.Code, set.Body.String())

	got := e.do(t, http.MethodGet, "/ims/api/access", "", e.bearer(t, "admin"))
	require.Equal(t, http.StatusOK, got.Code)
	assert.Contains(t, got.Body.String(), "person:alice")
	assert.Contains(t, got.Body.String(), "position:dispatch")
}

func TestAccess_RejectsMalformedExpression(t *testing.T) {
	e := newTestEnv(t, "admin")
	w := e.do(t, http.MethodPost, "/ims/api/access",
		`{"2024":{"readers":["garbage"]}}`, e.bearer(t, "admin"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStreets(t *testing.T) {
	e := newTestEnv(t, "admin")
	admin := e.bearer(t, "admin")

	create := e.do(t, http.MethodPost, "/ims/api/streets",
		`{"event":"2024","id":"A","name":"Arcade"}`, admin)
	require.Equal(t, http.StatusNoContent, create.Code)

	got := e.do(t, http.MethodGet, "/ims/api/streets?event_id=2024", "", admin)
	require.Equal(t, http.StatusOK, got.Code)
	assert.Contains(t, got.Body.String(), "Arcade")
}

func TestListIncidents_StreamsJSONArray(t *testing.T) {
	e := newTestEnv(t, "admin")
	token := e.bearer(t, "admin")

	for range 3 {
		w := e.do(t, http.MethodPost, "/ims/api/events/2024/incidents/", `{}`, token)
		require.Equal(t, http.StatusNoContent, w.Code)
	}

	list := e.do(t, http.MethodGet, "/ims/api/events/2024/incidents/", "", token)
	require.Equal(t, http.StatusOK, list.Code)
	assert.NotEmpty(t, list.Header().Get("ETag"))

	var incidents []incidentWire
	require.NoError(t, json.Unmarshal(list.Body.Bytes(), &incidents))
	require.Len(t, incidents, 3)
	assert.Equal(t, 1, incidents[0].Number)
	assert.Equal(t, 3, incidents[2].Number)
}
