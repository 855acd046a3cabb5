package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/auth"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/config"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/gen"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/store"
)

const reportReply = `{
	"title": "Simple Pendulum",
	"objectives": ["Determine g"],
	"apparatus": ["Stand", "Bob", "Stopwatch"],
	"theory": "T = 2 pi sqrt(L/g).",
	"procedure": ["Suspend the bob", "Time 20 oscillations"],
	"tableHeaders": ["L (m)", "T^2 (s^2)"],
	"tableData": [[0.5, 2.0], [1.0, 4.0]],
	"graphConfig": {"xColumnIndex": 0, "yColumnIndex": 1, "xLabel": "L", "yLabel": "T^2", "title": "T^2 vs L"},
	"questions": [],
	"calculationScript": "return {slope: rows[0][1] / rows[0][0]};",
	"analysisTemplate": "Slope = {{slope}}.",
	"discussion": "Sources of error include timing.",
	"conclusion": "g is approximately 9.8.",
	"simulationType": "pendulum"
}`

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Complete(context.Context, string) (string, error) { return f.reply, f.err }

type captureSender struct{ code string }

func (c *captureSender) SendOTP(_, code string) error {
	c.code = code
	return nil
}

type fixture struct {
	srv    *Server
	ts     *httptest.Server
	store  *store.Store
	sender *captureSender
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	sender := &captureSender{}
	authSvc := auth.New(st, sender)
	generator := gen.New(&fakeLLM{reply: reportReply}, st)

	srv := New(config.DefaultConfig(), st, authSvc, generator, zap.NewNop())
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
		st.Close()
	})
	return &fixture{srv: srv, ts: ts, store: st, sender: sender}
}

// login performs the OTP dance and returns the session cookie.
func (f *fixture) login(t *testing.T, email string) *http.Cookie {
	t.Helper()
	f.postJSON(t, "/api/auth/send-otp", map[string]string{"email": email}, nil)

	resp := f.post(t, "/api/auth/verify-otp", map[string]string{"email": email, "otp": f.sender.code})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify-otp status %d", resp.StatusCode)
	}
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func (f *fixture) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	data, _ := json.Marshal(body)
	resp, err := http.Post(f.ts.URL+path, "application/json", bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func (f *fixture) postJSON(t *testing.T, path string, body, out any) {
	t.Helper()
	resp := f.post(t, path, body)
	defer resp.Body.Close()
	if out != nil {
		json.NewDecoder(resp.Body).Decode(out)
	}
}

func (f *fixture) authedReq(t *testing.T, method, path string, cookie *http.Cookie, body any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, f.ts.URL+path, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.AddCookie(cookie)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestAuthFlow(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "sph3233382025@students.uonbi.ac.ke")

	resp := f.authedReq(t, "GET", "/api/auth/me", cookie, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("me status %d", resp.StatusCode)
	}
	var me struct {
		User store.User `json:"user"`
	}
	json.NewDecoder(resp.Body).Decode(&me)
	if me.User.Email != "sph3233382025@students.uonbi.ac.ke" {
		t.Errorf("me = %+v", me.User)
	}

	// Unauthenticated request is rejected.
	plain, err := http.Get(f.ts.URL + "/api/auth/me")
	if err != nil {
		t.Fatal(err)
	}
	defer plain.Body.Close()
	if plain.StatusCode != http.StatusUnauthorized {
		t.Errorf("unauthenticated me status %d", plain.StatusCode)
	}
}

func TestInvalidOTPRejected(t *testing.T) {
	f := newFixture(t)
	f.postJSON(t, "/api/auth/send-otp", map[string]string{"email": "jane@x"}, nil)
	resp := f.post(t, "/api/auth/verify-otp", map[string]string{"email": "jane@x", "otp": "000000"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status %d", resp.StatusCode)
	}
	var body struct {
		Error string `json:"error"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Error != "Invalid OTP" {
		t.Errorf("error = %q", body.Error)
	}
}

func TestDirectLoginWhenEnabled(t *testing.T) {
	f := newFixture(t)
	f.srv.auth.DirectLogin = true
	f.store.RegisterUser("jane@x")

	resp := f.post(t, "/api/auth/send-otp", map[string]string{"email": "jane@x"})
	defer resp.Body.Close()
	var body struct {
		User *store.User `json:"user"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.User == nil {
		t.Fatal("direct login should return the user")
	}
	found := false
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookie && c.HttpOnly {
			found = true
		}
	}
	if !found {
		t.Error("direct login must set the HttpOnly session cookie")
	}
}

func TestGenerateAndDownload(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "jane@x")

	resp := f.authedReq(t, "POST", "/api/generate-report", cookie, map[string]string{"experimentCode": "PHY110"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate status %d", resp.StatusCode)
	}
	var generated struct {
		ID     string          `json:"id"`
		Report json.RawMessage `json:"report"`
	}
	json.NewDecoder(resp.Body).Decode(&generated)
	if generated.ID == "" || len(generated.Report) == 0 {
		t.Fatalf("generate reply incomplete: %+v", generated)
	}

	// Listing shows it.
	lr := f.authedReq(t, "GET", "/api/reports", cookie, nil)
	defer lr.Body.Close()
	var list struct {
		Reports []struct {
			ID string `json:"id"`
		} `json:"reports"`
	}
	json.NewDecoder(lr.Body).Decode(&list)
	if len(list.Reports) != 1 || list.Reports[0].ID != generated.ID {
		t.Fatalf("list = %+v", list)
	}

	// Interactive HTML download.
	hr := f.authedReq(t, "GET", "/api/reports/"+generated.ID+"/html", cookie, nil)
	defer hr.Body.Close()
	if ct := hr.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("html content-type %q", ct)
	}
	var htmlBuf bytes.Buffer
	htmlBuf.ReadFrom(hr.Body)
	if !strings.Contains(htmlBuf.String(), "Simple Pendulum") {
		t.Error("interactive document missing report content")
	}

	// PDF download.
	pr := f.authedReq(t, "GET", "/api/reports/"+generated.ID+"/pdf", cookie, nil)
	defer pr.Body.Close()
	var pdfBuf bytes.Buffer
	pdfBuf.ReadFrom(pr.Body)
	if !strings.HasPrefix(pdfBuf.String(), "%PDF") {
		t.Error("pdf download is not a PDF")
	}
}

func TestDailyLimitEnforced(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "jane@x")
	f.store.UpdateUserLimit("jane@x", 1)

	r1 := f.authedReq(t, "POST", "/api/generate-report", cookie, map[string]string{"experimentCode": "PHY110"})
	r1.Body.Close()
	if r1.StatusCode != http.StatusOK {
		t.Fatalf("first generation status %d", r1.StatusCode)
	}
	r2 := f.authedReq(t, "POST", "/api/generate-report", cookie, map[string]string{"experimentCode": "PHY111"})
	r2.Body.Close()
	if r2.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second generation status %d, want 429", r2.StatusCode)
	}
}

func TestBadModelReplyIsBadGateway(t *testing.T) {
	f := newFixture(t)
	cookie := f.login(t, "jane@x")
	f.srv.gen = gen.New(&fakeLLM{reply: `{"title": "incomplete"}`}, f.store)

	resp := f.authedReq(t, "POST", "/api/generate-report", cookie, map[string]string{"experimentCode": "PHY110"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status %d, want 502", resp.StatusCode)
	}
	// Nothing was saved or counted.
	reports, _ := f.store.ListReports("jane@x")
	if len(reports) != 0 {
		t.Error("rejected report must not be persisted")
	}
	if n, _ := f.store.DailyCount("jane@x"); n != 0 {
		t.Error("rejected report must not count against the quota")
	}
}

func TestAdminEndpointsRequireAdmin(t *testing.T) {
	f := newFixture(t)
	student := f.login(t, "jane@x")

	resp := f.authedReq(t, "GET", "/api/admin/users", student, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("student admin access: %d", resp.StatusCode)
	}

	admin := f.login(t, "admin@galvaniy.app")
	ur := f.authedReq(t, "GET", "/api/admin/users", admin, nil)
	defer ur.Body.Close()
	if ur.StatusCode != http.StatusOK {
		t.Fatalf("admin users status %d", ur.StatusCode)
	}

	// Revoke, then the student can no longer authenticate.
	rr := f.authedReq(t, "POST", "/api/admin/users/revoke", admin, map[string]string{"email": "jane@x"})
	rr.Body.Close()
	me := f.authedReq(t, "GET", "/api/auth/me", student, nil)
	me.Body.Close()
	if me.StatusCode != http.StatusUnauthorized {
		t.Errorf("revoked session status %d", me.StatusCode)
	}
}

func TestReferenceManagement(t *testing.T) {
	f := newFixture(t)
	admin := f.login(t, "admin@galvaniy.app")

	ar := f.authedReq(t, "POST", "/api/admin/references", admin, map[string]string{"text": "Use SI units."})
	defer ar.Body.Close()
	var added struct {
		Reference store.Reference `json:"reference"`
	}
	json.NewDecoder(ar.Body).Decode(&added)
	if added.Reference.ID == 0 {
		t.Fatal("reference not created")
	}

	dr := f.authedReq(t, "DELETE", fmt.Sprintf("/api/admin/references/%d", added.Reference.ID), admin, nil)
	dr.Body.Close()
	if dr.StatusCode != http.StatusOK {
		t.Errorf("delete status %d", dr.StatusCode)
	}

	refs, _ := f.store.ListReferences()
	if len(refs) != 0 {
		t.Errorf("references remaining: %+v", refs)
	}
}
