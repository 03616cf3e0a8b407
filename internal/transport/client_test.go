package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

type staticCreds string

func (s staticCreds) Token() string { return string(s) }

func TestDoJSONAttachesBearer(t *testing.T) {
	var gotAuth, gotReqID string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-Id")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer ts.Close()

	c := New(ts.URL, time.Second, staticCreds("t1"), nil, nil)
	var out map[string]bool
	if err := c.DoJSON(context.Background(), http.MethodGet, "/patients", nil, &out); err != nil {
		t.Fatalf("DoJSON error: %v", err)
	}
	if gotAuth != "Bearer t1" {
		t.Fatalf("authorization header: got %q", gotAuth)
	}
	if gotReqID == "" {
		t.Fatal("expected a request id header")
	}
	if !out["ok"] {
		t.Fatalf("unexpected body: %v", out)
	}
}

func TestDoJSONOmitsBearerWhenAnonymous(t *testing.T) {
	var gotAuth string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[]`))
	}))
	defer ts.Close()

	c := New(ts.URL, time.Second, staticCreds(""), nil, nil)
	if err := c.DoJSON(context.Background(), http.MethodGet, "/patients", nil, nil); err != nil {
		t.Fatalf("DoJSON error: %v", err)
	}
	if gotAuth != "" {
		t.Fatalf("expected no authorization header, got %q", gotAuth)
	}
}

func TestRemoteRejectionPreservesBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"Patient not found"}`, http.StatusNotFound)
	}))
	defer ts.Close()

	c := New(ts.URL, time.Second, nil, nil, nil)
	err := c.DoJSON(context.Background(), http.MethodGet, "/patients/99", nil, nil)
	var rejection *Error
	if !errors.As(err, &rejection) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if rejection.StatusCode != http.StatusNotFound {
		t.Fatalf("status: got %d", rejection.StatusCode)
	}
	if !strings.Contains(rejection.Body, "Patient not found") {
		t.Fatalf("body not preserved: %q", rejection.Body)
	}
}

func TestTransportFaultWraps(t *testing.T) {
	c := New("http://127.0.0.1:1", 200*time.Millisecond, nil, nil, nil)
	err := c.DoJSON(context.Background(), http.MethodGet, "/patients", nil, nil)
	if err == nil {
		t.Fatal("expected a transport fault")
	}
	var rejection *Error
	if errors.As(err, &rejection) {
		t.Fatalf("fault must not be a remote rejection: %v", err)
	}
}

func TestDoForm(t *testing.T) {
	var gotContentType, gotUser string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		r.ParseForm()
		gotUser = r.PostFormValue("username")
		w.Write([]byte(`{}`))
	}))
	defer ts.Close()

	form := url.Values{}
	form.Set("username", "doc@example.com")
	form.Set("password", "secret")

	c := New(ts.URL, time.Second, nil, nil, nil)
	if err := c.DoForm(context.Background(), "/auth/login", form, nil); err != nil {
		t.Fatalf("DoForm error: %v", err)
	}
	if gotContentType != "application/x-www-form-urlencoded" {
		t.Fatalf("content type: got %q", gotContentType)
	}
	if gotUser != "doc@example.com" {
		t.Fatalf("username field: got %q", gotUser)
	}
}

func TestDoMultipart(t *testing.T) {
	var gotPatientID, gotFilename string
	var gotBytes []byte
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotPatientID = r.FormValue("patient_id")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		gotFilename = hdr.Filename
		buf := make([]byte, hdr.Size)
		f.Read(buf)
		gotBytes = buf
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":5}`))
	}))
	defer ts.Close()

	c := New(ts.URL, time.Second, nil, nil, nil)
	var out struct {
		ID int64 `json:"id"`
	}
	err := c.DoMultipart(context.Background(), "/files/upload",
		map[string]string{"patient_id": "3"}, "file", "scan.pdf",
		strings.NewReader("%PDF-1.4"), &out)
	if err != nil {
		t.Fatalf("DoMultipart error: %v", err)
	}
	if gotPatientID != "3" || gotFilename != "scan.pdf" {
		t.Fatalf("multipart fields: patient_id=%q filename=%q", gotPatientID, gotFilename)
	}
	if string(gotBytes) != "%PDF-1.4" {
		t.Fatalf("file bytes: %q", gotBytes)
	}
	if out.ID != 5 {
		t.Fatalf("decoded id: %d", out.ID)
	}
}

func TestFetch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4 raw"))
	}))
	defer ts.Close()

	c := New(ts.URL, time.Second, nil, nil, nil)
	data, contentType, err := c.Fetch(context.Background(), "/files/5/download")
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if contentType != "application/pdf" {
		t.Fatalf("content type: %q", contentType)
	}
	if string(data) != "%PDF-1.4 raw" {
		t.Fatalf("payload: %q", data)
	}
}
