package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/reportwell/notifyfeed/internal/apperr"
	"github.com/reportwell/notifyfeed/internal/model"
)

func TestListNotificationsDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/notifications/list/user-7/", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"notifications":[
			{"id":"n1","receiver_id":"user-7","template":"{0} was assigned","links":[{"label":"Q3 Report","id":"r1","entityType":"report"}],"read":false,"type":"report_assigned","created_at":"2026-10-14T09:00:00Z","report_id":"r1"},
			{"id":"n2","receiver_id":"user-7","template":"hello","links":[],"read":true,"type":"comment_added","created_at":"2026-10-13T09:00:00Z"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/api/", time.Second)
	got, err := c.ListNotifications(context.Background(), "tok", "user-7")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "n1", got[0].ID)
	assert.Equal(t, "r1", got[0].ReportID)
	assert.Equal(t, model.TypeReportAssigned, got[0].Type)
	require.Len(t, got[0].Links, 1)
	assert.Equal(t, model.EntityReport, got[0].Links[0].EntityType)
	assert.True(t, got[1].Read)
}

func TestListNotificationsEmptyBodyYieldsEmptySlice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, time.Second).ListNotifications(context.Background(), "tok", "u")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestListNotificationsStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		code   apperr.Code
	}{
		{"unauthorized", http.StatusUnauthorized, `{"detail":"expired"}`, apperr.CodeUnauthorized},
		{"not found", http.StatusNotFound, ``, apperr.CodeNotFound},
		{"server error with detail", http.StatusInternalServerError, `{"detail":"db down"}`, apperr.CodeDependency},
		{"bad gateway plain", http.StatusBadGateway, `upstream`, apperr.CodeDependency},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second).ListNotifications(context.Background(), "tok", "u")
			require.Error(t, err)
			assert.Equal(t, tc.code, apperr.CodeOf(err))
		})
	}
}

func TestListNotificationsMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"notifications": [`))
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, time.Second).ListNotifications(context.Background(), "tok", "u")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeDecode, apperr.CodeOf(err))
}

func TestListNotificationsRetriesOnRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"notifications":[{"id":"n1"}]}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL, time.Second).ListNotifications(context.Background(), "tok", "u")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestListNotificationsRequiresReceiver(t *testing.T) {
	_, err := NewClient("http://unused", time.Second).ListNotifications(context.Background(), "tok", "")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestListNotificationsTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := NewClient(addr, time.Second).ListNotifications(context.Background(), "tok", "u")
	require.Error(t, err)
	assert.Equal(t, apperr.CodeDependency, apperr.CodeOf(err))
}
