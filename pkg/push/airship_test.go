package push_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/transit-alert-push/pkg/model"
	"github.com/ogulcanaydogan/transit-alert-push/pkg/push"
)

func samplePush() model.Push {
	return model.NewPush(model.Alert{
		ID:         "61432",
		HeaderText: "Red Line experiencing delays of about 15 minutes",
	}, []string{"MBTA Line Red"})
}

func TestAirshipSender_Name(t *testing.T) {
	s, err := push.NewAirshipSender("", "key", "secret")
	require.NoError(t, err)
	assert.Equal(t, "airship", s.Name())
}

func TestAirshipSender_RequiresCredentials(t *testing.T) {
	_, err := push.NewAirshipSender("", "", "secret")
	assert.True(t, errors.Is(err, push.ErrDisabled))
}

func TestAirshipSender_Send(t *testing.T) {
	var received struct {
		Audience struct {
			Tag []string `json:"tag"`
		} `json:"audience"`
		Notification struct {
			IOS struct {
				Alert  string `json:"alert"`
				Expiry int    `json:"expiry"`
			} `json:"ios"`
		} `json:"notification"`
		DeviceTypes []string `json:"device_types"`
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/push/", r.URL.Path)
		assert.Equal(t, "application/vnd.urbanairship+json; version=3", r.Header.Get("Accept"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "app-key", user)
		assert.Equal(t, "master-secret", pass)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	s, err := push.NewAirshipSender(server.URL, "app-key", "master-secret")
	require.NoError(t, err)
	require.NoError(t, s.Send(context.Background(), samplePush()))

	assert.Equal(t, []string{"MBTA Line Red"}, received.Audience.Tag)
	assert.Equal(t, "Red Line experiencing delays of about 15 minutes", received.Notification.IOS.Alert)
	assert.Equal(t, 3600, received.Notification.IOS.Expiry)
	assert.Equal(t, []string{"ios"}, received.DeviceTypes)
}

func TestAirshipSender_Send_NoTags(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	s, err := push.NewAirshipSender(server.URL, "k", "s")
	require.NoError(t, err)

	p := samplePush()
	p.Tags = nil
	assert.Error(t, s.Send(context.Background(), p))
	assert.False(t, called)
}

func TestAirshipSender_Send_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	s, err := push.NewAirshipSender(server.URL, "k", "s")
	require.NoError(t, err)

	err = s.Send(context.Background(), samplePush())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 401")
}
