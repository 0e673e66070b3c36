package notify_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ogulcanaydogan/fare-guardian/pkg/model"
	"github.com/ogulcanaydogan/fare-guardian/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSMSChannel_Send(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2010-04-01/Accounts/AC123/Messages.json", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "AC123", user)
		assert.Equal(t, "token", pass)

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "+15555550100", r.PostForm.Get("To"))
		assert.Equal(t, "+15555550199", r.PostForm.Get("From"))
		assert.Equal(t, "fare dropped", r.PostForm.Get("Body"))
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	ch, err := notify.NewSMSChannel(notify.SMSConfig{
		Enabled:    true,
		AccountSID: "AC123",
		AuthToken:  "token",
		From:       "+15555550199",
		APIBase:    server.URL,
	})
	require.NoError(t, err)
	assert.Equal(t, "sms", ch.Name())
	assert.Equal(t, "+15555550100", ch.Destination(model.Alert{Phone: "+15555550100"}))

	require.NoError(t, ch.Send(context.Background(), "+15555550100", "ignored", "fare dropped"))
}

func TestSMSChannel_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"invalid number"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	ch, err := notify.NewSMSChannel(notify.SMSConfig{
		Enabled: true, AccountSID: "AC1", AuthToken: "t", From: "+1", APIBase: server.URL,
	})
	require.NoError(t, err)

	err = ch.Send(context.Background(), "+2", "", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "invalid number")
}

func TestNewSMSChannel_Validation(t *testing.T) {
	_, err := notify.NewSMSChannel(notify.SMSConfig{Enabled: true, AccountSID: "AC1"})
	assert.Error(t, err)

	ch, err := notify.NewSMSChannel(notify.SMSConfig{})
	require.NoError(t, err)
	assert.False(t, ch.Enabled())
}
