package emailsvc

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"testing"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyleyee20/aevum/core"
)

func TestSendgridService_deliver(t *testing.T) {
	to := []mail.Address{{Name: "Student", Address: "student@test.edu"}}

	tests := []struct {
		name      string
		msg       core.EmailMessage
		res       *rest.Response
		resErr    error
		wantCalls int
		wantErr   bool
	}{
		{name: "sent", msg: core.EmailMessage{To: to, Bcc: to, Subject: "Digest", BodyStr: "hi"}, res: &rest.Response{StatusCode: http.StatusAccepted}, wantCalls: 1},
		{name: "rejected", msg: core.EmailMessage{To: to, Subject: "Digest", BodyStr: "hi"}, res: &rest.Response{StatusCode: http.StatusBadRequest, Body: "bad"}, wantCalls: 1, wantErr: true},
		{name: "transport error", msg: core.EmailMessage{To: to, Subject: "Digest", BodyStr: "hi"}, resErr: errors.New("offline"), wantCalls: 1, wantErr: true},
		{name: "nothing to send", msg: core.EmailMessage{Subject: "Digest", BodyStr: "hi"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewSendgridService("key", "Aevum", "noreply@localhost", nil)
			var (
				calls int
				body  map[string]interface{}
			)
			svc.api = func(req rest.Request) (*rest.Response, error) {
				calls++
				assert.Equal(t, rest.Post, req.Method)
				assert.Equal(t, "Bearer key", req.Headers["Authorization"])
				require.NoError(t, json.Unmarshal(req.Body, &body))
				return tc.res, tc.resErr
			}

			msg := tc.msg
			err := svc.deliver(&msg)
			assert.Equal(t, tc.wantCalls, calls)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if calls > 0 {
				assert.Contains(t, string(mustJSON(t, body)), "[Aevum] Digest")
			}
		})
	}
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}
