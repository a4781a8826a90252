package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AmanSingh544/ChatAppResponsive/internal/codec"
	"github.com/AmanSingh544/ChatAppResponsive/internal/transport"
)

func TestDialMapsRefusedHandshake(t *testing.T) {
	for name, tc := range map[string]struct {
		status   int
		authFail bool
	}{
		"unauthorized": {status: http.StatusUnauthorized, authFail: true},
		"forbidden":    {status: http.StatusForbidden, authFail: true},
		"server error": {status: http.StatusInternalServerError},
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/ws", r.URL.Path)
				assert.Equal(t, "t1", r.URL.Query().Get("access_token"))
				http.Error(w, `{"success":false,"message":"Invalid token"}`, tc.status)
			}))
			defer srv.Close()

			d := &transport.WSDialer{ServerURL: srv.URL, Codec: codec.JSON}
			conn, err := d.Dial(context.Background(), "t1")
			require.Error(t, err)
			assert.Nil(t, conn)

			var herr *transport.HandshakeError
			require.ErrorAs(t, err, &herr)
			assert.Equal(t, tc.status, herr.Status)
			assert.Equal(t, tc.authFail, herr.Err == transport.ErrAuthRejected)
		})
	}
}
