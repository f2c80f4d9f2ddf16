package gateway

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proxy-gateway/middleware/cache"
)

func TestReplyWriteToDropsContentLength(t *testing.T) {
	reply := Reply{
		Status: http.StatusOK,
		Header: http.Header{
			"Content-Length": {"999"},
			"Content-Type":   {"application/json"},
			"X-Multi":        {"a", "b"},
		},
		Body: []byte(`{}`),
	}

	rec := httptest.NewRecorder()
	reply.WriteTo(rec)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Content-Length"))
	assert.Equal(t, []string{"a", "b"}, rec.Header().Values("X-Multi"))
	assert.Equal(t, `{}`, rec.Body.String())
	// a origem não é alterada
	assert.Equal(t, "999", reply.Header.Get("Content-Length"))
}

func TestReplyWriteToKeepsGatewayRequestID(t *testing.T) {
	reply := Reply{
		Status: http.StatusOK,
		Header: http.Header{RequestIDHeader: {"from-upstream"}},
	}

	rec := httptest.NewRecorder()
	rec.Header().Set(RequestIDHeader, "gw-1")
	reply.WriteTo(rec)
	assert.Equal(t, []string{"gw-1"}, rec.Header().Values(RequestIDHeader))

	// fora do middleware não há id do gateway e o do upstream passa
	rec = httptest.NewRecorder()
	reply.WriteTo(rec)
	assert.Equal(t, "from-upstream", rec.Header().Get(RequestIDHeader))
}

func TestReplyFromEntryDoesNotAliasHeader(t *testing.T) {
	e := &cache.Entry{
		Status: http.StatusOK,
		Header: http.Header{"Etag": {`"v1"`}},
		Body:   []byte("cached"),
	}

	rp := newReply()
	rp.enter(StateRateChecked)
	rp.enter(StateCacheChecked)
	reply := rp.fromEntry(e)
	reply.Header.Add("Etag", "mutated")

	require.Len(t, e.Header.Values("Etag"), 1)
	assert.Equal(t, "HIT", reply.Header.Get(CacheStatusHeader))
	assert.Equal(t, OutcomeCacheHit, reply.Outcome)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "received", StateReceived.String())
	assert.Equal(t, "forwarding", StateForwarding.String())
	assert.Equal(t, "responded", StateResponded.String())
	assert.Equal(t, "unknown", State(42).String())
}
