package zulip

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, "bot@example.com", "key", 5*time.Second, nil)
}

func TestGetStreams(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/streams", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "bot@example.com", user)
		assert.Equal(t, "key", pass)
		_, _ = w.Write([]byte(`{"result":"success","msg":"","streams":[{"stream_id":99,"name":"Verona"},{"stream_id":3,"name":"general"}]}`))
	})

	streams, err := c.GetStreams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Stream{{ID: 99, Name: "Verona"}, {ID: 3, Name: "general"}}, streams)
}

func TestGetMessages_Query(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/api/v1/messages", r.URL.Path)
		assert.Equal(t, "10000000000000000", q.Get("anchor"))
		assert.Equal(t, "5000", q.Get("num_before"))
		assert.Equal(t, "0", q.Get("num_after"))
		assert.Equal(t, "false", q.Get("apply_markdown"))

		var narrow []map[string]any
		require.NoError(t, json.Unmarshal([]byte(q.Get("narrow")), &narrow))
		assert.Equal(t, []map[string]any{{"negated": false, "operator": "stream", "operand": "Verona"}}, narrow)

		_, _ = w.Write([]byte(`{"result":"success","messages":[
			{"id":1,"stream_id":99,"subject":"lunch","sender_email":"a@example.com","sender_full_name":"A","timestamp":1700000000,"content":"hi. there","flags":["read"]},
			{"id":2,"stream_id":99,"subject":"lunch","sender_email":"b@example.com","sender_full_name":"B","timestamp":1700000100,"content":"ok","flags":[]}
		]}`))
	})

	msgs, err := c.GetMessages(context.Background(), NewStreamRequest("Verona", 5000))
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(1), msgs[0].ID)
	assert.Equal(t, "lunch", msgs[0].Subject)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), msgs[0].Timestamp)
	assert.Equal(t, []string{"read"}, msgs[0].Flags)
	assert.Equal(t, []string{}, msgs[1].Flags)
}

func TestGetMessages_MissingField(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"success","messages":[{"id":1,"subject":"x","sender_email":"a@example.com","content":"hi","flags":[]}]}`))
	})

	_, err := c.GetMessages(context.Background(), NewStreamRequest("Verona", 10))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedResponse)
	assert.Contains(t, err.Error(), "timestamp")
}

func TestGet_InvalidJSON(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	})

	_, err := c.GetStreams(context.Background())
	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestGet_APIError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"result":"error","code":"UNAUTHORIZED","msg":"Invalid API key"}`))
	})

	_, err := c.GetStreams(context.Background())
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", apiErr.Code)
	assert.NotErrorIs(t, err, ErrMalformedResponse)
}

func TestGet_ResultError(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"error","code":"BAD_REQUEST","msg":"Invalid narrow"}`))
	})

	_, err := c.GetMessages(context.Background(), NewStreamRequest("nope", 10))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid narrow", apiErr.Msg)
}

func TestGetMembers(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/users", r.URL.Path)
		_, _ = w.Write([]byte(`{"result":"success","members":[
			{"full_name":"Ada","email":"ada@example.com","is_bot":false},
			{"full_name":"Digest Bot","email":"bot@example.com","is_bot":true}
		]}`))
	})

	members, err := c.GetMembers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Member{
		{FullName: "Ada", Email: "ada@example.com", IsBot: false},
		{FullName: "Digest Bot", Email: "bot@example.com", IsBot: true},
	}, members)
}

func TestNewClient_SiteWithoutScheme(t *testing.T) {
	c := NewClient("chat.example.org/", "bot@example.org", "key", time.Second, nil)
	assert.Equal(t, "https://chat.example.org", c.baseURL)
}

func TestGet_ContextTimeout(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.GetStreams(ctx)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMalformedResponse)
}
