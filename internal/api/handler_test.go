package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataserver/internal/block"
	"github.com/roach88/dataserver/internal/codec"
	"github.com/roach88/dataserver/internal/ingest"
	"github.com/roach88/dataserver/internal/query"
	"github.com/roach88/dataserver/internal/store"
	"github.com/roach88/dataserver/internal/testutil"
)

type fixture struct {
	server *httptest.Server
	store  *store.Store
}

func setup(t *testing.T) *fixture {
	t.Helper()
	return setupWithLimit(t, 0)
}

func setupWithLimit(t *testing.T, maxBody int64) *fixture {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := testutil.NewFixedClock(time.Time{})
	ing := ingest.New(st,
		ingest.WithLogger(logger),
		ingest.WithClock(clock.Now),
		ingest.WithIDGenerator(testutil.NewSequentialIDGenerator("rec")),
	)
	h := NewHandler(ing, query.New(st), logger, maxBody)

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)
	return &fixture{server: srv, store: st}
}

func (f *fixture) do(t *testing.T, method, path string, body []byte, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, f.server.URL+path, bytes.NewReader(body))
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (f *fixture) push(t *testing.T, env *block.Envelope) *http.Response {
	t.Helper()
	data, err := json.Marshal(env)
	require.NoError(t, err)
	return f.do(t, http.MethodPost, "/dataserver/pushdata", data, map[string]string{"Content-Type": "application/json"})
}

func (f *fixture) count(t *testing.T) int {
	t.Helper()
	n, err := f.store.Count(t.Context())
	require.NoError(t, err)
	return n
}

func decodeBool(t *testing.T, resp *http.Response) bool {
	t.Helper()
	var ok bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&ok))
	return ok
}

func TestHealth(t *testing.T) {
	f := setup(t)
	resp := f.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestPushData_Accepted(t *testing.T) {
	f := setup(t)

	resp := f.push(t, testutil.TestEnvelope(t))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decodeBool(t, resp))
	assert.Empty(t, resp.Header.Get(RejectionHeader))
	assert.Equal(t, 1, f.count(t))
}

func TestPushData_Rejections(t *testing.T) {
	tests := []struct {
		name string
		env  func(t *testing.T) *block.Envelope
		code block.ErrorCode
	}{
		{"incorrect hash", func(t *testing.T) *block.Envelope { return testutil.TestEnvelopeIncorrectHash(t) }, block.ErrCodeIntegrityMismatch},
		{"empty name", func(t *testing.T) *block.Envelope { return testutil.TestEnvelopeEmptyName(t) }, block.ErrCodeMalformedEnvelope},
		{"unknown type", func(t *testing.T) *block.Envelope {
			return testutil.NewEnvelope(t, "x", block.BlockType("C"), "y")
		}, block.ErrCodeMalformedEnvelope},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			resp := f.push(t, tt.env(t))
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.False(t, decodeBool(t, resp))
			assert.Equal(t, string(tt.code), resp.Header.Get(RejectionHeader))
			assert.Equal(t, 0, f.count(t))
		})
	}
}

func TestPushData_MissingHeader(t *testing.T) {
	f := setup(t)
	resp := f.do(t, http.MethodPost, "/dataserver/pushdata", []byte(`{"body":{"content":"x"},"checksum":"y"}`), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeBool(t, resp))
	assert.Equal(t, string(block.ErrCodeMalformedEnvelope), resp.Header.Get(RejectionHeader))
}

func TestPushData_Undecodable(t *testing.T) {
	f := setup(t)
	resp := f.do(t, http.MethodPost, "/dataserver/pushdata", []byte(`{not json`), nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var er ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&er))
	assert.Contains(t, er.Error, "decode envelope")
}

func TestPushData_InvalidUTF8(t *testing.T) {
	f := setup(t)
	const binary = "\x89PNG\xff\xfe\x00\x01"
	body := `{"header":{"name":"img","blockType":"BLOCKTYPEA"},"body":{"content":"` + binary +
		`"},"checksum":"` + testutil.MustDigest(t, binary) + `"}`

	resp := f.do(t, http.MethodPost, "/dataserver/pushdata", []byte(body), map[string]string{"Content-Type": "application/json"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var er ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&er))
	assert.Equal(t, string(block.ErrCodeMalformedEnvelope), er.Code)
	assert.Equal(t, 0, f.count(t))
}

func TestPushData_UnsupportedEncoding(t *testing.T) {
	f := setup(t)
	resp := f.do(t, http.MethodPost, "/dataserver/pushdata", []byte(`{}`), map[string]string{"Content-Encoding": "br"})
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestPushData_UnsupportedContentType(t *testing.T) {
	f := setup(t)
	resp := f.do(t, http.MethodPost, "/dataserver/pushdata", []byte(`<xml/>`), map[string]string{"Content-Type": "application/xml"})
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
}

func TestPushData_TooLarge(t *testing.T) {
	f := setupWithLimit(t, 64)
	data, err := json.Marshal(testutil.TestEnvelope(t))
	require.NoError(t, err)
	require.Greater(t, len(data), 64)

	resp := f.do(t, http.MethodPost, "/dataserver/pushdata", data, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, 0, f.count(t))
}

func TestPushData_CBOR(t *testing.T) {
	f := setup(t)
	data, err := codec.Marshal(testutil.TestEnvelope(t))
	require.NoError(t, err)

	resp := f.do(t, http.MethodPost, "/dataserver/pushdata", data, map[string]string{
		"Content-Type": codec.ContentType,
		"Accept":       codec.ContentType,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, codec.ContentType, resp.Header.Get("Content-Type"))

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var ok bool
	require.NoError(t, codec.Unmarshal(raw, &ok))
	assert.True(t, ok)
}

func TestPushData_Compressed(t *testing.T) {
	data, err := json.Marshal(testutil.TestEnvelope(t))
	require.NoError(t, err)

	var gz bytes.Buffer
	zw := gzip.NewWriter(&gz)
	_, err = zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	bodies := map[string][]byte{
		"gzip": gz.Bytes(),
		"zstd": codec.CompressZstd(data),
	}
	for encoding, body := range bodies {
		t.Run(encoding, func(t *testing.T) {
			f := setup(t)
			resp := f.do(t, http.MethodPost, "/dataserver/pushdata", body, map[string]string{"Content-Encoding": encoding})
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.True(t, decodeBool(t, resp))
			assert.Equal(t, 1, f.count(t))
		})
	}
}

func TestGetByType(t *testing.T) {
	f := setup(t)
	require.True(t, decodeBool(t, f.push(t, testutil.NewEnvelope(t, "Test", block.BlockTypeA, "hello"))))
	require.True(t, decodeBool(t, f.push(t, testutil.NewEnvelope(t, "Other", block.BlockTypeB, "ignored"))))
	require.True(t, decodeBool(t, f.push(t, testutil.NewEnvelope(t, "Second", block.BlockTypeA, "world"))))

	resp := f.do(t, http.MethodGet, "/dataserver/data/BLOCKTYPEA", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "get_by_type_a", body)
}

func TestGetByType_NoneIsEmpty404(t *testing.T) {
	f := setup(t)
	resp := f.do(t, http.MethodGet, "/dataserver/data/BLOCKTYPEB", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Empty(t, body)
}

func TestGetByType_UnknownType(t *testing.T) {
	f := setup(t)
	resp := f.do(t, http.MethodGet, "/dataserver/data/NOPE", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestGetByName(t *testing.T) {
	f := setup(t)
	require.True(t, decodeBool(t, f.push(t, testutil.TestEnvelope(t))))

	resp := f.do(t, http.MethodGet, "/dataserver/block/Test", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rec block.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
	assert.Equal(t, "rec-1", rec.ID)
	assert.Equal(t, testutil.DummyData, rec.Body.Content)

	resp = f.do(t, http.MethodGet, "/dataserver/block/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var er ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&er))
	assert.Equal(t, string(block.ErrCodeNotFound), er.Code)
}

func TestGetByName_CBOR(t *testing.T) {
	f := setup(t)
	require.True(t, decodeBool(t, f.push(t, testutil.TestEnvelope(t))))

	resp := f.do(t, http.MethodGet, "/dataserver/block/Test", nil, map[string]string{"Accept": "application/json, application/cbor"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var rec block.Record
	require.NoError(t, codec.Unmarshal(raw, &rec))
	assert.Equal(t, testutil.TestName, rec.Header.Name)
	assert.True(t, rec.Header.CreatedTimestamp.Equal(testutil.FixedTime))
}

func TestRetype(t *testing.T) {
	for _, method := range []string{http.MethodPut, http.MethodPatch} {
		t.Run(method, func(t *testing.T) {
			f := setup(t)
			require.True(t, decodeBool(t, f.push(t, testutil.TestEnvelope(t))))

			resp := f.do(t, method, "/dataserver/update/Test/BLOCKTYPEB", nil, nil)
			require.Equal(t, http.StatusOK, resp.StatusCode)
			assert.True(t, decodeBool(t, resp))

			resp = f.do(t, http.MethodGet, "/dataserver/block/Test", nil, nil)
			var rec block.Record
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&rec))
			assert.Equal(t, block.BlockTypeB, rec.Header.BlockType)
			assert.Equal(t, 2, f.count(t))
		})
	}
}

func TestRetype_UnknownName(t *testing.T) {
	f := setup(t)
	resp := f.do(t, http.MethodPut, "/dataserver/update/ghost/BLOCKTYPEB", nil, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.False(t, decodeBool(t, resp))
	assert.Equal(t, 0, f.count(t))
}

func TestRetype_UnknownType(t *testing.T) {
	f := setup(t)
	require.True(t, decodeBool(t, f.push(t, testutil.TestEnvelope(t))))

	resp := f.do(t, http.MethodPut, "/dataserver/update/Test/BLOCKTYPEQ", nil, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.False(t, decodeBool(t, resp))
	assert.Equal(t, 1, f.count(t))
}

func TestEndToEnd_HelloScenario(t *testing.T) {
	f := setup(t)

	env := testutil.NewEnvelope(t, "Test", block.BlockTypeA, "hello")
	require.True(t, decodeBool(t, f.push(t, env)))

	resp := f.do(t, http.MethodGet, "/dataserver/data/BLOCKTYPEA", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var byType []block.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&byType))
	require.Len(t, byType, 1)
	assert.Equal(t, "hello", byType[0].Body.Content)

	resp = f.do(t, http.MethodGet, "/dataserver/block/Test", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var byName block.Record
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&byName))
	assert.Equal(t, byType[0].ID, byName.ID)
	assert.Equal(t, byType[0].Body, byName.Body)

	before := f.count(t)
	env.Checksum = "deadbeef"
	resp = f.push(t, env)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decodeBool(t, resp))
	assert.Equal(t, before, f.count(t))
}
