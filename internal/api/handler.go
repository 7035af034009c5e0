package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/roach88/dataserver/internal/block"
	"github.com/roach88/dataserver/internal/codec"
	"github.com/roach88/dataserver/internal/ingest"
	"github.com/roach88/dataserver/internal/query"
)

// RejectionHeader carries the error code of a refused envelope alongside
// a false response body.
const RejectionHeader = "X-Dataserver-Rejection"

// DefaultMaxBodyBytes limits decoded push bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 16 << 20

// errInvalidUTF8 reports a JSON request body that is not valid UTF-8.
// Decoding would silently replace the bad bytes and change the content.
var errInvalidUTF8 = errors.New("body is not valid UTF-8")

// ErrorResponse is the body of every non-2xx response except the empty
// 404 from a type query.
type ErrorResponse struct {
	Error string `json:"error" cbor:"error"`
	Code  string `json:"code,omitempty" cbor:"code,omitempty"`
}

// Handler serves the dataserver HTTP API.
type Handler struct {
	ingest       *ingest.Service
	query        *query.Service
	logger       *slog.Logger
	maxBodyBytes int64
}

// NewHandler creates a handler. A non-positive maxBodyBytes means
// DefaultMaxBodyBytes.
func NewHandler(ing *ingest.Service, q *query.Service, logger *slog.Logger, maxBodyBytes int64) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBodyBytes <= 0 {
		maxBodyBytes = DefaultMaxBodyBytes
	}
	return &Handler{
		ingest:       ing,
		query:        q,
		logger:       logger,
		maxBodyBytes: maxBodyBytes,
	}
}

// Routes returns a mux with every endpoint registered.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /dataserver/pushdata", h.HandlePushData)
	mux.HandleFunc("GET /dataserver/data/{blockType}", h.HandleGetByType)
	mux.HandleFunc("GET /dataserver/block/{name}", h.HandleGetByName)
	mux.HandleFunc("PUT /dataserver/update/{name}/{newBlockType}", h.HandleRetype)
	mux.HandleFunc("PATCH /dataserver/update/{name}/{newBlockType}", h.HandleRetype)
	mux.HandleFunc("GET /health", h.HandleHealth)
	return mux
}

// HandleHealth returns a simple health check response.
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.write(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// HandlePushData decodes an envelope and submits it.
//
// A refused envelope is 200 false with RejectionHeader set. Only an
// undecodable body (4xx) or a storage failure (500) produce an error
// response.
func (h *Handler) HandlePushData(w http.ResponseWriter, r *http.Request) {
	var env block.Envelope
	if status, err := h.decodeBody(w, r, &env); err != nil {
		code := ""
		if errors.Is(err, errInvalidUTF8) {
			code = string(block.ErrCodeMalformedEnvelope)
		}
		h.sendError(w, r, status, code, "decode envelope: %v", err)
		return
	}

	ok, err := h.ingest.Submit(r.Context(), &env)
	if err != nil {
		if !block.IsRejection(err) {
			h.logger.Error("push failed", "error", err)
			h.sendError(w, r, http.StatusInternalServerError, "", "store envelope: %v", err)
			return
		}
		w.Header().Set(RejectionHeader, string(block.CodeOf(err)))
	}
	h.write(w, r, http.StatusOK, ok)
}

// HandleGetByType lists every record of the type in the path.
// No match is a 404 with an empty body.
func (h *Handler) HandleGetByType(w http.ResponseWriter, r *http.Request) {
	blockType, err := block.ParseBlockType(r.PathValue("blockType"))
	if err != nil {
		h.sendError(w, r, http.StatusBadRequest, string(block.ErrCodeMalformedEnvelope), "%v", err)
		return
	}

	records, err := h.query.GetByType(r.Context(), blockType)
	if err != nil {
		h.logger.Error("query by type failed", "block_type", blockType, "error", err)
		h.sendError(w, r, http.StatusInternalServerError, "", "query records: %v", err)
		return
	}
	if len(records) == 0 {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	h.write(w, r, http.StatusOK, records)
}

// HandleGetByName returns the most recent record with the name in the path.
func (h *Handler) HandleGetByName(w http.ResponseWriter, r *http.Request) {
	name := block.NormalizeName(r.PathValue("name"))
	if name == "" {
		h.sendError(w, r, http.StatusBadRequest, string(block.ErrCodeMalformedEnvelope), "name is empty")
		return
	}

	rec, ok, err := h.query.GetByName(r.Context(), name)
	if err != nil {
		h.logger.Error("query by name failed", "name", name, "error", err)
		h.sendError(w, r, http.StatusInternalServerError, "", "query record: %v", err)
		return
	}
	if !ok {
		h.sendError(w, r, http.StatusNotFound, string(block.ErrCodeNotFound), "no block named %q", name)
		return
	}
	h.write(w, r, http.StatusOK, rec)
}

// HandleRetype re-ingests the named record under a new block type.
func (h *Handler) HandleRetype(w http.ResponseWriter, r *http.Request) {
	newType, err := block.ParseBlockType(r.PathValue("newBlockType"))
	if err != nil {
		w.Header().Set(RejectionHeader, string(block.ErrCodeMalformedEnvelope))
		h.write(w, r, http.StatusBadRequest, false)
		return
	}

	ok, err := h.ingest.Retype(r.Context(), r.PathValue("name"), newType)
	switch {
	case err == nil:
		h.write(w, r, http.StatusOK, ok)
	case block.IsNotFound(err):
		w.Header().Set(RejectionHeader, string(block.ErrCodeNotFound))
		h.write(w, r, http.StatusNotFound, false)
	case block.IsMalformed(err):
		w.Header().Set(RejectionHeader, string(block.ErrCodeMalformedEnvelope))
		h.write(w, r, http.StatusBadRequest, false)
	case block.IsRejection(err):
		w.Header().Set(RejectionHeader, string(block.CodeOf(err)))
		h.write(w, r, http.StatusOK, false)
	default:
		h.logger.Error("retype failed", "error", err)
		h.sendError(w, r, http.StatusInternalServerError, "", "retype: %v", err)
	}
}

// decodeBody reads the request body, undoing any Content-Encoding and
// decoding JSON or CBOR according to Content-Type. On failure it returns
// the status code to report.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) (int, error) {
	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	defer body.Close()

	decoded, err := codec.NewReader(r.Header.Get("Content-Encoding"), body)
	if err != nil {
		if errors.Is(err, codec.ErrUnsupportedEncoding) {
			return http.StatusUnsupportedMediaType, err
		}
		return statusForReadError(err), err
	}
	defer decoded.Close()

	// The decompressed stream is bounded separately from the wire bytes.
	data, err := io.ReadAll(io.LimitReader(decoded, h.maxBodyBytes+1))
	if err != nil {
		return statusForReadError(err), err
	}
	if int64(len(data)) > h.maxBodyBytes {
		return http.StatusRequestEntityTooLarge, fmt.Errorf("decoded body exceeds %d bytes", h.maxBodyBytes)
	}

	switch mediaType(r.Header.Get("Content-Type")) {
	case codec.ContentType:
		err = codec.Unmarshal(data, v)
	case "", "application/json":
		if !utf8.Valid(data) {
			return http.StatusBadRequest, errInvalidUTF8
		}
		err = json.Unmarshal(data, v)
	default:
		return http.StatusUnsupportedMediaType, fmt.Errorf("unsupported content type %q", r.Header.Get("Content-Type"))
	}
	if err != nil {
		return http.StatusBadRequest, err
	}
	return 0, nil
}

func statusForReadError(err error) int {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func mediaType(header string) string {
	if header == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil {
		return header
	}
	return mt
}

// wantsCBOR reports whether the client asked for CBOR responses.
func wantsCBOR(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		if mediaType(strings.TrimSpace(part)) == codec.ContentType {
			return true
		}
	}
	return false
}

// write encodes value as CBOR or JSON, depending on the request's Accept
// header. If encoding fails (typically because the client disconnected),
// the error is logged since no corrective response can be sent.
func (h *Handler) write(w http.ResponseWriter, r *http.Request, status int, value any) {
	if wantsCBOR(r) {
		w.Header().Set("Content-Type", codec.ContentType)
		w.WriteHeader(status)
		if err := codec.NewEncoder(w).Encode(value); err != nil {
			h.logger.Warn("writing CBOR response", "error", err)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		h.logger.Warn("writing JSON response", "error", err)
	}
}

func (h *Handler) sendError(w http.ResponseWriter, r *http.Request, status int, code, format string, args ...any) {
	h.write(w, r, status, ErrorResponse{
		Error: fmt.Sprintf(format, args...),
		Code:  code,
	})
}
