package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/kozaktomas/face-gate/internal/logger"
	"github.com/kozaktomas/face-gate/internal/match"
	"github.com/kozaktomas/face-gate/internal/signature"
)

// DistanceHeader carries the nearest distance of a recognition attempt.
const DistanceHeader = "X-Match-Distance"

// Replies sets the success bodies a sensor receives.
type Replies struct {
	Enrolled func(label string) string
	Unknown  string
}

// PlainReplies answer with the bare label, or "Unknown".
var PlainReplies = Replies{
	Enrolled: func(label string) string { return label },
	Unknown:  match.Unknown,
}

// FirmwareReplies reproduce the strings deployed ESP32 firmware compares against.
var FirmwareReplies = Replies{
	Enrolled: func(label string) string { return "Rosto de " + label + " registado com sucesso!" },
	Unknown:  "Rosto Desconhecido",
}

// SensorHandler serves the camera endpoints. Bodies are raw signature bytes
// and replies are plain text.
type SensorHandler struct {
	enroller   Enroller
	recognizer Recognizer
	maxBytes   int64
	replies    Replies
}

// NewSensorHandler creates a new sensor handler answering with PlainReplies.
// A non-positive maxBytes disables the body limit.
func NewSensorHandler(enroller Enroller, recognizer Recognizer, maxBytes int64) *SensorHandler {
	return &SensorHandler{enroller: enroller, recognizer: recognizer, maxBytes: maxBytes, replies: PlainReplies}
}

// WithReplies returns a copy of h answering with r.
func (h *SensorHandler) WithReplies(r Replies) *SensorHandler {
	c := *h
	c.replies = r
	return &c
}

func (h *SensorHandler) readSignature(w http.ResponseWriter, r *http.Request) (signature.Signature, error) {
	body := r.Body
	if h.maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	return signature.FromBytes(data), nil
}

// Enroll stores the posted signature under the armed label or an automatic name.
func (h *SensorHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	sig, err := h.readSignature(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	label, err := h.enroller.Enroll(r.Context(), sig)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondText(w, http.StatusOK, h.replies.Enrolled(label))
}

// Recognize answers with the matched label or "Unknown".
func (h *SensorHandler) Recognize(w http.ResponseWriter, r *http.Request) {
	sig, err := h.readSignature(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.recognizer.Recognize(r.Context(), sig)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	if result.Compared > 0 {
		w.Header().Set(DistanceHeader, strconv.FormatFloat(result.Distance, 'f', 2, 64))
	}
	logger.DebugKV(r.Context(), "recognition",
		"label", result.Label,
		"nearest", result.Nearest,
		"compared", result.Compared,
		"skipped", result.Skipped,
	)

	if !result.Matched {
		respondText(w, http.StatusOK, h.replies.Unknown)
		return
	}
	respondText(w, http.StatusOK, result.Label)
}

func (h *SensorHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorKV(r.Context(), "sensor request failed", "path", sanitizeForLog(r.URL.Path), "error", err)
	} else {
		logger.WarnKV(r.Context(), "sensor request rejected", "path", sanitizeForLog(r.URL.Path), "error", err)
	}
	respondText(w, status, message)
}
