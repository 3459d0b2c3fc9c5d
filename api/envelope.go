package api

import (
	"encoding/json"

	"github.com/jrsteele09/dojotv/internal/utils"
)

// Envelope is the wrapper every CRM response uses around its payload.
type Envelope[T any] struct {
	Success   bool    `json:"success"`
	Error     bool    `json:"error"`
	Message   *string `json:"message,omitempty"`
	ErrorCode string  `json:"errorCode,omitempty"`
	SubCode   string  `json:"subCode,omitempty"`
	Data      T       `json:"data"`
}

// Outcome reports whether the envelope describes a failure. error:true and success:false
// are treated the same.
func (e *Envelope[T]) Outcome() (failed bool, message, code string) {
	return e.Error || !e.Success, utils.Value(e.Message), e.ErrorCode
}

// Enveloped is implemented by Envelope and by structs embedding it.
type Enveloped interface {
	Outcome() (failed bool, message, code string)
}

// Decode unmarshals resp into v and converts a failed envelope into an *Error.
func Decode(resp *Response, fallback string, v Enveloped) error {
	if err := json.Unmarshal(resp.Body, v); err != nil {
		return &Error{
			Kind:       KindDecode,
			StatusCode: resp.StatusCode,
			Message:    utils.FirstNonEmpty(fallback, genericErrorMessage),
			RawBody:    resp.Body,
			Err:        err,
		}
	}
	if failed, message, code := v.Outcome(); failed {
		return &Error{
			Kind:       KindServer,
			StatusCode: resp.StatusCode,
			Message:    utils.FirstNonEmpty(message, fallback, genericErrorMessage),
			Code:       code,
			RawBody:    resp.Body,
		}
	}
	return nil
}

// envelopeMessage pulls the message out of an error body, if it is an envelope.
func envelopeMessage(body []byte) (message, code string) {
	var env Envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err != nil {
		return "", ""
	}
	return utils.Value(env.Message), env.ErrorCode
}
