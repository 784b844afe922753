package main

import "fmt"

// AuthError reports a failure to acquire or refresh the access token.
type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// MediaNotFoundError names the reference that could not be resolved to a file.
type MediaNotFoundError struct {
	Ref    *MediaReference
	Detail string
}

func (e *MediaNotFoundError) Error() string {
	if e.Ref != nil && e.Ref.SourceToken != "" {
		return fmt.Sprintf("media %q (%s) not found: %s", e.Ref.SourceToken, e.Ref.Kind, e.Detail)
	}
	return fmt.Sprintf("media not found: %s", e.Detail)
}

// UploadError wraps a failed upload with the reference that caused it.
type UploadError struct {
	Ref *MediaReference
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("uploading %q (%s): %v", e.Ref.SourceToken, e.Ref.Kind, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// AssemblyError reports an inline reference that could not be carried into
// the final body: no upload result, no usable URL, or no matching node.
type AssemblyError struct {
	Token  string
	Detail string
}

func (e *AssemblyError) Error() string {
	return fmt.Sprintf("assembling inline media %q: %s", e.Token, e.Detail)
}

// PublishError reports a draft submission rejected by the platform.
type PublishError struct {
	Op  string // "create" or "update"
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("draft %s failed: %v", e.Op, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// APIError is a platform-level rejection carried in a 200 response body.
type APIError struct {
	Code int    `json:"errcode"`
	Msg  string `json:"errmsg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wechat api error %d: %s", e.Code, e.Msg)
}

// Token rejection codes: invalid credential, invalid token, token expired.
func (e *APIError) IsAuthError() bool {
	switch e.Code {
	case 40001, 40014, 42001:
		return true
	}
	return false
}

// StageError ties a fatal failure to the pipeline stage that produced it.
// The orchestrator is the only place that builds these.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
