package apperr

import (
	"errors"
	"fmt"
)

const (
	MetaReason  = "reason"
	MetaStage   = "stage"
	MetaField   = "field"
	MetaTool    = "tool"
	MetaTabID   = "tab_id"
	MetaProfile = "profile"
	MetaURL     = "url"
	MetaMethod  = "method"

	StageDispatch    = "dispatch"
	StageValidation  = "validation"
	StageProvision   = "provision"
	StageConnect     = "connect"
	StageNavigation  = "navigation"
	StageInspection  = "inspection"
	StageInteraction = "interaction"
	StageInput       = "input"
	StageScreenshot  = "screenshot"

	CodeInternal          = "internal"
	CodeInvalidArgument   = "invalid_argument"
	CodeNotFound          = "not_found"
	CodeUnavailable       = "unavailable"
	CodeTimeout           = "timeout"
	CodeUnknownTool       = "unknown_tool"
	CodeDuplicateTool     = "duplicate_tool"
	CodeSessionNotStarted = "session_not_started"
	CodeBackend           = "backend_error"
)

type Error struct {
	Op       string
	Code     string
	Err      error
	Metadata map[string]any
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}

	return e.Op
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(op, code string, err error, metadata map[string]any) error {
	if metadata == nil {
		metadata = make(map[string]any)
	}

	return &Error{
		Op:       op,
		Code:     code,
		Err:      err,
		Metadata: metadata,
	}
}

func WrapWithReason(op, code string, err error, reason string) error {
	return Wrap(op, code, err, map[string]any{
		MetaReason: reason,
	})
}

func WrapErrorWithReason(op, code, reason string) error {
	return Wrap(op, code, errors.New(reason), map[string]any{
		MetaReason: reason,
	})
}

func InvalidReqError(op, field string, err error) error {
	return Wrap(op, CodeInvalidArgument, err, map[string]any{
		MetaField:  field,
		MetaReason: "invalid_request",
	})
}

func NotFoundError(op string, err error) error {
	return Wrap(op, CodeNotFound, err, map[string]any{
		MetaReason: "not_found",
	})
}

// CodeOf returns the code of the outermost *Error in the chain, or CodeInternal.
func CodeOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}

	return CodeInternal
}
