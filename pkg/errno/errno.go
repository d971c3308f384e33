package errno

import (
	"errors"
	"fmt"
)

const (
	SuccessCode           = 0
	ServiceErrCode        = 10001
	ParamErrCode          = 10002
	UnauthenticatedCode   = 10003
	AlreadyExistsErrCode  = 10004
	NotFoundErrCode       = 10005
	ConflictErrCode       = 10006
	TransientErrCode      = 10007
	InvariantErrCode      = 10008
	ResourceExhaustedCode = 10009
)

// Status names surfaced to callers of the callable endpoints.
const (
	StatusOK                = "ok"
	StatusUnauthenticated   = "unauthenticated"
	StatusInvalidArgument   = "invalid-argument"
	StatusAlreadyExists     = "already-exists"
	StatusNotFound          = "not-found"
	StatusInternal          = "internal"
	StatusResourceExhausted = "resource-exhausted"
)

type ErrNo struct {
	ErrCode int64
	ErrMsg  string
}

func (e ErrNo) Error() string {
	return fmt.Sprintf("err_code=%d, err_msg=%s", e.ErrCode, e.ErrMsg)
}

// Is 按错误码比较, WithMessage 之后依然可以 errors.Is
func (e ErrNo) Is(target error) bool {
	var t ErrNo
	if !errors.As(target, &t) {
		return false
	}
	return t.ErrCode == e.ErrCode
}

func NewErrNo(code int64, msg string) ErrNo {
	return ErrNo{code, msg}
}

func (e ErrNo) WithMessage(msg string) ErrNo {
	e.ErrMsg = msg
	return e
}

// Status 返回对外暴露的错误类别
func (e ErrNo) Status() string {
	switch e.ErrCode {
	case SuccessCode:
		return StatusOK
	case ParamErrCode, InvariantErrCode:
		return StatusInvalidArgument
	case UnauthenticatedCode:
		return StatusUnauthenticated
	case AlreadyExistsErrCode:
		return StatusAlreadyExists
	case NotFoundErrCode:
		return StatusNotFound
	case ResourceExhaustedCode:
		return StatusResourceExhausted
	default:
		return StatusInternal
	}
}

var (
	Success              = NewErrNo(SuccessCode, "Success")
	ServiceErr           = NewErrNo(ServiceErrCode, "Service is unable to start successfully")
	RequestErr           = NewErrNo(ParamErrCode, "Wrong Parameter has been given")
	UnauthenticatedErr   = NewErrNo(UnauthenticatedCode, "Authentication is required")
	AlreadyExistsErr     = NewErrNo(AlreadyExistsErrCode, "Resource already exists")
	NotFoundErr          = NewErrNo(NotFoundErrCode, "Resource not found")
	ConflictErr          = NewErrNo(ConflictErrCode, "Concurrent modification detected")
	TransientErr         = NewErrNo(TransientErrCode, "Temporary infrastructure failure")
	InvariantErr         = NewErrNo(InvariantErrCode, "Invariant violated")
	ResourceExhaustedErr = NewErrNo(ResourceExhaustedCode, "Too many requests")
)

// ConvertErr convert error to Errno
func ConvertErr(err error) ErrNo {
	if err == nil {
		return Success
	}
	Err := ErrNo{}
	if errors.As(err, &Err) {
		return Err
	}
	s := ServiceErr
	s.ErrMsg = err.Error()
	return s
}

// IsRetryable 乐观事务冲突或者基础设施抖动可以重试
func IsRetryable(err error) bool {
	return errors.Is(err, ConflictErr) || errors.Is(err, TransientErr)
}
