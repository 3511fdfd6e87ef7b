package minio

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/koustreak/mdbread/internal/errs"
	miniogo "github.com/minio/minio-go/v7"
)

// mapError translates a MinIO SDK error into a *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	// S3-protocol errors arrive as a typed ErrorResponse
	var resp miniogo.ErrorResponse
	if errors.As(err, &resp) {
		if resp.Message != "" {
			msg = fmt.Sprintf("%s: %s", msg, resp.Message)
		}
		return errs.Wrap(classifyResponse(resp), msg, err)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyResponse maps an S3 error code, or failing that its HTTP status,
// to an ErrKind.
func classifyResponse(resp miniogo.ErrorResponse) errs.ErrKind {
	switch resp.Code {
	case "NoSuchBucket", "NoSuchKey", "NoSuchUpload":
		return errs.ErrKindNotFound
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch", "AllAccessDisabled":
		return errs.ErrKindPermissionDenied
	case "InvalidBucketName", "InvalidObjectName", "KeyTooLongError", "EntityTooLarge", "BadDigest":
		return errs.ErrKindInvalidInput
	case "RequestTimeout", "SlowDown":
		return errs.ErrKindTimeout
	case "XMinioStorageFull", "ServiceUnavailable":
		return errs.ErrKindConnectionFailed
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return errs.ErrKindNotFound
	case http.StatusForbidden, http.StatusUnauthorized:
		return errs.ErrKindPermissionDenied
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge:
		return errs.ErrKindInvalidInput
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
