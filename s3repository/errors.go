package s3repository

import (
	"github.com/YaleSpinup/stars-api/apierror"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrCode translates s3 error codes into apierrors
func ErrCode(msg string, err error) error {
	if aerr, ok := errors.Cause(err).(awserr.Error); ok {
		switch aerr.Code() {
		case
			// Access denied.
			"AccessDenied",

			// There is a problem with your AWS account that prevents the operation from completing successfully.
			"AccountProblem",

			// All access to this Amazon S3 resource has been disabled.
			"AllAccessDisabled",

			// Access forbidden.
			"Forbidden",

			// The AWS access key ID you provided does not exist in our records.
			"InvalidAccessKeyId":

			return apierror.New(apierror.ErrForbidden, msg, aerr)
		case
			// The requested bucket name is not available.
			s3.ErrCodeBucketAlreadyExists,

			// The bucket you tried to create already exists, and you own it.
			s3.ErrCodeBucketAlreadyOwnedByYou,

			// The bucket you tried to delete is not empty.
			"BucketNotEmpty",

			// The request is not valid with the current state of the bucket.
			"InvalidBucketState",

			// A conflicting conditional operation is currently in progress against this resource. Try again.
			"OperationAborted":

			return apierror.New(apierror.ErrConflict, msg, aerr)
		case
			// The specified bucket does not exist.
			s3.ErrCodeNoSuchBucket,

			// The specified key does not exist.
			s3.ErrCodeNoSuchKey,

			// The specified multipart upload does not exist.
			s3.ErrCodeNoSuchUpload,

			// The specified resource does not exist.
			"NotFound",

			// The specified bucket does not have a bucket policy.
			"NoSuchBucketPolicy",

			// Indicates that the version ID specified in the request does not match an existing version.
			"NoSuchVersion":

			return apierror.New(apierror.ErrNotFound, msg, aerr)
		case
			// The authorization header you provided is invalid.
			"AuthorizationHeaderMalformed",

			// The Content-MD5 you specified did not match what we received.
			"BadDigest",

			// Your proposed upload exceeds the maximum allowed object size.
			"EntityTooLarge",

			// The provided token has expired.
			"ExpiredToken",

			// You did not provide the number of bytes specified by the Content-Length HTTP header.
			"IncompleteBody",

			// Invalid Argument.
			"InvalidArgument",

			// The specified bucket is not valid.
			"InvalidBucketName",

			// The operation is not valid for the current state of the object.
			"InvalidObjectState",

			// The requested range cannot be satisfied.
			"InvalidRequest",

			// The provided token is malformed or otherwise invalid.
			"InvalidToken",

			// Couldn't parse the specified URI.
			"InvalidURI",

			// Your key is too long.
			"KeyTooLongError",

			// The specified method is not allowed against this resource.
			"MethodNotAllowed",

			// You must provide the Content-Length HTTP header.
			"MissingContentLength",

			// Request body is empty.
			"MissingRequestBodyError",

			// At least one of the preconditions you specified did not hold.
			"PreconditionFailed",

			// The request signature we calculated does not match the signature you provided.
			"SignatureDoesNotMatch",

			// The provided token must be refreshed.
			"TokenRefreshRequired":

			return apierror.New(apierror.ErrBadRequest, msg, aerr)
		case
			// Your request was too big.
			"MaxMessageLengthExceeded",

			// Your metadata headers exceed the maximum allowed metadata size.
			"MetadataTooLarge",

			// Reduce your request rate.
			"ServiceUnavailable",

			// Reduce your request rate.
			"SlowDown",

			// You have attempted to create more buckets than allowed.
			"TooManyBuckets":

			return apierror.New(apierror.ErrLimitExceeded, msg, aerr)
		case
			// We encountered an internal error. Please try again.
			"InternalError",

			// The provided security credentials are not valid.
			"InvalidSecurity",

			// A header you provided implies functionality that is not implemented.
			"NotImplemented",

			// The bucket you are attempting to access must be addressed using the specified endpoint.
			"PermanentRedirect",

			// Temporary redirect.
			"Redirect",

			// Your socket connection to the server was not read from or written to within the timeout period.
			"RequestTimeout",

			// The difference between the request time and the server's time is too large.
			"RequestTimeTooSkewed",

			// You are being redirected to the bucket while DNS updates.
			"TemporaryRedirect":

			return apierror.New(apierror.ErrServiceUnavailable, msg, aerr)
		default:
			m := msg + ": " + aerr.Message()
			return apierror.New(apierror.ErrBadRequest, m, aerr)
		}
	}

	log.Warnf("uncaught error: %s, returning Internal Server Error", err)
	return apierror.New(apierror.ErrInternalError, msg, err)
}
