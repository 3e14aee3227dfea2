package errors

// ErrorCode represents a unique error identifier
type ErrorCode int

// Error code ranges allocation:
// 10000-10999: System & Common errors
// 11000-11999: Auth & Team errors
// 12000-12999: Question errors
// 13000-13999: Submission & Grading errors
// 14000-14999: Contest lifecycle errors

const (
	// ========== System & Common Errors (10000-10999) ==========

	Success ErrorCode = 10000

	InternalServerError ErrorCode = 10001
	InvalidParams       ErrorCode = 10002
	NotFound            ErrorCode = 10003
	Unauthorized        ErrorCode = 10004
	Forbidden           ErrorCode = 10005
	TooManyRequests     ErrorCode = 10006
	ServiceUnavailable  ErrorCode = 10007
	Timeout             ErrorCode = 10008

	// Store errors (10100-10199)
	StoreUnavailable    ErrorCode = 10100
	RecordNotFound      ErrorCode = 10101
	RecordAlreadyExists ErrorCode = 10102
	TransactionFailed   ErrorCode = 10103

	// Validation errors (10300-10399)
	ValidationFailed   ErrorCode = 10300
	InvalidFormat      ErrorCode = 10301
	RequiredFieldEmpty ErrorCode = 10302

	// ========== Auth & Team Errors (11000-11999) ==========

	InvalidCredentials    ErrorCode = 11000
	TeamNotFound          ErrorCode = 11001
	TokenExpired          ErrorCode = 11002
	TokenInvalid          ErrorCode = 11003
	TokenGenerationFailed ErrorCode = 11004

	DuplicateRegistration ErrorCode = 11100
	SessionConflict       ErrorCode = 11101
	InvalidEmail          ErrorCode = 11102

	TeamDisqualified ErrorCode = 11200
	TeamSubmitted    ErrorCode = 11201

	// ========== Question Errors (12000-12999) ==========

	QuestionNotFound     ErrorCode = 12000
	QuestionImportFailed ErrorCode = 12001
	TestCaseInvalid      ErrorCode = 12100

	// ========== Submission & Grading Errors (13000-13999) ==========

	SubmissionNotFound ErrorCode = 13000
	DraftRejected      ErrorCode = 13001
	CodeTooLarge       ErrorCode = 13002
	AlreadyFinalized   ErrorCode = 13003
	FinalizeFailed     ErrorCode = 13004

	SandboxSystemError  ErrorCode = 13100
	CompilationError    ErrorCode = 13101
	RuntimeError        ErrorCode = 13102
	TimeLimitExceeded   ErrorCode = 13103
	OutputLimitExceeded ErrorCode = 13104
	GradingPoolFull     ErrorCode = 13105

	// ========== Contest Lifecycle Errors (14000-14999) ==========

	ContestNotStarted ErrorCode = 14000
	ContestStopped    ErrorCode = 14001
	ContestNotActive  ErrorCode = 14002
	ContestActive     ErrorCode = 14003
	AnnouncementEmpty ErrorCode = 14100
)

// errorMessages maps error codes to their default English messages
var errorMessages = map[ErrorCode]string{
	Success:             "Success",
	InternalServerError: "Internal server error",
	InvalidParams:       "Invalid parameters",
	NotFound:            "Resource not found",
	Unauthorized:        "Unauthorized access",
	Forbidden:           "Access forbidden",
	TooManyRequests:     "Too many requests, please try again later",
	ServiceUnavailable:  "Service temporarily unavailable",
	Timeout:             "Request timeout",

	StoreUnavailable:    "Store operation failed",
	RecordNotFound:      "Record not found in store",
	RecordAlreadyExists: "Record already exists",
	TransactionFailed:   "Store transaction failed",

	ValidationFailed:   "Validation failed",
	InvalidFormat:      "Invalid format",
	RequiredFieldEmpty: "Required field is empty",

	InvalidCredentials:    "Invalid credentials",
	TeamNotFound:          "Team not found",
	TokenExpired:          "Token has expired",
	TokenInvalid:          "Invalid token",
	TokenGenerationFailed: "Failed to generate token",

	DuplicateRegistration: "Email already registered",
	SessionConflict:       "This email is already logged in from another device",
	InvalidEmail:          "Invalid email format",

	TeamDisqualified: "Team has been disqualified",
	TeamSubmitted:    "Team has already submitted",

	QuestionNotFound:     "Question not found",
	QuestionImportFailed: "Failed to import questions",
	TestCaseInvalid:      "Invalid test case",

	SubmissionNotFound: "Submission not found",
	DraftRejected:      "Draft cannot be saved",
	CodeTooLarge:       "Code is too large",
	AlreadyFinalized:   "Submission already finalized",
	FinalizeFailed:     "Failed to finalize submission",

	SandboxSystemError:  "Sandbox system error",
	CompilationError:    "Compilation error",
	RuntimeError:        "Runtime error",
	TimeLimitExceeded:   "Time limit exceeded",
	OutputLimitExceeded: "Output limit exceeded",
	GradingPoolFull:     "Grading pool is full, please try again later",

	ContestNotStarted: "Contest has not started yet",
	ContestStopped:    "Contest has been stopped",
	ContestNotActive:  "Contest is not active",
	ContestActive:     "Contest is currently active",
	AnnouncementEmpty: "Announcement cannot be empty",
}

// Message returns the default message for the error code
func (c ErrorCode) Message() string {
	if msg, ok := errorMessages[c]; ok {
		return msg
	}
	return "Unknown error"
}

// HTTPStatus returns the recommended HTTP status code for the error code
func (c ErrorCode) HTTPStatus() int {
	switch {
	case c == Success:
		return 200
	case c == Unauthorized, c == TokenExpired, c == TokenInvalid, c == InvalidCredentials:
		return 401
	case c == Forbidden, c == SessionConflict, c == ContestNotStarted, c == ContestNotActive,
		c == TeamDisqualified, c == TeamSubmitted:
		return 403
	case c == NotFound, c == TeamNotFound, c == QuestionNotFound, c == SubmissionNotFound:
		return 404
	case c == DuplicateRegistration, c == RecordAlreadyExists, c == ContestActive,
		c == AlreadyFinalized:
		return 409
	case c == TooManyRequests, c == GradingPoolFull:
		return 429
	case c == ServiceUnavailable, c == StoreUnavailable:
		return 503
	case c >= 10300 && c < 10400:
		return 400
	case c == InvalidParams, c == InvalidEmail, c == CodeTooLarge, c == DraftRejected, c == AnnouncementEmpty:
		return 400
	default:
		return 500
	}
}
