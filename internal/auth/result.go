package auth

// ResultKind tags the terminal outcome of an authorization attempt.
type ResultKind int

const (
	ResultSuccess ResultKind = iota + 1
	ResultFailure
	ResultCancelled
)

func (k ResultKind) String() string {
	switch k {
	case ResultSuccess:
		return "success"
	case ResultFailure:
		return "failure"
	case ResultCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Result is produced exactly once per attempt. Token is set only on
// success; Err explains failures and cancellations.
type Result struct {
	Kind  ResultKind
	Token string
	Err   error
}

// Success returns a successful result carrying the bearer token.
func Success(token string) Result {
	return Result{Kind: ResultSuccess, Token: token}
}

// Failure returns a failed result.
func Failure(err error) Result {
	return Result{Kind: ResultFailure, Err: err}
}

// Cancelled returns a cancelled result.
func Cancelled(err error) Result {
	return Result{Kind: ResultCancelled, Err: err}
}

// OK reports whether r is a success.
func (r Result) OK() bool {
	return r.Kind == ResultSuccess
}

// ResultSink receives the single terminal result of every attempt that was
// not superseded.
type ResultSink interface {
	OnAuthorizationResult(Result)
}
